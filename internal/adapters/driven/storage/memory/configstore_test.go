package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

func TestConfigStore_InterfaceCompliance(t *testing.T) {
	var _ driven.ConfigStore = NewConfigStore()
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := NewConfigStore()

	val, ok := store.Get("retrieval.top_k")

	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("embedding.provider", "hashing"))
	require.NoError(t, store.Set("retrieval.top_k", int64(20)))
	require.NoError(t, store.Set("retrieval.similarity_threshold", 0.3))
	require.NoError(t, store.Set("retrieval.query_expansion", true))
	require.NoError(t, store.Set("ingest.dirs", []any{"docs", 3, "notes"}))

	assert.Equal(t, "hashing", store.GetString("embedding.provider"))
	assert.Equal(t, 20, store.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.3, store.GetFloat("retrieval.similarity_threshold"), 1e-9)
	assert.InDelta(t, 20.0, store.GetFloat("retrieval.top_k"), 1e-9)
	assert.True(t, store.GetBool("retrieval.query_expansion"))
	assert.Equal(t, []string{"docs", "notes"}, store.GetStringSlice("ingest.dirs"))
}

func TestConfigStore_TypedGetters_WrongType(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("key", struct{}{}))

	assert.Empty(t, store.GetString("key"))
	assert.Zero(t, store.GetInt("key"))
	assert.Zero(t, store.GetFloat("key"))
	assert.False(t, store.GetBool("key"))
	assert.Nil(t, store.GetStringSlice("key"))
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("retrieval.top_k", 10))

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, 10, store.GetInt("retrieval.top_k"))
	assert.Equal(t, 2, store.Writes())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key.%d", n)
			_ = store.Set(key, n)
			assert.Equal(t, n, store.GetInt(key))
		}(i)
	}
	wg.Wait()
}

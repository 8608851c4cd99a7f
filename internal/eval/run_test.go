package eval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// stubRetriever answers each query with fixed titles.
type stubRetriever struct {
	titles map[string][]string
	err    error
	opts   []domain.RetrieveOptions
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) ([]domain.Result, error) {
	s.opts = append(s.opts, opts)
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Result
	for i, t := range s.titles[query] {
		out = append(out, domain.Result{Rank: i + 1, Title: t})
	}
	return out, nil
}

func TestReadCases(t *testing.T) {
	input := `{"query": "annual leave", "doc_titles": ["Leave Policy"]}

{"query": "expenses", "doc_titles": ["Expenses", "Travel"]}
`

	cases, err := ReadCases(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "annual leave", cases[0].Query)
	assert.Equal(t, []string{"Expenses", "Travel"}, cases[1].DocTitles)
}

func TestReadCases_Errors(t *testing.T) {
	_, err := ReadCases(strings.NewReader("{not json}\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = ReadCases(strings.NewReader(`{"query": "  ", "doc_titles": []}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadCases_MissingFile(t *testing.T) {
	_, err := LoadCases(filepath.Join(t.TempDir(), "absent.jsonl"))

	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	retriever := &stubRetriever{titles: map[string][]string{
		"leave":    {"Leave Policy", "Expenses"},
		"expenses": {"Leave Policy", "Handbook", "expenses"},
	}}
	cases := []Case{
		{Query: "leave", DocTitles: []string{"leave policy"}},
		{Query: "expenses", DocTitles: []string{"Expenses"}},
	}

	report, err := Run(context.Background(), retriever, cases, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, report.K)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, 1.0, report.Recall)
	assert.InDelta(t, (1+1.0/3)/2, report.MRR, 1e-9)
	assert.Equal(t, 1.0, report.Rows[0].NDCG)
	assert.Equal(t, domain.RetrieveOptions{TopK: 3, KFinal: 3}, retriever.opts[0])
}

func TestRun_DefaultK(t *testing.T) {
	retriever := &stubRetriever{}

	report, err := Run(context.Background(), retriever, []Case{{Query: "q"}}, 0)

	require.NoError(t, err)
	assert.Equal(t, DefaultK, report.K)
	assert.Zero(t, report.Recall)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(context.Background(), &stubRetriever{}, nil, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Run(context.Background(), &stubRetriever{err: domain.ErrIndexNotFound}, []Case{{Query: "q"}}, 5)
	assert.True(t, errors.Is(err, domain.ErrIndexNotFound))
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	err := WriteReport(path, &Report{K: 5, Recall: 0.5, Rows: []Row{{Query: "q", Recall: 0.5}}})

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recall@k": 0.5`)
	assert.Contains(t, string(data), `"k": 5`)
}

package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/config"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in <dir>/config.toml. Dotted keys map to TOML
// tables, so "retrieval.top_k" is written as top_k under [retrieval].
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	data config.Values
}

// NewConfigStore opens configDir/config.toml, creating configDir when
// needed. An empty configDir means ~/.groundwork. A file that does not
// parse is an error rather than being silently replaced.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".groundwork")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{path: filepath.Join(configDir, "config.toml"), data: config.Values{}}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func lookup[T any](s *ConfigStore, key string, get func(config.Values, string) T) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.data, key)
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

func (s *ConfigStore) GetString(key string) string { return lookup(s, key, config.Values.String) }
func (s *ConfigStore) GetInt(key string) int       { return lookup(s, key, config.Values.Int) }
func (s *ConfigStore) GetFloat(key string) float64 { return lookup(s, key, config.Values.Float) }
func (s *ConfigStore) GetBool(key string) bool     { return lookup(s, key, config.Values.Bool) }

func (s *ConfigStore) GetStringSlice(key string) []string {
	return lookup(s, key, config.Values.StringSlice)
}

// Set stores a value and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.writeLocked()
}

// Save rewrites the file from memory.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked()
}

// writeLocked replaces the file through a temp file and rename so readers
// never see a truncated config.
func (s *ConfigStore) writeLocked() error {
	encoded, err := toml.Marshal(s.data.Nested())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Load replaces the in-memory values with the file's. A missing file
// yields an empty store.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.data = config.Values{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var tables map[string]any
	if err := toml.Unmarshal(raw, &tables); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.data = config.Flatten(tables)
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}

package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// builtinPrompts are seeded into the prompt directory and used whenever an
// override is missing or blank.
var builtinPrompts = map[string]string{
	driven.PromptAnswerSystem: domain.DefaultAnswerSystemPrompt,
}

const promptReadme = `# Groundwork Prompts

Files in this directory override the prompts used when answering questions.

- answer_system.txt: placed ahead of the retrieved context

Edits are picked up on the next question. Delete a file or leave it empty
to restore the built-in prompt.
`

// PromptStore serves prompt overrides from <dir>/<name>.txt. A file is
// re-read whenever its modification time or size changes, so a running
// server sees edits without restarting.
type PromptStore struct {
	dir string

	seedOnce sync.Once

	mu     sync.Mutex
	loaded map[string]promptFile
}

// promptFile is an override as last read from disk.
type promptFile struct {
	text    string
	modTime time.Time
	size    int64
}

// NewPromptStore creates a prompt store rooted at dir. Nothing is written
// until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".groundwork", "prompts")
	}
	return &PromptStore{dir: dir, loaded: make(map[string]promptFile)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named prompt.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, known := builtinPrompts[name]
	if !known {
		return "", fmt.Errorf("load prompt %q: %w", name, domain.ErrNotFound)
	}
	s.seedOnce.Do(s.seed)

	path := s.path(name)
	info, err := os.Stat(path)
	if err != nil {
		return builtin, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.loaded[name]; ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return orBuiltin(cached.text, builtin), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Read prompt %s: %v", path, err)
		return builtin, nil
	}
	text := strings.TrimSpace(string(data))
	s.loaded[name] = promptFile{text: text, modTime: info.ModTime(), size: info.Size()}
	logger.Debug("Loaded prompt %s (%d bytes)", name, len(text))
	return orBuiltin(text, builtin), nil
}

// seed writes the built-in prompts and a README into the directory, never
// touching files that already exist. Failures only cost the override files.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		logger.Warn("Create prompt directory: %v", err)
		return
	}
	files := map[string]string{filepath.Join(s.dir, "README.md"): promptReadme}
	for name, text := range builtinPrompts {
		files[s.path(name)] = text + "\n"
	}
	for path, content := range files {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			if !os.IsExist(err) {
				logger.Warn("Seed prompt file %s: %v", path, err)
			}
			continue
		}
		_, err = f.WriteString(content)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			logger.Warn("Seed prompt file %s: %v", path, err)
		}
	}
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func orBuiltin(text, builtin string) string {
	if text == "" {
		return builtin
	}
	return text
}

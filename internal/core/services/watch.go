package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// watchDebounce is how long a directory must be quiet before changed
// files are ingested.
const watchDebounce = 500 * time.Millisecond

// Watch ingests supported files under dirs whenever they are created or
// written, until ctx is cancelled. Changes are batched after a quiet
// period and indexed incrementally.
func (s *IngestService) Watch(ctx context.Context, dirs []string, opts domain.BuildOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	roots := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		root, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		if err := addTree(watcher, root); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		roots = append(roots, root)
	}
	logger.Info("Watching %d directories", len(roots))

	pending := make(map[string]struct{})
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if event.Has(fsnotify.Create) && !s.excludedDir(roots, event.Name) {
					if err := addTree(watcher, event.Name); err != nil {
						logger.Warn("Watch new directory %s: %v", event.Name, err)
					}
				}
				continue
			}

			if !s.watched(roots, event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			s.ingestPending(ctx, pending, opts)
			pending = make(map[string]struct{})
		}
	}
}

// ingestPending builds the changed files and appends their chunks.
// Failures are logged; watching continues.
func (s *IngestService) ingestPending(ctx context.Context, pending map[string]struct{}, opts domain.BuildOptions) {
	if len(pending) == 0 {
		return
	}

	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	opts.SkipIndex = true
	report, err := s.Build(ctx, paths, opts)
	if err != nil {
		logger.Warn("Ingest changed files: %v", err)
		return
	}
	if len(report.ChunkIDs) == 0 {
		return
	}

	index, err := s.indexer.UpdateIndex(ctx, report.ChunkIDs)
	if err != nil {
		logger.Warn("Update index: %v", err)
		return
	}
	logger.Info("Ingested %d changed files, index %s to %d vectors", len(paths), index.Action, index.Vectors)
}

// watched reports whether path is an ingestible file under one of roots.
func (s *IngestService) watched(roots []string, path string) bool {
	for _, root := range roots {
		if s.walker.matches(root, path) {
			return true
		}
	}
	return false
}

func (s *IngestService) excludedDir(roots []string, dir string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == ".." || filepath.IsAbs(rel) {
			continue
		}
		if s.walker.excluded(filepath.ToSlash(rel) + "/") {
			return true
		}
	}
	return false
}

// addTree watches root and every directory below it. fsnotify watches
// are not recursive.
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

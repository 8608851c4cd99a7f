package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// Upload handling limits.
const (
	uploadConcurrency = 4
	uploadDirPrefix   = "groundwork_upload_"
	uploadSourcePfx   = "uploaded:"
	recentDocsLimit   = 20
)

// PipelineFactory builds the clean-and-chunk pipeline for the given
// chunking parameters.
type PipelineFactory func(maxTokens, overlap int) (driven.PostProcessorPipeline, error)

// ProgressFunc is called after each file of a build.
type ProgressFunc func(done, total int, path string)

// IngestConfig holds ingestion defaults.
type IngestConfig struct {
	// Chunking applies when BuildOptions leaves a field nil. It is used
	// as given: MaxTokens 0 keeps sections whole, Overlap 0 disables
	// overlap.
	Chunking domain.ChunkingSettings

	// Exclude lists glob patterns, relative to each walked directory,
	// that are never ingested.
	Exclude []string

	// StagingDir holds per-batch upload directories. Defaults to the
	// system temp directory.
	StagingDir string
}

// IngestService loads files into the chunk store and keeps the vector
// index in step.
type IngestService struct {
	store    driven.ChunkStore
	loaders  driven.LoaderRegistry
	pipeline PipelineFactory
	indexer  driving.IndexService
	index    driven.VectorIndex
	walker   *walker
	config   IngestConfig
	progress ProgressFunc
}

// DefaultIngestConfig returns the stock chunk window.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{Chunking: domain.DefaultAppSettings().Chunking}
}

// NewIngestService creates an ingest service.
func NewIngestService(
	store driven.ChunkStore,
	loaders driven.LoaderRegistry,
	pipeline PipelineFactory,
	indexer driving.IndexService,
	index driven.VectorIndex,
	config IngestConfig,
) *IngestService {
	if config.StagingDir == "" {
		config.StagingDir = os.TempDir()
	}
	return &IngestService{
		store:    store,
		loaders:  loaders,
		pipeline: pipeline,
		indexer:  indexer,
		index:    index,
		walker:   newWalker(nil, config.Exclude),
		config:   config,
	}
}

// SetProgressFunc registers a callback invoked after each built file.
func (s *IngestService) SetProgressFunc(fn ProgressFunc) {
	s.progress = fn
}

// Build loads, chunks and stores every supported file under paths.
func (s *IngestService) Build(
	ctx context.Context, paths []string, opts domain.BuildOptions,
) (*domain.BuildReport, error) {
	logger.Section("Build")
	chunking := opts.Chunking(s.config.Chunking)

	pipeline, err := s.pipeline(chunking.MaxTokens, chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	report := &domain.BuildReport{ChunkIDs: []int64{}, Files: []domain.FileResult{}}

	files, missing := s.collect(paths)
	report.Files = append(report.Files, missing...)
	logger.Info("Building %d files", len(files))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, ids := s.buildFile(ctx, pipeline, path, opts)
		report.Files = append(report.Files, result)
		if result.Err == nil && !result.Skipped {
			report.Documents++
			report.ChunkIDs = append(report.ChunkIDs, ids...)
		}

		if s.progress != nil {
			s.progress(i+1, len(files), path)
		}
	}

	logger.Info("Stored %d documents, %d chunks, %d failed",
		report.Documents, len(report.ChunkIDs), len(report.Failed()))

	if opts.SkipIndex {
		return report, nil
	}

	index, err := s.indexer.RebuildFull(ctx)
	if errors.Is(err, domain.ErrNoChunks) {
		logger.Warn("Nothing to index: no chunks stored")
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("rebuild index: %w", err)
	}
	report.Index = index
	return report, nil
}

// collect expands directories and reports paths that do not exist.
func (s *IngestService) collect(paths []string) ([]string, []domain.FileResult) {
	var files []string
	var missing []domain.FileResult
	seen := make(map[string]struct{})

	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			missing = append(missing, failedFile(p, err))
			continue
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		found, err := s.walker.walk(p)
		if err != nil {
			missing = append(missing, failedFile(p, err))
			continue
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, missing
}

// buildFile loads one file and replaces its document's chunks.
func (s *IngestService) buildFile(
	ctx context.Context, pipeline driven.PostProcessorPipeline, path string, opts domain.BuildOptions,
) (domain.FileResult, []int64) {
	loader, err := s.loaders.Get(path)
	if errors.Is(err, domain.ErrUnsupportedType) {
		logger.Debug("Skipping unsupported file %s", path)
		return domain.FileResult{Path: path, Skipped: true}, nil
	}
	if err != nil {
		return failedFile(path, err), nil
	}

	doc, err := loader.Load(ctx, path)
	if err != nil {
		return failedFile(path, err), nil
	}
	if src, ok := opts.SourceOverride[path]; ok {
		doc.Source = src
	}

	drafts, err := pipeline.Process(ctx, doc)
	if err != nil {
		return failedFile(path, fmt.Errorf("chunk document: %w", err)), nil
	}

	stored, err := s.store.GetOrCreateDocument(ctx, domain.Document{
		Source:       doc.Source,
		Title:        doc.Title,
		URL:          doc.URL,
		RevisionDate: doc.RevisionDate,
	})
	if err != nil {
		return failedFile(path, fmt.Errorf("store document: %w", err)), nil
	}

	chunks, err := s.store.ReplaceDocument(ctx, stored.ID, drafts)
	if err != nil {
		return failedFile(path, fmt.Errorf("store chunks: %w", err)), nil
	}

	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}

	logger.Debug("Stored %s: %d chunks", path, len(chunks))
	return domain.FileResult{Path: path, Title: doc.Title, Chunks: len(chunks)}, ids
}

func failedFile(path string, err error) domain.FileResult {
	var le *domain.LoadError
	if !errors.As(err, &le) {
		err = &domain.LoadError{Path: path, Err: err}
	}
	logger.Warn("%v", err)
	return domain.FileResult{Path: path, Err: err, Error: err.Error()}
}

// RebuildFromDatabase regenerates the index from every stored chunk.
func (s *IngestService) RebuildFromDatabase(ctx context.Context) (*domain.IndexReport, error) {
	return s.indexer.RebuildFull(ctx)
}

// AddChunksToIndex appends the chunks, rebuilding when that fails.
func (s *IngestService) AddChunksToIndex(ctx context.Context, chunkIDs []int64) (*domain.IndexReport, error) {
	return s.indexer.UpdateIndex(ctx, chunkIDs)
}

// staged is an upload accepted for staging.
type staged struct {
	result int
	upload domain.Upload
	path   string
}

// IngestUploads stages uploads into a fresh batch directory, builds them
// without touching the index, then updates the index with the new chunks.
// One bad upload never aborts the others.
func (s *IngestService) IngestUploads(
	ctx context.Context, uploads []domain.Upload, opts domain.BuildOptions,
) (*domain.UploadReport, error) {
	logger.Section("Upload")

	batchID := uuid.NewString()
	dir, err := filepath.Abs(filepath.Join(s.config.StagingDir, uploadDirPrefix+batchID))
	if err != nil {
		return nil, fmt.Errorf("resolve staging directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("Remove staging directory %s: %v", dir, err)
		}
	}()

	report := &domain.UploadReport{BatchID: batchID, Files: make([]domain.UploadResult, len(uploads))}
	accepted := planUploads(dir, uploads, report.Files)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, st := range accepted {
		g.Go(func() error {
			if err := saveUpload(gctx, st.upload, st.path); err != nil {
				report.Files[st.result].Status = domain.UploadStatusFailed
				report.Files[st.result].Error = err.Error()
				logger.Warn("Save upload %s: %v", st.upload.Name, err)
				return nil
			}
			report.Files[st.result].Status = domain.UploadStatusSaved
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string
	overrides := make(map[string]string)
	for _, st := range accepted {
		if report.Files[st.result].Status != domain.UploadStatusSaved {
			continue
		}
		paths = append(paths, st.path)
		overrides[st.path] = uploadSourcePfx + filepath.Base(st.path)
	}

	docsBefore, chunksBefore, err := s.counts(ctx)
	if err != nil {
		return nil, err
	}

	if len(paths) > 0 {
		opts.SkipIndex = true
		opts.SourceOverride = overrides
		built, err := s.Build(ctx, paths, opts)
		if err != nil {
			return nil, fmt.Errorf("build uploads: %w", err)
		}
		markBuildFailures(report.Files, accepted, built)

		index, err := s.indexer.UpdateIndex(ctx, built.ChunkIDs)
		if err != nil {
			return nil, fmt.Errorf("update index: %w", err)
		}
		report.Index = index
	}

	docsAfter, chunksAfter, err := s.counts(ctx)
	if err != nil {
		return nil, err
	}

	for _, f := range report.Files {
		if f.Status == domain.UploadStatusSaved {
			report.Saved++
		} else {
			report.Failed++
		}
	}
	report.DocumentsAdded = docsAfter - docsBefore
	report.ChunksAdded = chunksAfter - chunksBefore
	report.TotalDocuments = docsAfter
	report.TotalChunks = chunksAfter

	logger.Info("Upload batch %s: %d saved, %d failed", batchID, report.Saved, report.Failed)
	return report, nil
}

// planUploads validates uploads and assigns unique file names in input
// order. Rejected uploads are marked failed in results.
func planUploads(dir string, uploads []domain.Upload, results []domain.UploadResult) []staged {
	var accepted []staged
	taken := make(map[string]struct{})

	for i, u := range uploads {
		name := filepath.Base(strings.ReplaceAll(u.Name, "\\", "/"))
		results[i] = domain.UploadResult{Name: u.Name}

		switch {
		case name == "." || name == "/" || name == "":
			results[i].Status = domain.UploadStatusFailed
			results[i].Error = fmt.Sprintf("empty file name: %v", domain.ErrInvalidInput)
			continue
		case !domain.IsSupportedFile(name):
			results[i].Status = domain.UploadStatusFailed
			results[i].Error = fmt.Sprintf("%s: %v", filepath.Ext(name), domain.ErrUnsupportedType)
			continue
		case u.Size > domain.MaxUploadSize:
			results[i].Status = domain.UploadStatusFailed
			results[i].Error = fmt.Sprintf("%d bytes: %v", u.Size, domain.ErrFileTooLarge)
			continue
		}

		unique := uniqueName(name, taken)
		taken[unique] = struct{}{}
		results[i].SavedAs = unique
		accepted = append(accepted, staged{result: i, upload: u, path: filepath.Join(dir, unique)})
	}
	return accepted
}

// uniqueName appends _1, _2, ... before the extension until name is free.
func uniqueName(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// saveUpload copies an upload to path, enforcing MaxUploadSize on the
// actual body.
func saveUpload(ctx context.Context, u domain.Upload, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.Open == nil {
		return fmt.Errorf("no body: %w", domain.ErrInvalidInput)
	}

	body, err := u.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer body.Close()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(body, domain.MaxUploadSize+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		return fmt.Errorf("write staged file: %w", err)
	case closeErr != nil:
		return fmt.Errorf("close staged file: %w", closeErr)
	case n > domain.MaxUploadSize:
		return fmt.Errorf("%d+ bytes: %w", n, domain.ErrFileTooLarge)
	}
	return nil
}

// markBuildFailures moves uploads whose build failed to the failed status.
func markBuildFailures(results []domain.UploadResult, accepted []staged, built *domain.BuildReport) {
	byPath := make(map[string]int, len(accepted))
	for _, st := range accepted {
		byPath[st.path] = st.result
	}
	for _, f := range built.Files {
		i, ok := byPath[f.Path]
		if !ok || f.Err == nil {
			continue
		}
		results[i].Status = domain.UploadStatusFailed
		results[i].Error = f.Error
	}
}

func (s *IngestService) counts(ctx context.Context) (int, int, error) {
	docs, err := s.store.CountDocuments(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := s.store.CountChunks(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count chunks: %w", err)
	}
	return docs, chunks, nil
}

// Status describes the corpus and index.
func (s *IngestService) Status(ctx context.Context) (*domain.IngestStatus, error) {
	docs, chunks, err := s.counts(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.store.RecentDocuments(ctx, recentDocsLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}

	status := &domain.IngestStatus{
		TotalDocuments:  docs,
		TotalChunks:     chunks,
		IndexExists:     s.index.Exists(),
		RecentDocuments: recent,
	}
	if status.IndexExists {
		n, err := s.index.Len(ctx)
		if err != nil {
			logger.Warn("Read index size: %v", err)
		}
		status.IndexVectors = n
	}
	return status, nil
}


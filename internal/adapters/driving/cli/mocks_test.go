package cli

import (
	"bytes"
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/core/services"
)

type mockIngestService struct {
	buildPaths []string
	buildOpts  domain.BuildOptions
	addedIDs   []int64
	watched    []string
	progress   services.ProgressFunc
	err        error
}

func (m *mockIngestService) Build(_ context.Context, paths []string, opts domain.BuildOptions) (*domain.BuildReport, error) {
	m.buildPaths = paths
	m.buildOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	report := &domain.BuildReport{
		ChunkIDs:  []int64{1, 2, 3},
		Documents: 2,
		Files: []domain.FileResult{
			{Path: "docs/a.md", Title: "A", Chunks: 2},
			{Path: "docs/b.md", Title: "B", Chunks: 1},
			{Path: "docs/broken.pdf", Err: errors.New("bad pdf")},
		},
	}
	if !opts.SkipIndex {
		report.Index = &domain.IndexReport{Action: domain.IndexActionRebuild, Vectors: 3}
	}
	return report, nil
}

func (m *mockIngestService) RebuildFromDatabase(_ context.Context) (*domain.IndexReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IndexReport{Action: domain.IndexActionRebuild, Vectors: 12}, nil
}

func (m *mockIngestService) AddChunksToIndex(_ context.Context, ids []int64) (*domain.IndexReport, error) {
	m.addedIDs = ids
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IndexReport{Action: domain.IndexActionAppend, Added: len(ids), Vectors: 10 + len(ids)}, nil
}

func (m *mockIngestService) IngestUploads(_ context.Context, _ []domain.Upload, _ domain.BuildOptions) (*domain.UploadReport, error) {
	return &domain.UploadReport{}, nil
}

func (m *mockIngestService) Status(_ context.Context) (*domain.IngestStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IngestStatus{
		TotalDocuments: 2,
		TotalChunks:    3,
		IndexExists:    true,
		IndexVectors:   3,
		RecentDocuments: []domain.DocumentSummary{
			{Document: domain.Document{ID: 1, Title: "Handbook", Source: "docs/handbook.md"}, ChunkCount: 3},
		},
	}, nil
}

func (m *mockIngestService) Watch(ctx context.Context, dirs []string, _ domain.BuildOptions) error {
	m.watched = dirs
	return nil
}

func (m *mockIngestService) SetProgressFunc(fn services.ProgressFunc) {
	m.progress = fn
}

type mockRetrievalService struct {
	query string
	opts  domain.RetrieveOptions
	err   error
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) ([]domain.Result, error) {
	m.query = query
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Result{
		{Rank: 1, Score: 0.91, Title: "Handbook", Section: "Leave", Source: "docs/handbook.md", Text: "Annual leave is 25 days."},
		{Rank: 2, Score: 0.55, Title: "Policies", Source: "docs/policies.md", Text: "See the handbook."},
	}, nil
}

type mockQueryService struct {
	request  domain.QueryRequest
	feedback domain.Feedback
	err      error
}

func (m *mockQueryService) Answer(_ context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Answer{
		Answer:        "Annual leave is 25 days [1].",
		Citations:     []domain.AnswerCitation{{Rank: 1, Title: "Handbook", URL: "https://wiki/handbook"}},
		Confidence:    0.82,
		Snippets:      []domain.Result{},
		InteractionID: 7,
	}, nil
}

func (m *mockQueryService) RecordFeedback(_ context.Context, fb domain.Feedback) (int64, error) {
	m.feedback = fb
	if m.err != nil {
		return 0, m.err
	}
	return 3, nil
}

type mockSettingsService struct {
	settings    domain.AppSettings
	saved       *domain.AppSettings
	validateErr error

	embeddingProvider domain.AIProvider
	embeddingModel    string
	llmProvider       domain.AIProvider
	rerankProvider    domain.AIProvider
	rerankKey         string
	rerankErr         error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.saved = s
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, _ string) error {
	m.embeddingProvider = p
	m.embeddingModel = model
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, _, _ string) error {
	m.llmProvider = p
	return nil
}

func (m *mockSettingsService) SetRerankProvider(p domain.AIProvider, _, apiKey string) error {
	m.rerankProvider = p
	m.rerankKey = apiKey
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error { return nil }
func (m *mockSettingsService) ValidateRerankConfig() error { return m.rerankErr }

var (
	_ driving.IngestService    = (*mockIngestService)(nil)
	_ driving.RetrievalService = (*mockRetrievalService)(nil)
	_ driving.QueryService     = (*mockQueryService)(nil)
	_ driving.SettingsService  = (*mockSettingsService)(nil)
)

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	ingest    *mockIngestService
	retrieval *mockRetrievalService
	query     *mockQueryService
	settings  *mockSettingsService
}

// setupTestServices installs fresh mocks and returns a cleanup func that
// restores the previous services.
func setupTestServices() (*testServices, func()) {
	oldIngest, oldRetrieval, oldQuery, oldSettings := ingestService, retrievalService, queryService, settingsService
	oldClose, oldBuilder := closeServices, serviceBuilder

	ts := &testServices{
		ingest:    &mockIngestService{},
		retrieval: &mockRetrievalService{},
		query:     &mockQueryService{},
		settings:  newMockSettingsService(),
	}
	ingestService = ts.ingest
	retrievalService = ts.retrieval
	queryService = ts.query
	settingsService = ts.settings
	closeServices = nil
	serviceBuilder = nil

	return ts, func() {
		ingestService, retrievalService, queryService, settingsService = oldIngest, oldRetrieval, oldQuery, oldSettings
		closeServices, serviceBuilder = oldClose, oldBuilder
	}
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

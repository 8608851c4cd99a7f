package mcp

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.Result
	err     error
	opts    domain.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	opts domain.RetrieveOptions,
) ([]domain.Result, error) {
	m.opts = opts
	return m.results, m.err
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer *domain.Answer
	err    error
}

func (m *mockQueryService) Answer(_ context.Context, _ domain.QueryRequest) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockQueryService) RecordFeedback(_ context.Context, _ domain.Feedback) (int64, error) {
	return 0, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	status *domain.IngestStatus
	err    error
}

func (m *mockIngestService) Build(_ context.Context, _ []string, _ domain.BuildOptions) (*domain.BuildReport, error) {
	return &domain.BuildReport{}, m.err
}

func (m *mockIngestService) RebuildFromDatabase(_ context.Context) (*domain.IndexReport, error) {
	return &domain.IndexReport{}, m.err
}

func (m *mockIngestService) AddChunksToIndex(_ context.Context, _ []int64) (*domain.IndexReport, error) {
	return &domain.IndexReport{}, m.err
}

func (m *mockIngestService) IngestUploads(
	_ context.Context, _ []domain.Upload, _ domain.BuildOptions,
) (*domain.UploadReport, error) {
	return &domain.UploadReport{}, m.err
}

func (m *mockIngestService) Status(_ context.Context) (*domain.IngestStatus, error) {
	return m.status, m.err
}

func (m *mockIngestService) Watch(_ context.Context, _ []string, _ domain.BuildOptions) error {
	return m.err
}

package httpapi

import (
	"context"
	"io"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

var (
	_ driving.IngestService = (*mockIngestService)(nil)
	_ driving.QueryService  = (*mockQueryService)(nil)
)

type mockIngestService struct {
	buildPaths  []string
	buildOpts   domain.BuildOptions
	buildReport *domain.BuildReport
	buildErr    error

	rebuildReport *domain.IndexReport
	rebuildErr    error

	uploads      []domain.Upload
	uploadBodies []string
	uploadOpts   domain.BuildOptions
	uploadReport *domain.UploadReport
	uploadErr    error

	status    *domain.IngestStatus
	statusErr error
}

func (m *mockIngestService) Build(_ context.Context, paths []string, opts domain.BuildOptions) (*domain.BuildReport, error) {
	m.buildPaths = paths
	m.buildOpts = opts
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	if m.buildReport == nil {
		return &domain.BuildReport{}, nil
	}
	return m.buildReport, nil
}

func (m *mockIngestService) RebuildFromDatabase(_ context.Context) (*domain.IndexReport, error) {
	return m.rebuildReport, m.rebuildErr
}

func (m *mockIngestService) AddChunksToIndex(_ context.Context, _ []int64) (*domain.IndexReport, error) {
	return &domain.IndexReport{}, nil
}

func (m *mockIngestService) IngestUploads(_ context.Context, uploads []domain.Upload, opts domain.BuildOptions) (*domain.UploadReport, error) {
	m.uploads = uploads
	m.uploadOpts = opts
	for _, u := range uploads {
		rc, err := u.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		m.uploadBodies = append(m.uploadBodies, string(data))
	}
	return m.uploadReport, m.uploadErr
}

func (m *mockIngestService) Status(_ context.Context) (*domain.IngestStatus, error) {
	return m.status, m.statusErr
}

func (m *mockIngestService) Watch(ctx context.Context, _ []string, _ domain.BuildOptions) error {
	<-ctx.Done()
	return nil
}

type mockQueryService struct {
	request  domain.QueryRequest
	deadline bool
	answer   *domain.Answer
	err      error

	feedback   domain.Feedback
	feedbackID int64
	feedErr    error
}

func (m *mockQueryService) Answer(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	m.request = req
	_, m.deadline = ctx.Deadline()
	return m.answer, m.err
}

func (m *mockQueryService) RecordFeedback(_ context.Context, fb domain.Feedback) (int64, error) {
	m.feedback = fb
	return m.feedbackID, m.feedErr
}

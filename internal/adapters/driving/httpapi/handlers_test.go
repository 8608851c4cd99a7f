package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestIngest_BuildsAndRebuilds(t *testing.T) {
	s, ingest, _ := newTestServer(t, Config{})
	ingest.buildReport = &domain.BuildReport{
		ChunkIDs:  []int64{1, 2, 3},
		Documents: 2,
		Index:     &domain.IndexReport{Action: domain.IndexActionRebuild, Vectors: 3},
	}

	rec := doJSON(t, s, http.MethodPost, "/ingest", `{"paths":["docs"],"max_chunk_tokens":256,"overlap":32}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"docs"}, ingest.buildPaths)
	assert.Equal(t, domain.IntOption(256), ingest.buildOpts.MaxTokens)
	assert.Equal(t, domain.IntOption(32), ingest.buildOpts.Overlap)
	assert.False(t, ingest.buildOpts.SkipIndex)

	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["documents"])
	assert.EqualValues(t, 3, body["chunks"])
}

func TestIngest_ChunkingFields(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantMaxTokens *int
		wantOverlap   *int
	}{
		{"omitted uses settings", `{"paths":["docs"]}`, nil, nil},
		{"explicit zero overlap", `{"paths":["docs"],"max_chunk_tokens":100,"overlap":0}`,
			domain.IntOption(100), domain.IntOption(0)},
		{"explicit zero max tokens", `{"paths":["docs"],"max_chunk_tokens":0}`, domain.IntOption(0), nil},
		{"null is omitted", `{"paths":["docs"],"overlap":null}`, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ingest, _ := newTestServer(t, Config{})
			ingest.buildReport = &domain.BuildReport{}

			rec := doJSON(t, s, http.MethodPost, "/ingest", tt.body)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantMaxTokens, ingest.buildOpts.MaxTokens)
			assert.Equal(t, tt.wantOverlap, ingest.buildOpts.Overlap)
		})
	}
}

func TestIngest_Validation(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})

	tests := []struct {
		name string
		body string
	}{
		{"missing paths", `{}`},
		{"empty paths", `{"paths":[]}`},
		{"malformed", `{"paths":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/ingest", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, decode(t, rec), "detail")
		})
	}
}

func TestIngest_NoChunks(t *testing.T) {
	s, ingest, _ := newTestServer(t, Config{})
	ingest.buildErr = domain.ErrNoChunks

	rec := doJSON(t, s, http.MethodPost, "/ingest", `{"paths":["empty"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRebuild(t *testing.T) {
	s, ingest, _ := newTestServer(t, Config{})
	ingest.rebuildReport = &domain.IndexReport{Action: domain.IndexActionRebuild, Vectors: 7}

	rec := doJSON(t, s, http.MethodPost, "/ingest/rebuild", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	index := body["index"].(map[string]any)
	assert.EqualValues(t, 7, index["vectors"])
}

func TestRebuild_Failure(t *testing.T) {
	s, ingest, _ := newTestServer(t, Config{})
	ingest.rebuildErr = errors.New("disk full")

	rec := doJSON(t, s, http.MethodPost, "/ingest/rebuild", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "disk full")
}

func TestStatus(t *testing.T) {
	s, ingest, _ := newTestServer(t, Config{})
	ingest.status = &domain.IngestStatus{
		TotalDocuments: 1,
		TotalChunks:    4,
		IndexExists:    true,
		IndexVectors:   4,
		RecentDocuments: []domain.DocumentSummary{
			{Document: domain.Document{ID: 9, Title: "Guide", Source: "docs/guide.md"}, ChunkCount: 4},
		},
	}

	rec := doJSON(t, s, http.MethodGet, "/ingest/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 4, body["total_chunks"])
	assert.Equal(t, true, body["index_exists"])
	docs := body["documents"].([]any)
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]any)
	assert.Equal(t, "Guide", doc["title"])
	assert.EqualValues(t, 4, doc["chunk_count"])
}

func newUploadRequest(t *testing.T, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	s, ingest, _ := newTestServer(t, Config{})
	ingest.uploadReport = &domain.UploadReport{
		BatchID: "batch",
		Files:   []domain.UploadResult{{Name: "guide.md", SavedAs: "guide.md", Status: domain.UploadStatusSaved}},
		Saved:   1,
	}

	req := newUploadRequest(t, map[string]string{"guide.md": "# Guide\nhello"}, map[string]string{
		"max_chunk_tokens": "128",
		"overlap":          "16",
	})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, ingest.uploads, 1)
	assert.Equal(t, "guide.md", ingest.uploads[0].Name)
	assert.EqualValues(t, len("# Guide\nhello"), ingest.uploads[0].Size)
	assert.Equal(t, []string{"# Guide\nhello"}, ingest.uploadBodies)
	assert.Equal(t, domain.IntOption(128), ingest.uploadOpts.MaxTokens)
	assert.Equal(t, domain.IntOption(16), ingest.uploadOpts.Overlap)
	assert.Equal(t, "batch", decode(t, rec)["batch_id"])
}

func TestUpload_ChunkingFields(t *testing.T) {
	tests := []struct {
		name          string
		fields        map[string]string
		wantMaxTokens *int
		wantOverlap   *int
	}{
		{"omitted uses settings", nil, nil, nil},
		{"explicit zeros", map[string]string{"max_chunk_tokens": "0", "overlap": "0"},
			domain.IntOption(0), domain.IntOption(0)},
		{"empty field is omitted", map[string]string{"overlap": ""}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ingest, _ := newTestServer(t, Config{})
			ingest.uploadReport = &domain.UploadReport{
				Files: []domain.UploadResult{{Name: "a.md", SavedAs: "a.md", Status: domain.UploadStatusSaved}},
				Saved: 1,
			}

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, newUploadRequest(t, map[string]string{"a.md": "# A"}, tt.fields))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantMaxTokens, ingest.uploadOpts.MaxTokens)
			assert.Equal(t, tt.wantOverlap, ingest.uploadOpts.Overlap)
		})
	}
}

func TestUpload_NothingSaved(t *testing.T) {
	s, ingest, _ := newTestServer(t, Config{})
	ingest.uploadReport = &domain.UploadReport{
		Files:  []domain.UploadResult{{Name: "notes.txt", Status: domain.UploadStatusFailed, Error: "unsupported"}},
		Failed: 1,
	}

	req := newUploadRequest(t, map[string]string{"notes.txt": "x"}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No supported files uploaded", decode(t, rec)["detail"])
}

func TestUpload_BadRequests(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, newUploadRequest(t, nil, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, newUploadRequest(t, map[string]string{"a.md": "x"}, map[string]string{"overlap": "lots"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/ingest/upload", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestQuery(t *testing.T) {
	s, _, query := newTestServer(t, Config{})
	query.answer = &domain.Answer{
		Answer:     "Use the portal [1].",
		Citations:  []domain.AnswerCitation{{Rank: 1, Title: "Guide", URL: "https://x"}},
		Confidence: 0.8,
	}

	rec := doJSON(t, s, http.MethodPost, "/query", `{"query":"how do I reset?","top_k":10,"k_final":3}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "how do I reset?", query.request.Query)
	assert.Equal(t, 10, query.request.TopK)
	assert.Equal(t, 3, query.request.KFinal)
	assert.True(t, query.deadline)

	body := decode(t, rec)
	assert.Equal(t, "Use the portal [1].", body["answer"])
	assert.InDelta(t, 0.8, body["confidence"], 1e-9)
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", domain.ErrInvalidInput, http.StatusUnprocessableEntity},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, query := newTestServer(t, Config{})
			query.err = tt.err

			rec := doJSON(t, s, http.MethodPost, "/query", `{"query":"q"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestFeedback(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"numeric id", `{"interaction_id":42,"rating":1,"comment":"great"}`},
		{"string id", `{"interaction_id":"42","rating":1,"comment":"great"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, query := newTestServer(t, Config{})
			query.feedbackID = 5

			rec := doJSON(t, s, http.MethodPost, "/feedback", tt.body)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.EqualValues(t, 42, query.feedback.InteractionID)
			assert.Equal(t, 1, query.feedback.Rating)
			assert.Equal(t, "great", query.feedback.Comment)
			assert.EqualValues(t, 5, decode(t, rec)["feedback_id"])
		})
	}
}

func TestFeedback_Errors(t *testing.T) {
	s, _, query := newTestServer(t, Config{})

	rec := doJSON(t, s, http.MethodPost, "/feedback", `{"interaction_id":"abc","rating":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	query.feedErr = domain.ErrNotFound
	rec = doJSON(t, s, http.MethodPost, "/feedback", `{"interaction_id":99,"rating":-1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

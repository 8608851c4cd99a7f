package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// ingestRequest is the body of POST /ingest. Omitted chunking fields use
// the configured settings; an explicit 0 is honoured.
type ingestRequest struct {
	Paths          []string `json:"paths" binding:"required,min=1"`
	MaxChunkTokens *int     `json:"max_chunk_tokens"`
	Overlap        *int     `json:"overlap"`
}

// feedbackRequest is the body of POST /feedback. The interaction id may
// be sent as a number or a string.
type feedbackRequest struct {
	InteractionID flexibleID `json:"interaction_id" binding:"required"`
	Rating        int        `json:"rating"`
	Comment       string     `json:"comment"`
}

type flexibleID int64

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("interaction_id %s: %w", data, domain.ErrInvalidInput)
	}
	*id = flexibleID(n)
	return nil
}

// documentInfo is a status row.
type documentInfo struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Source     string    `json:"source"`
	URL        string    `json:"url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunk_count"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("decode request: %w: %w", domain.ErrInvalidInput, err))
		return
	}

	report, err := s.ingest.Build(c.Request.Context(), req.Paths, domain.BuildOptions{
		MaxTokens: req.MaxChunkTokens,
		Overlap:   req.Overlap,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Index rebuilt from all documents in database",
		"documents": report.Documents,
		"chunks":    len(report.ChunkIDs),
		"files":     report.Files,
		"index":     report.Index,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, fmt.Errorf("read form: %w: %w", domain.ErrInvalidInput, err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		writeError(c, fmt.Errorf("no files: %w", domain.ErrInvalidInput))
		return
	}

	maxTokens, err := formInt(c, "max_chunk_tokens")
	if err != nil {
		writeError(c, err)
		return
	}
	overlap, err := formInt(c, "overlap")
	if err != nil {
		writeError(c, err)
		return
	}

	uploads := make([]domain.Upload, len(files))
	for i, fh := range files {
		uploads[i] = domain.Upload{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		}
	}

	report, err := s.ingest.IngestUploads(c.Request.Context(), uploads, domain.BuildOptions{
		MaxTokens: maxTokens,
		Overlap:   overlap,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if report.Saved == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No supported files uploaded", "files": report.Files})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleRebuild(c *gin.Context) {
	report, err := s.ingest.RebuildFromDatabase(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Index rebuilt from all documents in database",
		"index":   report,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.ingest.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	docs := make([]documentInfo, len(status.RecentDocuments))
	for i, d := range status.RecentDocuments {
		docs[i] = documentInfo{
			ID:         d.Document.ID,
			Title:      d.Document.Title,
			Source:     d.Document.Source,
			URL:        d.Document.URL,
			CreatedAt:  d.Document.CreatedAt,
			ChunkCount: d.ChunkCount,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"total_documents": status.TotalDocuments,
		"total_chunks":    status.TotalChunks,
		"index_exists":    status.IndexExists,
		"index_vectors":   status.IndexVectors,
		"documents":       docs,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req domain.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("decode request: %w: %w", domain.ErrInvalidInput, err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.QueryTimeout)
	defer cancel()

	answer, err := s.query.Answer(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("decode request: %w: %w", domain.ErrInvalidInput, err))
		return
	}

	id, err := s.query.RecordFeedback(c.Request.Context(), domain.Feedback{
		InteractionID: int64(req.InteractionID),
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "feedback_id": id})
}

// formInt reads an optional integer form field. Absent or empty is nil.
func formInt(c *gin.Context, key string) (*int, error) {
	v := c.PostForm(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", key, v, domain.ErrInvalidInput)
	}
	return &n, nil
}

// writeError maps domain errors onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.As(err, &syntaxErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNoChunks), errors.Is(err, domain.ErrUnsupportedType):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrIndexNotFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"detail": err.Error()})
}

// Package httpapi exposes ingestion and question answering over HTTP
// using gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Defaults for Config fields left zero.
const (
	DefaultQueryTimeout  = 60 * time.Second
	maxMultipartMemory   = 8 << 20
	headerRequestID      = "X-Request-ID"
	shutdownGracePeriod  = 10 * time.Second
	readHeaderTimeoutDur = 10 * time.Second
)

// ErrMissingService is returned when a required service is not provided.
var ErrMissingService = errors.New("httpapi: ingest and query services are required")

// Config tunes the HTTP surface.
type Config struct {
	// RateLimitPerMinute is the request budget per client IP. Zero or
	// negative disables limiting.
	RateLimitPerMinute int

	// QueryTimeout bounds each /query request.
	QueryTimeout time.Duration
}

// Server routes HTTP requests to the core services.
type Server struct {
	ingest driving.IngestService
	query  driving.QueryService
	config Config
	router *gin.Engine
}

// NewServer builds the router.
func NewServer(ingest driving.IngestService, query driving.QueryService, config Config) (*Server, error) {
	if ingest == nil || query == nil {
		return nil, ErrMissingService
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultQueryTimeout
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.Use(gin.Recovery(), requestID(), requestLogger())
	if config.RateLimitPerMinute > 0 {
		router.Use(newRateLimiter(config.RateLimitPerMinute).middleware())
	}

	s := &Server{
		ingest: ingest,
		query:  query,
		config: config,
		router: router,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/health", s.handleHealth)

	s.router.POST("/ingest", s.handleIngest)
	s.router.POST("/ingest/upload", s.handleUpload)
	s.router.POST("/ingest/rebuild", s.handleRebuild)
	s.router.GET("/ingest/status", s.handleStatus)

	s.router.POST("/query", s.handleQuery)
	s.router.POST("/feedback", s.handleFeedback)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeoutDur,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown: %v", err)
		}
	}()

	logger.Info("HTTP server listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// requestID tags each request with an id, reusing the caller's when given.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger logs method, path, status and latency of every request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s %d %dms request_id=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Milliseconds(), c.GetString("request_id"))
	}
}

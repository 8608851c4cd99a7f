package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

const (
	uriScheme    = "groundwork://"
	documentsURI = uriScheme + "documents"
	statusURI    = uriScheme + "status"
	jsonMIME     = "application/json"
)

// documentInfo is the resource view of an ingested document.
type documentInfo struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
	Chunks int    `json:"chunks"`
}

func newDocumentInfo(d domain.DocumentSummary) documentInfo {
	return documentInfo{
		ID:     d.Document.ID,
		Title:  d.Document.Title,
		Source: d.Document.Source,
		URL:    d.Document.URL,
		Chunks: d.ChunkCount,
	}
}

// registerResources publishes corpus state when an ingest service is wired.
func (s *Server) registerResources() {
	if s.ports.Ingest == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Most recently ingested documents with their chunk counts",
		MIMEType:    jsonMIME,
	}, s.handleDocumentsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "status",
		Description: "Document, chunk and vector counts, and whether the index is in step with the store",
		MIMEType:    jsonMIME,
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}",
		Name:        "document",
		Description: "A recently ingested document by id",
		MIMEType:    jsonMIME,
	}, s.handleDocumentResource)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Ingest.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	infos := make([]documentInfo, len(status.RecentDocuments))
	for i, d := range status.RecentDocuments {
		infos[i] = newDocumentInfo(d)
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Ingest.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	return jsonResource(req.Params.URI, struct {
		Documents int  `json:"documents"`
		Chunks    int  `json:"chunks"`
		Vectors   int  `json:"vectors"`
		Indexed   bool `json:"indexed"`
		InSync    bool `json:"in_sync"`
	}{
		Documents: status.TotalDocuments,
		Chunks:    status.TotalChunks,
		Vectors:   status.IndexVectors,
		Indexed:   status.IndexExists,
		InSync:    status.IndexExists && status.IndexVectors == status.TotalChunks,
	})
}

// handleDocumentResource serves groundwork://documents/{id}. Only documents
// in the recent list are addressable.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(req.Params.URI, documentsURI+"/"), 10, 64)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Ingest.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	for _, d := range status.RecentDocuments {
		if d.Document.ID == id {
			return jsonResource(req.Params.URI, newDocumentInfo(d))
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIME,
			Text:     string(data),
		}},
	}, nil
}

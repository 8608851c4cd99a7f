package mcp

import (
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// Ports holds the services the MCP tools call. Only Retrieval is required.
type Ports struct {
	Retrieval driving.RetrievalService
	Ingest    driving.IngestService
	Query     driving.QueryService
}

// Validate reports a missing required port.
func (p *Ports) Validate() error {
	if p == nil || p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}

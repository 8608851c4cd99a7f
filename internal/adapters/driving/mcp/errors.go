// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Groundwork. It lets AI assistants retrieve grounded passages from the
// local knowledge base and inspect what has been ingested.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// Package domain holds the entities shared by every layer: documents and
// their chunks, the index metadata sidecar record, retrieval results, the
// interaction audit trail and application settings. It imports nothing
// outside the standard library.
package domain

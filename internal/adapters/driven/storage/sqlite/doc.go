// Package sqlite provides a SQLite-based implementation of the chunk and
// audit store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements both store interfaces
// through a single database connection:
//
//   - ChunkStore: Document and chunk persistence
//   - AuditStore: Interactions, citations and feedback
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// Chunk ids use AUTOINCREMENT, so an id is never reused after its chunk is
// replaced. Index metadata can therefore refer to chunks by id safely.
//
// # Data Location
//
// By default, the database is stored at ~/.groundwork/data/groundwork.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// idBatchSize bounds the number of ids bound into a single IN clause.
const idBatchSize = 500

// Store is a unified SQLite-based storage that provides access to
// the chunk and audit store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.groundwork/data/groundwork.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".groundwork", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "groundwork.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// AuditStore returns an AuditStore interface backed by this store.
func (s *Store) AuditStore() driven.AuditStore {
	return &auditStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// applyMigration executes one migration and records its version atomically.
func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// GetOrCreateDocument returns the document for (source, title), inserting
// it when absent. URL and revision date are refreshed on every call.
func (s *chunkStore) GetOrCreateDocument(ctx context.Context, doc domain.Document) (*domain.Document, error) {
	if doc.Source == "" || doc.Title == "" {
		return nil, fmt.Errorf("document source and title required: %w", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (source, title, url, revision_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source, title) DO UPDATE SET
			url = excluded.url,
			revision_date = excluded.revision_date
	`, doc.Source, doc.Title, doc.URL, doc.RevisionDate, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source, title, url, revision_date, created_at
		FROM documents WHERE source = ? AND title = ?
	`, doc.Source, doc.Title)

	return scanDocument(row)
}

// ReplaceDocument swaps the document's chunks for the drafts in one
// transaction. On failure the previous chunks remain.
func (s *chunkStore) ReplaceDocument(
	ctx context.Context, documentID int64, drafts []domain.ChunkDraft,
) ([]domain.Chunk, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE doc_id = ?", documentID); err != nil {
		return nil, fmt.Errorf("deleting chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (doc_id, text, tokens, section, position, meta_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	chunks := make([]domain.Chunk, 0, len(drafts))
	for _, d := range drafts {
		metaJSON, err := json.Marshal(d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		res, err := stmt.ExecContext(ctx, documentID, d.Text, d.TokenCount, d.Section, d.Position, string(metaJSON))
		if err != nil {
			return nil, fmt.Errorf("saving chunk: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading chunk id: %w", err)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         id,
			DocumentID: documentID,
			Text:       d.Text,
			TokenCount: d.TokenCount,
			Section:    d.Section,
			Position:   d.Position,
			Metadata:   d.Metadata,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return chunks, nil
}

const indexedChunkColumns = `
	c.id, c.doc_id, c.text, c.tokens, c.section, c.position, c.meta_json,
	d.id, d.source, d.title, d.url, d.revision_date, d.created_at`

// ChunksByIDs returns the chunks with the given ids in ascending id order.
func (s *chunkStore) ChunksByIDs(ctx context.Context, ids []int64) ([]domain.IndexedChunk, error) {
	var out []domain.IndexedChunk

	for _, batch := range batchIDs(ids) {
		placeholders, args := inClause(batch)
		rows, err := s.store.db.QueryContext(ctx, `
			SELECT `+indexedChunkColumns+`
			FROM chunks c JOIN documents d ON d.id = c.doc_id
			WHERE c.id IN (`+placeholders+`)
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("querying chunks: %w", err)
		}

		chunks, err := scanIndexedChunks(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, chunks...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Chunk.ID < out[j].Chunk.ID })
	return out, nil
}

// ChunkTextsByIDs returns the full text of each known chunk id.
func (s *chunkStore) ChunkTextsByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	texts := make(map[int64]string, len(ids))

	for _, batch := range batchIDs(ids) {
		placeholders, args := inClause(batch)
		rows, err := s.store.db.QueryContext(ctx,
			"SELECT id, text FROM chunks WHERE id IN ("+placeholders+")", args...)
		if err != nil {
			return nil, fmt.Errorf("querying chunk texts: %w", err)
		}

		for rows.Next() {
			var id int64
			var text string
			if err := rows.Scan(&id, &text); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning chunk text: %w", err)
			}
			texts[id] = text
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating chunk texts: %w", err)
		}
	}

	return texts, nil
}

// AllChunks returns every chunk ordered by document id then chunk id.
func (s *chunkStore) AllChunks(ctx context.Context) ([]domain.IndexedChunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+indexedChunkColumns+`
		FROM chunks c JOIN documents d ON d.id = c.doc_id
		ORDER BY d.id, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}

	return scanIndexedChunks(rows)
}

// CountDocuments returns the number of stored documents.
func (s *chunkStore) CountDocuments(ctx context.Context) (int, error) {
	return s.count(ctx, "documents")
}

// CountChunks returns the number of stored chunks.
func (s *chunkStore) CountChunks(ctx context.Context) (int, error) {
	return s.count(ctx, "chunks")
}

func (s *chunkStore) count(ctx context.Context, table string) (int, error) {
	var n int
	//nolint:gosec // table is one of two constants
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// RecentDocuments returns the newest documents with their chunk counts.
func (s *chunkStore) RecentDocuments(ctx context.Context, limit int) ([]domain.DocumentSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id, d.source, d.title, d.url, d.revision_date, d.created_at, COUNT(c.id)
		FROM documents d LEFT JOIN chunks c ON c.doc_id = d.id
		GROUP BY d.id
		ORDER BY d.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sum domain.DocumentSummary
		d := &sum.Document
		if err := rows.Scan(&d.ID, &d.Source, &d.Title, &d.URL, &d.RevisionDate, &d.CreatedAt,
			&sum.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

// ==================== Helper Functions ====================

// batchIDs splits ids into slices of at most idBatchSize.
func batchIDs(ids []int64) [][]int64 {
	var batches [][]int64
	for start := 0; start < len(ids); start += idBatchSize {
		end := min(start+idBatchSize, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// inClause returns "?, ?, ?" and the matching args.
func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document

	if err := row.Scan(&doc.ID, &doc.Source, &doc.Title, &doc.URL, &doc.RevisionDate,
		&doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	return &doc, nil
}

// scanIndexedChunks scans chunk rows joined with their document and
// closes rows.
func scanIndexedChunks(rows *sql.Rows) ([]domain.IndexedChunk, error) {
	defer rows.Close()

	var out []domain.IndexedChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ic domain.IndexedChunk
		var metaJSON string
		c, d := &ic.Chunk, &ic.Document

		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.TokenCount, &c.Section, &c.Position, &metaJSON,
			&d.ID, &d.Source, &d.Title, &d.URL, &d.RevisionDate, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
			}
		}

		out = append(out, ic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return out, nil
}

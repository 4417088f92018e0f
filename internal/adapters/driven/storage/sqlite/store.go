package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/retrieva/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
)

// Store is a SQLite-backed document registry.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.DocumentRegistry = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.retrieva/data/registry.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".retrieva", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "registry.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys so deleting a document cascades to its logs
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

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// Save stores or updates a document.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, tenant_id, source_filename, version, status,
			error_message, chunk_count, token_count, ingested_at, processed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			source_filename = excluded.source_filename,
			version = excluded.version,
			status = excluded.status,
			error_message = excluded.error_message,
			chunk_count = excluded.chunk_count,
			token_count = excluded.token_count,
			ingested_at = excluded.ingested_at,
			processed_at = excluded.processed_at,
			updated_at = excluded.updated_at
	`, doc.ID, doc.TenantID, doc.SourceFilename, doc.Version, doc.Status,
		doc.ErrorMessage, doc.ChunkCount, doc.TokenCount,
		doc.IngestedAt, nullTime(doc.ProcessedAt), doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, source_filename, version, status,
			error_message, chunk_count, token_count, ingested_at, processed_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocument(row)
}

// FindBySource retrieves the document for a tenant's source filename.
func (s *Store) FindBySource(ctx context.Context, tenantID, sourceFilename string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, source_filename, version, status,
			error_message, chunk_count, token_count, ingested_at, processed_at, updated_at
		FROM documents WHERE tenant_id = ? AND source_filename = ?
	`, tenantID, sourceFilename)

	return scanDocument(row)
}

// MarkCompleted transitions a document to completed with final counts.
func (s *Store) MarkCompleted(ctx context.Context, id string, chunkCount, tokenCount int) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, error_message = '', chunk_count = ?, token_count = ?,
			processed_at = ?, updated_at = ?
		WHERE id = ?
	`, domain.StatusCompleted, chunkCount, tokenCount, now, now, id)
	if err != nil {
		return fmt.Errorf("marking document completed: %w", err)
	}

	return requireRow(res)
}

// MarkFailed transitions a document to failed with a cause.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, error_message = ?, processed_at = ?, updated_at = ?
		WHERE id = ?
	`, domain.StatusFailed, message, now, now, id)
	if err != nil {
		return fmt.Errorf("marking document failed: %w", err)
	}

	return requireRow(res)
}

// Delete removes a document and its processing logs.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// List returns a tenant's documents, most recently ingested first.
func (s *Store) List(ctx context.Context, tenantID string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, source_filename, version, status,
			error_message, chunk_count, token_count, ingested_at, processed_at, updated_at
		FROM documents WHERE tenant_id = ?
		ORDER BY ingested_at DESC, id ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// ==================== Processing logs ====================

// AppendLog records one pipeline step transition for a document.
func (s *Store) AppendLog(ctx context.Context, log *domain.ProcessingLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_logs (document_id, step, status, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, log.DocumentID, log.Step, log.Status, log.Message, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending processing log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading log id: %w", err)
	}
	log.ID = id

	return nil
}

// Logs returns a document's processing trace, oldest first.
func (s *Store) Logs(ctx context.Context, documentID string) ([]domain.ProcessingLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, step, status, message, created_at
		FROM processing_logs WHERE document_id = ?
		ORDER BY id ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying processing logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ProcessingLog //nolint:prealloc // size unknown from query
	for rows.Next() {
		var log domain.ProcessingLog
		if err := rows.Scan(&log.ID, &log.DocumentID, &log.Step, &log.Status,
			&log.Message, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning processing log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating processing logs: %w", err)
	}

	return logs, nil
}

// ==================== Helpers ====================

// scanDocument scans a document from *sql.Row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var processedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.TenantID, &doc.SourceFilename, &doc.Version,
		&doc.Status, &doc.ErrorMessage, &doc.ChunkCount, &doc.TokenCount,
		&doc.IngestedAt, &processedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if processedAt.Valid {
		doc.ProcessedAt = &processedAt.Time
	}

	return &doc, nil
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var processedAt sql.NullTime

	if err := rows.Scan(&doc.ID, &doc.TenantID, &doc.SourceFilename, &doc.Version,
		&doc.Status, &doc.ErrorMessage, &doc.ChunkCount, &doc.TokenCount,
		&doc.IngestedAt, &processedAt, &doc.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if processedAt.Valid {
		doc.ProcessedAt = &processedAt.Time
	}

	return &doc, nil
}

// requireRow converts a zero-row update into domain.ErrNotFound.
func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// nullTime converts an optional time into its nullable SQL form.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

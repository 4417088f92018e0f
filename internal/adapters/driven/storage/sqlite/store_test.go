package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/retrieva/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "retrieva-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// saveTestDocument stores a minimal document for a tenant.
func saveTestDocument(t *testing.T, store *Store, id, tenantID, filename string) *domain.Document {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:             id,
		TenantID:       tenantID,
		SourceFilename: filename,
		Version:        1,
		Status:         domain.StatusProcessing,
		IngestedAt:     now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.Save(context.Background(), doc))
	return doc
}

// ==================== Store Creation Tests ====================

func TestNewStore_Success(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "retrieva-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// Verify database file was created
	dbPath := filepath.Join(tempDir, "registry.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)

	// Verify database connection is working
	err = store.db.Ping()
	assert.NoError(t, err)
}

func TestNewStore_ErrorHandling(t *testing.T) {
	// Test with invalid path (should fail to create directory)
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_ReopenExistingDatabase(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "retrieva-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store1, err := NewStore(tempDir)
	require.NoError(t, err)
	saveTestDocument(t, store1, "doc-1", "tenant-a", "notes.txt")
	require.NoError(t, store1.Close())

	// Reopening must not rerun migrations destructively
	store2, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store2.Close()

	doc, err := store2.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.SourceFilename)
}

func TestStore_MigrationsAreRecorded(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var version int
	row := store.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	require.NoError(t, row.Scan(&version))
	assert.GreaterOrEqual(t, version, 1)
}

// ==================== Document Tests ====================

func TestStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:             "doc-1",
		TenantID:       "tenant-a",
		SourceFilename: "handbook.pdf",
		Version:        3,
		Status:         domain.StatusCompleted,
		ChunkCount:     14,
		TokenCount:     2100,
		IngestedAt:     now,
		ProcessedAt:    &now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Equal(t, "handbook.pdf", got.SourceFilename)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 14, got.ChunkCount)
	assert.Equal(t, 2100, got.TokenCount)
	assert.Empty(t, got.ErrorMessage)
	assert.WithinDuration(t, now, got.IngestedAt, time.Second)
	require.NotNil(t, got.ProcessedAt)
	assert.WithinDuration(t, now, *got.ProcessedAt, time.Second)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Get_NilProcessedAt(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")

	got, err := store.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Nil(t, got.ProcessedAt)
}

func TestStore_Save_Upsert(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")

	doc.Version = 2
	doc.Status = domain.StatusProcessing
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	docs, err := store.List(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_FindBySource(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")
	saveTestDocument(t, store, "doc-2", "tenant-b", "notes.txt")

	got, err := store.FindBySource(ctx, "tenant-a", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)

	_, err = store.FindBySource(ctx, "tenant-a", "other.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_MarkCompleted(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")
	doc.ErrorMessage = "previous failure"
	require.NoError(t, store.Save(ctx, doc))

	require.NoError(t, store.MarkCompleted(ctx, "doc-1", 12, 340))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 12, got.ChunkCount)
	assert.Equal(t, 340, got.TokenCount)
	assert.Empty(t, got.ErrorMessage)
	require.NotNil(t, got.ProcessedAt)
}

func TestStore_MarkCompleted_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.MarkCompleted(context.Background(), "missing", 1, 1)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_MarkFailed(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")

	require.NoError(t, store.MarkFailed(ctx, "doc-1", "embedding timed out"))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "embedding timed out", got.ErrorMessage)
	require.NotNil(t, got.ProcessedAt)
}

func TestStore_MarkFailed_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.MarkFailed(context.Background(), "missing", "boom")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Delete_CascadesToLogs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")
	require.NoError(t, store.AppendLog(ctx, &domain.ProcessingLog{
		DocumentID: "doc-1",
		Step:       domain.StepChunking,
		Status:     domain.LogStarted,
	}))

	require.NoError(t, store.Delete(ctx, "doc-1"))

	_, err := store.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	logs, err := store.Logs(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestStore_List_FiltersAndOrders(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	older := &domain.Document{
		ID: "doc-old", TenantID: "tenant-a", SourceFilename: "old.txt",
		Version: 1, Status: domain.StatusCompleted,
		IngestedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &domain.Document{
		ID: "doc-new", TenantID: "tenant-a", SourceFilename: "new.txt",
		Version: 1, Status: domain.StatusCompleted,
		IngestedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))
	saveTestDocument(t, store, "doc-other", "tenant-b", "other.txt")

	docs, err := store.List(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-new", docs[0].ID)
	assert.Equal(t, "doc-old", docs[1].ID)
}

func TestStore_List_EmptyTenant(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	docs, err := store.List(context.Background(), "tenant-empty")

	require.NoError(t, err)
	assert.Empty(t, docs)
}

// ==================== Processing Log Tests ====================

func TestStore_AppendLog_AssignsIDs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")

	first := &domain.ProcessingLog{
		DocumentID: "doc-1",
		Step:       domain.StepChunking,
		Status:     domain.LogStarted,
	}
	second := &domain.ProcessingLog{
		DocumentID: "doc-1",
		Step:       domain.StepChunking,
		Status:     domain.LogCompleted,
		Message:    "3 chunks",
	}
	require.NoError(t, store.AppendLog(ctx, first))
	require.NoError(t, store.AppendLog(ctx, second))

	assert.Positive(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestStore_Logs_OldestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")
	saveTestDocument(t, store, "doc-2", "tenant-a", "more.txt")

	entries := []domain.ProcessingLog{
		{DocumentID: "doc-1", Step: domain.StepChunking, Status: domain.LogStarted},
		{DocumentID: "doc-1", Step: domain.StepChunking, Status: domain.LogCompleted},
		{DocumentID: "doc-2", Step: domain.StepChunking, Status: domain.LogStarted},
		{DocumentID: "doc-1", Step: domain.StepEmbedding, Status: domain.LogStarted},
	}
	for i := range entries {
		require.NoError(t, store.AppendLog(ctx, &entries[i]))
	}

	logs, err := store.Logs(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, domain.StepChunking, logs[0].Step)
	assert.Equal(t, domain.LogStarted, logs[0].Status)
	assert.Equal(t, domain.LogCompleted, logs[1].Status)
	assert.Equal(t, domain.StepEmbedding, logs[2].Step)
}

func TestStore_Logs_UnknownDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	logs, err := store.Logs(context.Background(), "missing")

	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestStore_AppendLog_PreservesExplicitCreatedAt(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	saveTestDocument(t, store, "doc-1", "tenant-a", "notes.txt")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &domain.ProcessingLog{
		DocumentID: "doc-1",
		Step:       domain.StepStoring,
		Status:     domain.LogCompleted,
		CreatedAt:  at,
	}
	require.NoError(t, store.AppendLog(ctx, log))

	logs, err := store.Logs(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.WithinDuration(t, at, logs[0].CreatedAt, time.Second)
}

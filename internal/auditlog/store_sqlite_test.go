package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// createTestDB creates an in-memory SQLite database for testing.
func createTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// one connection so every query sees the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T, db *sql.DB, retentionDays int) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(db, retentionDays)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ask_logs").Scan(&count))
	return count
}

func TestNewSQLiteStore_NilDB(t *testing.T) {
	_, err := NewSQLiteStore(nil, 0)
	require.Error(t, err)
}

func TestSQLiteStore_WriteBatch_Columns(t *testing.T) {
	db := createTestDB(t)
	store := newTestStore(t, db, 0)

	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	err := store.WriteBatch(context.Background(), []*LogEntry{{
		ID:          "entry-1",
		Timestamp:   ts,
		DurationNs:  42,
		RequestID:   "req-1",
		ChatID:      "telegram:7",
		Provider:    "deepseek",
		Model:       "deepseek-chat",
		Outcome:     "failure",
		ErrorKind:   "provider_error",
		PromptChars: 11,
	}})
	require.NoError(t, err)

	var timestamp, requestID, chatID, provider, model, outcome, errorKind string
	var durationNs int64
	var promptChars int
	err = db.QueryRow(`SELECT timestamp, duration_ns, request_id, chat_id, provider, model, outcome, error_kind, prompt_chars
		FROM ask_logs WHERE id = ?`, "entry-1").
		Scan(&timestamp, &durationNs, &requestID, &chatID, &provider, &model, &outcome, &errorKind, &promptChars)
	require.NoError(t, err)

	assert.Equal(t, ts.Format(time.RFC3339Nano), timestamp)
	assert.Equal(t, int64(42), durationNs)
	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, "telegram:7", chatID)
	assert.Equal(t, "deepseek", provider)
	assert.Equal(t, "deepseek-chat", model)
	assert.Equal(t, "failure", outcome)
	assert.Equal(t, "provider_error", errorKind)
	assert.Equal(t, 11, promptChars)
}

func TestSQLiteStore_WriteBatch_Chunking(t *testing.T) {
	db := createTestDB(t)
	store := newTestStore(t, db, 0)

	// Using 250 entries to ensure we need at least 3 batches
	numEntries := 250
	entries := make([]*LogEntry, numEntries)
	for i := 0; i < numEntries; i++ {
		entries[i] = &LogEntry{
			ID:        fmt.Sprintf("entry-%03d", i),
			Timestamp: time.Now(),
			Provider:  "openai",
			Outcome:   "answer",
		}
	}

	require.NoError(t, store.WriteBatch(context.Background(), entries))
	assert.Equal(t, numEntries, countRows(t, db))

	for _, id := range []string{"entry-000", "entry-099", "entry-198", "entry-249"} {
		var one int
		err := db.QueryRow("SELECT 1 FROM ask_logs WHERE id = ?", id).Scan(&one)
		assert.NoError(t, err, "entry %s not found", id)
	}
}

func TestSQLiteStore_WriteBatch_EmptyEntries(t *testing.T) {
	db := createTestDB(t)
	store := newTestStore(t, db, 0)

	require.NoError(t, store.WriteBatch(context.Background(), []*LogEntry{}))
	assert.Equal(t, 0, countRows(t, db))
}

func TestSQLiteStore_WriteBatch_ExactBatchBoundary(t *testing.T) {
	db := createTestDB(t)
	store := newTestStore(t, db, 0)
	ctx := context.Background()

	makeEntries := func(prefix string, n int) []*LogEntry {
		entries := make([]*LogEntry, n)
		for i := range entries {
			entries[i] = &LogEntry{ID: fmt.Sprintf("%s-%03d", prefix, i), Timestamp: time.Now(), Outcome: "answer"}
		}
		return entries
	}

	require.NoError(t, store.WriteBatch(ctx, makeEntries("exact", maxEntriesPerBatch)))
	assert.Equal(t, maxEntriesPerBatch, countRows(t, db))

	require.NoError(t, store.WriteBatch(ctx, makeEntries("boundary", maxEntriesPerBatch+1)))
	assert.Equal(t, 2*maxEntriesPerBatch+1, countRows(t, db))
}

func TestSQLiteStore_DuplicateIDsIgnored(t *testing.T) {
	db := createTestDB(t)
	store := newTestStore(t, db, 0)
	ctx := context.Background()

	entry := &LogEntry{ID: "dup", Timestamp: time.Now(), Outcome: "answer"}
	require.NoError(t, store.WriteBatch(ctx, []*LogEntry{entry}))
	require.NoError(t, store.WriteBatch(ctx, []*LogEntry{entry}))
	assert.Equal(t, 1, countRows(t, db))
}

func TestSQLiteStore_Cleanup(t *testing.T) {
	db := createTestDB(t)
	store := newTestStore(t, db, 0)
	store.retentionDays = 7

	now := time.Now()
	require.NoError(t, store.WriteBatch(context.Background(), []*LogEntry{
		{ID: "old", Timestamp: now.AddDate(0, 0, -30), Outcome: "answer"},
		{ID: "recent", Timestamp: now.Add(-time.Hour), Outcome: "answer"},
	}))

	store.cleanup()

	assert.Equal(t, 1, countRows(t, db))
	var id string
	require.NoError(t, db.QueryRow("SELECT id FROM ask_logs").Scan(&id))
	assert.Equal(t, "recent", id)
}

func TestSQLiteStore_CloseTwice(t *testing.T) {
	db := createTestDB(t)
	store, err := NewSQLiteStore(db, 1)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

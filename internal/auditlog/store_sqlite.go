package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SQLite limits a statement to 999 bound parameters, so inserts are chunked.
const (
	maxSQLiteParams    = 999
	columnsPerEntry    = 10
	maxEntriesPerBatch = maxSQLiteParams / columnsPerEntry
)

// SQLiteStore implements LogStore for SQLite databases.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore creates the ask_logs table if needed and starts a
// background cleanup goroutine when retention is configured.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ask_logs (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			duration_ns INTEGER DEFAULT 0,
			request_id TEXT,
			chat_id TEXT,
			provider TEXT,
			model TEXT,
			outcome TEXT NOT NULL,
			error_kind TEXT,
			prompt_chars INTEGER DEFAULT 0
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create ask_logs table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_ask_timestamp ON ask_logs(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_ask_provider ON ask_logs(provider)",
		"CREATE INDEX IF NOT EXISTS idx_ask_outcome ON ask_logs(outcome)",
		"CREATE INDEX IF NOT EXISTS idx_ask_request_id ON ask_logs(request_id)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, CleanupInterval, store.cleanup)
	}

	return store, nil
}

// WriteBatch inserts entries in chunks that fit SQLite's parameter limit.
// Duplicate IDs are ignored.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*LogEntry) error {
	for i := 0; i < len(entries); i += maxEntriesPerBatch {
		chunk := entries[i:min(i+maxEntriesPerBatch, len(entries))]

		placeholders := make([]string, len(chunk))
		values := make([]any, 0, len(chunk)*columnsPerEntry)
		for j, e := range chunk {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			values = append(values,
				e.ID,
				e.Timestamp.UTC().Format(time.RFC3339Nano),
				e.DurationNs,
				e.RequestID,
				e.ChatID,
				e.Provider,
				e.Model,
				e.Outcome,
				e.ErrorKind,
				e.PromptChars,
			)
		}

		query := `INSERT OR IGNORE INTO ask_logs (id, timestamp, duration_ns, request_id, chat_id,
			provider, model, outcome, error_kind, prompt_chars) VALUES ` + strings.Join(placeholders, ",")

		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert ask logs batch %d: %w", i/maxEntriesPerBatch, err)
		}
	}
	return nil
}

// Flush is a no-op for SQLite as writes are synchronous.
func (s *SQLiteStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. The DB belongs to the storage layer.
// Safe to call multiple times.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *SQLiteStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	cutoff := retentionCutoff(time.Now(), s.retentionDays).Format(time.RFC3339Nano)

	result, err := s.db.Exec("DELETE FROM ask_logs WHERE timestamp < ?", cutoff)
	if err != nil {
		slog.Error("failed to cleanup old ask logs", "error", err)
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		slog.Info("cleaned up old ask logs", "deleted", n)
	}
}

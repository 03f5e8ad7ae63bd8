package auditlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore implements LogStore for PostgreSQL databases.
type PostgreSQLStore struct {
	pool          *pgxpool.Pool
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

const insertAskLogSQL = `
	INSERT INTO ask_logs (id, timestamp, duration_ns, request_id, chat_id,
		provider, model, outcome, error_kind, prompt_chars)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING`

// NewPostgreSQLStore creates the ask_logs table if needed and starts a
// background cleanup goroutine when retention is configured.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, errors.New("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ask_logs (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			duration_ns BIGINT DEFAULT 0,
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
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &PostgreSQLStore{
		pool:          pool,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, CleanupInterval, store.cleanup)
	}

	return store, nil
}

// WriteBatch queues every insert in one pgx.Batch round trip.
func (s *PostgreSQLStore) WriteBatch(ctx context.Context, entries []*LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertAskLogSQL,
			e.ID, e.Timestamp, e.DurationNs, e.RequestID, e.ChatID,
			e.Provider, e.Model, e.Outcome, e.ErrorKind, e.PromptChars,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	var errs []error
	for range entries {
		if _, err := results.Exec(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := results.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to insert ask logs: %w", errors.Join(errs...))
	}
	return nil
}

// Flush is a no-op for PostgreSQL as writes are synchronous.
func (s *PostgreSQLStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. The pool belongs to the storage layer.
func (s *PostgreSQLStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *PostgreSQLStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.pool.Exec(ctx, "DELETE FROM ask_logs WHERE timestamp < $1", retentionCutoff(time.Now(), s.retentionDays))
	if err != nil {
		slog.Error("failed to cleanup old ask logs", "error", err)
		return
	}
	if result.RowsAffected() > 0 {
		slog.Info("cleaned up old ask logs", "deleted", result.RowsAffected())
	}
}

package auditlog

import (
	"context"
	"errors"
	"fmt"

	"askbot/config"
	"askbot/internal/storage"
)

// Result holds the initialized audit logger and its dependencies.
// The caller is responsible for calling Close() to release resources.
type Result struct {
	Logger  LoggerInterface
	Storage storage.Storage
}

// Close flushes the logger and then closes storage.
// Safe to call multiple times.
func (r *Result) Close() error {
	var errs []error
	if r.Logger != nil {
		if err := r.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
		r.Storage = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New creates an audit logger from settings.
// If auditing is disabled, returns a NoopLogger with nil storage.
func New(ctx context.Context, s *config.Settings) (*Result, error) {
	if !s.Audit.Enabled {
		return &Result{Logger: &NoopLogger{}}, nil
	}

	store, err := storage.New(ctx, storage.ConfigFrom(s.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	logStore, err := NewLogStore(ctx, store, s.Audit.RetentionDays)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Result{
		Logger:  NewLogger(logStore, buildLoggerConfig(s.Audit)),
		Storage: store,
	}, nil
}

// NewLogStore creates the LogStore matching the storage backend.
func NewLogStore(ctx context.Context, store storage.Storage, retentionDays int) (LogStore, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB(), retentionDays)
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, store.PostgreSQLPool(), retentionDays)
	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, store.MongoDatabase(), retentionDays)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

func buildLoggerConfig(a config.AuditConfig) Config {
	cfg := Config{
		Enabled:       a.Enabled,
		BufferSize:    a.BufferSize,
		FlushInterval: a.FlushInterval,
		RetentionDays: a.RetentionDays,
	}
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	return cfg
}

// Package auditlog records one entry per ask in a configurable backend.
// Entries hold metadata only: prompt and answer text are never stored.
package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"askbot/internal/core"
)

// LogStore defines the interface for audit log storage backends.
// Implementations must be safe for concurrent use.
type LogStore interface {
	// WriteBatch writes multiple log entries to storage.
	// This is called by the Logger when flushing buffered entries.
	WriteBatch(ctx context.Context, entries []*LogEntry) error

	// Flush forces any pending writes to complete.
	// Called during graceful shutdown.
	Flush(ctx context.Context) error

	// Close releases resources and flushes pending writes.
	Close() error
}

// LogEntry is a single ask. Every field maps to its own column.
type LogEntry struct {
	// ID is a unique identifier for this log entry (UUID)
	ID string `json:"id" bson:"_id"`

	// Timestamp is when the ask started
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`

	// DurationNs is the ask duration in nanoseconds
	DurationNs int64 `json:"duration_ns" bson:"duration_ns"`

	RequestID   string `json:"request_id" bson:"request_id"`
	ChatID      string `json:"chat_id,omitempty" bson:"chat_id,omitempty"`
	Provider    string `json:"provider" bson:"provider"`
	Model       string `json:"model" bson:"model"`
	Outcome     string `json:"outcome" bson:"outcome"`
	ErrorKind   string `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	PromptChars int    `json:"prompt_chars" bson:"prompt_chars"`
}

// EntryFromEvent converts an ask event into a log entry with a fresh ID
func EntryFromEvent(ev core.AskEvent) *LogEntry {
	return &LogEntry{
		ID:          uuid.NewString(),
		Timestamp:   ev.StartedAt.UTC(),
		DurationNs:  ev.Duration.Nanoseconds(),
		RequestID:   ev.RequestID,
		ChatID:      ev.ChatID,
		Provider:    ev.Provider,
		Model:       ev.Model,
		Outcome:     string(ev.Outcome),
		ErrorKind:   string(ev.ErrorKind),
		PromptChars: ev.PromptChars,
	}
}

// Config holds audit logging configuration
type Config struct {
	// Enabled controls whether audit logging is active
	Enabled bool

	// BufferSize is the number of log entries to buffer before dropping
	BufferSize int

	// FlushInterval is how often to flush buffered logs
	FlushInterval time.Duration

	// RetentionDays is how long to keep logs (0 = forever)
	RetentionDays int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		RetentionDays: 30,
	}
}

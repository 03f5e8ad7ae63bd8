package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"askbot/internal/core"
)

// Logger provides async buffered logging with batch writes.
// It collects log entries in a channel and flushes them to storage
// either when the batch is full or at regular intervals.
type Logger struct {
	store         LogStore
	config        Config
	buffer        chan *LogEntry
	done          chan struct{}
	wg            sync.WaitGroup
	flushInterval time.Duration

	// mu guards closed so Write never sends on a closed buffer
	mu     sync.RWMutex
	closed bool
}

// NewLogger creates a new async buffered Logger.
// The logger starts a background goroutine for flushing entries.
func NewLogger(store LogStore, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	l := &Logger{
		store:         store,
		config:        cfg,
		buffer:        make(chan *LogEntry, cfg.BufferSize),
		done:          make(chan struct{}),
		flushInterval: cfg.FlushInterval,
	}

	l.wg.Add(1)
	go l.flushLoop()

	return l
}

// Write queues a log entry for async writing.
// It never blocks: when the buffer is full the entry is dropped.
func (l *Logger) Write(entry *LogEntry) {
	if entry == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.buffer <- entry:
	default:
		slog.Warn("audit log buffer full, dropping entry",
			"request_id", entry.RequestID,
			"provider", entry.Provider,
		)
	}
}

// ObserveAsk records a completed ask
func (l *Logger) ObserveAsk(_ context.Context, ev core.AskEvent) {
	l.Write(EntryFromEvent(ev))
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}

// Close stops the logger, flushes remaining entries and closes the store.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	l.mu.Unlock()

	l.wg.Wait()
	return l.store.Close()
}

func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	batch := make([]*LogEntry, 0, BatchFlushThreshold)

	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= BatchFlushThreshold {
				l.flushBatch(batch)
				batch = make([]*LogEntry, 0, BatchFlushThreshold)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flushBatch(batch)
				batch = make([]*LogEntry, 0, BatchFlushThreshold)
			}

		case <-l.done:
			// no writer can send once closed is set, so draining is safe
		drain:
			for {
				select {
				case entry := <-l.buffer:
					batch = append(batch, entry)
				default:
					break drain
				}
			}
			l.flushBatch(batch)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := l.store.Flush(ctx); err != nil {
				slog.Error("failed to flush audit log store", "error", err)
			}
			cancel()
			return
		}
	}
}

func (l *Logger) flushBatch(batch []*LogEntry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.store.WriteBatch(ctx, batch); err != nil {
		slog.Error("failed to write audit log batch",
			"error", err,
			"count", len(batch),
		)
	}
}

// NoopLogger is a logger that does nothing (used when logging is disabled)
type NoopLogger struct{}

// Write does nothing
func (l *NoopLogger) Write(_ *LogEntry) {}

// ObserveAsk does nothing
func (l *NoopLogger) ObserveAsk(_ context.Context, _ core.AskEvent) {}

// Config returns an empty config
func (l *NoopLogger) Config() Config {
	return Config{Enabled: false}
}

// Close does nothing
func (l *NoopLogger) Close() error {
	return nil
}

// LoggerInterface defines the interface for loggers (both real and noop)
type LoggerInterface interface {
	core.AskObserver
	Write(entry *LogEntry)
	Config() Config
	Close() error
}

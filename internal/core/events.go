package core

import (
	"context"
	"time"
)

// AskEvent describes one completed ask. It never carries prompt or answer text.
type AskEvent struct {
	RequestID   string
	ChatID      string
	Provider    string
	Model       string
	Outcome     Outcome
	ErrorKind   ErrorKind
	PromptChars int
	StartedAt   time.Time
	Duration    time.Duration
}

// AskObserver is notified after every ask. Implementations must not block.
type AskObserver interface {
	ObserveAsk(ctx context.Context, ev AskEvent)
}

// AskObserverFunc adapts a function to AskObserver
type AskObserverFunc func(ctx context.Context, ev AskEvent)

// ObserveAsk calls f
func (f AskObserverFunc) ObserveAsk(ctx context.Context, ev AskEvent) { f(ctx, ev) }

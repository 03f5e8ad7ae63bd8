// Package core defines the core interfaces and types for the ask bridge.
package core

import "context"

// Provider defines the interface for LLM backends.
// Implementations must be safe for concurrent use; they hold only
// read-only configuration after construction.
type Provider interface {
	// Name returns the provider name used in logs, metrics and audit entries
	Name() string

	// Model returns the configured model identifier
	Model() string

	// Ask sends a single prompt upstream and returns the reply.
	// Failures are always *ProviderError values.
	Ask(ctx context.Context, prompt string) (Reply, error)
}

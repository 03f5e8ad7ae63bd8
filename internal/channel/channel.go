// Package channel defines the contract between chat transports and the model client.
package channel

import "context"

// Channel is a chat transport (Telegram, Slack).
type Channel interface {
	Name() string
	// Run blocks until ctx is canceled or the transport fails.
	Run(ctx context.Context) error
}

// Asker answers a single prompt. Ask never fails: every outcome,
// including errors, comes back as text to show the user.
type Asker interface {
	Ask(ctx context.Context, prompt string) string
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(ctx context.Context, prompt string) string

// Ask calls f.
func (f AskerFunc) Ask(ctx context.Context, prompt string) string {
	return f(ctx, prompt)
}

// Package llm is the entry point chat gateways use to ask the configured model.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"askbot/config"
	"askbot/internal/core"
	"askbot/internal/locale"
	"askbot/internal/providers"
)

// Client owns exactly one provider and turns every outcome into user-facing
// text. It is safe for concurrent use.
type Client struct {
	provider       core.Provider
	maxPromptChars int
	messages       locale.Messages
	observers      []core.AskObserver
}

// Option configures a Client
type Option func(*options)

type options struct {
	httpClient *http.Client
	provider   core.Provider
	observers  []core.AskObserver
}

// WithHTTPClient makes the provider use httpClient instead of building its own
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) { o.httpClient = httpClient }
}

// WithProvider bypasses the factory and uses p directly
func WithProvider(p core.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithObserver registers obs to be notified after every ask
func WithObserver(obs core.AskObserver) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// New builds the provider named in settings. An unknown provider name
// fails here rather than on the first ask.
func New(s *config.Settings, factory *providers.ProviderFactory, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	msgs := locale.For(s.Locale)

	p := o.provider
	if p == nil {
		if factory == nil {
			return nil, fmt.Errorf("failed to create LLM client: no provider factory")
		}
		var err error
		p, err = factory.Create(s, providers.Options{
			HTTPClient: o.httpClient,
			Persona:    msgs.Persona,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}

	return &Client{
		provider:       p,
		maxPromptChars: s.MaxPromptChars,
		messages:       msgs,
		observers:      o.observers,
	}, nil
}

// Provider returns the backend this client talks to
func (c *Client) Provider() core.Provider {
	return c.provider
}

// Ask returns the model's answer or a localized notice. It never fails.
func (c *Client) Ask(ctx context.Context, prompt string) string {
	return c.AskResult(ctx, prompt).Text
}

// AskResult is Ask with the outcome tag exposed.
// Prompts longer than the configured ceiling, counted in code points,
// are rejected without contacting the provider.
func (c *Client) AskResult(ctx context.Context, prompt string) core.Result {
	ctx, requestID := core.EnsureRequestID(ctx)
	start := time.Now()

	ev := core.AskEvent{
		RequestID:   requestID,
		ChatID:      core.GetChatID(ctx),
		Provider:    c.provider.Name(),
		Model:       c.provider.Model(),
		PromptChars: utf8.RuneCountInString(prompt),
		StartedAt:   start,
	}

	var res core.Result
	if ev.PromptChars > c.maxPromptChars {
		res = core.Result{Outcome: core.OutcomeTooLong, Text: c.messages.TooLong}
	} else {
		res = c.dispatch(ctx, prompt, &ev)
	}

	ev.Outcome = res.Outcome
	ev.Duration = time.Since(start)

	slog.Info("ask completed",
		"request_id", ev.RequestID,
		"chat_id", ev.ChatID,
		"provider", ev.Provider,
		"model", ev.Model,
		"outcome", ev.Outcome,
		"prompt_chars", ev.PromptChars,
		"duration", ev.Duration,
	)
	for _, obs := range c.observers {
		obs.ObserveAsk(ctx, ev)
	}
	return res
}

func (c *Client) dispatch(ctx context.Context, prompt string, ev *core.AskEvent) core.Result {
	reply, err := c.provider.Ask(ctx, prompt)
	if err != nil {
		ev.ErrorKind = core.KindOf(err)
		slog.Warn("provider request failed",
			"request_id", ev.RequestID,
			"provider", ev.Provider,
			"kind", ev.ErrorKind,
			"error", err,
		)
		if core.IsTimeout(err) {
			return core.Result{Outcome: core.OutcomeTimeout, Text: c.messages.Timeout}
		}
		return core.Result{Outcome: core.OutcomeFailure, Text: c.messages.Failure}
	}

	if reply.Kind == core.ReplyLoading {
		return core.Result{Outcome: core.OutcomeLoading, Text: c.messages.Loading}
	}
	return core.Result{Outcome: core.OutcomeAnswer, Text: reply.Text}
}

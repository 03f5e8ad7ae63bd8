// Package openai provides the chat-completion backend used for OpenAI and
// any OpenAI-compatible host such as DeepSeek.
package openai

import (
	"context"
	"net/http"
	"strings"

	"askbot/config"
	"askbot/internal/core"
	"askbot/internal/llmclient"
	"askbot/internal/providers"
)

// Registration provides factory registration for the OpenAI provider.
var Registration = providers.Registration{
	Type: config.ProviderOpenAI,
	New:  builder(config.ProviderOpenAI),
}

// DeepSeekRegistration reuses the same provider against the DeepSeek host.
var DeepSeekRegistration = providers.Registration{
	Type: config.ProviderDeepSeek,
	New:  builder(config.ProviderDeepSeek),
}

func builder(name string) providers.Builder {
	return func(s *config.Settings, opts providers.Options) (core.Provider, error) {
		return NewWithHTTPClient(providers.NewOpenAIConfig(name, s, opts.Persona), opts.HTTPClient), nil
	}
}

// Provider implements the core.Provider interface for chat-completion hosts
type Provider struct {
	client *llmclient.Client
	cfg    providers.OpenAIConfig
}

// NewWithHTTPClient creates a provider with a custom HTTP client.
// If httpClient is nil, one bounded by cfg.Timeout is created.
func NewWithHTTPClient(cfg providers.OpenAIConfig, httpClient *http.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = config.ProviderOpenAI
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	p := &Provider{cfg: cfg}
	p.client = llmclient.NewWithHTTPClient(httpClient, llmclient.Config{
		ProviderName: cfg.Name,
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
	}, p.setHeaders)
	return p
}

// Name returns the provider name
func (p *Provider) Name() string { return p.cfg.Name }

// Model returns the configured model
func (p *Provider) Model() string { return p.cfg.Model }

// setHeaders sets the required headers for chat-completion requests
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	// OpenAI rejects non-ASCII or oversized client request IDs with a 400
	if requestID := core.GetRequestID(req.Context()); requestID != "" && isValidClientRequestID(requestID) {
		req.Header.Set("X-Client-Request-Id", requestID)
	}
}

// isValidClientRequestID checks if the request ID is valid for OpenAI's X-Client-Request-Id header.
// OpenAI requires: ASCII characters only, max 512 characters.
func isValidClientRequestID(id string) bool {
	if len(id) > 512 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] > 127 {
			return false
		}
	}
	return true
}

// Ask sends the persona and prompt as a two-message chat completion and
// returns the first choice's content, or "" when there is none.
func (p *Provider) Ask(ctx context.Context, prompt string) (core.Reply, error) {
	var resp core.ChatResponse
	err := p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     core.NewChatRequest(p.cfg.Model, p.cfg.Persona, prompt, p.cfg.MaxTokens),
	}, &resp)
	if err != nil {
		return core.Reply{}, err
	}
	return core.Answer(resp.FirstContent()), nil
}

// Package huggingface provides the inference-hosting backend. It talks either
// to the raw text-generation API or, when the base URL points at the
// inference router, to its chat-completion endpoint.
package huggingface

import (
	"context"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"askbot/config"
	"askbot/internal/core"
	"askbot/internal/llmclient"
	"askbot/internal/providers"
)

// Registration provides factory registration for the HuggingFace provider.
var Registration = providers.Registration{
	Type: config.ProviderHuggingFace,
	New: func(s *config.Settings, opts providers.Options) (core.Provider, error) {
		return NewWithHTTPClient(providers.NewHuggingFaceConfig(s, opts.Persona), opts.HTTPClient), nil
	},
}

const (
	defaultInferenceURL = "https://api-inference.huggingface.co/models/"
	routerHost          = "router.huggingface.co"
)

// Provider implements the core.Provider interface for HuggingFace
type Provider struct {
	client    *llmclient.Client
	cfg       providers.HuggingFaceConfig
	templates []Template
	router    bool
	// url is the raw-generation endpoint; unused on the router path
	url string
}

// NewWithHTTPClient creates a provider with a custom HTTP client.
// If httpClient is nil, one bounded by cfg.Timeout is created.
func NewWithHTTPClient(cfg providers.HuggingFaceConfig, httpClient *http.Client) *Provider {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	p := &Provider{
		cfg:       cfg,
		templates: DefaultTemplates,
		router:    strings.Contains(base, routerHost),
		url:       base,
	}
	if base == "" {
		p.url = defaultInferenceURL + cfg.Model
	}
	p.client = llmclient.NewWithHTTPClient(httpClient, llmclient.Config{
		ProviderName: config.ProviderHuggingFace,
		BaseURL:      base,
		Timeout:      cfg.Timeout,
	}, p.setHeaders)
	return p
}

// WithTemplates replaces the prompt template table
func (p *Provider) WithTemplates(templates []Template) *Provider {
	p.templates = templates
	return p
}

// Name returns the provider name
func (p *Provider) Name() string { return config.ProviderHuggingFace }

// Model returns the configured model
func (p *Provider) Model() string { return p.cfg.Model }

// URL returns the endpoint asks are posted to: the router chat-completions
// URL on the router path, the raw-generation URL otherwise
func (p *Provider) URL() string {
	if p.router {
		return p.client.BaseURL() + "/chat/completions"
	}
	return p.url
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

// Ask dispatches to the router or raw-generation protocol
func (p *Provider) Ask(ctx context.Context, prompt string) (core.Reply, error) {
	if p.router {
		return p.askRouter(ctx, prompt)
	}
	return p.askRaw(ctx, prompt)
}

// rawRequest is the text-generation payload
type rawRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters rawParameters `json:"parameters"`
}

type rawParameters struct {
	MaxNewTokens   int  `json:"max_new_tokens"`
	ReturnFullText bool `json:"return_full_text"`
}

func (p *Provider) askRaw(ctx context.Context, prompt string) (core.Reply, error) {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method: http.MethodPost,
		URL:    p.URL(),
		Body: rawRequest{
			Inputs: FormatPrompt(p.templates, p.cfg.Model, p.cfg.Persona, prompt),
			Parameters: rawParameters{
				MaxNewTokens:   p.cfg.MaxTokens,
				ReturnFullText: false,
			},
		},
	})
	if err != nil {
		return core.Reply{}, err
	}
	return p.parseRaw(resp)
}

// parseRaw interprets a text-generation response body:
// a list yields its first generated_text, estimated_time means the model is
// still loading, an error key is a failure, anything else is an empty answer.
func (p *Provider) parseRaw(resp *llmclient.Response) (core.Reply, error) {
	if !gjson.ValidBytes(resp.Body) {
		return core.Reply{}, core.NewProviderError(p.Name(), resp.StatusCode, "invalid JSON response", nil)
	}
	data := gjson.ParseBytes(resp.Body)

	switch {
	case data.IsArray():
		if text := data.Get("0.generated_text"); text.Type == gjson.String {
			return core.Answer(text.Str), nil
		}
	case data.IsObject():
		if data.Get("estimated_time").Exists() {
			return core.Loading(), nil
		}
		if e := data.Get("error"); e.Exists() {
			return core.Reply{}, core.NewProviderError(p.Name(), resp.StatusCode, errorMessage(e), nil)
		}
	}
	return core.Answer(""), nil
}

func (p *Provider) askRouter(ctx context.Context, prompt string) (core.Reply, error) {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     core.NewChatRequest(p.cfg.Model, p.cfg.Persona, prompt, p.cfg.MaxTokens),
	})
	if err != nil {
		return core.Reply{}, err
	}
	return p.parseRouter(resp)
}

// parseRouter returns the first choice's content when it is a string.
// Otherwise an error key is a failure and anything else is an empty answer.
func (p *Provider) parseRouter(resp *llmclient.Response) (core.Reply, error) {
	if !gjson.ValidBytes(resp.Body) {
		return core.Reply{}, core.NewProviderError(p.Name(), resp.StatusCode, "invalid JSON response", nil)
	}
	data := gjson.ParseBytes(resp.Body)
	if !data.IsObject() {
		return core.Answer(""), nil
	}
	if choices := data.Get("choices"); choices.IsArray() {
		if content := choices.Get("0.message.content"); content.Type == gjson.String {
			return core.Answer(content.Str), nil
		}
	}
	if e := data.Get("error"); e.Exists() {
		return core.Reply{}, core.NewProviderError(p.Name(), resp.StatusCode, errorMessage(e), nil)
	}
	return core.Answer(""), nil
}

func errorMessage(e gjson.Result) string {
	if m := e.Get("message"); m.Type == gjson.String {
		return m.Str
	}
	if e.Type == gjson.String {
		return e.Str
	}
	return e.Raw
}

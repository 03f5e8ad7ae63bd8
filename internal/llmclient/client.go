// Package llmclient provides a base HTTP client for LLM providers with:
// - Request marshaling/unmarshaling
// - Standardized error normalization (timeout vs provider_error)
// - Exactly one attempt per call, with no retries
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"askbot/internal/core"
	"askbot/internal/httpclient"
)

// Config holds configuration for the LLM client
type Config struct {
	// ProviderName identifies the provider for error messages
	ProviderName string

	// BaseURL is the API base URL
	BaseURL string

	// Timeout bounds each request; used only when no HTTP client is supplied
	Timeout time.Duration
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for LLM providers
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// New creates a new LLM client with the given configuration
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.New(config.Timeout), config, headerSetter)
}

// NewWithHTTPClient creates a new LLM client with a custom HTTP client.
// If httpClient is nil, one bounded by config.Timeout is created.
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(config.Timeout)
	}
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// BaseURL returns the current base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request represents an HTTP request to be made
type Request struct {
	Method string
	// Endpoint is appended to the base URL
	Endpoint string
	// URL, when set, is used verbatim instead of BaseURL+Endpoint
	URL     string
	Body    interface{} // Will be JSON marshaled if not nil
	Headers map[string]string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// Do executes a request and unmarshals the JSON response into result
func (c *Client) Do(ctx context.Context, req Request, result interface{}) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return core.NewProviderError(c.config.ProviderName, resp.StatusCode, "failed to unmarshal response: "+err.Error(), err)
		}
	}

	return nil
}

// DoRaw executes a single request and returns the raw 2xx response.
// Non-2xx responses become provider errors; deadline failures become timeout errors.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError("failed to send request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ParseProviderError(c.config.ProviderName, resp.StatusCode, body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := req.URL
	if url == "" {
		url = c.config.BaseURL + req.Endpoint
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewProviderError(c.config.ProviderName, 0, "failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, core.NewProviderError(c.config.ProviderName, 0, "failed to create request", err)
	}

	// Set default content type for requests with body
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	// Apply provider-specific headers
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	// Apply request-specific headers
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// transportError classifies a failure that happened before a full response was read
func (c *Client) transportError(msg string, err error) *core.ProviderError {
	if IsTimeout(err) {
		return core.NewTimeoutError(c.config.ProviderName, err)
	}
	return core.NewProviderError(c.config.ProviderName, 0, msg+": "+err.Error(), err)
}

// IsTimeout reports whether err was caused by a deadline: the request
// context expiring or the HTTP client's own timeout firing.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ParseProviderError turns a non-2xx upstream response into a provider error.
// The message is taken from an OpenAI-style {"error":{"message":...}} body,
// an {"error":"..."} body, or the raw body text, in that order.
func ParseProviderError(provider string, statusCode int, body []byte) *core.ProviderError {
	message := string(body)
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		if m := parsed.Get("error.message"); m.Type == gjson.String && m.Str != "" {
			message = m.Str
		} else if m := parsed.Get("error"); m.Type == gjson.String && m.Str != "" {
			message = m.Str
		}
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return core.NewProviderError(provider, statusCode, fmt.Sprintf("upstream returned %d: %s", statusCode, message), nil)
}

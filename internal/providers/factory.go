// Package providers selects and builds the LLM backend named in settings.
package providers

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"askbot/config"
	"askbot/internal/core"
	"askbot/internal/locale"
)

// ErrUnknownProvider is returned by Create for a name nothing registered
var ErrUnknownProvider = errors.New("unknown provider")

// Options carries construction-time collaborators shared by all backends
type Options struct {
	// HTTPClient overrides the client built from the configured timeout
	HTTPClient *http.Client
	// Persona is the system message; defaults to the configured locale's persona
	Persona string
}

// Builder creates a provider instance from settings
type Builder func(s *config.Settings, opts Options) (core.Provider, error)

// Registration contains metadata for registering a provider with the factory.
type Registration struct {
	Type string
	New  Builder
}

// ProviderFactory manages provider registration and creation.
type ProviderFactory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewProviderFactory creates a new provider factory instance.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{
		builders: make(map[string]Builder),
	}
}

// Add registers a provider with the factory.
func (f *ProviderFactory) Add(reg Registration) {
	f.Register(reg.Type, reg.New)
}

// Register adds a builder under a provider type. Names are case-insensitive.
func (f *ProviderFactory) Register(providerType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[strings.ToLower(providerType)] = builder
}

// Create instantiates the provider selected by s.LLMProvider.
func (f *ProviderFactory) Create(s *config.Settings, opts Options) (core.Provider, error) {
	name := strings.ToLower(strings.TrimSpace(s.LLMProvider))

	f.mu.RLock()
	builder, ok := f.builders[name]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownProvider, s.LLMProvider, strings.Join(f.ListRegistered(), ", "))
	}
	if opts.Persona == "" {
		opts.Persona = locale.For(s.Locale).Persona
	}

	p, err := builder(s, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
	}
	return p, nil
}

// ListRegistered returns the sorted list of registered provider types
func (f *ProviderFactory) ListRegistered() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

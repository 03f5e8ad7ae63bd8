package providers

import (
	"time"

	"askbot/config"
)

// OpenAIConfig is everything a chat-completion backend needs.
// It is shared by openai and deepseek, which differ only in values.
type OpenAIConfig struct {
	// Name is the provider name used in errors, logs and metrics
	Name      string
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
	Persona   string
}

// HuggingFaceConfig is everything the inference-hosting backend needs.
// An empty BaseURL selects the public per-model inference endpoint.
type HuggingFaceConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
	Persona   string
}

// NewOpenAIConfig derives a chat-completion config for the named backend.
// name must be config.ProviderOpenAI or config.ProviderDeepSeek.
func NewOpenAIConfig(name string, s *config.Settings, persona string) OpenAIConfig {
	ps := s.OpenAI
	if name == config.ProviderDeepSeek {
		ps = s.DeepSeek
	}
	return OpenAIConfig{
		Name:      name,
		APIKey:    ps.APIKey,
		Model:     ps.Model,
		BaseURL:   ps.BaseURL,
		Timeout:   s.Timeout(),
		MaxTokens: s.MaxTokens,
		Persona:   persona,
	}
}

// NewHuggingFaceConfig derives the inference-hosting config from settings
func NewHuggingFaceConfig(s *config.Settings, persona string) HuggingFaceConfig {
	return HuggingFaceConfig{
		APIKey:    s.HuggingFace.APIKey,
		Model:     s.HuggingFace.Model,
		BaseURL:   s.HuggingFace.BaseURL,
		Timeout:   s.Timeout(),
		MaxTokens: s.MaxTokens,
		Persona:   persona,
	}
}

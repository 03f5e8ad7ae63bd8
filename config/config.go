// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported LLM provider names
const (
	ProviderOpenAI      = "openai"
	ProviderDeepSeek    = "deepseek"
	ProviderHuggingFace = "huggingface"
)

// Settings holds the application configuration.
// It is loaded once at startup and never mutated afterwards.
type Settings struct {
	// TelegramToken authenticates the Telegram gateway
	TelegramToken string `yaml:"telegram_bot_token"`

	// LLMProvider selects the backend: openai, deepseek or huggingface
	LLMProvider string `yaml:"llm_provider"`

	OpenAI      ProviderSettings `yaml:"openai"`
	DeepSeek    ProviderSettings `yaml:"deepseek"`
	HuggingFace ProviderSettings `yaml:"huggingface"`

	// TimeoutSec bounds each upstream call
	TimeoutSec int `yaml:"timeout_sec"`

	// MaxPromptChars is the prompt ceiling in Unicode code points
	MaxPromptChars int `yaml:"max_prompt_chars"`

	// MaxTokens caps the generated output
	MaxTokens int `yaml:"max_tokens"`

	// Locale selects the user-facing message catalog ("ru" or "en")
	Locale string `yaml:"locale"`

	Log     LogConfig     `yaml:"log"`
	Admin   AdminConfig   `yaml:"admin"`
	Audit   AuditConfig   `yaml:"audit"`
	Storage StorageConfig `yaml:"storage"`
	Slack   SlackConfig   `yaml:"slack"`
}

// ProviderSettings holds the credentials and endpoint of one backend
type ProviderSettings struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// LogConfig controls the process logger
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is auto, text or json. auto picks text on a terminal.
	Format string `yaml:"format"`
}

// AdminConfig configures the admin HTTP server (health + metrics)
type AdminConfig struct {
	// Addr is the listen address; empty disables the server
	Addr string `yaml:"addr"`
	// Token, when set, is required as a bearer token on admin routes except /health
	Token           string `yaml:"token"`
	MetricsEnabled  bool   `yaml:"metrics_enabled"`
	MetricsEndpoint string `yaml:"metrics_endpoint"`
}

// AuditConfig configures the ask audit log
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// BufferSize is the number of entries buffered before dropping
	BufferSize int `yaml:"buffer_size"`
	// FlushInterval is how often buffered entries are written
	FlushInterval time.Duration `yaml:"flush_interval"`
	// RetentionDays is how long entries are kept; 0 keeps them forever
	RetentionDays int `yaml:"retention_days"`
}

// StorageConfig selects the audit log backend
type StorageConfig struct {
	// Type is sqlite, postgresql or mongodb
	Type       string           `yaml:"type"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// SlackConfig holds the optional Slack gateway credentials
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
}

// Enabled reports whether both Slack tokens are present
func (s SlackConfig) Enabled() bool {
	return s.BotToken != "" && s.AppToken != ""
}

// Timeout returns TimeoutSec as a duration
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// Provider returns the settings of the selected backend.
// The boolean is false for an unknown provider name.
func (s *Settings) Provider() (ProviderSettings, bool) {
	switch s.LLMProvider {
	case ProviderOpenAI:
		return s.OpenAI, true
	case ProviderDeepSeek:
		return s.DeepSeek, true
	case ProviderHuggingFace:
		return s.HuggingFace, true
	default:
		return ProviderSettings{}, false
	}
}

// Defaults returns Settings populated with built-in defaults only
func Defaults() Settings {
	return Settings{
		LLMProvider: ProviderOpenAI,
		OpenAI: ProviderSettings{
			Model:   "gpt-4o-mini",
			BaseURL: "https://api.openai.com/v1",
		},
		DeepSeek: ProviderSettings{
			Model:   "deepseek-chat",
			BaseURL: "https://api.deepseek.com",
		},
		HuggingFace: ProviderSettings{
			Model: "gpt2",
		},
		TimeoutSec:     15,
		MaxPromptChars: 1000,
		MaxTokens:      300,
		Locale:         "ru",
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Admin: AdminConfig{
			MetricsEnabled:  true,
			MetricsEndpoint: "/metrics",
		},
		Audit: AuditConfig{
			BufferSize:    1000,
			FlushInterval: 5 * time.Second,
			RetentionDays: 30,
		},
		Storage: StorageConfig{
			Type:       "sqlite",
			SQLite:     SQLiteConfig{Path: "data/askbot.db"},
			PostgreSQL: PostgreSQLConfig{MaxConns: 10},
			MongoDB:    MongoDBConfig{Database: "askbot"},
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, an optional
// .env file and the process environment, in increasing order of precedence.
func Load() (*Settings, error) {
	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	path := os.Getenv("ASKBOT_CONFIG")
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}
	return LoadFile(path, explicit)
}

// LoadFile builds Settings from defaults, the YAML file at path and the
// environment. A missing file is an error only when required is true.
func LoadFile(path string, required bool) (*Settings, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal([]byte(expandString(string(data))), &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return &cfg, nil
}

// Validate reports configuration errors that would make the bridge unusable
func (s *Settings) Validate() error {
	var errs []error
	if _, ok := s.Provider(); !ok {
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q (valid: openai, deepseek, huggingface)", s.LLMProvider))
	}
	if s.Audit.Enabled {
		switch s.Storage.Type {
		case "sqlite", "postgresql", "mongodb":
		default:
			errs = append(errs, fmt.Errorf("unknown STORAGE_TYPE %q (valid: sqlite, postgresql, mongodb)", s.Storage.Type))
		}
	}
	switch s.Log.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q (valid: auto, text, json)", s.Log.Format))
	}
	return errors.Join(errs...)
}

// ValidateGateways reports an error when no chat gateway can be started
func (s *Settings) ValidateGateways() error {
	if s.TelegramToken == "" && !s.Slack.Enabled() {
		return errors.New("TELEGRAM_BOT_TOKEN is missing")
	}
	return nil
}

func normalize(cfg *Settings) {
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.HuggingFace.BaseURL = strings.TrimSpace(cfg.HuggingFace.BaseURL)
	cfg.Locale = strings.ToLower(strings.TrimSpace(cfg.Locale))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Storage.Type = strings.ToLower(strings.TrimSpace(cfg.Storage.Type))
}

// applyEnvOverrides overlays environment variables on cfg.
// Blank or unparsable numeric values keep the current value.
func applyEnvOverrides(cfg *Settings) {
	envString("TELEGRAM_BOT_TOKEN", &cfg.TelegramToken)
	envString("LLM_PROVIDER", &cfg.LLMProvider)

	envString("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	envString("OPENAI_MODEL", &cfg.OpenAI.Model)
	envString("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	envString("DEEPSEEK_API_KEY", &cfg.DeepSeek.APIKey)
	envString("DEEPSEEK_MODEL", &cfg.DeepSeek.Model)
	envString("DEEPSEEK_BASE_URL", &cfg.DeepSeek.BaseURL)
	envString("HUGGINGFACE_API_KEY", &cfg.HuggingFace.APIKey)
	envString("HUGGINGFACE_MODEL", &cfg.HuggingFace.Model)
	envString("HUGGINGFACE_BASE_URL", &cfg.HuggingFace.BaseURL)

	envInt("LLM_TIMEOUT_SEC", &cfg.TimeoutSec)
	envInt("LLM_MAX_PROMPT_CHARS", &cfg.MaxPromptChars)
	envInt("LLM_MAX_TOKENS", &cfg.MaxTokens)
	envString("BOT_LOCALE", &cfg.Locale)

	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FORMAT", &cfg.Log.Format)

	envString("ADMIN_ADDR", &cfg.Admin.Addr)
	envString("ADMIN_TOKEN", &cfg.Admin.Token)
	envBool("METRICS_ENABLED", &cfg.Admin.MetricsEnabled)
	envString("METRICS_ENDPOINT", &cfg.Admin.MetricsEndpoint)

	envBool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	envInt("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)
	envDuration("AUDIT_FLUSH_INTERVAL", &cfg.Audit.FlushInterval)
	envInt("AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays)

	envString("STORAGE_TYPE", &cfg.Storage.Type)
	envString("SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envString("POSTGRES_URL", &cfg.Storage.PostgreSQL.URL)
	envInt("POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns)
	envString("MONGODB_URL", &cfg.Storage.MongoDB.URL)
	envString("MONGODB_DATABASE", &cfg.Storage.MongoDB.Database)

	envString("SLACK_BOT_TOKEN", &cfg.Slack.BotToken)
	envString("SLACK_APP_TOKEN", &cfg.Slack.AppToken)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func envBool(key string, dst *bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// envDuration accepts Go durations ("10s") or a bare number of seconds
func envDuration(key string, dst *time.Duration) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} with environment values.
// A ${VAR} that is unset or empty and has no default is left as-is.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return m
	})
}

// Package app wires configuration, the model client, gateways and the admin
// server together and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"askbot/config"
	"askbot/internal/auditlog"
	"askbot/internal/channel"
	"askbot/internal/core"
	"askbot/internal/llm"
	"askbot/internal/locale"
	"askbot/internal/observability"
	"askbot/internal/providers"
	"askbot/internal/providers/huggingface"
	"askbot/internal/providers/openai"
	"askbot/internal/server"
	"askbot/internal/slack"
	"askbot/internal/telegram"
)

// NewFactory returns a factory with every built-in provider registered.
func NewFactory() *providers.ProviderFactory {
	factory := providers.NewProviderFactory()
	factory.Add(openai.Registration)
	factory.Add(openai.DeepSeekRegistration)
	factory.Add(huggingface.Registration)
	return factory
}

// App holds every long-lived component. The caller must call Shutdown.
type App struct {
	settings *config.Settings
	client   *llm.Client
	audit    *auditlog.Result
	server   *server.Server
	channels []channel.Channel

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the options for creating an App.
type Config struct {
	Settings *config.Settings

	// Factory builds the provider; nil uses NewFactory.
	Factory *providers.ProviderFactory

	// Registerer and Gatherer back the metrics endpoint; nil uses the
	// Prometheus defaults.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Channels overrides the gateways built from Settings.
	Channels []channel.Channel

	// ClientOptions are passed through to llm.New.
	ClientOptions []llm.Option

	Version string
}

// New creates an App. Nothing is started until Serve.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	s := cfg.Settings
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	factory := cfg.Factory
	if factory == nil {
		factory = NewFactory()
	}

	app := &App{settings: s, channels: cfg.Channels}

	auditResult, err := auditlog.New(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit logging: %w", err)
	}
	app.audit = auditResult

	opts := append([]llm.Option{llm.WithObserver(auditResult.Logger)}, cfg.ClientOptions...)

	adminEnabled := s.Admin.Addr != ""
	if adminEnabled && s.Admin.MetricsEnabled {
		metrics, err := observability.NewMetrics(cfg.Registerer)
		if err != nil {
			closeErr := app.audit.Close()
			return nil, errors.Join(fmt.Errorf("failed to register metrics: %w", err), closeErr)
		}
		opts = append(opts, llm.WithObserver(metrics))
	}

	client, err := llm.New(s, factory, opts...)
	if err != nil {
		closeErr := app.audit.Close()
		return nil, errors.Join(err, closeErr)
	}
	app.client = client

	if adminEnabled {
		app.server = server.New(client.Provider(), &server.Config{
			Token:           s.Admin.Token,
			MetricsEnabled:  s.Admin.MetricsEnabled,
			MetricsEndpoint: s.Admin.MetricsEndpoint,
			Gatherer:        cfg.Gatherer,
			Version:         cfg.Version,
		})
	}

	app.logStartupInfo()
	return app, nil
}

// Client returns the model client.
func (a *App) Client() *llm.Client {
	return a.client
}

// Provider returns the configured provider.
func (a *App) Provider() core.Provider {
	return a.client.Provider()
}

// Serve runs the gateways and the admin server until ctx is canceled or one
// of them fails.
func (a *App) Serve(ctx context.Context) error {
	channels := a.channels
	if channels == nil {
		var err error
		channels, err = a.buildChannels()
		if err != nil {
			return err
		}
	}
	if len(channels) == 0 {
		return fmt.Errorf("no chat gateway configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(channels)+1)
	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("starting gateway", "channel", ch.Name())
			if err := ch.Run(ctx); err != nil {
				errCh <- fmt.Errorf("%s gateway: %w", ch.Name(), err)
			}
		}()
	}

	if a.server != nil {
		addr := a.settings.Admin.Addr
		go func() {
			slog.Info("starting admin server", "address", addr)
			if err := a.server.Start(addr); err != nil {
				errCh <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		slog.Error("component failed, stopping", "error", runErr)
		cancel()
	}
	wg.Wait()
	return runErr
}

func (a *App) buildChannels() ([]channel.Channel, error) {
	if err := a.settings.ValidateGateways(); err != nil {
		return nil, err
	}

	msgs := locale.For(a.settings.Locale)
	var channels []channel.Channel

	if a.settings.TelegramToken != "" {
		bot, err := telegram.NewBot(a.settings.TelegramToken, a.client, msgs)
		if err != nil {
			return nil, err
		}
		channels = append(channels, bot)
	}
	if a.settings.Slack.Enabled() {
		channels = append(channels, slack.NewBot(a.settings.Slack.BotToken, a.settings.Slack.AppToken, a.client, msgs))
	}
	return channels, nil
}

// Shutdown stops the admin server and flushes the audit log.
// Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("admin server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			slog.Error("audit logger close error", "error", err)
			errs = append(errs, fmt.Errorf("audit close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

func (a *App) logStartupInfo() {
	s := a.settings
	p := a.client.Provider()

	slog.Info("provider configured",
		"provider", p.Name(),
		"model", p.Model(),
		"timeout", s.Timeout(),
		"max_prompt_chars", s.MaxPromptChars,
		"locale", s.Locale,
	)

	if !locale.Supported(s.Locale) {
		slog.Warn("unsupported BOT_LOCALE, falling back to default", "locale", s.Locale, "default", locale.Default)
	}

	if s.Admin.Addr == "" {
		slog.Info("admin server disabled")
	} else {
		if s.Admin.Token == "" {
			slog.Warn("ADMIN_TOKEN not set, admin endpoints are unauthenticated")
		}
		if s.Admin.MetricsEnabled {
			slog.Info("prometheus metrics enabled", "endpoint", s.Admin.MetricsEndpoint)
		}
	}

	if s.Audit.Enabled {
		slog.Info("audit logging enabled",
			"storage", s.Storage.Type,
			"buffer_size", s.Audit.BufferSize,
			"flush_interval", s.Audit.FlushInterval,
			"retention_days", s.Audit.RetentionDays,
		)
	} else {
		slog.Info("audit logging disabled")
	}
}

// Package server provides the admin HTTP server: health and metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"askbot/internal/core"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	Token           string // Optional: bearer token required on non-public routes
	MetricsEnabled  bool   // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string // HTTP path for metrics endpoint (default: /metrics)
	// Gatherer serves metrics; nil uses prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
	Version  string
}

// New creates the admin server for provider
func New(provider core.Provider, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(provider, cfg.Version)

	publicPaths := []string{"/health"}
	metricsPath := "/metrics"
	if cfg.MetricsEnabled {
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal attacks
			metricsPath = path.Clean("/" + cfg.MetricsEndpoint)
		}
		publicPaths = append(publicPaths, metricsPath)
	}

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(requestLogger())
	if cfg.Token != "" {
		e.Use(AuthMiddleware(cfg.Token, publicPaths...))
	}

	e.GET("/health", handler.Health)
	e.GET("/info", handler.Info)
	if cfg.MetricsEnabled {
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start serves on addr until Shutdown. A clean shutdown returns nil.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"askbot/internal/core"
)

// Handler holds the admin HTTP handlers
type Handler struct {
	provider core.Provider
	version  string
	started  time.Time
}

// NewHandler creates a new handler for provider
func NewHandler(provider core.Provider, version string) *Handler {
	return &Handler{
		provider: provider,
		version:  version,
		started:  time.Now(),
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]string{"status": "ok"}
	if h.provider != nil {
		resp["provider"] = h.provider.Name()
	}
	return c.JSON(http.StatusOK, resp)
}

// InfoResponse describes the running bridge
type InfoResponse struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Info handles GET /info
func (h *Handler) Info(c echo.Context) error {
	resp := InfoResponse{
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if h.provider != nil {
		resp.Provider = h.provider.Name()
		resp.Model = h.provider.Model()
	}
	return c.JSON(http.StatusOK, resp)
}

// requestLogger logs one slog line per admin request
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("admin request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			)
			return nil
		},
	})
}

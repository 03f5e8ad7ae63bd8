// Package observability exposes Prometheus metrics for asks.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"askbot/internal/core"
)

// Metrics records ask outcomes and latencies
type Metrics struct {
	asks     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		asks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askbot",
			Name:      "asks_total",
			Help:      "Asks handled, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "askbot",
			Name:      "ask_duration_seconds",
			Help:      "Time spent answering an ask, including the upstream call.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		}, []string{"provider"}),
	}

	for _, c := range []prometheus.Collector{m.asks, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveAsk implements core.AskObserver
func (m *Metrics) ObserveAsk(_ context.Context, ev core.AskEvent) {
	m.asks.WithLabelValues(ev.Provider, string(ev.Outcome)).Inc()
	m.duration.WithLabelValues(ev.Provider).Observe(ev.Duration.Seconds())
}

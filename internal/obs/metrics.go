package obs

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks application metrics using atomic counters.
type Metrics struct {
	requests       atomic.Int64
	rateLimited    atomic.Int64
	priceChecks    atomic.Int64
	fallbackChecks atomic.Int64
	upstreamErrors atomic.Int64
	logger         *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requests.Add(1)
}

// IncRateLimited increments the rejected-by-rate-limit counter.
func (m *Metrics) IncRateLimited() {
	m.rateLimited.Add(1)
}

// IncPriceChecks increments the completed price check counter.
func (m *Metrics) IncPriceChecks() {
	m.priceChecks.Add(1)
}

// IncFallbackChecks increments the fallback check counter.
func (m *Metrics) IncFallbackChecks() {
	m.fallbackChecks.Add(1)
}

// IncUpstreamErrors increments the failed upstream call counter.
func (m *Metrics) IncUpstreamErrors() {
	m.upstreamErrors.Add(1)
}

// Snapshot returns current metric values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests:       m.requests.Load(),
		RateLimited:    m.rateLimited.Load(),
		PriceChecks:    m.priceChecks.Load(),
		FallbackChecks: m.fallbackChecks.Load(),
		UpstreamErrors: m.upstreamErrors.Load(),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Requests       int64
	RateLimited    int64
	PriceChecks    int64
	FallbackChecks int64
	UpstreamErrors int64
}

// HealthHandler returns a handler for /healthz requests.
func HealthHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health response", "error", err)
		}
	}
}

type counter struct {
	name  string
	help  string
	value int64
}

// MetricsHandler returns a handler for /metrics requests in Prometheus format.
func (m *Metrics) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := m.Snapshot()
		counters := []counter{
			{"pricecheck_requests_total", "Total number of API requests", s.Requests},
			{"pricecheck_rate_limited_total", "Requests rejected by the rate limiter", s.RateLimited},
			{"pricecheck_price_checks_total", "Completed price comparisons", s.PriceChecks},
			{"pricecheck_fallback_checks_total", "Fallback property lookups", s.FallbackChecks},
			{"pricecheck_upstream_errors_total", "Failed upstream pricing calls", s.UpstreamErrors},
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)

		for _, c := range counters {
			_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.value)
			if err != nil {
				m.logger.Error("failed to write metrics", "error", err)
				return
			}
		}
	}
}

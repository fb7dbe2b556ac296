// Package metrics exposes Prometheus instrumentation for provider fetches and
// statistics computations.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-stats/internal/statistics"
	"github.com/i474232898/weather-stats/internal/weather"
)

const namespace = "weather_stats"

// Metrics implements weather.Recorder on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	computations  *prometheus.CounterVec
}

var _ weather.Recorder = (*Metrics)(nil)

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Duration of hourly provider fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_errors_total",
			Help:      "Failed hourly provider fetches.",
		}, []string{"provider"}),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_total",
			Help:      "Statistics computations by variable and result.",
		}, []string{"variable", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetchDuration,
		m.fetchErrors,
		m.computations,
	)
	return m
}

func (m *Metrics) ObserveFetch(provider string, took time.Duration, err error) {
	m.fetchDuration.WithLabelValues(provider).Observe(took.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) ObserveStatistics(v weather.Variable, err error) {
	m.computations.WithLabelValues(string(v), result(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, statistics.ErrNilInput), errors.Is(err, statistics.ErrEmptyInput):
		return "empty"
	case errors.Is(err, statistics.ErrNonFinite):
		return "non_finite"
	case errors.Is(err, statistics.ErrOverflow):
		return "overflow"
	default:
		return "error"
	}
}

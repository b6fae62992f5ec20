package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	PlanningTurns    *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  prometheus.Histogram
	Materializations prometheus.Counter
	ReminderRuns     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		PlanningTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayplan_planning_turns_total",
			Help: "Planning messages handled, by mode and resulting session state.",
		}, []string{"mode", "state"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayplan_provider_requests_total",
			Help: "LLM provider requests, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dayplan_provider_request_seconds",
			Help:    "LLM provider request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		Materializations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dayplan_activity_materializations_total",
			Help: "Plans converted into persisted activities.",
		}),
		ReminderRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayplan_reminder_runs_total",
			Help: "Reminder job executions, by status.",
		}, []string{"status"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PlanningTurns,
		m.ProviderRequests,
		m.ProviderLatency,
		m.Materializations,
		m.ReminderRuns,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus instrumentation for the cognitive
// layer. Collectors are registered on a private registry so embedding hosts
// that already serve /metrics do not collide with this plugin.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder bundles the collectors updated by the orchestrator.
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal     prometheus.Counter
	ChecksFailed  prometheus.Counter
	TokensTotal   prometheus.Counter
	WriteFailures prometheus.Counter
	CheckDuration *prometheus.HistogramVec
	CheckSeverity *prometheus.GaugeVec
}

// NewRecorder builds a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leuko_runs_total",
			Help: "Orchestrator runs started.",
		}),
		ChecksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leuko_checks_failed_total",
			Help: "Checks that failed with an unexpected error.",
		}),
		TokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leuko_llm_tokens_total",
			Help: "Tokens consumed across all LLM-backed checks.",
		}),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leuko_status_write_failures_total",
			Help: "Failed attempts to persist the status document.",
		}),
		CheckDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leuko_check_duration_seconds",
			Help:    "Wall-clock duration per cognitive check.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"check"}),
		CheckSeverity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "leuko_check_severity",
			Help: "Latest severity per check (0=ok, 1=warn, 2=critical).",
		}, []string{"check"}),
	}
	reg.MustRegister(r.RunsTotal, r.ChecksFailed, r.TokensTotal,
		r.WriteFailures, r.CheckDuration, r.CheckSeverity)
	return r
}

// Handler serves the recorder's registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// SeverityValue maps the lattice onto gauge values.
func SeverityValue(severity string) float64 {
	switch severity {
	case "warn":
		return 1
	case "critical":
		return 2
	default:
		return 0
	}
}

// Package metrics exposes Prometheus collectors for the build simulator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsStarted counts build runs started across all sessions.
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "droidwrap_runs_started_total",
		Help: "Number of simulated build runs started.",
	})

	// RunsCompleted counts runs that reached the completed state.
	RunsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "droidwrap_runs_completed_total",
		Help: "Number of simulated build runs that completed.",
	})

	// RunsAborted counts runs cancelled before completion.
	RunsAborted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "droidwrap_runs_aborted_total",
		Help: "Number of simulated build runs aborted.",
	})

	// WarningsInjected counts probabilistic warning entries emitted.
	WarningsInjected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "droidwrap_warnings_injected_total",
		Help: "Number of cautionary log entries injected during ticks.",
	})

	// AnalysisFallbacks counts analyze/summarize calls that degraded to
	// their deterministic fallback values.
	AnalysisFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "droidwrap_analysis_fallbacks_total",
		Help: "Number of adapter calls resolved by fail-open fallbacks.",
	})
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics exposes Prometheus collectors for the transcribe-and-clean pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// cleanupAttemptsTotal counts individual cleanup calls.
	// Labels:
	//   - status: "success" or "failure"
	cleanupAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_attempts_total",
			Help: "Total number of upstream text cleanup attempts",
		},
		[]string{"status"},
	)

	// cleanupOutcomesTotal counts classified cleanup outcomes (success, timeout, api_error).
	cleanupOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_outcomes_total",
			Help: "Total number of classified text cleanup outcomes",
		},
		[]string{"result"},
	)

	// pipelineResponsesTotal counts responses by shape (success, fallback, error).
	pipelineResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_responses_total",
			Help: "Total number of transcribe pipeline responses by shape",
		},
		[]string{"shape"},
	)

	// upstreamCallDuration records upstream call latency per stage.
	// Buckets: 0.1s .. 120s
	upstreamCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_call_duration_seconds",
			Help:    "Duration of upstream transcription and cleanup calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(cleanupAttemptsTotal)
	prometheus.MustRegister(cleanupOutcomesTotal)
	prometheus.MustRegister(pipelineResponsesTotal)
	prometheus.MustRegister(upstreamCallDuration)
}

// RecordCleanupAttempt records one cleanup call; ok reports whether it produced text.
func RecordCleanupAttempt(ok bool) {
	status := "failure"
	if ok {
		status = "success"
	}
	cleanupAttemptsTotal.WithLabelValues(status).Inc()
}

func RecordCleanupOutcome(result string) {
	cleanupOutcomesTotal.WithLabelValues(result).Inc()
}

func RecordResponse(shape string) {
	pipelineResponsesTotal.WithLabelValues(shape).Inc()
}

// RecordUpstreamDuration observes the latency of a "transcription" or "cleanup" call.
func RecordUpstreamDuration(stage string, durationSeconds float64) {
	upstreamCallDuration.WithLabelValues(stage).Observe(durationSeconds)
}

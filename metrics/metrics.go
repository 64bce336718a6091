// Package metrics holds the Prometheus collectors for the API and the job
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts HTTP requests by method, path, status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stayscan_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationSeconds measures request latency.
	RequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stayscan_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// JobsSubmitted counts submissions by whether a new job was created.
	JobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stayscan_jobs_submitted_total",
			Help: "Scrape submissions, split by created or joined an active job",
		},
		[]string{"created"},
	)

	// JobsFinished counts terminal jobs by status and failure kind.
	JobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stayscan_jobs_finished_total",
			Help: "Jobs that reached a terminal status",
		},
		[]string{"status", "failure_kind"},
	)

	// AttemptsTotal counts scrape attempts by outcome.
	AttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stayscan_attempts_total",
			Help: "Scrape attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AttemptDurationSeconds measures fetch plus extraction time.
	AttemptDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stayscan_attempt_duration_seconds",
			Help:    "Duration of one fetch-and-extract attempt",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
	)

	// PhotosExtracted observes the photo count of successful attempts.
	PhotosExtracted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stayscan_photos_extracted",
			Help:    "Deduplicated photos per successful attempt",
			Buckets: []float64{0, 1, 5, 10, 20, 40, 80},
		},
	)

	// ActiveJobs is the number of queued, running or retrying jobs.
	ActiveJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stayscan_active_jobs",
			Help: "Jobs not yet in a terminal status",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDurationSeconds,
		JobsSubmitted,
		JobsFinished,
		AttemptsTotal,
		AttemptDurationSeconds,
		PhotosExtracted,
		ActiveJobs,
	)
}

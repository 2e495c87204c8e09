package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, cycleJobs, cycleDurationMs, claimContention) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "audit_jobs_processed_total",
		Help: "Total number of call-audit jobs processed, labeled by terminal status.",
	},
	[]string{"status"}, // 'succeeded', 'failed'
)

var cycleJobs = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "worker_cycle_jobs",
		Help:    "Jobs processed per worker cycle.",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
	},
)

var cycleDurationMs = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "worker_cycle_duration_ms",
		Help:    "Worker cycle duration in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000},
	},
)

var claimContention = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "worker_empty_claims_total",
		Help: "Claim attempts that found no queued job.",
	},
)

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveCycle(jobs int, durationMs int64) {
	cycleJobs.Observe(float64(jobs))
	cycleDurationMs.Observe(float64(durationMs))
}

func IncEmptyClaim() { claimContention.Inc() }

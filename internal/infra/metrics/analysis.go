package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(analysisLatencyMs, analysisTokens, rateLimitWaitsTotal, retriesTotal) }

var analysisLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "analysis_latency_ms",
		Help:    "External analysis call latency distribution in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
	[]string{"provider", "success"},
)

var analysisTokens = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_tokens_total",
		Help: "Token usage reported by the analysis provider.",
	},
	[]string{"provider", "kind"}, // kind: 'prompt' | 'completion'
)

var rateLimitWaitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limiter_waits_total",
		Help: "Times a caller had to wait for a sliding-window slot.",
	},
	[]string{"limiter"},
)

var retriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "analysis_retries_total",
		Help: "Retries spent on rate-limited analysis calls.",
	},
)

func ObserveAnalysis(provider string, latencyMs int64, success bool) {
	analysisLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddAnalysisTokens(provider string, prompt, completion int) {
	analysisTokens.WithLabelValues(norm(provider), "prompt").Add(float64(prompt))
	analysisTokens.WithLabelValues(norm(provider), "completion").Add(float64(completion))
}

func IncLimiterWait(limiter string) { rateLimitWaitsTotal.WithLabelValues(norm(limiter)).Inc() }
func IncAnalysisRetry()             { retriesTotal.Inc() }

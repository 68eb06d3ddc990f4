package metrics

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	analysisEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_enqueued_total",
		Help: "Analyses moved to pending by enqueue or rescan.",
	})

	analysisCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_completed_total",
			Help: "Analyses that reached a terminal status.",
		},
		[]string{"status"},
	)

	analysisFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_failures_total",
			Help: "Failed analyses by failure code.",
		},
		[]string{"code"},
	)

	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_seconds",
		Help:    "Time spent in the extract/analyze/store pipeline.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	aiAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_attempts_total",
			Help: "AI analysis attempts by outcome.",
		},
		[]string{"outcome"},
	)

	workerJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_total",
			Help: "Queue messages handled by the worker, by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route template, method and status class.",
		},
		[]string{"route", "method", "class"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP handler latency by route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	panicsRecovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panics_recovered_total",
			Help: "Panics caught and converted into errors.",
		},
		[]string{"component"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			analysisEnqueued, analysisCompleted, analysisFailures,
			analysisDuration, aiAttempts, workerJobs,
			httpRequests, httpDuration, panicsRecovered,
		)
	})
}

// IncAnalysisEnqueued counts a record entering pending.
func IncAnalysisEnqueued() {
	analysisEnqueued.Inc()
}

// IncAnalysisCompleted counts a terminal transition.
func IncAnalysisCompleted(status string) {
	analysisCompleted.WithLabelValues(status).Inc()
}

// IncAnalysisFailed counts a failure by code.
func IncAnalysisFailed(code string) {
	analysisFailures.WithLabelValues(code).Inc()
}

// ObserveAnalysisDuration records pipeline wall time.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(d.Seconds())
}

// IncAIAttempt counts one model call attempt ("success", "invalid_response", "timeout", "error").
func IncAIAttempt(outcome string) {
	aiAttempts.WithLabelValues(outcome).Inc()
}

// IncWorkerJob counts a handled queue message ("completed", "failed", "dropped").
func IncWorkerJob(outcome string) {
	workerJobs.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records one served request. Unmatched routes share the "unmatched" label.
func ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, statusClass(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// IncPanicRecovered counts a recovered panic ("http", "pipeline").
func IncPanicRecovered(component string) {
	panicsRecovered.WithLabelValues(component).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	MustRegister()
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Package metrics provides Prometheus instrumentation for the CartGuard service.
package metrics

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cartguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ScansTotal counts risk scans by the tier that produced the score.
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartguard",
			Name:      "scans_total",
			Help:      "Total session scans by score source (override, model, fallback).",
		},
		[]string{"source"},
	)

	// ScanRiskPct observes the distribution of risk percentages produced.
	ScanRiskPct = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cartguard",
		Name:      "scan_risk_pct",
		Help:      "Distribution of abandonment risk percentages.",
		Buckets:   []float64{10, 20, 35, 50, 65, 80, 90, 100},
	})

	// BotDetectionsTotal counts scans where the bot predicate fired.
	BotDetectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cartguard",
		Name:      "bot_detections_total",
		Help:      "Total scans classified as bot traffic.",
	})

	// OverrideHitsTotal counts override rule matches by rule name.
	OverrideHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartguard",
			Name:      "override_hits_total",
			Help:      "Total override rule matches by rule.",
		},
		[]string{"rule"},
	)

	// RecoveryActionsTotal counts recovery decisions by action.
	RecoveryActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartguard",
			Name:      "recovery_actions_total",
			Help:      "Total recovery decisions by action.",
		},
		[]string{"action"},
	)

	// ForecastRequestsTotal counts forecast requests by result.
	ForecastRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartguard",
			Name:      "forecast_requests_total",
			Help:      "Total forecast requests by result (ok, unavailable).",
		},
		[]string{"result"},
	)

	// AuthFailuresTotal counts rejected dashboard logins.
	AuthFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cartguard",
		Name:      "auth_failures_total",
		Help:      "Total rejected dashboard authorization attempts.",
	})

	// ActiveDashboardSessions tracks sessions currently on the dashboard.
	ActiveDashboardSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cartguard",
		Name:      "active_dashboard_sessions",
		Help:      "Number of authenticated dashboard sessions.",
	})

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cartguard",
		Name:      "active_websocket_clients",
		Help:      "Number of currently connected WebSocket clients.",
	})

	// ArtifactLoaded reports whether a model artifact is loaded (1) or absent (0).
	ArtifactLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cartguard",
			Name:      "artifact_loaded",
			Help:      "Whether a model artifact is loaded, by artifact name.",
		},
		[]string{"artifact"},
	)

	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cartguard", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ScansTotal,
		ScanRiskPct,
		BotDetectionsTotal,
		OverrideHitsTotal,
		RecoveryActionsTotal,
		ForecastRequestsTotal,
		AuthFailuresTotal,
		ActiveDashboardSessions,
		ActiveWebSocketClients,
		ArtifactLoaded,
		GoroutineCount,
	)
}

// Middleware records request counts and latency for every route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			statusLabel(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// Handler returns the /metrics endpoint handler.
// Refreshes cheap runtime gauges on each scrape.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		GoroutineCount.Set(float64(runtime.NumGoroutine()))
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func statusLabel(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

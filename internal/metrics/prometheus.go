package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlatformEntities mirrors the latest dashboard snapshot by kind.
	PlatformEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unidate_platform_entities",
			Help: "Entity counts from the latest dashboard snapshot",
		},
		[]string{"kind"},
	)

	// EngagementRateGauge mirrors the latest posts-per-user rate.
	EngagementRateGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "unidate_engagement_rate",
			Help: "Posts per user from the latest dashboard snapshot",
		},
	)

	// SnapshotRefreshesTotal counts snapshot computations by status (success, failure).
	SnapshotRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unidate_snapshot_refreshes_total",
			Help: "Total number of dashboard snapshot refreshes",
		},
		[]string{"status"},
	)

	// SnapshotRefreshDuration tracks how long a snapshot takes to compute.
	SnapshotRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unidate_snapshot_refresh_duration_seconds",
			Help:    "Dashboard snapshot computation time in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// ModerationActionsTotal counts admin actions by area, action and whether they persisted.
	ModerationActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unidate_moderation_actions_total",
			Help: "Total number of admin moderation actions",
		},
		[]string{"area", "action", "persisted"},
	)

	// HTTPRequestsTotal counts admin API requests by method, route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unidate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request latency by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unidate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// observeSnapshot publishes snap to the gauges.
func observeSnapshot(snap Snapshot) {
	PlatformEntities.WithLabelValues("users").Set(float64(snap.TotalUsers))
	PlatformEntities.WithLabelValues("active_users").Set(float64(snap.ActiveUsers))
	PlatformEntities.WithLabelValues("new_users").Set(float64(snap.NewUsers))
	PlatformEntities.WithLabelValues("posts").Set(float64(snap.TotalPosts))
	PlatformEntities.WithLabelValues("groups").Set(float64(snap.TotalGroups))
	PlatformEntities.WithLabelValues("pending_reports").Set(float64(snap.PendingReports))
	EngagementRateGauge.Set(snap.EngagementRate)
}

// RecordAction counts one admin action.
func RecordAction(area, action string, persisted bool) {
	ModerationActionsTotal.WithLabelValues(area, action, strconv.FormatBool(persisted)).Inc()
}

// GinMiddleware instruments requests using the matched route template as the path label.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Package metrics exposes Prometheus collectors for the dashboard.
package metrics

import (
	"strconv"
	"time"

	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailbutler_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	EmailsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbutler_emails_created_total",
			Help: "Total number of emails created",
		},
		[]string{"status"}, // sent, scheduled
	)

	EmailStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbutler_email_status_changes_total",
			Help: "Total number of snooze and unsnooze operations",
		},
		[]string{"status"},
	)

	TrackingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbutler_tracking_events_total",
			Help: "Total number of tracking events by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: recorded, ignored, invalid
	)

	NotificationSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mailbutler_notification_subscribers",
			Help: "Number of connected notification subscribers",
		},
		[]string{"transport"}, // sse, websocket
	)
)

// RecordHTTPRequestDuration records the latency of one request
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementEmailCreated counts a new email by its initial status
func IncrementEmailCreated(status string) {
	EmailsCreated.WithLabelValues(status).Inc()
}

// IncrementStatusChange counts a snooze or unsnooze
func IncrementStatusChange(status string) {
	EmailStatusChanges.WithLabelValues(status).Inc()
}

// IncrementTrackingEvent counts an open or click
func IncrementTrackingEvent(kind, outcome string) {
	TrackingEvents.WithLabelValues(kind, outcome).Inc()
}

// Middleware records request latency. The route pattern is used as the path
// label so ids do not explode cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = utils.StatusCode(err)
		}

		path := c.Route().Path
		if path == "" || (path == "/" && c.Path() != "/") {
			path = "unmatched"
		}
		RecordHTTPRequestDuration(c.Method(), path, strconv.Itoa(status), time.Since(start))
		return err
	}
}

// Handler serves the Prometheus exposition format
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "license_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "license_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// LicenseAssignments counts assignment engine outcomes
	LicenseAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "license_service",
			Subsystem: "licenses",
			Name:      "assignments_total",
			Help:      "Total number of license assignment requests",
		},
		[]string{"result"}, // success, failure, not_found, error
	)

	// LicenseUnassignments counts unassignment engine outcomes
	LicenseUnassignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "license_service",
			Subsystem: "licenses",
			Name:      "unassignments_total",
			Help:      "Total number of license unassignment requests",
		},
		[]string{"result"},
	)

	// AssignedSeats counts individual seats granted or released
	AssignedSeats = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "license_service",
			Subsystem: "licenses",
			Name:      "seats_total",
			Help:      "Total number of license seats granted and released",
		},
		[]string{"operation"}, // granted, released
	)
)

// Middleware records request counts and latency per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

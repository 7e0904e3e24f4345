package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "jobcore",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "Duration of introspection HTTP requests.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "path", "status"})

// Register adds the HTTP middleware's own collector to reg, alongside the
// engine/store/worker-pool collectors in internal/metrics.
func Register(reg prometheus.Registerer) error { return reg.Register(requestDuration) }

// Metrics records request duration per method/route/status, the way the
// teacher's dropped middleware.Metrics() did for its job/schedule routes.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestDuration.WithLabelValues(c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

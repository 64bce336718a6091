package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/stayscan/metrics"
)

// Metrics records Prometheus metrics for each request, labelled by route
// pattern so job ids do not explode the label space.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		metrics.RequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.RequestDurationSeconds.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

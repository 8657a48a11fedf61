package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/shared/metrics"
)

// Metrics records request count and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		done := metrics.RequestStarted()
		start := time.Now()

		c.Next()

		done()
		metrics.ObserveRequest(c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

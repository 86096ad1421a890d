package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caseflow-api/internal/service"
)

// Metrics records per-request duration and count, labelled by the route
// template rather than the raw path to keep cardinality bounded.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-progress-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records request duration per route template. Event streams are
// skipped because their duration is the lifetime of the connection.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || isEventStream(c) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// raw paths would give every 404 its own series
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func isEventStream(c *gin.Context) bool {
	if strings.HasSuffix(c.FullPath(), "/events") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

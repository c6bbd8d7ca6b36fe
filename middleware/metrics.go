package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	observability "github.com/phillip/pawshome-go/observability"
)

// Metrics records request count and latency labelled by route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

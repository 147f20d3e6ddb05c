package server

import (
	"strconv"
	"time"

	"github.com/agenthands/reelgraph/internal/logging"
	"github.com/agenthands/reelgraph/internal/metrics"
	"github.com/gin-gonic/gin"
)

const requestIDHeader = "X-Request-ID"

// RequestID reuses an upstream X-Request-ID or generates one, echoes it on
// the response and attaches it to the request context logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logging.ContextWithRequestID(c.Request.Context(), c.GetHeader(requestIDHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, logging.RequestID(ctx))
		c.Next()
	}
}

func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logging.Ctx(c.Request.Context()).Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Metrics records request counts and latency labelled by route template,
// so titles and ids in the path do not create new series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

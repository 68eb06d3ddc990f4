package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"internship-portal/internal/shared/metrics"
	"internship-portal/internal/shared/telemetry"
)

// Logging writes one request.complete line per request and feeds the HTTP metrics.
// Preflights are skipped. 5xx lines log at error level and 4xx at warn.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		metrics.ObserveHTTPRequest(route, c.Request.Method, status, latency)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             route,
			"status":            status,
			"status_transition": c.GetString(transitionKey),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"resume_id":         c.GetString(resumeIDKey),
			"analysis_id":       c.GetString(analysisIDKey),
			"is_guest":          c.GetBool(isGuestKey),
			"client_ip":         c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}

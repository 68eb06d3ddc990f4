package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"internship-portal/internal/shared/metrics"
	"internship-portal/internal/shared/server/respond"
	"internship-portal/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// If the handler already started writing, the connection is left as is.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		metrics.IncPanicRecovered("http")
		telemetry.Error("http.panic", map[string]any{
			"request_id": RequestIDFromContext(c),
			"route":      c.FullPath(),
			"method":     c.Request.Method,
			"error":      fmt.Sprint(rec),
			"stack":      string(debug.Stack()),
		})
		if c.Writer.Written() {
			c.Abort()
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
	})
}

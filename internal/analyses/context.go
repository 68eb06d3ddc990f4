package analyses

import (
	"context"
	"time"

	"internship-portal/internal/shared/server/middleware"
)

// terminalWriteTimeout bounds the final status write once the caller's context is gone.
const terminalWriteTimeout = 15 * time.Second

type requestIDKey struct{}

// WithRequestID tags ctx with the id of the request that queued the work. Workers use
// it to keep the API's id on log lines for the same analysis.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext prefers an id set by WithRequestID and falls back to the one
// the HTTP middleware stored on the request context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return middleware.RequestIDFrom(ctx)
}

// detached keeps ctx's values but drops its cancellation, so terminal status writes
// land even after the caller has gone away.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}

package logger

import "context"

type contextKey struct{}

// WithRequestID returns a copy of ctx carrying the control API request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// RequestIDFromContext returns the request ID stored by WithRequestID,
// or "" if there is none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

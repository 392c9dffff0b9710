package api

import (
	"context"

	"github.com/google/uuid"
)

type requestContextKey string

const requestIDKey requestContextKey = "infravoice.request_id"

// WithRequestID pins the X-Request-ID sent for requests made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFromContext(ctx context.Context) string {
	v := ctx.Value(requestIDKey)
	if s, _ := v.(string); s != "" {
		return s
	}
	return uuid.NewString()
}

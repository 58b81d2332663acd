package link

import (
	"context"
	"net/http"
)

type forwardedKey struct{}

// WithForwardedHeaders returns a context whose remote requests carry h in
// addition to the configured headers. Configured headers take precedence.
func WithForwardedHeaders(ctx context.Context, h http.Header) context.Context {
	if len(h) == 0 {
		return ctx
	}
	return context.WithValue(ctx, forwardedKey{}, h.Clone())
}

// ForwardedHeaders returns the headers stored by WithForwardedHeaders.
func ForwardedHeaders(ctx context.Context) http.Header {
	h, _ := ctx.Value(forwardedKey{}).(http.Header)
	return h
}

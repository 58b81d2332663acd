package link

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Options configures how a Link talks to the remote endpoint.
//
// Defaults:
// - HTTPClient: a client whose transport is instrumented with otelhttp
// - Timeout:    30s (used only if the incoming context has no deadline)
// - Logger:     no-op
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Timeout: 30 * time.Second,
		Logger:  zap.NewNop(),
	}
}

// WithHTTPClient replaces the instrumented default client. The caller's
// client is used as given, so its transport decides about tracing.
func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.HTTPClient = c } }

// WithTimeout bounds each remote request whose context has no deadline.
// 0 leaves such requests unbounded.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithLogger sets the logger for remote requests and ref lookups. A nil
// logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

package server

import (
	"time"

	"go.uber.org/zap"
)

// Options configures a Handler.
type Options struct {
	// Timeout bounds a request whose context has no deadline. 0 disables it.
	Timeout time.Duration
	Pretty  bool
	// MaxBodyBytes limits the POST body. 0 means unlimited.
	MaxBodyBytes int64
	// CORSOrigins lists the allowed origins; "*" allows any. Empty disables
	// CORS headers.
	CORSOrigins []string
	// ForwardHeaders lists incoming headers passed on to remote sources.
	// Names are case-insensitive.
	ForwardHeaders []string
	GraphiQL       bool
	Logger         *zap.Logger
}

type Option func(*Options)

func defaults() Options {
	return Options{Timeout: 10 * time.Second, GraphiQL: true, Logger: zap.NewNop()}
}

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithGraphiQL(enable bool) Option    { return func(o *Options) { o.GraphiQL = enable } }

// WithLogger sets the logger for rejected requests and failed operations.
// A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORSOrigins = origins }
}

func WithForwardHeaders(headers ...string) Option {
	return func(o *Options) { o.ForwardHeaders = headers }
}

package source

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
)

// ConfigurationError reports a missing or invalid source option.
type ConfigurationError = link.ConfigurationError

// Options describe one remote GraphQL source.
type Options struct {
	// URL is the base URL of the remote API.
	URL string
	// FieldName is the root field the remote queries are exposed under.
	FieldName string
	// TypeName prefixes remote type names. Defaults to FieldName.
	TypeName     string
	Headers      map[string]string
	UseMasterRef bool
	// QueryMethod is GET (default) or POST.
	QueryMethod string
	Timeout     time.Duration
	OAuth2      *link.OAuth2Config
}

func (o Options) validate() (Options, error) {
	o.URL = strings.TrimSpace(o.URL)
	o.FieldName = strings.TrimSpace(o.FieldName)
	o.TypeName = strings.TrimSpace(o.TypeName)
	if o.URL == "" {
		return o, &ConfigurationError{Option: "url", Reason: "missing url option"}
	}
	if o.FieldName == "" {
		return o, &ConfigurationError{Option: "fieldName", Reason: "missing fieldName option"}
	}
	if o.TypeName == "" {
		o.TypeName = o.FieldName
	}
	return o, nil
}

func (o Options) linkConfig() link.Config {
	return link.Config{
		URL:          o.URL,
		Headers:      o.Headers,
		UseMasterRef: o.UseMasterRef,
		FieldName:    o.FieldName,
		QueryMethod:  o.QueryMethod,
		OAuth2:       o.OAuth2,
	}
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger of the source, its link and its runtime.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHTTPClient sets the client used to reach the remote endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

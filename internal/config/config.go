// Package config loads the YAML configuration of the server.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	source "github.com/kissu/gridsome-source-graphql-prismic/internal/source"
)

// Config is the root of the configuration file.
type Config struct {
	Server    Server    `yaml:"server"`
	Telemetry Telemetry `yaml:"telemetry"`
	Log       Log       `yaml:"log"`
	Sources   []Source  `yaml:"sources"`
}

// Server configures the GraphQL HTTP endpoint.
type Server struct {
	Addr         string   `yaml:"addr"`
	Pretty       bool     `yaml:"pretty,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty"`
	MaxBodyBytes int64    `yaml:"max_body_bytes,omitempty"`
	GraphiQL     *bool    `yaml:"graphiql,omitempty"`
	// Introspection exposes __schema and __type on the composed schema.
	Introspection *bool `yaml:"introspection,omitempty"`
	// ForwardHeaders lists request headers passed on to remote sources.
	ForwardHeaders []string `yaml:"forward_headers,omitempty"`
	CORSOrigins    []string `yaml:"cors_origins,omitempty"`
}

// Telemetry configures tracing and metrics.
type Telemetry struct {
	OTelEndpoint string `yaml:"otel_endpoint,omitempty"`
	Service      string `yaml:"service,omitempty"`
	Metrics      *bool  `yaml:"metrics,omitempty"`
}

// Log configures the process logger.
type Log struct {
	Level       string `yaml:"level,omitempty"`
	Development bool   `yaml:"development,omitempty"`
}

// Source configures one remote GraphQL source.
type Source struct {
	URL          string            `yaml:"url"`
	FieldName    string            `yaml:"field_name"`
	TypeName     string            `yaml:"type_name,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	UseMasterRef bool              `yaml:"use_master_ref,omitempty"`
	QueryMethod  string            `yaml:"query_method,omitempty"`
	Timeout      Duration          `yaml:"timeout,omitempty"`
	OAuth2       *OAuth2           `yaml:"oauth2,omitempty"`
}

// OAuth2 configures client-credentials authentication against a source.
type OAuth2 struct {
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// Options converts s into source options.
func (s Source) Options() source.Options {
	opts := source.Options{
		URL:          s.URL,
		FieldName:    s.FieldName,
		TypeName:     s.TypeName,
		Headers:      s.Headers,
		UseMasterRef: s.UseMasterRef,
		QueryMethod:  s.QueryMethod,
		Timeout:      time.Duration(s.Timeout),
	}
	if s.OAuth2 != nil {
		opts.OAuth2 = &link.OAuth2Config{
			TokenURL:     s.OAuth2.TokenURL,
			ClientID:     s.OAuth2.ClientID,
			ClientSecret: s.OAuth2.ClientSecret,
			Scopes:       s.OAuth2.Scopes,
		}
	}
	return opts
}

// SourceOptions returns the options of every configured source.
func (c *Config) SourceOptions() []source.Options {
	out := make([]source.Options, len(c.Sources))
	for i, s := range c.Sources {
		out[i] = s.Options()
	}
	return out
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Default returns the configuration used for absent settings.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:          ":8080",
			Timeout:       Duration(10 * time.Second),
			MaxBodyBytes:  1 << 20,
			GraphiQL:      boolPtr(true),
			Introspection: boolPtr(true),
		},
		Telemetry: Telemetry{Service: "gqlsource", Metrics: boolPtr(true)},
		Log:       Log{Level: "info"},
	}
}

// Load reads the file at path. Environment variables referenced as $VAR or
// ${VAR} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem of c at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}
	seen := map[string]int{}
	for i, s := range c.Sources {
		where := fmt.Sprintf("sources[%d]", i)
		if strings.TrimSpace(s.URL) == "" {
			errs = append(errs, fmt.Errorf("%s: url is required", where))
		}
		if strings.TrimSpace(s.FieldName) == "" {
			errs = append(errs, fmt.Errorf("%s: field_name is required", where))
		} else if prev, ok := seen[s.FieldName]; ok {
			errs = append(errs, fmt.Errorf("%s: field_name %q already used by sources[%d]", where, s.FieldName, prev))
		} else {
			seen[s.FieldName] = i
		}
		switch strings.ToUpper(s.QueryMethod) {
		case "", "GET", "POST":
		default:
			errs = append(errs, fmt.Errorf("%s: query_method must be GET or POST", where))
		}
		if s.OAuth2 != nil && (s.OAuth2.TokenURL == "" || s.OAuth2.ClientID == "") {
			errs = append(errs, fmt.Errorf("%s: oauth2 needs token_url and client_id", where))
		}
	}
	return errors.Join(errs...)
}

func boolPtr(b bool) *bool { return &b }

// Enabled reports whether an optional switch is on; unset switches are on.
func Enabled(b *bool) bool { return b == nil || *b }

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	compose "github.com/kissu/gridsome-source-graphql-prismic/internal/compose"
	config "github.com/kissu/gridsome-source-graphql-prismic/internal/config"
	introspection "github.com/kissu/gridsome-source-graphql-prismic/internal/introspection"
	metrics "github.com/kissu/gridsome-source-graphql-prismic/internal/metrics"
	remotert "github.com/kissu/gridsome-source-graphql-prismic/internal/remotert"
	server "github.com/kissu/gridsome-source-graphql-prismic/internal/server"
	source "github.com/kissu/gridsome-source-graphql-prismic/internal/source"
)

var errNoSources = errors.New("no sources configured")

// buildGateway builds every configured source and merges the fragments.
func buildGateway(ctx context.Context, cfg *config.Config, log *zap.Logger) (*remotert.Executable, error) {
	if len(cfg.Sources) == 0 {
		return nil, errNoSources
	}
	start := time.Now()
	frags, err := source.BuildAll(ctx, cfg.SourceOptions(), source.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}
	merged, err := compose.Merge(frags...)
	if err != nil {
		return nil, fmt.Errorf("merge sources: %w", err)
	}
	log.Info("gateway schema ready",
		zap.Strings("fields", compose.FieldNames(merged)),
		zap.Int("types", len(merged.Schema.Types)),
		zap.Duration("took", time.Since(start)))
	return merged, nil
}

// newHandler wires the gateway into the HTTP routes. m may be nil.
func newHandler(ctx context.Context, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (http.Handler, error) {
	gw, err := buildGateway(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	runtime, sch := gw.Runtime, gw.Schema
	if config.Enabled(cfg.Server.Introspection) {
		w := introspection.Wrap(runtime, sch)
		runtime, sch = w.Runtime, w.Schema
	}

	opts := []server.Option{
		server.WithTimeout(time.Duration(cfg.Server.Timeout)),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(config.Enabled(cfg.Server.GraphiQL)),
		server.WithLogger(log),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.ForwardHeaders) > 0 {
		opts = append(opts, server.WithForwardHeaders(cfg.Server.ForwardHeaders...))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h, err := server.New(runtime, sch, opts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}

	var mh http.Handler
	if m != nil {
		mh = m.Handler()
	}
	return server.Routes(h, mh), nil
}

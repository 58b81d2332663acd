package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	config "github.com/kissu/gridsome-source-graphql-prismic/internal/config"
	eventbus "github.com/kissu/gridsome-source-graphql-prismic/internal/eventbus"
	logging "github.com/kissu/gridsome-source-graphql-prismic/internal/logging"
	metrics "github.com/kissu/gridsome-source-graphql-prismic/internal/metrics"
	otel "github.com/kissu/gridsome-source-graphql-prismic/internal/otel"
)

const shutdownGrace = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the GraphQL gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address, overrides server.addr",
				Sources: cli.EnvVars("GQLSOURCE_ADDR"),
			},
			&cli.StringFlag{
				Name:    "otel-endpoint",
				Usage:   "OTLP gRPC collector, overrides telemetry.otel_endpoint",
				Sources: cli.EnvVars("GQLSOURCE_OTEL_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error; overrides log.level",
				Sources: cli.EnvVars("GQLSOURCE_LOG_LEVEL"),
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if v := cmd.String("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v := cmd.String("otel-endpoint"); v != "" {
		cfg.Telemetry.OTelEndpoint = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Telemetry.OTelEndpoint, cfg.Telemetry.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var m *metrics.Metrics
	if config.Enabled(cfg.Telemetry.Metrics) {
		m = metrics.New()
		m.Subscribe()
	}

	h, err := newHandler(ctx, cfg, log, m)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("GraphQL gateway listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package otel

import (
	"context"
	"strconv"
	"sync"

	eventbus "github.com/kissu/gridsome-source-graphql-prismic/internal/eventbus"
	events "github.com/kissu/gridsome-source-graphql-prismic/internal/events"
	reqid "github.com/kissu/gridsome-source-graphql-prismic/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup exports spans for gateway events to the OTLP gRPC collector at
// endpoint. An empty endpoint leaves tracing off. The returned function
// flushes and stops the exporter.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	newSubscriber(otel.Tracer("gqlsource")).register()
	return tp.Shutdown, nil
}

// spans holds the spans that are open between a start and a finish event.
type spans struct{ m sync.Map }

func (s *spans) open(key string, span trace.Span) { s.m.Store(key, span) }

// within returns ctx carrying the span open under key, if any.
func (s *spans) within(ctx context.Context, key string) (context.Context, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		return ctx, false
	}
	return trace.ContextWithSpan(ctx, v.(trace.Span)), true
}

// close ends the span under key. A non-nil err marks it failed.
func (s *spans) close(key string, err error, attrs ...attribute.KeyValue) {
	v, ok := s.m.LoadAndDelete(key)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// subscriber keys request spans by request ID, remote calls by request ID,
// source and call ID, and build spans by source.
type subscriber struct {
	tracer trace.Tracer
	serve  spans
	op     spans
	remote spans
	build  spans
}

func newSubscriber(tracer trace.Tracer) *subscriber {
	return &subscriber{tracer: tracer}
}

func requestID(ctx context.Context) string {
	rid, _ := reqid.FromContext(ctx)
	return rid
}

func remoteKey(ctx context.Context, source string, call uint64) string {
	return requestID(ctx) + "/" + source + "/" + strconv.FormatUint(call, 10)
}

// parent returns ctx carrying the innermost span open for the request, or the
// build span of source outside of requests.
func (s *subscriber) parent(ctx context.Context, source string) context.Context {
	if rid, ok := reqid.FromContext(ctx); ok {
		if pctx, ok := s.op.within(ctx, rid); ok {
			return pctx
		}
		if pctx, ok := s.serve.within(ctx, rid); ok {
			return pctx
		}
	}
	pctx, _ := s.build.within(ctx, source)
	return pctx
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.ServeStart) {
		rid := requestID(ctx)
		_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Request.Method),
			attribute.String("http.target", e.Request.URL.Path),
			attribute.String("request.id", rid),
		)
		s.serve.open(rid, span)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.ServeFinish) {
		s.serve.close(requestID(ctx), nil, semconv.HTTPStatusCodeKey.Int(e.Status))
	})

	eventbus.Subscribe(func(ctx context.Context, e events.OperationStart) {
		rid := requestID(ctx)
		parent, _ := s.serve.within(ctx, rid)
		_, span := s.tracer.Start(parent, "graphql.operation")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.Name),
			attribute.String("graphql.operation.type", e.Type),
		)
		s.op.open(rid, span)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.OperationFinish) {
		s.op.close(requestID(ctx), nil, attribute.Int("graphql.error_count", e.Errors))
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RemoteRequestStart) {
		_, span := s.tracer.Start(s.parent(ctx, e.Source), "graphql.remote", trace.WithSpanKind(trace.SpanKindClient))
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Method),
			semconv.HTTPURLKey.String(e.URL),
			attribute.String("graphql.source", e.Source),
			attribute.String("graphql.operation.name", e.OperationName),
		)
		s.remote.open(remoteKey(ctx, e.Source, e.CallID), span)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.RemoteRequestFinish) {
		var attrs []attribute.KeyValue
		if e.Status != 0 {
			attrs = append(attrs, semconv.HTTPStatusCodeKey.Int(e.Status))
		}
		s.remote.close(remoteKey(ctx, e.Source, e.CallID), e.Err, attrs...)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.SourceBuildStart) {
		_, span := s.tracer.Start(ctx, "graphql.source.build")
		span.SetAttributes(
			attribute.String("graphql.source", e.Source),
			semconv.HTTPURLKey.String(e.URL),
		)
		s.build.open(e.Source, span)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.SourceBuildFinish) {
		s.build.close(e.Source, e.Err, attribute.Int("graphql.source.types", e.Types))
	})
}

package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/kissu/gridsome-source-graphql-prismic/internal/eventbus"
	events "github.com/kissu/gridsome-source-graphql-prismic/internal/events"
	reqid "github.com/kissu/gridsome-source-graphql-prismic/internal/reqid"
)

func setup(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	newSubscriber(tp.Tracer("test")).register()
	return rec
}

func byName(spans []sdktrace.ReadOnlySpan) map[string]sdktrace.ReadOnlySpan {
	out := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		out[s.Name()] = s
	}
	return out
}

func TestRequestSpansNest(t *testing.T) {
	rec := setup(t)
	ctx, _ := reqid.NewContext(context.Background())
	r := httptest.NewRequest("POST", "/graphql", nil)

	eventbus.Publish(ctx, events.ServeStart{Request: r})
	eventbus.Publish(ctx, events.OperationStart{Name: "Q", Type: "query"})
	eventbus.Publish(ctx, events.RemoteRequestStart{Source: "blog", Method: "GET", URL: "http://remote/graphql", CallID: 1})
	eventbus.Publish(ctx, events.RemoteRequestStart{Source: "blog", Method: "GET", URL: "http://remote/graphql", CallID: 2})
	eventbus.Publish(ctx, events.RemoteRequestFinish{Source: "blog", CallID: 2, Status: 502, Err: errors.New("bad gateway")})
	eventbus.Publish(ctx, events.RemoteRequestFinish{Source: "blog", CallID: 1, Status: 200})
	eventbus.Publish(ctx, events.OperationFinish{Name: "Q"})
	eventbus.Publish(ctx, events.ServeFinish{Request: r, Status: 200})

	ended := rec.Ended()
	require.Len(t, ended, 4)
	var remotes []sdktrace.ReadOnlySpan
	for _, s := range ended {
		if s.Name() == "graphql.remote" {
			remotes = append(remotes, s)
		}
	}
	require.Len(t, remotes, 2)
	spans := byName(ended)
	gql := spans["graphql.operation"]
	require.Equal(t, spans["http.request"].SpanContext().SpanID(), gql.Parent().SpanID())
	for _, s := range remotes {
		require.Equal(t, gql.SpanContext().SpanID(), s.Parent().SpanID())
	}
	require.Equal(t, codes.Error, remotes[0].Status().Code)
	require.Equal(t, codes.Unset, remotes[1].Status().Code)
}

func TestBuildSpanParentsIntrospection(t *testing.T) {
	rec := setup(t)
	ctx := context.Background()

	eventbus.Publish(ctx, events.SourceBuildStart{Source: "blog", URL: "http://remote"})
	eventbus.Publish(ctx, events.RemoteRequestStart{Source: "blog", OperationName: "IntrospectionQuery", CallID: 1})
	eventbus.Publish(ctx, events.RemoteRequestFinish{Source: "blog", CallID: 1, Status: 200})
	eventbus.Publish(ctx, events.SourceBuildFinish{Source: "blog", Types: 4})

	spans := byName(rec.Ended())
	require.Len(t, spans, 2)
	require.Equal(t, spans["graphql.source.build"].SpanContext().SpanID(), spans["graphql.remote"].Parent().SpanID())
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup("", "gqlsource")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

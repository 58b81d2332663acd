// Package metrics records Prometheus metrics from eventbus events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/kissu/gridsome-source-graphql-prismic/internal/eventbus"
	events "github.com/kissu/gridsome-source-graphql-prismic/internal/events"
)

const namespace = "gqlsource"

// Metrics owns a registry with the server's collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	operations     *prometheus.CounterVec
	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	sourceBuilds   *prometheus.CounterVec
	sourceTypes    *prometheus.GaugeVec
}

// New creates the collectors and registers them with a fresh registry, along
// with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests served, by method and status.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "Latency of served HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "graphql_operations_total",
			Help: "GraphQL operations executed, by type and outcome.",
		}, []string{"type", "outcome"}),
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "remote_requests_total",
			Help: "Requests sent to remote GraphQL endpoints.",
		}, []string{"source", "method", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "remote_request_duration_seconds",
			Help:    "Latency of requests to remote GraphQL endpoints.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		sourceBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "source_builds_total",
			Help: "Remote schema builds, by source and outcome.",
		}, []string{"source", "outcome"}),
		sourceTypes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "source_types",
			Help: "Number of types a source contributes.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.operations,
		m.remoteRequests, m.remoteDuration,
		m.sourceBuilds, m.sourceTypes,
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Subscribe attaches the collectors to the global eventbus.
func (m *Metrics) Subscribe() {
	eventbus.Subscribe(func(_ context.Context, e events.ServeFinish) {
		method := e.Request.Method
		m.httpRequests.WithLabelValues(method, strconv.Itoa(e.Status)).Inc()
		m.httpDuration.WithLabelValues(method).Observe(e.Duration.Seconds())
	})
	eventbus.Subscribe(func(_ context.Context, e events.OperationFinish) {
		m.operations.WithLabelValues(e.Type, outcome(e.Errors == 0)).Inc()
	})
	eventbus.Subscribe(func(_ context.Context, e events.RemoteRequestFinish) {
		m.remoteRequests.WithLabelValues(e.Source, e.Method, outcome(e.Err == nil)).Inc()
		m.remoteDuration.WithLabelValues(e.Source).Observe(e.Duration.Seconds())
	})
	eventbus.Subscribe(func(_ context.Context, e events.SourceBuildFinish) {
		m.sourceBuilds.WithLabelValues(e.Source, outcome(e.Err == nil)).Inc()
		if e.Err == nil {
			m.sourceTypes.WithLabelValues(e.Source).Set(float64(e.Types))
		}
	})
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

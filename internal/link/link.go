package link

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	eventbus "github.com/kissu/gridsome-source-graphql-prismic/internal/eventbus"
	events "github.com/kissu/gridsome-source-graphql-prismic/internal/events"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	reqid "github.com/kissu/gridsome-source-graphql-prismic/internal/reqid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RefHeader carries the content release a Prismic repository answers from.
const RefHeader = "Prismic-Ref"

const maxResponseBytes = 32 << 20

// Config describes one remote GraphQL endpoint.
type Config struct {
	// URL is the base URL of the remote API. Operations are sent to URL + "/graphql".
	URL string
	// Headers are sent with every request.
	Headers map[string]string
	// UseMasterRef resolves the master ref from URL + "/api" once and sends it as
	// the Prismic-Ref header.
	UseMasterRef bool
	// FieldName names the source in logs and events.
	FieldName string
	// QueryMethod is the HTTP method used for query operations: GET (default) or POST.
	// Mutations are always POSTed.
	QueryMethod string
	// OAuth2 enables client-credentials authentication when set.
	OAuth2 *OAuth2Config
}

// OAuth2Config holds client-credentials settings for the remote endpoint.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Request is a GraphQL operation sent to the remote endpoint.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
	// Operation defaults to query.
	Operation language.Operation
}

// Response is a decoded GraphQL response.
type Response struct {
	Data       map[string]any  `json:"data"`
	Errors     []ResponseError `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// ResponseError is a GraphQL error reported by the remote endpoint.
type ResponseError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Location is a line and column in the query document sent to the remote,
// both counted from 1.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (e ResponseError) Error() string { return e.Message }

// Doer sends GraphQL operations. *Link implements it.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Link sends GraphQL operations to a single remote endpoint. It is safe for
// concurrent use; its headers are fixed when it is created.
type Link struct {
	baseURL  string
	endpoint string
	source   string
	method   string
	headers  http.Header
	client   *http.Client
	timeout  time.Duration
	logger   *zap.Logger
	calls    atomic.Uint64
}

// New validates cfg, resolves the master ref when requested and returns a Link.
func New(ctx context.Context, cfg Config, opts ...Option) (*Link, error) {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, &ConfigurationError{Option: "url", Reason: "must not be empty"}
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, &ConfigurationError{Option: "url", Reason: err.Error()}
	}
	method := strings.ToUpper(cfg.QueryMethod)
	switch method {
	case "":
		method = http.MethodGet
	case http.MethodGet, http.MethodPost:
	default:
		return nil, &ConfigurationError{Option: "query method", Reason: fmt.Sprintf("unsupported method %q", cfg.QueryMethod)}
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if cfg.OAuth2 != nil {
		if cfg.OAuth2.TokenURL == "" || cfg.OAuth2.ClientID == "" {
			return nil, &ConfigurationError{Option: "oauth2", Reason: "token url and client id are required"}
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.OAuth2.ClientID,
			ClientSecret: cfg.OAuth2.ClientSecret,
			TokenURL:     cfg.OAuth2.TokenURL,
			Scopes:       cfg.OAuth2.Scopes,
		}
		client = cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, client))
	}

	l := &Link{
		baseURL:  base,
		endpoint: base + "/graphql",
		source:   cfg.FieldName,
		method:   method,
		client:   client,
		timeout:  o.Timeout,
		logger:   o.Logger.With(zap.String("source", cfg.FieldName), zap.String("url", base)),
	}

	headers := make(http.Header, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}
	if cfg.UseMasterRef {
		ref, err := l.masterRef(ctx)
		if err != nil {
			return nil, err
		}
		headers.Set(RefHeader, ref)
		l.logger.Debug("resolved master ref", zap.String("ref", ref))
	}
	l.headers = headers
	return l, nil
}

// URL returns the GraphQL endpoint operations are sent to.
func (l *Link) URL() string { return l.endpoint }

// Headers returns a copy of the headers sent with every request.
func (l *Link) Headers() map[string]string {
	out := make(map[string]string, len(l.headers))
	for k := range l.headers {
		out[k] = l.headers.Get(k)
	}
	return out
}

// Do sends req to the remote endpoint and decodes the GraphQL response. GraphQL
// errors in the response are returned in Response.Errors, not as an error.
func (l *Link) Do(ctx context.Context, req Request) (resp *Response, err error) {
	if _, ok := ctx.Deadline(); !ok && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	httpReq, err := l.newRequest(ctx, req)
	if err != nil {
		return nil, &TransportError{URL: l.endpoint, Err: err}
	}

	callID := l.calls.Add(1)
	start := time.Now()
	eventbus.Publish(ctx, events.RemoteRequestStart{
		Source:        l.source,
		URL:           l.endpoint,
		Method:        httpReq.Method,
		OperationName: req.OperationName,
		CallID:        callID,
	})
	status := 0
	defer func() {
		eventbus.Publish(ctx, events.RemoteRequestFinish{
			Source:        l.source,
			URL:           l.endpoint,
			Method:        httpReq.Method,
			OperationName: req.OperationName,
			CallID:        callID,
			Status:        status,
			Err:           err,
			Duration:      time.Since(start),
		})
		if err != nil {
			l.logger.Warn("remote request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		} else {
			l.logger.Debug("remote request", zap.Int("status", status), zap.Int("errors", len(resp.Errors)), zap.Duration("duration", time.Since(start)))
		}
	}()

	httpResp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URL: l.endpoint, Err: err}
	}
	defer httpResp.Body.Close()
	status = httpResp.StatusCode

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{URL: l.endpoint, Status: status, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &TransportError{URL: l.endpoint, Status: status, Err: fmt.Errorf("unexpected status: %s", snippet(body))}
	}
	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &TransportError{URL: l.endpoint, Status: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

func (l *Link) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var httpReq *http.Request
	if l.method == http.MethodGet && (req.Operation == "" || req.Operation == language.Query) {
		params := url.Values{}
		params.Set("query", req.Query)
		if req.OperationName != "" {
			params.Set("operationName", req.OperationName)
		}
		if len(req.Variables) > 0 {
			vars, err := json.Marshal(req.Variables)
			if err != nil {
				return nil, fmt.Errorf("encode variables: %w", err)
			}
			params.Set("variables", string(vars))
		}
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		httpReq = r
	} else {
		payload := map[string]any{"query": req.Query}
		if req.OperationName != "" {
			payload["operationName"] = req.OperationName
		}
		if len(req.Variables) > 0 {
			payload["variables"] = req.Variables
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		httpReq = r
	}
	httpReq.Header.Set("Accept", "application/json")

	for k, vs := range ForwardedHeaders(ctx) {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if rid, ok := reqid.FromContext(ctx); ok {
		httpReq.Header.Set(reqid.Header, rid)
	}
	for k, vs := range l.headers {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	return httpReq, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}

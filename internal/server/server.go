// Package server exposes the composed gateway schema over HTTP.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	eventbus "github.com/kissu/gridsome-source-graphql-prismic/internal/eventbus"
	events "github.com/kissu/gridsome-source-graphql-prismic/internal/events"
	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	reqid "github.com/kissu/gridsome-source-graphql-prismic/internal/reqid"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler serves GraphQL over HTTP GET and POST. A POST body holding a JSON
// array is a batch; its operations run one after another.
type Handler struct {
	exec *executor.Executor
	opt  Options
}

// New creates a handler executing requests against sch with runtime.
func New(runtime executor.Runtime, sch *schema.Schema, opts ...Option) (*Handler, error) {
	opt := defaults()
	for _, o := range opts {
		o(&opt)
	}
	return &Handler{exec: executor.NewExecutor(runtime, sch), opt: opt}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, rid := reqid.WithID(r.Context(), r.Header.Get(reqid.Header))
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	w.Header().Set(reqid.Header, rid)
	if len(h.opt.CORSOrigins) > 0 {
		allowOrigin(w, r, h.opt.CORSOrigins)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.ServeStart{Request: r})
	status := h.serve(ctx, w, r)
	eventbus.Publish(ctx, events.ServeFinish{Request: r, Status: status, Duration: time.Since(start)})
}

// serve writes the response and returns its status.
func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request) int {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return http.StatusNoContent
	case http.MethodGet:
		if h.opt.GraphiQL && r.URL.Query().Get("query") == "" && wantsHTML(r.Header.Get("Accept")) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, graphiqlPage)
			return http.StatusOK
		}
	case http.MethodPost:
	default:
		return h.refuse(ctx, w, reject(http.StatusMethodNotAllowed, "method %s not allowed", r.Method))
	}

	reqs, batched, rerr := decode(r, h.opt.MaxBodyBytes)
	if rerr != nil {
		return h.refuse(ctx, w, rerr)
	}
	if fwd := h.forwarded(r.Header); len(fwd) > 0 {
		ctx = link.WithForwardedHeaders(ctx, fwd)
	}

	out := make([]any, len(reqs))
	for i, req := range reqs {
		out[i] = h.execute(ctx, req)
	}
	if batched {
		writeJSON(w, http.StatusOK, out, h.opt.Pretty)
	} else {
		writeJSON(w, http.StatusOK, out[0], h.opt.Pretty)
	}
	return http.StatusOK
}

func (h *Handler) refuse(ctx context.Context, w http.ResponseWriter, err *requestError) int {
	rid, _ := reqid.FromContext(ctx)
	h.opt.Logger.Debug("rejected request",
		zap.String("request_id", rid),
		zap.Int("status", err.status),
		zap.String("reason", err.msg))
	writeJSON(w, err.status, failed(err), h.opt.Pretty)
	return err.status
}

// forwarded picks the configured headers out of in.
func (h *Handler) forwarded(in http.Header) http.Header {
	out := http.Header{}
	for _, name := range h.opt.ForwardHeaders {
		if vs := in.Values(name); len(vs) > 0 {
			out[http.CanonicalHeaderKey(name)] = append([]string(nil), vs...)
		}
	}
	return out
}

func (h *Handler) execute(ctx context.Context, req GraphQLRequest) any {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return failed(err)
	}
	var opType string
	if op := doc.Operations.ForName(req.OperationName); op != nil {
		opType = string(op.Operation)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{Name: req.OperationName, Type: opType, Query: req.Query})
	res := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	eventbus.Publish(ctx, events.OperationFinish{
		Name:     req.OperationName,
		Type:     opType,
		Errors:   len(res.Errors),
		Duration: time.Since(start),
	})

	if len(res.Errors) > 0 {
		rid, _ := reqid.FromContext(ctx)
		h.opt.Logger.Debug("operation finished with errors",
			zap.String("request_id", rid),
			zap.String("operation", req.OperationName),
			zap.Int("errors", len(res.Errors)))
	}
	return res
}

// Package remotetest runs an in-process GraphQL endpoint that behaves like a
// Prismic repository: a ref listing under /api and a GraphQL API under /graphql.
package remotetest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"

	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	introspection "github.com/kissu/gridsome-source-graphql-prismic/internal/introspection"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is a GraphQL request received by the server.
type Request struct {
	Method        string
	Query         string
	OperationName string
	Variables     map[string]any
	Header        http.Header
}

// Server is a fake remote endpoint.
type Server struct {
	*httptest.Server
	// MasterRef is listed by /api when non-empty.
	MasterRef string

	sch     *schema.Schema
	runtime *executor.MockRuntime

	mu       sync.Mutex
	requests []Request
	apiHits  int
}

// New starts a server answering queries against sdl. Root fields are resolved
// by resolvers keyed "Type.field"; nested fields are read from map values.
func New(t testing.TB, sdl string, resolvers map[string]executor.MockResolver) *Server {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	if err != nil {
		t.Fatalf("remotetest: %v", err)
	}
	s := &Server{sch: sch, runtime: executor.NewMockRuntime(resolvers)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api", s.serveRefs)
	mux.HandleFunc("/graphql", s.serveGraphQL)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Requests returns the GraphQL requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Queries returns the requests that were not introspection queries.
func (s *Server) Queries() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.OperationName != "IntrospectionQuery" {
			out = append(out, r)
		}
	}
	return out
}

// APIHits returns how often the ref listing was requested.
func (s *Server) APIHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiHits
}

func (s *Server) serveRefs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.apiHits++
	s.mu.Unlock()
	refs := []map[string]any{{"id": "preview", "ref": "preview-ref"}}
	if s.MasterRef != "" {
		refs = append(refs, map[string]any{"id": "master", "ref": s.MasterRef, "isMasterRef": true})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"refs": refs})
}

func (s *Server) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	req := Request{Method: r.Method, Header: r.Header.Clone()}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var payload struct {
			Query         string         `json:"query"`
			OperationName string         `json:"operationName"`
			Variables     map[string]any `json:"variables"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Query, req.OperationName, req.Variables = payload.Query, payload.OperationName, payload.Variables
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]any{{"message": err.Error()}}})
		return
	}
	wrapped := introspection.Wrap(mapRuntime{s.runtime}, s.sch)
	res := executor.NewExecutor(wrapped.Runtime, wrapped.Schema).
		ExecuteRequest(context.Background(), doc, req.OperationName, req.Variables, nil)
	_ = json.NewEncoder(w).Encode(res)
}

// mapRuntime reads nested fields from map sources and defers root fields to
// the registered resolvers.
type mapRuntime struct {
	*executor.MockRuntime
}

func (m mapRuntime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if src, ok := source.(map[string]any); ok {
		return src[field], nil
	}
	return m.MockRuntime.ResolveSync(ctx, objectType, field, source, args)
}

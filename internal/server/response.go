package server

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	reqid "github.com/kissu/gridsome-source-graphql-prismic/internal/reqid"
)

// failure is the body for a document that never reached the executor.
type failure struct {
	Data   any               `json:"data"`
	Errors []*language.Error `json:"errors"`
}

func failed(err error) failure {
	var gqlErr *language.Error
	if !errors.As(err, &gqlErr) {
		gqlErr = &language.Error{Message: err.Error()}
	}
	return failure{Errors: []*language.Error{gqlErr}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

// allowOrigin sets the CORS headers when the request origin is allowed.
func allowOrigin(w http.ResponseWriter, r *http.Request, allowed []string) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	h := w.Header()
	switch {
	case slices.Contains(allowed, "*"):
		h.Set("Access-Control-Allow-Origin", "*")
	case slices.Contains(allowed, origin):
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	default:
		return
	}
	h.Set("Access-Control-Expose-Headers", reqid.Header)
	if r.Method != http.MethodOptions {
		return
	}
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	}
}

// wantsHTML reports whether the Accept header lists an HTML media type.
func wantsHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if mt == "text/html" || mt == "*/*" {
			return true
		}
	}
	return false
}

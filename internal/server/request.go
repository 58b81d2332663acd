package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
)

// GraphQLRequest is one operation in the GET or POST transport.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// requestError rejects a request before anything is executed.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func reject(status int, format string, args ...any) *requestError {
	return &requestError{status: status, msg: fmt.Sprintf(format, args...)}
}

// decode reads the operations of r. batched reports a JSON array body, whose
// results are written back as an array in the same order.
func decode(r *http.Request, maxBody int64) (reqs []GraphQLRequest, batched bool, err *requestError) {
	if r.Method == http.MethodGet {
		req, err := fromQuery(r)
		if err != nil {
			return nil, false, err
		}
		return []GraphQLRequest{req}, false, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, perr := mime.ParseMediaType(ct); perr != nil || mt != "application/json" {
			return nil, false, reject(http.StatusBadRequest, "unsupported Content-Type %q", ct)
		}
	}
	defer r.Body.Close()
	body := io.Reader(r.Body)
	if maxBody > 0 {
		body = io.LimitReader(r.Body, maxBody+1)
	}
	raw, rerr := io.ReadAll(body)
	switch {
	case rerr != nil:
		return nil, false, reject(http.StatusBadRequest, "failed to read body")
	case maxBody > 0 && int64(len(raw)) > maxBody:
		return nil, false, reject(http.StatusRequestEntityTooLarge, "body exceeds %d bytes", maxBody)
	}

	batched = len(raw) > 0 && raw[0] == '['
	if batched {
		if jerr := json.Unmarshal(raw, &reqs); jerr != nil {
			return nil, true, reject(http.StatusBadRequest, "invalid JSON: %v", jerr)
		}
		if len(reqs) == 0 {
			return nil, true, reject(http.StatusBadRequest, "empty batch")
		}
	} else {
		reqs = make([]GraphQLRequest, 1)
		if jerr := json.Unmarshal(raw, &reqs[0]); jerr != nil {
			return nil, false, reject(http.StatusBadRequest, "invalid JSON: %v", jerr)
		}
	}
	for i := range reqs {
		if reqs[i].Query == "" {
			return nil, batched, reject(http.StatusBadRequest, "missing 'query'")
		}
	}
	return reqs, batched, nil
}

func fromQuery(r *http.Request) (GraphQLRequest, *requestError) {
	q := r.URL.Query()
	req := GraphQLRequest{Query: q.Get("query"), OperationName: q.Get("operationName")}
	if req.Query == "" {
		return req, reject(http.StatusBadRequest, "missing 'query'")
	}
	if v := q.Get("variables"); v != "" {
		if err := json.UnmarshalFromString(v, &req.Variables); err != nil {
			return req, reject(http.StatusBadRequest, "invalid 'variables' JSON")
		}
	}
	return req, nil
}

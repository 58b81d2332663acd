package executor

import (
	"strconv"
	"strings"
)

// Path locates a value in the response: response names for object fields and
// indices for list items.
type Path []PathElement

// PathElement is a string response name or an int list index.
type PathElement any

// String renders p as "a.b[2].c".
func (p Path) String() string {
	var b strings.Builder
	for _, e := range p {
		switch v := e.(type) {
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		case string:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		}
	}
	return b.String()
}

// child returns a copy of p extended by e. Copies keep sibling paths from
// sharing a backing array.
func (p Path) child(e PathElement) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, e)
}

// within reports whether p equals prefix or lies below it.
func (p Path) within(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// GraphQLError is an error located at a response path.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string { return e.Message }

// ExecutionResult is the outcome of one operation. Data is nil when the
// operation could not start.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

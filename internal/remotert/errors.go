package remotert

import (
	"errors"
	"strings"

	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
)

// ErrSubscriptionUnsupported is returned for subscription root fields; the
// remote link only speaks request/response HTTP.
var ErrSubscriptionUnsupported = errors.New("remotert: subscriptions are not supported")

// RemoteError carries the GraphQL errors the remote endpoint reported for a
// delegated field that produced no data.
type RemoteError struct {
	Errors []link.ResponseError
}

func (e *RemoteError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Message
	}
	return strings.Join(msgs, "; ")
}

package link

import (
	"errors"
	"fmt"
)

// ErrNoMasterRef indicates the ref listing of the remote API has no entry with id "master".
var ErrNoMasterRef = errors.New("link: no master ref")

// ConfigurationError reports an invalid or missing option. It is returned before
// any network call is made.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("link: invalid %s option: %s", e.Option, e.Reason)
}

// RemoteFetchError reports a failure while resolving the master ref.
type RemoteFetchError struct {
	URL string
	Err error
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("link: fetch master ref from %s: %v", e.URL, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// TransportError reports a network failure, a non-2xx status or an undecodable
// response body from the GraphQL endpoint.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("link: %s returned %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("link: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

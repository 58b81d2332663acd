package events

import "time"

// RemoteRequestStart is emitted before an operation is sent to a remote GraphQL endpoint.
type RemoteRequestStart struct {
	Source        string
	URL           string
	Method        string
	OperationName string
	// CallID distinguishes concurrent requests of one source.
	CallID uint64
}

// RemoteRequestFinish is emitted after the remote endpoint answered or the request failed.
type RemoteRequestFinish struct {
	Source        string
	URL           string
	Method        string
	OperationName string
	CallID        uint64
	Status        int
	Err           error
	Duration      time.Duration
}

// SourceBuildStart is emitted when a remote source starts resolving its schema.
type SourceBuildStart struct {
	Source string
	URL    string
}

// SourceBuildFinish is emitted once a remote source produced its fragment or failed.
type SourceBuildFinish struct {
	Source   string
	URL      string
	Types    int
	Err      error
	Duration time.Duration
}

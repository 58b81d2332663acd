// Package events declares the values published on the eventbus. Subscribers
// in the otel and metrics packages turn them into spans and counters.
package events

import (
	"net/http"
	"time"
)

// ServeStart is published when the gateway handler accepts a request.
type ServeStart struct {
	Request *http.Request
}

// ServeFinish is published once the response status is known.
type ServeFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// OperationStart is published before the executor runs a parsed operation.
// Type is empty when the operation could not be selected.
type OperationStart struct {
	Name  string
	Type  string
	Query string
}

// OperationFinish carries the number of errors in the execution result.
type OperationFinish struct {
	Name     string
	Type     string
	Errors   int
	Duration time.Duration
}

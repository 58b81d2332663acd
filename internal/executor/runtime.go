package executor

import (
	"context"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
)

// Runtime supplies field values to an Executor.
//
// Errors returned by any method are reported as GraphQL errors located at the
// field being resolved. A Runtime may be shared by concurrent operations and
// must not mutate sources or arguments.
type Runtime interface {
	// ResolveSync resolves a field that is not marked Async. source is nil for
	// root fields. The field node is available through FieldFromContext.
	ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves every Async field queued at one depth. It is
	// not called with an empty batch. It returns one result per task, in task
	// order; a failed task does not fail the batch.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the object type of value, which was returned for a
	// field of the interface or union abstractType.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue returns the JSON form of a scalar or enum value.
	SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error)
}

// AsyncResolveTask is one queued field.
type AsyncResolveTask struct {
	ObjectType string
	Field      string
	// Source is the parent value, nil for root fields.
	Source any
	Args   map[string]any
	// Fields holds every field node merged under the response name, so a
	// runtime can forward the complete sub-selection.
	Fields []*language.Field
	Path   Path
}

// AsyncResolveResult is the raw value of a task, before completion.
type AsyncResolveResult struct {
	Value any
	Error error
}

// Package executor runs GraphQL operations breadth first.
//
// Fields whose schema definition is marked Async are not resolved where they
// are met. The executor leaves a placeholder in the response, finishes every
// synchronous field of the current depth, and then hands all queued fields of
// that depth to Runtime.BatchResolveAsync at once. Results are completed in
// place, which may queue the next depth. A runtime that forwards fields to a
// remote server therefore sees one batch per depth, not one call per field.
//
// Completion follows the usual GraphQL rules for lists, leaves, objects and
// abstract types. A null in a non-null position is replaced by null at the
// nearest nullable ancestor, and queued work below that ancestor is dropped
// before the next batch.
package executor

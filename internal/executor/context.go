package executor

import (
	"context"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
)

type fieldContextKey struct{}

type operationContextKey struct{}

// OperationInfo describes the operation being executed.
type OperationInfo struct {
	Document  *language.QueryDocument
	Operation *language.OperationDefinition
	// Variables holds the coerced variable values.
	Variables map[string]any
	// RawVariables holds the variable values as provided by the caller.
	RawVariables map[string]any
}

// WithField returns a context carrying the field node being resolved.
func WithField(ctx context.Context, field *language.Field) context.Context {
	return context.WithValue(ctx, fieldContextKey{}, field)
}

// FieldFromContext returns the field node set by the Executor before calling
// Runtime.ResolveSync. The response name is the alias when present.
func FieldFromContext(ctx context.Context) (*language.Field, bool) {
	f, ok := ctx.Value(fieldContextKey{}).(*language.Field)
	return f, ok
}

func withOperation(ctx context.Context, op *OperationInfo) context.Context {
	return context.WithValue(ctx, operationContextKey{}, op)
}

// OperationFromContext returns the operation under execution.
func OperationFromContext(ctx context.Context) (*OperationInfo, bool) {
	op, ok := ctx.Value(operationContextKey{}).(*OperationInfo)
	return op, ok
}

// ResponseName returns the alias of f, or its name when no alias is set.
func ResponseName(f *language.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

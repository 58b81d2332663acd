package remotert

import (
	"sort"

	"go.uber.org/zap"

	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// Executable pairs a schema with the runtime that resolves it against a remote
// GraphQL endpoint. Values are immutable once built; transforms derive new ones.
type Executable struct {
	Schema  *schema.Schema
	Runtime executor.Runtime
	// Link forwards operations to the remote endpoint.
	Link link.Doer
	// Roots lists the local object types whose fields are root fields of the
	// remote schema, with the operation they are sent as.
	Roots map[string]language.Operation
	// Renames maps local type names to the names used by the remote endpoint.
	Renames map[string]string

	logger *zap.Logger
}

// Option configures Build.
type Option func(*Executable)

// WithLogger sets the logger used by the runtime.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executable) {
		if l != nil {
			e.logger = l
		}
	}
}

// Build wraps the introspected schema sch so that every root field is resolved
// by sending the selected sub-tree to d. It performs no network calls.
func Build(sch *schema.Schema, d link.Doer, opts ...Option) *Executable {
	roots := map[string]language.Operation{}
	if sch.QueryType != "" {
		roots[sch.QueryType] = language.Query
	}
	if sch.MutationType != "" {
		roots[sch.MutationType] = language.Mutation
	}
	if sch.SubscriptionType != "" {
		roots[sch.SubscriptionType] = language.Subscription
	}
	base := &Executable{Link: d, logger: zap.NewNop()}
	for _, o := range opts {
		o(base)
	}
	return base.Derive(sch.Clone(), roots, nil)
}

// Derive returns a new Executable over sch that shares e's link and logger.
// sch is owned by the result: field Async flags are set from roots.
func (e *Executable) Derive(sch *schema.Schema, roots map[string]language.Operation, renames map[string]string) *Executable {
	out := &Executable{
		Schema:  sch,
		Link:    e.Link,
		Roots:   make(map[string]language.Operation, len(roots)),
		Renames: make(map[string]string, len(renames)),
		logger:  e.logger,
	}
	if out.logger == nil {
		out.logger = zap.NewNop()
	}
	for k, v := range roots {
		out.Roots[k] = v
	}
	for k, v := range renames {
		out.Renames[k] = v
	}
	for _, t := range sch.Types {
		_, isRoot := out.Roots[t.Name]
		for _, f := range t.Fields {
			f.Async = isRoot
		}
	}
	out.Runtime = newRuntime(out)
	return out
}

// RemoteName returns the remote name of the local type name.
func (e *Executable) RemoteName(local string) string {
	if remote, ok := e.Renames[local]; ok {
		return remote
	}
	return local
}

// RootTypes returns the names of the delegating root types in lexical order.
func (e *Executable) RootTypes() []string {
	names := make([]string, 0, len(e.Roots))
	for name := range e.Roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Logger returns the logger the runtime writes to.
func (e *Executable) Logger() *zap.Logger { return e.logger }

package remotert

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// maxInFlight bounds concurrent remote requests issued for one execution depth.
const maxInFlight = 8

// rootValue is the source of namespace wrapper objects. Their fields are remote
// root fields and never read from it.
type rootValue struct{}

type runtime struct {
	sch      *schema.Schema
	doer     link.Doer
	roots    map[string]language.Operation
	toRemote map[string]string
	toLocal  map[string]string
	logger   *zap.Logger
}

var _ executor.Runtime = (*runtime)(nil)

func newRuntime(e *Executable) *runtime {
	r := &runtime{
		sch:      e.Schema,
		doer:     e.Link,
		roots:    e.Roots,
		toRemote: e.Renames,
		toLocal:  make(map[string]string, len(e.Renames)),
		logger:   e.logger,
	}
	// A namespace wrapper shares its remote name with the query type it
	// replaced. Values never have a wrapper type, so only the other local
	// name is a resolution target.
	for local, remote := range e.Renames {
		if _, wrapper := e.Roots[local]; wrapper {
			continue
		}
		r.toLocal[remote] = local
	}
	return r
}

// ResolveSync reads field values out of the JSON objects returned by the remote
// endpoint. Root fields that are not delegated, such as a namespace field, get a
// placeholder source.
func (r *runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	if source == nil {
		return rootValue{}, nil
	}
	key := field
	if f, ok := executor.FieldFromContext(ctx); ok {
		key = executor.ResponseName(f)
	}
	return readKey(objectType, field, source, key)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	info, _ := executor.OperationFromContext(ctx)

	var g errgroup.Group
	g.SetLimit(maxInFlight)
	for i, task := range tasks {
		op, delegated := r.roots[task.ObjectType]
		if !delegated {
			key := task.Field
			if len(task.Fields) > 0 {
				key = executor.ResponseName(task.Fields[0])
			}
			v, err := readKey(task.ObjectType, task.Field, task.Source, key)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
			continue
		}
		g.Go(func() error {
			results[i] = r.delegate(ctx, info, op, task)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *runtime) delegate(ctx context.Context, info *executor.OperationInfo, op language.Operation, task executor.AsyncResolveTask) executor.AsyncResolveResult {
	if op == language.Subscription {
		return executor.AsyncResolveResult{Error: ErrSubscriptionUnsupported}
	}
	if len(task.Fields) == 0 {
		return executor.AsyncResolveResult{Error: fmt.Errorf("remotert: no selection for %s.%s", task.ObjectType, task.Field)}
	}
	q := buildQuery(info, op, task.Fields, r.remoteName)
	r.logger.Debug("delegating field",
		zap.String("type", task.ObjectType),
		zap.String("field", task.Field),
		zap.Strings("variables", q.usedVariables()),
	)
	resp, err := r.doer.Do(ctx, link.Request{
		Query:         q.Query,
		OperationName: q.OperationName,
		Variables:     q.Variables,
		Operation:     op,
	})
	if err != nil {
		return executor.AsyncResolveResult{Error: err}
	}
	var value any
	if resp.Data != nil {
		value = resp.Data[q.Key]
	}
	if len(resp.Errors) > 0 {
		if value == nil {
			return executor.AsyncResolveResult{Error: &RemoteError{Errors: resp.Errors}}
		}
		r.logger.Warn("remote returned partial data",
			zap.String("field", task.Field),
			zap.Error(&RemoteError{Errors: resp.Errors}),
		)
	}
	return executor.AsyncResolveResult{Value: value}
}

// ResolveType maps the remote __typename back to the local type name.
func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return "", fmt.Errorf("remotert: cannot resolve %s from %T", abstractType, value)
	}
	remote, _ := m[typenameField].(string)
	if remote == "" {
		return "", fmt.Errorf("remotert: value of %s has no __typename", abstractType)
	}
	local := remote
	if name, ok := r.toLocal[remote]; ok {
		local = name
	}
	if _, ok := r.sch.Types[local]; !ok {
		return "", fmt.Errorf("remotert: remote type %q of %s is not in the schema", remote, abstractType)
	}
	return local, nil
}

// SerializeLeafValue passes remote JSON values through; they were serialized by
// the remote endpoint.
func (r *runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	return value, nil
}

func (r *runtime) remoteName(local string) string {
	if remote, ok := r.toRemote[local]; ok {
		return remote
	}
	return local
}

func readKey(objectType, field string, source any, key string) (any, error) {
	switch src := source.(type) {
	case map[string]any:
		return src[key], nil
	case rootValue:
		return nil, fmt.Errorf("remotert: %s.%s is not delegated", objectType, field)
	default:
		return nil, fmt.Errorf("remotert: unexpected source %T for %s.%s", source, objectType, field)
	}
}

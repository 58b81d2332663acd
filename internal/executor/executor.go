package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// Executor executes operations against one schema.
type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

// NewExecutor returns an Executor resolving the fields of sch through rt.
func NewExecutor(rt Runtime, sch *schema.Schema) *Executor {
	return &Executor{runtime: rt, schema: sch}
}

// ExecuteRequest runs the operation of doc named operationName, or its only
// operation when the name is empty. rootValue is the source of root fields.
//
// Failures that keep the operation from starting, such as an unknown
// operation or invalid variables, give a result without data. Field failures
// are reported next to partial data.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	doc *language.QueryDocument,
	operationName string,
	variables map[string]any,
	rootValue any,
) *ExecutionResult {
	op, err := selectOperation(doc, operationName)
	if err != nil {
		return failed(err)
	}
	root, err := e.rootType(op.Operation)
	if err != nil {
		return failed(err)
	}
	vars, err := coerceVariables(e.schema, op.VariableDefinitions, variables)
	if err != nil {
		return failed(err)
	}

	x := &execution{
		ctx: withOperation(ctx, &OperationInfo{
			Document:     doc,
			Operation:    op,
			Variables:    vars,
			RawVariables: variables,
		}),
		runtime: e.runtime,
		schema:  e.schema,
		doc:     doc,
		vars:    vars,
		located: make(map[string]bool),
	}
	data := x.selectionSet(root, op.SelectionSet, rootValue, nil, nil)
	for len(x.queue) > 0 {
		x.flush(data)
	}
	return &ExecutionResult{Data: data, Errors: x.errs}
}

func (e *Executor) rootType(op language.Operation) (*schema.Type, error) {
	var t *schema.Type
	switch op {
	case language.Query:
		t = e.schema.GetQueryType()
	case language.Mutation:
		t = e.schema.GetMutationType()
	case language.Subscription:
		t = e.schema.GetSubscriptionType()
	}
	if t == nil {
		return nil, fmt.Errorf("schema does not support %s operations", op)
	}
	return t, nil
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name != "" {
		if op := doc.Operations.ForName(name); op != nil {
			return op, nil
		}
		return nil, fmt.Errorf("unknown operation named %q", name)
	}
	switch len(doc.Operations) {
	case 0:
		return nil, errors.New("document contains no operation")
	case 1:
		return doc.Operations[0], nil
	default:
		return nil, errors.New("operation name is required when the document contains several operations")
	}
}

func failed(err error) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
}

// execution is the state of one ExecuteRequest call.
type execution struct {
	ctx     context.Context
	runtime Runtime
	schema  *schema.Schema
	doc     *language.QueryDocument
	vars    map[string]any

	errs []GraphQLError
	// located holds the paths that already carry an error.
	located map[string]bool
	queue   []pending
	// dropped holds the positions nulled by a non-null violation. Pending
	// fields below them are never sent.
	dropped []Path
}

// pending is an Async field waiting for the next batch.
type pending struct {
	task AsyncResolveTask
	typ  *schema.TypeRef
	// up is the nearest nullable position above the field.
	up Path
}

// placeholder occupies the response entry of a pending field.
type placeholder struct{}

// selectionSet completes an object value at path. up is the nearest nullable
// position above the fields of the object. The result is nil when a non-null
// field came back null, except for root fields, which are set to null one by
// one.
func (x *execution) selectionSet(t *schema.Type, set language.SelectionSet, source any, path, up Path) map[string]any {
	out := make(map[string]any)
	for _, g := range x.collect(t, set) {
		p := path.child(g.name)
		node := g.fields[0]
		if node.Name == "__typename" {
			out[g.name] = t.Name
			continue
		}
		def := t.GetField(node.Name)
		if def == nil {
			x.fail(p, "Cannot query field '%s' on type '%s'", node.Name, t.Name)
			continue
		}

		args, ok := x.arguments(def, node.Arguments, p)
		if ok && def.Async {
			x.queue = append(x.queue, pending{
				task: AsyncResolveTask{
					ObjectType: t.Name,
					Field:      def.Name,
					Source:     source,
					Args:       args,
					Fields:     g.fields,
					Path:       p,
				},
				typ: def.Type,
				up:  up,
			})
			out[g.name] = placeholder{}
			continue
		}

		var v any
		if ok {
			v = x.complete(def.Type, g.fields, x.resolve(t.Name, g.fields, source, args, p), p, up)
		}
		if v == nil && schema.IsNonNull(def.Type) {
			if len(path) > 0 {
				x.drop(path)
				return nil
			}
			x.drop(p)
		}
		out[g.name] = v
	}
	return out
}

func (x *execution) resolve(objectType string, fields []*language.Field, source any, args map[string]any, path Path) any {
	v, err := x.runtime.ResolveSync(WithField(x.ctx, fields[0]), objectType, fields[0].Name, source, args)
	if err != nil {
		x.report(path, err)
		return nil
	}
	return v
}

// flush sends the queued fields of one depth as a single batch and completes
// the results, which may queue the next depth.
func (x *execution) flush(data map[string]any) {
	live := make([]pending, 0, len(x.queue))
	for _, p := range x.queue {
		if !x.isDropped(p.task.Path) {
			live = append(live, p)
		}
	}
	x.queue = nil
	if len(live) == 0 {
		return
	}

	tasks := make([]AsyncResolveTask, len(live))
	for i, p := range live {
		tasks[i] = p.task
	}
	results := x.runtime.BatchResolveAsync(x.ctx, tasks)
	for i, p := range live {
		r := AsyncResolveResult{Error: fmt.Errorf("no result for %s.%s", p.task.ObjectType, p.task.Field)}
		if i < len(results) {
			r = results[i]
		}
		x.settle(data, p, r)
	}
}

func (x *execution) settle(data map[string]any, p pending, r AsyncResolveResult) {
	path := p.task.Path
	if x.isDropped(path) {
		return
	}
	var v any
	if r.Error != nil {
		x.report(path, r.Error)
	} else {
		v = x.complete(p.typ, p.task.Fields, r.Value, path, p.up)
	}
	if v == nil && schema.IsNonNull(p.typ) {
		land := p.up
		if len(land) == 0 {
			land = path[:1]
		}
		x.drop(land)
		setAt(data, land, nil)
		return
	}
	setAt(data, path, v)
}

// complete turns the resolved value of a position of type typ into its
// response form. up is the nearest nullable position above path.
func (x *execution) complete(typ *schema.TypeRef, fields []*language.Field, value any, path, up Path) any {
	nonNull := schema.IsNonNull(typ)
	if nonNull {
		typ = schema.Unwrap(typ)
	} else {
		up = path
	}
	if isNull(value) {
		if nonNull && !x.located[path.String()] {
			x.fail(path, "Cannot return null for non-nullable field %s", path)
		}
		return nil
	}

	if schema.IsList(typ) {
		return x.completeList(schema.Unwrap(typ), fields, value, path, up)
	}
	name := schema.GetNamedType(typ)
	t := x.schema.Types[name]
	if t == nil {
		x.fail(path, "Unknown type %s", name)
		return nil
	}
	switch t.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		v, err := x.runtime.SerializeLeafValue(x.ctx, name, value)
		if err != nil {
			x.report(path, err)
			return nil
		}
		return v
	case schema.TypeKindObject:
		return x.completeObject(t, fields, value, path, up)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		concrete := x.resolveType(t, value, path)
		if concrete == nil {
			return nil
		}
		return x.completeObject(concrete, fields, value, path, up)
	}
	x.fail(path, "Cannot complete a value of kind %s", t.Kind)
	return nil
}

func (x *execution) completeList(item *schema.TypeRef, fields []*language.Field, value any, path, up Path) any {
	items, ok := asList(value)
	if !ok {
		x.fail(path, "Expected a list for %s, got %T", path, value)
		return nil
	}
	out := make([]any, len(items))
	for i, it := range items {
		v := x.complete(item, fields, it, path.child(i), up)
		if v == nil && schema.IsNonNull(item) {
			x.drop(path)
			return nil
		}
		out[i] = v
	}
	return out
}

func (x *execution) completeObject(t *schema.Type, fields []*language.Field, value any, path, up Path) any {
	var set language.SelectionSet
	for _, f := range fields {
		set = append(set, f.SelectionSet...)
	}
	m := x.selectionSet(t, set, value, path, up)
	if m == nil {
		return nil
	}
	return m
}

func (x *execution) resolveType(abstract *schema.Type, value any, path Path) *schema.Type {
	name, err := x.runtime.ResolveType(x.ctx, abstract.Name, value)
	if err != nil {
		x.report(path, err)
		return nil
	}
	t := x.schema.Types[name]
	if t == nil || t.Kind != schema.TypeKindObject {
		x.fail(path, "Abstract type %s must resolve to an Object type at runtime. Got: %s", abstract.Name, name)
		return nil
	}
	if !x.applies(t, abstract.Name) {
		x.fail(path, "Runtime Object type %s is not a possible type for %s", name, abstract.Name)
		return nil
	}
	return t
}

func (x *execution) fail(path Path, format string, args ...any) {
	x.errs = append(x.errs, GraphQLError{Message: fmt.Sprintf(format, args...), Path: path})
	x.located[path.String()] = true
}

// report records err at path. Extensions of a GraphQLError are kept.
func (x *execution) report(path Path, err error) {
	e := GraphQLError{Message: err.Error(), Path: path}
	var ge GraphQLError
	if errors.As(err, &ge) {
		e.Extensions = ge.Extensions
	}
	x.errs = append(x.errs, e)
	x.located[path.String()] = true
}

func (x *execution) drop(p Path) {
	x.dropped = append(x.dropped, p)
}

func (x *execution) isDropped(p Path) bool {
	for _, d := range x.dropped {
		if p.within(d) {
			return true
		}
	}
	return false
}

// setAt replaces the response entry at path. Nothing is written when an
// entry on the way is missing or was nulled.
func setAt(data map[string]any, path Path, v any) {
	var cur any = data
	for i, e := range path {
		last := i == len(path)-1
		switch c := cur.(type) {
		case map[string]any:
			k, ok := e.(string)
			if !ok {
				return
			}
			if last {
				c[k] = v
				return
			}
			cur = c[k]
		case []any:
			idx, ok := e.(int)
			if !ok || idx < 0 || idx >= len(c) {
				return
			}
			if last {
				c[idx] = v
				return
			}
			cur = c[idx]
		default:
			return
		}
	}
}

func asList(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// isNull reports nil and typed nil values.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

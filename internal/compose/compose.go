// Package compose merges namespaced fragments into one executable schema.
package compose

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	remotert "github.com/kissu/gridsome-source-graphql-prismic/internal/remotert"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
	source "github.com/kissu/gridsome-source-graphql-prismic/internal/source"
)

// ErrConflict is returned when two fragments define the same root field, type
// or directive.
var ErrConflict = errors.New("compose: conflicting definitions")

// ErrEmpty is returned by Merge when no fragment is given.
var ErrEmpty = errors.New("compose: nothing to merge")

const queryType = "Query"

// Merge unions the fragments into one schema whose Query type holds every
// fragment's namespace field. Calls are routed to the fragment owning the
// object type.
func Merge(frags ...*source.Fragment) (*remotert.Executable, error) {
	if len(frags) == 0 {
		return nil, ErrEmpty
	}
	sch := schema.NewSchema("").AddBuiltins()
	root := schema.NewType(queryType, schema.TypeKindObject, "")
	sch.AddType(root)
	sch.SetQueryType(queryType)

	r := &router{
		byType:  map[string]executor.Runtime{},
		byField: map[string]executor.Runtime{},
	}
	typeOwner := map[string]string{}
	for _, frag := range frags {
		e := frag.Executable
		q := e.Schema.GetQueryType()
		if q == nil {
			return nil, fmt.Errorf("compose: fragment %s has no query type", frag.FieldName)
		}
		for _, f := range q.Fields {
			if _, ok := r.byField[f.Name]; ok {
				return nil, fmt.Errorf("%w: field Query.%s is defined by more than one fragment", ErrConflict, f.Name)
			}
			r.byField[f.Name] = e.Runtime
			root.AddField(f.Clone())
		}
		for _, name := range e.Schema.TypeNames() {
			t := e.Schema.Types[name]
			if name == q.Name || schema.BuiltinScalar(name) == t {
				continue
			}
			if prev, ok := typeOwner[name]; ok {
				return nil, fmt.Errorf("%w: type %s is defined by %s and %s", ErrConflict, name, prev, frag.FieldName)
			}
			typeOwner[name] = frag.FieldName
			r.byType[name] = e.Runtime
			sch.AddType(t.Clone())
		}
		for name, d := range e.Schema.Directives {
			if schema.IsBuiltinDirective(name) {
				if _, ok := sch.Directives[name]; !ok {
					sch.AddDirective(d)
				}
				continue
			}
			if _, ok := sch.Directives[name]; ok {
				return nil, fmt.Errorf("%w: directive @%s is defined more than once", ErrConflict, name)
			}
			sch.AddDirective(d.Clone())
		}
	}
	if err := sch.Validate(); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	return &remotert.Executable{Schema: sch, Runtime: r}, nil
}

// router dispatches runtime calls to the fragment owning the type.
type router struct {
	byType  map[string]executor.Runtime
	byField map[string]executor.Runtime
}

var _ executor.Runtime = (*router)(nil)

func (r *router) owner(objectType, field string) (executor.Runtime, error) {
	if objectType == queryType {
		if rt, ok := r.byField[field]; ok {
			return rt, nil
		}
	} else if rt, ok := r.byType[objectType]; ok {
		return rt, nil
	}
	return nil, fmt.Errorf("compose: no fragment resolves %s.%s", objectType, field)
}

func (r *router) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	rt, err := r.owner(objectType, field)
	if err != nil {
		return nil, err
	}
	return rt.ResolveSync(ctx, objectType, field, source, args)
}

func (r *router) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	type group struct {
		rt   executor.Runtime
		idxs []int
	}
	var groups []*group
	byRuntime := map[executor.Runtime]*group{}
	for i, t := range tasks {
		rt, err := r.owner(t.ObjectType, t.Field)
		if err != nil {
			results[i] = executor.AsyncResolveResult{Error: err}
			continue
		}
		g, ok := byRuntime[rt]
		if !ok {
			g = &group{rt: rt}
			byRuntime[rt] = g
			groups = append(groups, g)
		}
		g.idxs = append(g.idxs, i)
	}
	run := func(g *group) {
		sub := make([]executor.AsyncResolveTask, len(g.idxs))
		for j, i := range g.idxs {
			sub[j] = tasks[i]
		}
		out := g.rt.BatchResolveAsync(ctx, sub)
		for j, i := range g.idxs {
			if j < len(out) {
				results[i] = out[j]
			}
		}
	}
	if len(groups) == 1 {
		run(groups[0])
		return results
	}
	var wg sync.WaitGroup
	wg.Add(len(groups))
	for _, g := range groups {
		go func() {
			defer wg.Done()
			run(g)
		}()
	}
	wg.Wait()
	return results
}

func (r *router) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	rt, ok := r.byType[abstractType]
	if !ok {
		return "", fmt.Errorf("compose: no fragment owns %s", abstractType)
	}
	return rt.ResolveType(ctx, abstractType, value)
}

// SerializeLeafValue hands fragment scalars and enums to their owner; the
// built-in scalars are shared and passed through.
func (r *router) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	if rt, ok := r.byType[scalarOrEnumTypeName]; ok {
		return rt.SerializeLeafValue(ctx, scalarOrEnumTypeName, value)
	}
	return value, nil
}

// FieldNames returns the root fields of a merged schema in lexical order.
func FieldNames(e *remotert.Executable) []string {
	q := e.Schema.GetQueryType()
	if q == nil {
		return nil
	}
	names := make([]string, 0, len(q.Fields))
	for _, f := range q.Fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

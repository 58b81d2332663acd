package transform

import (
	"sort"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	remotert "github.com/kissu/gridsome-source-graphql-prismic/internal/remotert"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// StripNonQuery removes the mutation and subscription roots, every type only
// they reach, and directive definitions other than the built-in ones. Remote
// directives cannot be forwarded, so they are not advertised.
func StripNonQuery() Transform {
	return func(e *remotert.Executable) (*remotert.Executable, error) {
		if e.Schema.GetQueryType() == nil {
			return nil, &SchemaShapeError{Transform: "StripNonQuery", Reason: "remote schema has no query type"}
		}
		sch := e.Schema.Clone()
		sch.MutationType = ""
		sch.SubscriptionType = ""

		keep := reachable(sch, sch.QueryType)
		for name := range sch.Types {
			if !keep[name] && !schema.IsBuiltinScalar(name) {
				delete(sch.Types, name)
			}
		}
		for name := range sch.Directives {
			if !schema.IsBuiltinDirective(name) {
				delete(sch.Directives, name)
			}
		}

		roots := map[string]language.Operation{}
		for name, op := range e.Roots {
			if op == language.Query && keep[name] {
				roots[name] = op
			}
		}
		renames := map[string]string{}
		for local, remote := range e.Renames {
			if keep[local] {
				renames[local] = remote
			}
		}
		return e.Derive(sch, roots, renames), nil
	}
}

// reachable walks type references from root. Objects implementing a reachable
// interface are reachable too.
func reachable(sch *schema.Schema, root string) map[string]bool {
	seen := map[string]bool{root: true}
	queue := []string{root}
	implementers := map[string][]string{}
	for _, name := range sch.TypeNames() {
		for _, iface := range sch.Types[name].Interfaces {
			implementers[iface] = append(implementers[iface], name)
		}
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		t := sch.Types[name]
		if t == nil {
			continue
		}
		next := append(t.References(), implementers[name]...)
		sort.Strings(next)
		for _, ref := range next {
			if !seen[ref] {
				seen[ref] = true
				queue = append(queue, ref)
			}
		}
	}
	return seen
}

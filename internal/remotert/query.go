package remotert

import (
	"sort"

	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
)

const typenameField = "__typename"

// remoteQuery is an operation rebuilt for the remote endpoint.
type remoteQuery struct {
	Query         string
	OperationName string
	Variables     map[string]any
	// Key is the response name the delegated field is read back from.
	Key string
}

// queryBuilder rewrites a local selection into the remote vocabulary: fragment
// spreads become inline fragments, type conditions use remote names and every
// nested selection asks for __typename.
type queryBuilder struct {
	doc      *language.QueryDocument
	toRemote func(string) string
	used     map[string]struct{}
	visiting map[string]bool
}

// buildQuery rebuilds one root field of the remote schema from the merged field
// nodes of a task. Variables referenced by the selection are declared with
// remote type names and forwarded with the values the caller sent.
func buildQuery(info *executor.OperationInfo, op language.Operation, fields []*language.Field, toRemote func(string) string) remoteQuery {
	b := &queryBuilder{
		toRemote: toRemote,
		used:     map[string]struct{}{},
		visiting: map[string]bool{},
	}
	if info != nil {
		b.doc = info.Document
	}

	first := fields[0]
	root := &language.Field{
		Alias:     first.Alias,
		Name:      first.Name,
		Arguments: first.Arguments,
	}
	b.arguments(first.Arguments)
	for _, f := range fields {
		root.SelectionSet = append(root.SelectionSet, b.selectionSet(f.SelectionSet)...)
	}
	if len(root.SelectionSet) > 0 {
		root.SelectionSet = withTypename(root.SelectionSet)
	}

	def := &language.OperationDefinition{
		Operation:    op,
		SelectionSet: language.SelectionSet{root},
	}
	out := remoteQuery{Key: executor.ResponseName(first)}
	if info != nil && info.Operation != nil {
		def.Name = info.Operation.Name
		out.OperationName = info.Operation.Name
		for _, v := range info.Operation.VariableDefinitions {
			if _, ok := b.used[v.Variable]; !ok {
				continue
			}
			def.VariableDefinitions = append(def.VariableDefinitions, &language.VariableDefinition{
				Variable:     v.Variable,
				Type:         b.typ(v.Type),
				DefaultValue: v.DefaultValue,
			})
			if val, ok := info.RawVariables[v.Variable]; ok {
				if out.Variables == nil {
					out.Variables = map[string]any{}
				}
				out.Variables[v.Variable] = val
			}
		}
	}
	out.Query = language.PrintQuery(&language.QueryDocument{
		Operations: language.OperationList{def},
	})
	return out
}

func (b *queryBuilder) selectionSet(set language.SelectionSet) language.SelectionSet {
	var out language.SelectionSet
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			out = append(out, b.field(s))
		case *language.InlineFragment:
			frag := &language.InlineFragment{
				Directives:   b.directives(s.Directives),
				SelectionSet: b.selectionSet(s.SelectionSet),
			}
			if s.TypeCondition != "" {
				frag.TypeCondition = b.toRemote(s.TypeCondition)
			}
			out = append(out, frag)
		case *language.FragmentSpread:
			def := b.fragment(s.Name)
			if def == nil || b.visiting[s.Name] {
				continue
			}
			b.visiting[s.Name] = true
			out = append(out, &language.InlineFragment{
				TypeCondition: b.toRemote(def.TypeCondition),
				Directives:    b.directives(s.Directives),
				SelectionSet:  b.selectionSet(def.SelectionSet),
			})
			delete(b.visiting, s.Name)
		}
	}
	return out
}

func (b *queryBuilder) field(f *language.Field) *language.Field {
	out := &language.Field{
		Alias:      f.Alias,
		Name:       f.Name,
		Arguments:  f.Arguments,
		Directives: b.directives(f.Directives),
	}
	b.arguments(f.Arguments)
	if len(f.SelectionSet) > 0 {
		out.SelectionSet = withTypename(b.selectionSet(f.SelectionSet))
	}
	return out
}

// directives keeps @skip and @include; other executable directives belong to
// the local server.
func (b *queryBuilder) directives(dirs language.DirectiveList) language.DirectiveList {
	var out language.DirectiveList
	for _, d := range dirs {
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		b.arguments(d.Arguments)
		out = append(out, &language.Directive{Name: d.Name, Arguments: d.Arguments})
	}
	return out
}

func (b *queryBuilder) arguments(args language.ArgumentList) {
	for _, a := range args {
		b.value(a.Value)
	}
}

func (b *queryBuilder) value(v *language.Value) {
	if v == nil {
		return
	}
	if v.Kind == language.Variable {
		b.used[v.Raw] = struct{}{}
		return
	}
	for _, c := range v.Children {
		b.value(c.Value)
	}
}

func (b *queryBuilder) typ(t *language.Type) *language.Type {
	if t == nil {
		return nil
	}
	out := &language.Type{NonNull: t.NonNull, Elem: b.typ(t.Elem)}
	if t.NamedType != "" {
		out.NamedType = b.toRemote(t.NamedType)
	}
	return out
}

func (b *queryBuilder) fragment(name string) *language.FragmentDefinition {
	if b.doc == nil {
		return nil
	}
	return b.doc.Fragments.ForName(name)
}

func withTypename(set language.SelectionSet) language.SelectionSet {
	for _, sel := range set {
		if f, ok := sel.(*language.Field); ok && f.Name == typenameField && executor.ResponseName(f) == typenameField {
			return set
		}
	}
	return append(set, &language.Field{Alias: typenameField, Name: typenameField})
}

// usedVariables returns the variables a query declares, sorted. Tests and logs
// read it.
func (q remoteQuery) usedVariables() []string {
	names := make([]string, 0, len(q.Variables))
	for name := range q.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

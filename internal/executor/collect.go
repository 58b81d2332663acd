package executor

import (
	"slices"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// fieldGroup is the set of field nodes answered under one response name.
type fieldGroup struct {
	name   string
	fields []*language.Field
}

// collect flattens set for an object of type t: fragments whose type
// condition applies are inlined, @skip and @include are honored, and fields
// sharing a response name are merged in first-seen order. Each named fragment
// is expanded at most once.
func (x *execution) collect(t *schema.Type, set language.SelectionSet) []fieldGroup {
	var groups []fieldGroup
	index := make(map[string]int)
	spread := make(map[string]bool)

	var walk func(language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *language.Field:
				if !x.included(s.Directives) {
					continue
				}
				name := ResponseName(s)
				if i, ok := index[name]; ok {
					groups[i].fields = append(groups[i].fields, s)
					continue
				}
				index[name] = len(groups)
				groups = append(groups, fieldGroup{name: name, fields: []*language.Field{s}})
			case *language.InlineFragment:
				if x.included(s.Directives) && x.applies(t, s.TypeCondition) {
					walk(s.SelectionSet)
				}
			case *language.FragmentSpread:
				if spread[s.Name] || !x.included(s.Directives) {
					continue
				}
				spread[s.Name] = true
				def := x.doc.Fragments.ForName(s.Name)
				if def == nil || !x.included(def.Directives) || !x.applies(t, def.TypeCondition) {
					continue
				}
				walk(def.SelectionSet)
			}
		}
	}
	walk(set)
	return groups
}

// applies reports whether an object of type t matches the type condition
// cond, which may name t itself or one of its interfaces or unions.
func (x *execution) applies(t *schema.Type, cond string) bool {
	if cond == "" || cond == t.Name {
		return true
	}
	c := x.schema.Types[cond]
	if c == nil {
		return false
	}
	switch c.Kind {
	case schema.TypeKindInterface:
		return slices.Contains(t.Interfaces, cond) || slices.Contains(c.PossibleTypes, t.Name)
	case schema.TypeKindUnion:
		return slices.Contains(c.PossibleTypes, t.Name)
	}
	return false
}

// included evaluates @skip(if:) and @include(if:).
func (x *execution) included(dirs language.DirectiveList) bool {
	if d := dirs.ForName("skip"); d != nil && x.condition(d) {
		return false
	}
	if d := dirs.ForName("include"); d != nil && !x.condition(d) {
		return false
	}
	return true
}

func (x *execution) condition(d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	b, _ := literal(arg.Value, x.vars).(bool)
	return b
}

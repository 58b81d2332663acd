package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Clone returns a deep copy of s. Built-in scalar definitions are shared.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		QueryType:        s.QueryType,
		MutationType:     s.MutationType,
		SubscriptionType: s.SubscriptionType,
		Description:      s.Description,
		Types:            make(map[string]*Type, len(s.Types)),
		Directives:       make(map[string]*Directive, len(s.Directives)),
	}
	for name, t := range s.Types {
		if builtin := BuiltinScalar(name); builtin == t {
			out.Types[name] = builtin
			continue
		}
		out.Types[name] = t.Clone()
	}
	for name, d := range s.Directives {
		if d == includeDirective || d == skipDirective {
			out.Directives[name] = d
			continue
		}
		out.Directives[name] = d.Clone()
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Type) Clone() *Type {
	out := &Type{
		Name:          t.Name,
		Kind:          t.Kind,
		Description:   t.Description,
		Interfaces:    append([]string(nil), t.Interfaces...),
		PossibleTypes: append([]string(nil), t.PossibleTypes...),
		OneOf:         t.OneOf,
	}
	if t.SpecifiedByURL != nil {
		url := *t.SpecifiedByURL
		out.SpecifiedByURL = &url
	}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, f.Clone())
	}
	for _, v := range t.EnumValues {
		ev := *v
		out.EnumValues = append(out.EnumValues, &ev)
	}
	for _, v := range t.InputFields {
		out.InputFields = append(out.InputFields, v.Clone())
	}
	return out
}

// Clone returns a deep copy of f.
func (f *Field) Clone() *Field {
	out := *f
	out.Type = f.Type.Clone()
	out.Arguments = nil
	for _, a := range f.Arguments {
		out.Arguments = append(out.Arguments, a.Clone())
	}
	return &out
}

// Clone returns a copy of v. DefaultValue is shared; values are treated as immutable.
func (v *InputValue) Clone() *InputValue {
	out := *v
	out.Type = v.Type.Clone()
	return &out
}

// Clone returns a deep copy of d.
func (d *Directive) Clone() *Directive {
	out := *d
	out.Locations = append([]string(nil), d.Locations...)
	out.Arguments = nil
	for _, a := range d.Arguments {
		out.Arguments = append(out.Arguments, a.Clone())
	}
	return &out
}

// Clone returns a deep copy of the reference chain.
func (t *TypeRef) Clone() *TypeRef {
	if t == nil {
		return nil
	}
	return &TypeRef{Kind: t.Kind, Named: t.Named, OfType: t.OfType.Clone()}
}

// References returns the names of all types t refers to directly: field and
// argument types, input field types, interfaces and possible types.
func (t *Type) References() []string {
	var refs []string
	for _, f := range t.Fields {
		refs = append(refs, f.Type.GetNamedType())
		for _, a := range f.Arguments {
			refs = append(refs, a.Type.GetNamedType())
		}
	}
	for _, v := range t.InputFields {
		refs = append(refs, v.Type.GetNamedType())
	}
	refs = append(refs, t.Interfaces...)
	refs = append(refs, t.PossibleTypes...)
	return refs
}

// Validate checks that type names match their keys, that root types exist and are
// objects, and that every reference points at a type of the schema.
func (s *Schema) Validate() error {
	var problems []string
	for _, name := range s.TypeNames() {
		t := s.Types[name]
		if t.Name != name {
			problems = append(problems, fmt.Sprintf("type %q registered as %q", t.Name, name))
		}
		for _, ref := range t.References() {
			if _, ok := s.Types[ref]; !ok {
				problems = append(problems, fmt.Sprintf("%s references unknown type %q", name, ref))
			}
		}
	}
	for _, root := range []string{s.QueryType, s.MutationType, s.SubscriptionType} {
		if root == "" {
			continue
		}
		t := s.Types[root]
		if t == nil {
			problems = append(problems, fmt.Sprintf("root type %q is not defined", root))
		} else if t.Kind != TypeKindObject {
			problems = append(problems, fmt.Sprintf("root type %q must be an object, got %s", root, t.Kind))
		}
	}
	for name, d := range s.Directives {
		for _, a := range d.Arguments {
			if _, ok := s.Types[a.Type.GetNamedType()]; !ok {
				problems = append(problems, fmt.Sprintf("@%s argument %s references unknown type %q", name, a.Name, a.Type.GetNamedType()))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid schema: %s", strings.Join(problems, "; "))
}

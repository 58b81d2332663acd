package schema

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types and directives are sorted by name; fields,
// arguments and enum values keep their declaration order. Built-in scalars,
// built-in directives and meta types are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	w := &sdl{}
	w.roots(s)
	for _, name := range slices.Sorted(maps.Keys(s.Types)) {
		if IsBuiltinScalar(name) || IsIntrospectionName(name) {
			continue
		}
		w.typ(s.Types[name])
	}
	for _, name := range slices.Sorted(maps.Keys(s.Directives)) {
		if !IsBuiltinDirective(name) {
			w.directive(s.Directives[name])
		}
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

type sdl struct{ strings.Builder }

func (w *sdl) print(parts ...string) {
	for _, p := range parts {
		w.WriteString(p)
	}
}

// roots writes a schema block unless every root uses its conventional name.
func (w *sdl) roots(s *Schema) {
	ops := [][3]string{
		{"query", "Query", s.QueryType},
		{"mutation", "Mutation", s.MutationType},
		{"subscription", "Subscription", s.SubscriptionType},
	}
	custom := slices.ContainsFunc(ops, func(op [3]string) bool {
		return op[2] != "" && op[2] != op[1]
	})
	if !custom {
		return
	}
	w.print("schema {\n")
	for _, op := range ops {
		if op[2] != "" {
			w.print("  ", op[0], ": ", op[2], "\n")
		}
	}
	w.print("}\n\n")
}

func (w *sdl) typ(t *Type) {
	w.description("", t.Description)
	switch t.Kind {
	case TypeKindScalar:
		w.print("scalar ", t.Name)
		if t.SpecifiedByURL != nil {
			w.print(` @specifiedBy(url: `, strconv.Quote(*t.SpecifiedByURL), ")")
		}
		w.print("\n\n")
	case TypeKindUnion:
		w.print("union ", t.Name, " = ", strings.Join(t.PossibleTypes, " | "), "\n\n")
	case TypeKindEnum:
		w.print("enum ", t.Name, " {\n")
		for _, v := range t.EnumValues {
			w.description("  ", v.Description)
			w.print("  ", v.Name)
			w.deprecated(v.IsDeprecated, v.DeprecationReason)
			w.print("\n")
		}
		w.print("}\n\n")
	case TypeKindInputObject:
		w.print("input ", t.Name)
		if t.OneOf {
			w.print(" @oneOf")
		}
		w.print(" {\n")
		for _, f := range t.InputFields {
			w.description("  ", f.Description)
			w.print("  ")
			w.input(f)
			w.deprecated(f.IsDeprecated, f.DeprecationReason)
			w.print("\n")
		}
		w.print("}\n\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type "
		if t.Kind == TypeKindInterface {
			keyword = "interface "
		}
		w.print(keyword, t.Name)
		if len(t.Interfaces) > 0 {
			w.print(" implements ", strings.Join(t.Interfaces, " & "))
		}
		w.print(" {\n")
		for _, f := range t.Fields {
			w.description("  ", f.Description)
			w.print("  ", f.Name)
			w.arguments(f.Arguments)
			w.print(": ", f.Type.String())
			w.deprecated(f.IsDeprecated, f.DeprecationReason)
			w.print("\n")
		}
		w.print("}\n\n")
	}
}

func (w *sdl) directive(d *Directive) {
	w.description("", d.Description)
	w.print("directive @", d.Name)
	w.arguments(d.Arguments)
	if d.IsRepeatable {
		w.print(" repeatable")
	}
	w.print(" on ", strings.Join(d.Locations, " | "), "\n\n")
}

func (w *sdl) arguments(args []*InputValue) {
	if len(args) == 0 {
		return
	}
	w.print("(")
	for i, a := range args {
		if i > 0 {
			w.print(", ")
		}
		w.input(a)
	}
	w.print(")")
}

func (w *sdl) input(v *InputValue) {
	w.print(v.Name, ": ", v.Type.String())
	if v.DefaultValue != nil {
		w.print(" = ", RenderValue(v.DefaultValue))
	}
}

func (w *sdl) deprecated(yes bool, reason string) {
	if !yes {
		return
	}
	w.print(" @deprecated")
	if reason != "" {
		w.print("(reason: ", strconv.Quote(reason), ")")
	}
}

// description writes a block string at the given indent.
func (w *sdl) description(indent, text string) {
	if text == "" {
		return
	}
	text = strings.ReplaceAll(text, `"""`, `\"""`)
	w.print(indent, `"""`, "\n")
	for _, line := range strings.Split(text, "\n") {
		w.print(indent, line, "\n")
	}
	w.print(indent, `"""`, "\n")
}

// String renders the reference in SDL notation, e.g. "[Post!]!".
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	}
	return t.Named
}

// RenderValue renders a Go value as a GraphQL literal. Object keys are
// sorted; a Literal is written as is.
func RenderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case Literal:
		return string(v)
	case string:
		return strconv.Quote(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = RenderValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		parts := make([]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			parts = append(parts, k+": "+RenderValue(v[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(value)
}

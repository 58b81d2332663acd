package executor

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

func coerceVariables(sch *schema.Schema, defs language.VariableDefinitionList, input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(defs))
	for _, def := range defs {
		name := def.Variable
		v, ok := input[name]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				v = literal(def.DefaultValue, nil)
			case def.Type.NonNull:
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, def.Type)
			default:
				continue
			}
		}
		if v == nil && def.Type.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, def.Type)
		}
		c, err := coerceInput(sch, v, schema.TypeRefFromAST(def.Type))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s: %w", name, def.Type, err)
		}
		out[name] = c
	}
	return out, nil
}

// arguments coerces the arguments of a field. It reports false after
// recording an error for a missing or invalid argument.
func (x *execution) arguments(def *schema.Field, nodes language.ArgumentList, path Path) (map[string]any, bool) {
	args := make(map[string]any, len(def.Arguments))
	ok := true
	for _, a := range def.Arguments {
		v, given := x.argument(nodes.ForName(a.Name))
		if !given {
			switch {
			case a.DefaultValue != nil:
				args[a.Name] = defaultValue(a.DefaultValue)
			case schema.IsNonNull(a.Type):
				x.fail(path, "argument '%s' of type %s is required", a.Name, a.Type)
				ok = false
			}
			continue
		}
		c, err := coerceInput(x.schema, v, a.Type)
		if err != nil {
			x.fail(path, "argument '%s': %v", a.Name, err)
			ok = false
			continue
		}
		args[a.Name] = c
	}
	return args, ok
}

// argument reads an argument node. A variable the request did not provide
// counts as an absent argument.
func (x *execution) argument(node *language.Argument) (any, bool) {
	if node == nil || node.Value == nil {
		return nil, false
	}
	if node.Value.Kind == language.Variable {
		v, ok := x.vars[node.Value.Raw]
		return v, ok
	}
	return literal(node.Value, x.vars), true
}

// defaultValue returns the Go form of a declared default. Defaults read from
// SDL or introspection are kept in literal syntax.
func defaultValue(v any) any {
	lit, ok := v.(schema.Literal)
	if !ok {
		return v
	}
	node, err := language.ParseValue(string(lit))
	if err != nil {
		return v
	}
	return literal(node, nil)
}

// literal converts a value node, substituting variables from vars.
func literal(v *language.Value, vars map[string]any) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.Variable:
		return vars[v.Raw]
	case language.IntValue:
		if n, err := strconv.Atoi(v.Raw); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case language.FloatValue:
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = literal(c.Value, vars)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = literal(c.Value, vars)
		}
		return out
	}
	return nil
}

// coerceInput checks an input value against typ and converts it to the Go
// form resolvers receive. A single value given for a list becomes a list of
// one. Scalars outside the built-in set are passed through.
func coerceInput(sch *schema.Schema, v any, typ *schema.TypeRef) (any, error) {
	if schema.IsNonNull(typ) {
		if v == nil {
			return nil, fmt.Errorf("null given for non-null type %s", typ)
		}
		return coerceInput(sch, v, schema.Unwrap(typ))
	}
	if v == nil {
		return nil, nil
	}
	if schema.IsList(typ) {
		item := schema.Unwrap(typ)
		items, ok := v.([]any)
		if !ok {
			c, err := coerceInput(sch, v, item)
			if err != nil {
				return nil, err
			}
			return []any{c}, nil
		}
		out := make([]any, len(items))
		for i, it := range items {
			c, err := coerceInput(sch, it, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	}

	name := schema.GetNamedType(typ)
	switch name {
	case "Int":
		return coerceInt(v)
	case "Float":
		return coerceFloat(v)
	case "String":
		if s, ok := v.(string); ok {
			return s, nil
		}
	case "Boolean":
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case "ID":
		return coerceID(v)
	default:
		return coerceNamed(sch, v, name)
	}
	return nil, mismatch(v, name)
}

func coerceNamed(sch *schema.Schema, v any, name string) (any, error) {
	var t *schema.Type
	if sch != nil {
		t = sch.Types[name]
	}
	if t == nil {
		return v, nil
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		s, ok := v.(string)
		if !ok || !slices.ContainsFunc(t.EnumValues, func(e *schema.EnumValue) bool { return e.Name == s }) {
			return nil, fmt.Errorf("%v is not a value of enum %s", v, name)
		}
		return s, nil
	case schema.TypeKindInputObject:
		return coerceInputObject(sch, v, t)
	}
	return v, nil
}

func coerceInputObject(sch *schema.Schema, v any, t *schema.Type) (any, error) {
	in, ok := v.(map[string]any)
	if !ok {
		return nil, mismatch(v, t.Name)
	}
	out := make(map[string]any, len(t.InputFields))
	for key := range in {
		if !slices.ContainsFunc(t.InputFields, func(f *schema.InputValue) bool { return f.Name == key }) {
			return nil, fmt.Errorf("field '%s' is not defined by %s", key, t.Name)
		}
	}
	for _, f := range t.InputFields {
		fv, given := in[f.Name]
		if !given {
			switch {
			case f.DefaultValue != nil:
				out[f.Name] = defaultValue(f.DefaultValue)
			case schema.IsNonNull(f.Type):
				return nil, fmt.Errorf("required field '%s' of %s was not provided", f.Name, t.Name)
			}
			continue
		}
		c, err := coerceInput(sch, fv, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Name, err)
		}
		out[f.Name] = c
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field of %s must be given", t.Name)
	}
	return out, nil
}

var errOutOfRange = errors.New("integer out of 32-bit range")

func coerceInt(v any) (any, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) {
			return nil, mismatch(v, "Int")
		}
		n = int64(x)
	default:
		return nil, mismatch(v, "Int")
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("cannot coerce %d to Int: %w", n, errOutOfRange)
	}
	return int(n), nil
}

func coerceFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return nil, mismatch(v, "Float")
}

func coerceID(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		}
	}
	return nil, mismatch(v, "ID")
}

func mismatch(v any, typ string) error {
	return fmt.Errorf("cannot coerce %v (%T) to %s", v, v, typ)
}

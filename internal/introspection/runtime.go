package introspection

import (
	"context"
	"slices"
	"strings"

	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// Extended pairs a schema that answers __schema and __type with the runtime
// that resolves them.
type Extended struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap extends sch with the introspection meta fields. Fields of the meta
// types are resolved from the schema itself; every other field goes to base.
func Wrap(base executor.Runtime, sch *schema.Schema) *Extended {
	ext := extend(sch)
	return &Extended{
		Runtime: &metaRuntime{Runtime: base, schema: ext},
		Schema:  ext,
	}
}

type metaRuntime struct {
	executor.Runtime
	schema *schema.Schema
}

func (r *metaRuntime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if source == nil && objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t, ok := r.schema.Types[name]; ok {
				return t, nil
			}
			return nil, nil
		}
	}

	deprecated, _ := args["includeDeprecated"].(bool)
	switch v := source.(type) {
	case *schema.Schema:
		return r.schemaField(v, field), nil
	case *schema.Type:
		return r.typeField(v, field, deprecated), nil
	case *schema.TypeRef:
		if v.Kind == schema.TypeRefKindNamed {
			return r.typeField(r.schema.Types[v.Named], field, deprecated), nil
		}
		switch field {
		case "kind":
			return string(v.Kind), nil
		case "ofType":
			return v.OfType, nil
		}
		return nil, nil
	case *schema.Field:
		return fieldField(v, field, deprecated), nil
	case *schema.InputValue:
		return inputValueField(v, field), nil
	case *schema.EnumValue:
		return member(v.Name, v.Description, v.IsDeprecated, v.DeprecationReason, field), nil
	case *schema.Directive:
		switch field {
		case "isRepeatable":
			return v.IsRepeatable, nil
		case "locations":
			return append([]string{}, v.Locations...), nil
		case "args":
			return visible(v.Arguments, deprecated, inputDeprecated), nil
		}
		return member(v.Name, v.Description, false, "", field), nil
	}
	return r.Runtime.ResolveSync(ctx, objectType, field, source, args)
}

func (r *metaRuntime) schemaField(s *schema.Schema, field string) any {
	switch field {
	case "description":
		return optional(s.Description)
	case "types":
		return sortedByName(s.Types, func(t *schema.Type) string { return t.Name })
	case "queryType":
		return s.GetQueryType()
	case "mutationType":
		return s.GetMutationType()
	case "subscriptionType":
		return s.GetSubscriptionType()
	case "directives":
		return sortedByName(s.Directives, func(d *schema.Directive) string { return d.Name })
	}
	return nil
}

func (r *metaRuntime) typeField(t *schema.Type, field string, deprecated bool) any {
	if t == nil {
		return nil
	}
	composite := t.Kind == schema.TypeKindObject || t.Kind == schema.TypeKindInterface
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return optional(t.Description)
	case "specifiedByURL":
		if t.SpecifiedByURL != nil {
			return *t.SpecifiedByURL
		}
	case "isOneOf":
		if t.Kind == schema.TypeKindInputObject {
			return t.OneOf
		}
	case "fields":
		if composite {
			fields := slices.DeleteFunc(slices.Clone(t.Fields), func(f *schema.Field) bool {
				return schema.IsIntrospectionName(f.Name)
			})
			return visible(fields, deprecated, func(f *schema.Field) bool { return f.IsDeprecated })
		}
	case "interfaces":
		if composite {
			return r.lookup(t.Interfaces)
		}
	case "possibleTypes":
		if t.Kind == schema.TypeKindInterface || t.Kind == schema.TypeKindUnion {
			return r.lookup(t.PossibleTypes)
		}
	case "enumValues":
		if t.Kind == schema.TypeKindEnum {
			return visible(t.EnumValues, deprecated, func(v *schema.EnumValue) bool { return v.IsDeprecated })
		}
	case "inputFields":
		if t.Kind == schema.TypeKindInputObject {
			return visible(t.InputFields, deprecated, inputDeprecated)
		}
	}
	return nil
}

// lookup returns the named types that exist in the schema, in the order given.
func (r *metaRuntime) lookup(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t, ok := r.schema.Types[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

func fieldField(f *schema.Field, field string, deprecated bool) any {
	switch field {
	case "type":
		return f.Type
	case "args":
		return visible(f.Arguments, deprecated, inputDeprecated)
	}
	return member(f.Name, f.Description, f.IsDeprecated, f.DeprecationReason, field)
}

func inputValueField(v *schema.InputValue, field string) any {
	switch field {
	case "type":
		return v.Type
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil
		}
		return schema.RenderValue(v.DefaultValue)
	}
	return member(v.Name, v.Description, v.IsDeprecated, v.DeprecationReason, field)
}

// member answers the fields shared by every named schema element.
func member(name, description string, isDeprecated bool, reason, field string) any {
	switch field {
	case "name":
		return name
	case "description":
		return optional(description)
	case "isDeprecated":
		return isDeprecated
	case "deprecationReason":
		if isDeprecated {
			return reason
		}
	}
	return nil
}

// visible drops deprecated elements unless they were asked for. The result
// is never nil so that empty lists stay lists.
func visible[T any](items []T, includeDeprecated bool, isDeprecated func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if includeDeprecated || !isDeprecated(it) {
			out = append(out, it)
		}
	}
	return out
}

func sortedByName[T any](m map[string]T, name func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return strings.Compare(name(a), name(b)) })
	return out
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func inputDeprecated(v *schema.InputValue) bool { return v.IsDeprecated }

package introspection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Query is the introspection query sent to remote endpoints. It leaves out
// fields that older servers reject (schema description, specifiedByURL,
// isRepeatable); FromResult still reads them when present.
const Query = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types { ...FullType }
    directives {
      name
      description
      locations
      args { ...InputValue }
    }
  }
}

fragment FullType on __Type {
  kind
  name
  description
  fields(includeDeprecated: true) {
    name
    description
    args { ...InputValue }
    type { ...TypeRef }
    isDeprecated
    deprecationReason
  }
  inputFields { ...InputValue }
  interfaces { ...TypeRef }
  enumValues(includeDeprecated: true) {
    name
    description
    isDeprecated
    deprecationReason
  }
  possibleTypes { ...TypeRef }
}

fragment InputValue on __InputValue {
  name
  description
  type { ...TypeRef }
  defaultValue
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType {
        kind
        name
        ofType {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType {
                kind
                name
              }
            }
          }
        }
      }
    }
  }
}
`

// ErrMissingSchema indicates the introspection result has no __schema entry.
var ErrMissingSchema = errors.New("introspection: result has no __schema")

// IntrospectionError reports a failed or malformed introspection.
type IntrospectionError struct {
	URL string
	Err error
}

func (e *IntrospectionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("introspection failed: %v", e.Err)
	}
	return fmt.Sprintf("introspection of %s failed: %v", e.URL, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

// Fetch sends Query through d and decodes the result. Failures are returned as
// *IntrospectionError and are not retried.
func Fetch(ctx context.Context, d link.Doer) (*schema.Schema, error) {
	target := ""
	if u, ok := d.(interface{ URL() string }); ok {
		target = u.URL()
	}
	resp, err := d.Do(ctx, link.Request{Query: Query, OperationName: "IntrospectionQuery"})
	if err != nil {
		return nil, &IntrospectionError{URL: target, Err: err}
	}
	if resp.Data == nil {
		if len(resp.Errors) > 0 {
			msgs := make([]string, len(resp.Errors))
			for i, e := range resp.Errors {
				msgs[i] = e.Message
			}
			return nil, &IntrospectionError{URL: target, Err: errors.New(strings.Join(msgs, "; "))}
		}
		return nil, &IntrospectionError{URL: target, Err: ErrMissingSchema}
	}
	sch, err := FromResult(resp.Data)
	if err != nil {
		var ie *IntrospectionError
		if errors.As(err, &ie) {
			ie.URL = target
		}
		return nil, err
	}
	return sch, nil
}

// FromResult converts the data of an introspection response into a Schema.
// Introspection types are dropped and the built-in scalars are replaced by
// the shared built-in definitions. A schema without a query type is returned
// as is; rejecting it is up to the caller.
func FromResult(data map[string]any) (*schema.Schema, error) {
	raw, ok := data["__schema"]
	if !ok || raw == nil {
		return nil, &IntrospectionError{Err: ErrMissingSchema}
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, &IntrospectionError{Err: err}
	}
	var res introspectedSchema
	if err := json.Unmarshal(buf, &res); err != nil {
		return nil, &IntrospectionError{Err: fmt.Errorf("decode __schema: %w", err)}
	}

	sch := schema.NewSchema(deref(res.Description)).AddBuiltins()
	if res.QueryType != nil {
		sch.SetQueryType(res.QueryType.Name)
	}
	if res.MutationType != nil {
		sch.SetMutationType(res.MutationType.Name)
	}
	if res.SubscriptionType != nil {
		sch.SetSubscriptionType(res.SubscriptionType.Name)
	}
	for _, t := range res.Types {
		if t.Name == "" {
			return nil, &IntrospectionError{Err: fmt.Errorf("unnamed %s type", t.Kind)}
		}
		if schema.IsIntrospectionName(t.Name) || schema.IsBuiltinScalar(t.Name) {
			continue
		}
		typ, err := t.toType()
		if err != nil {
			return nil, &IntrospectionError{Err: err}
		}
		sch.AddType(typ)
	}
	for _, d := range res.Directives {
		if schema.IsBuiltinDirective(d.Name) {
			continue
		}
		dir := schema.NewDirective(d.Name, deref(d.Description)).SetRepeatable(d.IsRepeatable)
		dir.Locations = append(dir.Locations, d.Locations...)
		for _, a := range d.Args {
			arg, err := a.toInputValue()
			if err != nil {
				return nil, &IntrospectionError{Err: fmt.Errorf("@%s: %w", d.Name, err)}
			}
			dir.AddArgument(arg)
		}
		sch.AddDirective(dir)
	}
	if err := sch.Validate(); err != nil {
		return nil, &IntrospectionError{Err: err}
	}
	return sch, nil
}

type introspectedSchema struct {
	Description      *string                 `json:"description"`
	QueryType        *namedRef               `json:"queryType"`
	MutationType     *namedRef               `json:"mutationType"`
	SubscriptionType *namedRef               `json:"subscriptionType"`
	Types            []introspectedType      `json:"types"`
	Directives       []introspectedDirective `json:"directives"`
}

type namedRef struct {
	Name string `json:"name"`
}

type introspectedType struct {
	Kind           string                   `json:"kind"`
	Name           string                   `json:"name"`
	Description    *string                  `json:"description"`
	SpecifiedByURL *string                  `json:"specifiedByURL"`
	IsOneOf        bool                     `json:"isOneOf"`
	Fields         []introspectedField      `json:"fields"`
	InputFields    []introspectedInputValue `json:"inputFields"`
	Interfaces     []typeRef                `json:"interfaces"`
	EnumValues     []introspectedEnumValue  `json:"enumValues"`
	PossibleTypes  []typeRef                `json:"possibleTypes"`
}

type introspectedField struct {
	Name              string                   `json:"name"`
	Description       *string                  `json:"description"`
	Args              []introspectedInputValue `json:"args"`
	Type              *typeRef                 `json:"type"`
	IsDeprecated      bool                     `json:"isDeprecated"`
	DeprecationReason *string                  `json:"deprecationReason"`
}

type introspectedInputValue struct {
	Name              string   `json:"name"`
	Description       *string  `json:"description"`
	Type              *typeRef `json:"type"`
	DefaultValue      *string  `json:"defaultValue"`
	IsDeprecated      bool     `json:"isDeprecated"`
	DeprecationReason *string  `json:"deprecationReason"`
}

type introspectedEnumValue struct {
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	IsDeprecated      bool    `json:"isDeprecated"`
	DeprecationReason *string `json:"deprecationReason"`
}

type introspectedDirective struct {
	Name         string                   `json:"name"`
	Description  *string                  `json:"description"`
	IsRepeatable bool                     `json:"isRepeatable"`
	Locations    []string                 `json:"locations"`
	Args         []introspectedInputValue `json:"args"`
}

type typeRef struct {
	Kind   string   `json:"kind"`
	Name   *string  `json:"name"`
	OfType *typeRef `json:"ofType"`
}

func (t introspectedType) toType() (*schema.Type, error) {
	kind := schema.TypeKind(t.Kind)
	switch kind {
	case schema.TypeKindScalar, schema.TypeKindObject, schema.TypeKindInterface,
		schema.TypeKindUnion, schema.TypeKindEnum, schema.TypeKindInputObject:
	default:
		return nil, fmt.Errorf("type %s has unknown kind %q", t.Name, t.Kind)
	}
	out := schema.NewType(t.Name, kind, deref(t.Description)).SetOneOf(t.IsOneOf)
	if t.SpecifiedByURL != nil {
		out.SetSpecifiedByURL(*t.SpecifiedByURL)
	}
	for _, f := range t.Fields {
		ref, err := f.Type.toTypeRef()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
		}
		field := schema.NewField(f.Name, deref(f.Description), ref)
		for _, a := range f.Args {
			arg, err := a.toInputValue()
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
			}
			field.AddArgument(arg)
		}
		if f.IsDeprecated {
			field.Deprecate(deref(f.DeprecationReason))
		}
		out.AddField(field)
	}
	for _, v := range t.InputFields {
		in, err := v.toInputValue()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		out.AddInputField(in)
	}
	for _, i := range t.Interfaces {
		out.AddInterface(deref(i.Name))
	}
	for _, p := range t.PossibleTypes {
		out.AddPossibleType(deref(p.Name))
	}
	for _, v := range t.EnumValues {
		ev := schema.NewEnumValue(v.Name, deref(v.Description))
		if v.IsDeprecated {
			ev.Deprecate(deref(v.DeprecationReason))
		}
		out.AddEnumValue(ev)
	}
	return out, nil
}

func (v introspectedInputValue) toInputValue() (*schema.InputValue, error) {
	ref, err := v.Type.toTypeRef()
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", v.Name, err)
	}
	in := schema.NewInputValue(v.Name, deref(v.Description), ref)
	if v.DefaultValue != nil {
		in.SetDefault(schema.Literal(*v.DefaultValue))
	}
	if v.IsDeprecated {
		in.Deprecate(deref(v.DeprecationReason))
	}
	return in, nil
}

func (t *typeRef) toTypeRef() (*schema.TypeRef, error) {
	if t == nil {
		return nil, errors.New("missing type reference")
	}
	switch t.Kind {
	case "NON_NULL":
		inner, err := t.OfType.toTypeRef()
		if err != nil {
			return nil, err
		}
		return schema.NonNullType(inner), nil
	case "LIST":
		inner, err := t.OfType.toTypeRef()
		if err != nil {
			return nil, err
		}
		return schema.ListType(inner), nil
	default:
		if t.Name == nil || *t.Name == "" {
			return nil, fmt.Errorf("named %s reference without a name", t.Kind)
		}
		return schema.NamedType(*t.Name), nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

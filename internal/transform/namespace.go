package transform

import (
	"fmt"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	remotert "github.com/kissu/gridsome-source-graphql-prismic/internal/remotert"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// RootQueryName is the name of the query type a namespaced schema exposes.
const RootQueryName = "Query"

// NamespaceUnderField moves the query fields of e into an object type named
// typeName, reachable from a new Query root through the non-null field
// fieldName. The former query type is removed unless a type, itself included,
// refers to it.
func NamespaceUnderField(typeName, fieldName string) Transform {
	return func(e *remotert.Executable) (*remotert.Executable, error) {
		q := e.Schema.GetQueryType()
		if q == nil {
			return nil, &SchemaShapeError{Transform: "NamespaceUnderField", Reason: "remote schema has no query type"}
		}
		if fieldName == "" || typeName == "" {
			return nil, &SchemaShapeError{Transform: "NamespaceUnderField", Reason: "field and type names are required"}
		}
		for _, name := range []string{typeName, RootQueryName} {
			if t, ok := e.Schema.Types[name]; ok && t != q {
				return nil, &SchemaShapeError{
					Transform: "NamespaceUnderField",
					Reason:    fmt.Sprintf("type %q already exists", name),
				}
			}
		}
		if typeName == RootQueryName {
			return nil, &SchemaShapeError{Transform: "NamespaceUnderField", Reason: fmt.Sprintf("type name %q is reserved", typeName)}
		}

		sch := e.Schema.Clone()
		oldQuery := sch.QueryType
		wrapper := sch.Types[oldQuery].Clone()
		wrapper.Name = typeName
		if !referenced(sch, oldQuery) {
			delete(sch.Types, oldQuery)
		}
		sch.Types[typeName] = wrapper
		sch.Types[RootQueryName] = schema.NewType(RootQueryName, schema.TypeKindObject, "").
			AddField(schema.NewField(fieldName, "", schema.NonNullType(schema.NamedType(typeName))))
		sch.QueryType = RootQueryName

		roots := map[string]language.Operation{}
		for name, op := range e.Roots {
			if name != oldQuery {
				roots[name] = op
			}
		}
		roots[typeName] = language.Query

		renames := map[string]string{}
		for local, remote := range e.Renames {
			if _, ok := sch.Types[local]; ok {
				renames[local] = remote
			}
		}
		delete(renames, RootQueryName)
		renames[typeName] = e.RemoteName(oldQuery)

		if err := sch.Validate(); err != nil {
			return nil, &SchemaShapeError{Transform: "NamespaceUnderField", Reason: err.Error()}
		}
		return e.Derive(sch, roots, renames), nil
	}
}

func referenced(sch *schema.Schema, name string) bool {
	for _, t := range sch.Types {
		for _, ref := range t.References() {
			if ref == name {
				return true
			}
		}
	}
	return false
}

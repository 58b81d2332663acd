package introspection

import (
	"maps"

	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// extend returns a copy of sch that also declares the meta types and the
// __schema and __type fields of the query root. sch is not modified.
func extend(sch *schema.Schema) *schema.Schema {
	out := *sch
	out.Types = maps.Clone(sch.Types)
	maps.Copy(out.Types, schema.MetaTypes())

	q := sch.GetQueryType()
	if q == nil {
		return &out
	}
	root := *q
	root.Fields = append(append([]*schema.Field(nil), q.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.",
			schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	)
	out.Types[root.Name] = &root
	return &out
}

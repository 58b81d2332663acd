package transform

import (
	"fmt"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	remotert "github.com/kissu/gridsome-source-graphql-prismic/internal/remotert"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// RenameTypes renames every type except the built-in scalars with fn and
// rewrites all references. Custom scalars are renamed as well. The remote names
// stay recorded so the runtime keeps speaking the remote vocabulary.
func RenameTypes(fn func(string) string) Transform {
	return func(e *remotert.Executable) (*remotert.Executable, error) {
		names := map[string]string{}
		owner := map[string]string{}
		for _, name := range e.Schema.TypeNames() {
			newName := name
			if !schema.IsBuiltinScalar(name) && !schema.IsIntrospectionName(name) {
				newName = fn(name)
			}
			if newName == "" {
				return nil, &SchemaShapeError{Transform: "RenameTypes", Reason: fmt.Sprintf("type %q renamed to an empty name", name)}
			}
			if prev, ok := owner[newName]; ok {
				return nil, &SchemaShapeError{
					Transform: "RenameTypes",
					Reason:    fmt.Sprintf("types %q and %q both renamed to %q", prev, name, newName),
				}
			}
			owner[newName] = name
			names[name] = newName
		}
		rename := func(name string) string {
			if n, ok := names[name]; ok {
				return n
			}
			return name
		}

		src := e.Schema
		sch := &schema.Schema{
			QueryType:        renameRoot(src.QueryType, rename),
			MutationType:     renameRoot(src.MutationType, rename),
			SubscriptionType: renameRoot(src.SubscriptionType, rename),
			Description:      src.Description,
			Types:            make(map[string]*schema.Type, len(src.Types)),
			Directives:       make(map[string]*schema.Directive, len(src.Directives)),
		}
		for name, t := range src.Types {
			if schema.BuiltinScalar(name) == t {
				sch.Types[name] = t
				continue
			}
			c := t.Clone()
			c.Name = rename(c.Name)
			for i := range c.Interfaces {
				c.Interfaces[i] = rename(c.Interfaces[i])
			}
			for i := range c.PossibleTypes {
				c.PossibleTypes[i] = rename(c.PossibleTypes[i])
			}
			for _, f := range c.Fields {
				renameRef(f.Type, rename)
				for _, a := range f.Arguments {
					renameRef(a.Type, rename)
				}
			}
			for _, v := range c.InputFields {
				renameRef(v.Type, rename)
			}
			sch.Types[c.Name] = c
		}
		for name, d := range src.Directives {
			c := d.Clone()
			for _, a := range c.Arguments {
				renameRef(a.Type, rename)
			}
			sch.Directives[name] = c
		}

		roots := make(map[string]language.Operation, len(e.Roots))
		for name, op := range e.Roots {
			roots[rename(name)] = op
		}
		renames := map[string]string{}
		for name, newName := range names {
			if newName != name {
				renames[newName] = e.RemoteName(name)
			}
		}
		if err := sch.Validate(); err != nil {
			return nil, &SchemaShapeError{Transform: "RenameTypes", Reason: err.Error()}
		}
		return e.Derive(sch, roots, renames), nil
	}
}

func renameRoot(name string, rename func(string) string) string {
	if name == "" {
		return ""
	}
	return rename(name)
}

func renameRef(ref *schema.TypeRef, rename func(string) string) {
	for ; ref != nil; ref = ref.OfType {
		if ref.Named != "" {
			ref.Named = rename(ref.Named)
		}
	}
}

package schema

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// prelude is gqlparser's declaration of the built-in scalars, directives
// and meta types.
var prelude = func() *ast.SchemaDocument {
	doc, err := parser.ParseSchema(validator.Prelude)
	if err != nil {
		panic(fmt.Sprintf("schema: parse prelude: %v", err))
	}
	return doc
}()

var builtinScalars = func() map[string]*Type {
	out := make(map[string]*Type)
	for _, name := range []string{"String", "Int", "Float", "Boolean", "ID"} {
		out[name] = typeFromAST(prelude.Definitions.ForName(name))
	}
	return out
}()

// include and skip are shared by every schema and never modified.
var (
	includeDirective = directiveFromAST(prelude.Directives.ForName("include"))
	skipDirective    = directiveFromAST(prelude.Directives.ForName("skip"))
)

// IsBuiltinScalar reports whether name is one of the built-in scalars.
func IsBuiltinScalar(name string) bool {
	_, ok := builtinScalars[name]
	return ok
}

// IsIntrospectionName reports whether name is reserved for introspection (`__` prefix).
func IsIntrospectionName(name string) bool { return strings.HasPrefix(name, "__") }

// BuiltinScalar returns the shared definition of a specified scalar, or nil.
func BuiltinScalar(name string) *Type { return builtinScalars[name] }

// IsBuiltinDirective reports whether name is a directive every server defines.
func IsBuiltinDirective(name string) bool {
	return prelude.Directives.ForName(name) != nil
}

// MetaTypes returns new copies of the introspection types, __Schema, __Type
// and the rest.
func MetaTypes() map[string]*Type {
	out := make(map[string]*Type)
	for _, def := range prelude.Definitions {
		if IsIntrospectionName(def.Name) {
			out[def.Name] = typeFromAST(def)
		}
	}
	return out
}

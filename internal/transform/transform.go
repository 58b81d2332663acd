// Package transform rewrites remote executables so that several remote schemas
// can live side by side in one local schema.
package transform

import (
	"fmt"

	remotert "github.com/kissu/gridsome-source-graphql-prismic/internal/remotert"
)

// Transform derives a new Executable from e. It must not modify e.
type Transform func(e *remotert.Executable) (*remotert.Executable, error)

// SchemaShapeError reports a remote schema that a transform cannot handle.
type SchemaShapeError struct {
	Transform string
	Reason    string
}

func (e *SchemaShapeError) Error() string {
	return fmt.Sprintf("transform %s: %s", e.Transform, e.Reason)
}

// Apply runs ts left to right.
func Apply(e *remotert.Executable, ts ...Transform) (*remotert.Executable, error) {
	for _, t := range ts {
		next, err := t(e)
		if err != nil {
			return nil, err
		}
		e = next
	}
	return e, nil
}

// Namespace exposes the queries of e under Query.<fieldName>, with every type
// renamed to <typeName>_<name>. typeName defaults to fieldName.
func Namespace(e *remotert.Executable, fieldName, typeName string) (*remotert.Executable, error) {
	if typeName == "" {
		typeName = fieldName
	}
	return Apply(e,
		StripNonQuery(),
		RenameTypes(Prefix(typeName)),
		NamespaceUnderField(typeName, fieldName),
	)
}

// Prefix returns a rename function producing "<prefix>_<name>".
func Prefix(prefix string) func(string) string {
	return func(name string) string { return prefix + "_" + name }
}

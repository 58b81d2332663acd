package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

// buildSchema builds sdl and marks the fields named "Type.field" in async as
// Async.
func buildSchema(t *testing.T, sdl string, async ...string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	for _, key := range async {
		typeName, fieldName, _ := strings.Cut(key, ".")
		typ := sch.Types[typeName]
		require.NotNil(t, typ, key)
		f := typ.GetField(fieldName)
		require.NotNil(t, f, key)
		f.SetAsync(true)
	}
	return sch
}

func parse(t *testing.T, query string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return doc
}

func execute(t *testing.T, rt Runtime, sch *schema.Schema, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	return NewExecutor(rt, sch).ExecuteRequest(context.Background(), parse(t, query), "", vars, nil)
}

// messages returns the error messages of res.
func messages(res *ExecutionResult) []string {
	var out []string
	for _, e := range res.Errors {
		out = append(out, e.Message)
	}
	return out
}

package introspection

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

const blogSDL = `
"Blog entry point."
type Query {
  post(id: ID!): Post
  posts(limit: Int = 10, order: String = "desc"): [Post!]!
  search: [Result]
  legacy: String @deprecated(reason: "use post")
}
interface Node { id: ID! }
type Post implements Node { id: ID! title: String }
union Result = Post
enum Status { DRAFT LIVE ARCHIVED @deprecated }
input Filter @oneOf { id: ID title: String }
`

func query(t *testing.T, sdl, q string) map[string]any {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	ext := Wrap(executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.legacy": executor.NewMockValueResolver("old"),
	}), sch)
	doc, err := language.ParseQuery(q)
	require.NoError(t, err)
	out := executor.NewExecutor(ext.Runtime, ext.Schema).ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Empty(t, out.Errors)
	return out.Data.(map[string]any)
}

func names(items any) []string {
	var out []string
	for _, it := range items.([]any) {
		out = append(out, it.(map[string]any)["name"].(string))
	}
	return out
}

func TestWrapLeavesSourceSchemaAlone(t *testing.T) {
	sch, err := schema.BuildFromSDL(blogSDL)
	require.NoError(t, err)
	before := schema.Render(sch)

	ext := Wrap(executor.NewMockRuntime(nil), sch)

	require.Equal(t, before, schema.Render(sch))
	require.Nil(t, sch.Types["__Schema"])
	require.NotNil(t, ext.Schema.Types["__Schema"])
	require.NotNil(t, ext.Schema.GetQueryType().GetField("__type"))
	require.Nil(t, sch.GetQueryType().GetField("__type"))
}

func TestSchemaRoots(t *testing.T) {
	data := query(t, blogSDL, `{ __schema { description queryType { name } mutationType { name } types { name } } }`)

	s := data["__schema"].(map[string]any)
	require.Equal(t, map[string]any{"name": "Query"}, s["queryType"])
	require.Nil(t, s["mutationType"])
	require.Nil(t, s["description"])
	types := names(s["types"])
	require.True(t, slices.IsSorted(types))
	require.Contains(t, types, "__Schema")
	require.Contains(t, types, "Post")
}

func TestFieldsKeepDeclarationOrder(t *testing.T) {
	data := query(t, blogSDL, `{
  live: __type(name: "Query") { description fields { name } }
  all: __type(name: "Query") { fields(includeDeprecated: true) { name isDeprecated deprecationReason } }
}`)

	live := data["live"].(map[string]any)
	require.Equal(t, "Blog entry point.", live["description"])
	require.Equal(t, []string{"post", "posts", "search"}, names(live["fields"]))

	all := data["all"].(map[string]any)["fields"].([]any)
	require.Equal(t, []string{"post", "posts", "search", "legacy"}, names(all))
	require.Equal(t, map[string]any{"name": "legacy", "isDeprecated": true, "deprecationReason": "use post"}, all[3])
}

func TestArgumentsAndWrappedTypes(t *testing.T) {
	data := query(t, blogSDL, `{ __type(name: "Query") { fields {
  name
  args { name defaultValue type { kind name } }
  type { kind name ofType { kind name ofType { kind name ofType { name } } } }
} } }`)

	fields := data["__type"].(map[string]any)["fields"].([]any)
	want := map[string]any{
		"name": "posts",
		"args": []any{
			map[string]any{"name": "limit", "defaultValue": "10", "type": map[string]any{"kind": "SCALAR", "name": "Int"}},
			map[string]any{"name": "order", "defaultValue": `"desc"`, "type": map[string]any{"kind": "SCALAR", "name": "String"}},
		},
		"type": map[string]any{
			"kind": "NON_NULL", "name": nil,
			"ofType": map[string]any{
				"kind": "LIST", "name": nil,
				"ofType": map[string]any{
					"kind": "NON_NULL", "name": nil,
					"ofType": map[string]any{"name": "Post"},
				},
			},
		},
	}
	if diff := cmp.Diff(want, fields[1]); diff != "" {
		t.Fatalf("posts mismatch (-want +got):\n%s", diff)
	}
}

func TestKindSpecificFields(t *testing.T) {
	data := query(t, blogSDL, `{
  post: __type(name: "Post") { interfaces { name } possibleTypes { name } enumValues { name } }
  node: __type(name: "Node") { possibleTypes { name } }
  result: __type(name: "Result") { possibleTypes { name } fields { name } }
  status: __type(name: "Status") { enumValues { name } every: enumValues(includeDeprecated: true) { name } }
  filter: __type(name: "Filter") { isOneOf inputFields { name } }
  missing: __type(name: "Nope") { name }
}`)

	want := map[string]any{
		"post":    map[string]any{"interfaces": []any{map[string]any{"name": "Node"}}, "possibleTypes": nil, "enumValues": nil},
		"node":    map[string]any{"possibleTypes": []any{map[string]any{"name": "Post"}}},
		"result":  map[string]any{"possibleTypes": []any{map[string]any{"name": "Post"}}, "fields": nil},
		"status":  map[string]any{"enumValues": []any{map[string]any{"name": "DRAFT"}, map[string]any{"name": "LIVE"}}, "every": []any{map[string]any{"name": "DRAFT"}, map[string]any{"name": "LIVE"}, map[string]any{"name": "ARCHIVED"}}},
		"filter":  map[string]any{"isOneOf": true, "inputFields": []any{map[string]any{"name": "id"}, map[string]any{"name": "title"}}},
		"missing": nil,
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestMetaTypesAreIntrospectable(t *testing.T) {
	data := query(t, `type Query { a: String }`, `{ __type(name: "__Type") { kind fields { name } } }`)

	typ := data["__type"].(map[string]any)
	require.Equal(t, "OBJECT", typ["kind"])
	require.Contains(t, names(typ["fields"]), "ofType")
	require.Contains(t, names(typ["fields"]), "isOneOf")
}

func TestDirectives(t *testing.T) {
	data := query(t, `directive @cache(ttl: Int = 60) repeatable on FIELD_DEFINITION | OBJECT type Query { a: String }`,
		`{ __schema { directives { name isRepeatable locations args { name defaultValue } } } }`)

	dirs := data["__schema"].(map[string]any)["directives"].([]any)
	require.True(t, slices.IsSorted(names(dirs)))
	i := slices.Index(names(dirs), "cache")
	require.GreaterOrEqual(t, i, 0)
	want := map[string]any{
		"name":         "cache",
		"isRepeatable": true,
		"locations":    []any{"FIELD_DEFINITION", "OBJECT"},
		"args":         []any{map[string]any{"name": "ttl", "defaultValue": "60"}},
	}
	if diff := cmp.Diff(want, dirs[i]); diff != "" {
		t.Fatalf("directive mismatch (-want +got):\n%s", diff)
	}
}

func TestOtherFieldsReachBaseRuntime(t *testing.T) {
	data := query(t, blogSDL, `{ legacy __typename }`)

	require.Equal(t, map[string]any{"legacy": "old", "__typename": "Query"}, data)
}

func TestCustomQueryRoot(t *testing.T) {
	data := query(t, `schema { query: blog_Query } type blog_Query { hello: String }`,
		`{ __type(name: "blog_Query") { name kind fields { name type { kind name } } } }`)

	want := map[string]any{"__type": map[string]any{
		"name": "blog_Query",
		"kind": "OBJECT",
		"fields": []any{
			map[string]any{"name": "hello", "type": map[string]any{"kind": "SCALAR", "name": "String"}},
		},
	}}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

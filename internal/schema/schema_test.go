package schema

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const blogSDL = `
"A person who writes posts"
type User implements Node {
  id: ID!
  name: String
  posts(first: Int = 10, order: Order = DESC): [Post!]!
}

interface Node {
  id: ID!
}

type Post implements Node {
  id: ID!
  title: String @deprecated(reason: "use headline")
  author: User
}

enum Order {
  ASC
  DESC
}

input PostFilter {
  tag: String = "news"
}

union SearchResult = User | Post

scalar DateTime @specifiedBy(url: "https://example.com/datetime")

type Query {
  user(id: ID!): User
  posts(filter: PostFilter): [Post]
  search(term: String!): [SearchResult!]!
  now: DateTime
}

type Mutation {
  createPost(title: String!): Post
}
`

func TestBuildFromSDL(t *testing.T) {
	sch, err := BuildFromSDL(blogSDL)
	require.NoError(t, err)
	require.NoError(t, sch.Validate())

	require.Equal(t, "Query", sch.QueryType)
	require.Equal(t, "Mutation", sch.MutationType)
	require.Empty(t, sch.SubscriptionType)

	user := sch.Types["User"]
	require.NotNil(t, user)
	require.Equal(t, TypeKindObject, user.Kind)
	require.Equal(t, []string{"Node"}, user.Interfaces)
	posts := user.GetField("posts")
	require.NotNil(t, posts)
	require.Equal(t, "[Post!]!", posts.Type.String())
	require.Equal(t, Literal("10"), posts.Arguments[0].DefaultValue)
	require.Equal(t, Literal("DESC"), posts.Arguments[1].DefaultValue)

	title := sch.Types["Post"].GetField("title")
	require.True(t, title.IsDeprecated)
	require.Equal(t, "use headline", title.DeprecationReason)

	require.ElementsMatch(t, []string{"User", "Post"}, sch.Types["SearchResult"].PossibleTypes)
	require.Equal(t, "https://example.com/datetime", *sch.Types["DateTime"].SpecifiedByURL)
	require.Same(t, BuiltinScalar("String"), sch.Types["String"])
	_, hasIntrospection := sch.Types["__Schema"]
	require.False(t, hasIntrospection)
}

func TestCloneIsIndependent(t *testing.T) {
	sch, err := BuildFromSDL(blogSDL)
	require.NoError(t, err)

	cp := sch.Clone()
	require.Empty(t, cmp.Diff(sch, cp))

	cp.Types["User"].Name = "Changed"
	cp.Types["User"].Fields[0].Type.OfType.Named = "Changed"
	cp.Types["SearchResult"].PossibleTypes[0] = "Changed"
	require.Equal(t, "User", sch.Types["User"].Name)
	require.Equal(t, "ID", sch.Types["User"].Fields[0].Type.GetNamedType())
	require.NotContains(t, sch.Types["SearchResult"].PossibleTypes, "Changed")
}

func TestValidateReportsDanglingReferences(t *testing.T) {
	sch := NewSchema("").AddBuiltins().SetQueryType("Query")
	sch.AddType(NewType("Query", TypeKindObject, "").
		AddField(NewField("user", "", NamedType("User"))))

	err := sch.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `Query references unknown type "User"`)

	sch.SetMutationType("Mutation")
	err = sch.Validate()
	require.Contains(t, err.Error(), `root type "Mutation" is not defined`)
}

func TestRenderValueIsDeterministic(t *testing.T) {
	v := map[string]any{"b": 1, "a": "x", "c": []any{true, nil}, "d": Literal("ASC")}
	require.Equal(t, `{a: "x", b: 1, c: [true, null], d: ASC}`, RenderValue(v))
}

func TestRenderWritesSchemaBlockForCustomRoots(t *testing.T) {
	sch := NewSchema("").AddBuiltins().SetQueryType("blog_Query")
	sch.AddType(NewType("blog_Query", TypeKindObject, "").
		AddField(NewField("hello", "", NamedType("String"))))
	out := Render(sch)
	require.True(t, strings.HasPrefix(out, "schema {\n  query: blog_Query\n}\n"), out)
	require.Contains(t, out, "type blog_Query {\n  hello: String\n}\n")
}

func TestSchemaSnapshot(t *testing.T) {
	sch, err := BuildFromSDL(blogSDL)
	require.NoError(t, err, "failed to build schema from SDL")

	// Convert to JSON for snapshot comparison
	actual, err := json.MarshalIndent(sch, "", "  ")
	require.NoError(t, err, "failed to marshal schema to JSON")

	snapshotPath := filepath.Join("testdata", "schema_snapshot.json")
	compareSnapshot(t, snapshotPath, string(actual))
}

func TestSchemaRenderSnapshot(t *testing.T) {
	sch, err := BuildFromSDL(blogSDL)
	require.NoError(t, err, "failed to build schema from SDL")

	snapshotPath := filepath.Join("testdata", "schema_rendered.graphql")
	compareSnapshot(t, snapshotPath, Render(sch))
}

// compareSnapshot compares actual with the stored snapshot, creating it on first run.
func compareSnapshot(t *testing.T, path, actual string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(actual), 0o644), "failed to write snapshot file")
		t.Logf("Created snapshot file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read snapshot file")

	if diff := cmp.Diff(string(expected), actual); diff != "" {
		t.Errorf("snapshot mismatch for %s (-want +got):\n%s", path, diff)
	}
}

func TestMetaTypes(t *testing.T) {
	meta := MetaTypes()

	require.ElementsMatch(t, []string{
		"__Schema", "__Type", "__TypeKind", "__Field", "__InputValue",
		"__EnumValue", "__Directive", "__DirectiveLocation",
	}, slices.Collect(maps.Keys(meta)))
	require.Equal(t, TypeKindEnum, meta["__TypeKind"].Kind)
	fields := meta["__Type"].GetField("fields")
	require.Equal(t, "[__Field!]", fields.Type.String())
	require.Equal(t, Literal("false"), fields.Arguments[0].DefaultValue)

	meta["__Type"].Name = "changed"
	require.Equal(t, "__Type", MetaTypes()["__Type"].Name)
}

func TestRenderIndentsDescriptionsAndQuotesReasons(t *testing.T) {
	sch, err := BuildFromSDL(`
"""
Posts.
Two lines.
"""
type Query {
  "The newest post."
  latest(limit: Int = 5): [Post!]! @deprecated(reason: "use \"posts\"")
}
type Post { id: ID! }
`)
	require.NoError(t, err)

	out := Render(sch)

	require.Contains(t, out, "\"\"\"\nPosts.\nTwo lines.\n\"\"\"\ntype Query {\n")
	require.Contains(t, out, "  \"\"\"\n  The newest post.\n  \"\"\"\n  latest(limit: Int = 5): [Post!]! @deprecated(reason: \"use \\\"posts\\\"\")\n")
}

package transform

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	remotert "github.com/kissu/gridsome-source-graphql-prismic/internal/remotert"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
)

const remoteSDL = `
directive @cacheControl(maxAge: Int) on FIELD_DEFINITION

interface Node { id: ID! }
type User implements Node { id: ID! name: String joined: Date posts(order: Order = DESC): [Post!]! }
type Post implements Node { id: ID! title: String }
type Hidden implements Node { id: ID! }
union SearchResult = User | Post
enum Order { ASC DESC }
scalar Date

input CreatePostInput { title: String! }
type CreatePostPayload { post: Post }

type Query {
  user(id: ID!): User @cacheControl(maxAge: 60)
  node(id: ID!): Node
  search(term: String!): [SearchResult!]!
}
type Mutation { createPost(input: CreatePostInput!): CreatePostPayload }
`

type stubDoer struct {
	mu       sync.Mutex
	requests []link.Request
	data     map[string]any
}

func (d *stubDoer) Do(ctx context.Context, req link.Request) (*link.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return &link.Response{Data: d.data}, nil
}

func build(t *testing.T, sdl string, d link.Doer) *remotert.Executable {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	return remotert.Build(sch, d)
}

func TestNamespaceBlog(t *testing.T) {
	src := build(t, remoteSDL, &stubDoer{})

	e, err := Namespace(src, "blog", "")
	require.NoError(t, err)

	var custom []string
	for _, name := range e.Schema.TypeNames() {
		if !schema.IsBuiltinScalar(name) {
			custom = append(custom, name)
		}
	}
	require.Equal(t, []string{
		"Query", "blog", "blog_Date", "blog_Hidden", "blog_Node", "blog_Order",
		"blog_Post", "blog_SearchResult", "blog_User",
	}, custom)
	require.Equal(t, "Query", e.Schema.QueryType)
	require.Empty(t, e.Schema.MutationType)
	require.NotContains(t, e.Schema.Directives, "cacheControl")

	field := e.Schema.Types["Query"].GetField("blog")
	require.Equal(t, "blog!", field.Type.String())
	require.False(t, field.Async)

	wrapper := e.Schema.Types["blog"]
	require.Equal(t, "blog_User", wrapper.GetField("user").Type.String())
	require.Equal(t, "[blog_SearchResult!]!", wrapper.GetField("search").Type.String())
	require.True(t, wrapper.GetField("user").Async)
	require.False(t, e.Schema.Types["blog_User"].GetField("posts").Async)

	user := e.Schema.Types["blog_User"]
	require.Equal(t, []string{"blog_Node"}, user.Interfaces)
	require.Equal(t, "blog_Date", user.GetField("joined").Type.String())
	require.Equal(t, "[blog_Post!]!", user.GetField("posts").Type.String())
	require.Equal(t, "blog_Order", user.GetField("posts").Arguments[0].Type.String())
	require.ElementsMatch(t, []string{"blog_User", "blog_Post"}, e.Schema.Types["blog_SearchResult"].PossibleTypes)

	require.Equal(t, map[string]language.Operation{"blog": language.Query}, e.Roots)
	require.Equal(t, "Query", e.RemoteName("blog"))
	require.Equal(t, "User", e.RemoteName("blog_User"))
	require.Equal(t, "String", e.RemoteName("String"))
	require.NoError(t, e.Schema.Validate())
}

func TestNamespaceUsesTypeName(t *testing.T) {
	e, err := Namespace(build(t, remoteSDL, &stubDoer{}), "prismic", "Prismic")
	require.NoError(t, err)

	require.Equal(t, "Prismic!", e.Schema.Types["Query"].GetField("prismic").Type.String())
	require.Contains(t, e.Schema.Types, "Prismic_User")
	require.NotContains(t, e.Schema.Types, "prismic_User")
}

func TestNamespaceIsDeterministic(t *testing.T) {
	src := build(t, remoteSDL, &stubDoer{})
	before := schema.Render(src.Schema)

	a, err := Namespace(src, "blog", "")
	require.NoError(t, err)
	b, err := Namespace(src, "blog", "")
	require.NoError(t, err)

	if diff := cmp.Diff(a.Schema, b.Schema); diff != "" {
		t.Fatalf("schemas differ (-a +b):\n%s", diff)
	}
	require.Equal(t, schema.Render(a.Schema), schema.Render(b.Schema))
	require.Equal(t, before, schema.Render(src.Schema), "source executable must not change")
}

func TestStripNonQueryRequiresQuery(t *testing.T) {
	sch := schema.NewSchema("").AddBuiltins().
		AddType(schema.NewType("Mutation", schema.TypeKindObject, "").
			AddField(schema.NewField("ping", "", schema.NamedType("String")))).
		SetMutationType("Mutation")

	_, err := StripNonQuery()(remotert.Build(sch, &stubDoer{}))
	var shapeErr *SchemaShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, "StripNonQuery", shapeErr.Transform)
}

func TestStripNonQueryKeepsSharedTypes(t *testing.T) {
	e, err := StripNonQuery()(build(t, remoteSDL, &stubDoer{}))
	require.NoError(t, err)

	require.NotContains(t, e.Schema.Types, "Mutation")
	require.NotContains(t, e.Schema.Types, "CreatePostInput")
	require.NotContains(t, e.Schema.Types, "CreatePostPayload")
	require.Contains(t, e.Schema.Types, "Post")
	require.Contains(t, e.Schema.Types, "Hidden")
	require.Equal(t, []string{"Query"}, e.RootTypes())
}

func TestRenameTypesRejectsCollisions(t *testing.T) {
	src := build(t, remoteSDL, &stubDoer{})

	_, err := RenameTypes(func(name string) string {
		if name == "Post" {
			return "User"
		}
		return name
	})(src)
	var shapeErr *SchemaShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Contains(t, shapeErr.Reason, `both renamed to "User"`)

	_, err = RenameTypes(func(string) string { return "String" })(src)
	require.ErrorAs(t, err, &shapeErr)
}

func TestRenameTypesComposes(t *testing.T) {
	e, err := Apply(build(t, remoteSDL, &stubDoer{}),
		RenameTypes(Prefix("a")),
		RenameTypes(Prefix("b")),
	)
	require.NoError(t, err)

	require.Equal(t, "b_a_Query", e.Schema.QueryType)
	require.Equal(t, "User", e.RemoteName("b_a_User"))
	require.Equal(t, language.Mutation, e.Roots["b_a_Mutation"])
}

func TestNamespaceKeepsSelfReferencingQuery(t *testing.T) {
	e, err := Namespace(build(t, `type Query { viewer: Query hello: String }`, &stubDoer{}), "relay", "")
	require.NoError(t, err)

	require.Contains(t, e.Schema.Types, "relay_Query")
	require.Equal(t, "relay_Query", e.Schema.Types["relay"].GetField("viewer").Type.String())
	require.False(t, e.Schema.Types["relay_Query"].GetField("hello").Async)
	require.Equal(t, "Query", e.RemoteName("relay_Query"))
}

func TestNamespaceRejectsTakenNames(t *testing.T) {
	src := build(t, `type Query { hello: String } type blog { id: ID }`, &stubDoer{})

	_, err := NamespaceUnderField("blog", "blog")(src)
	var shapeErr *SchemaShapeError
	require.ErrorAs(t, err, &shapeErr)

	_, err = NamespaceUnderField("Query", "q")(build(t, `type Query { hello: String }`, &stubDoer{}))
	require.ErrorAs(t, err, &shapeErr)
}

func TestNamespacedExecutionSendsRemoteNames(t *testing.T) {
	d := &stubDoer{data: map[string]any{
		"search": []any{
			map[string]any{"__typename": "User", "name": "Ada"},
			map[string]any{"__typename": "Post", "title": "Hello"},
		},
	}}
	e, err := Namespace(build(t, remoteSDL, d), "blog", "")
	require.NoError(t, err)

	doc, err := language.ParseQuery(`{
  blog {
    search(term: "a") {
      ... on blog_User { name }
      ... on blog_Post { title }
    }
  }
}`)
	require.NoError(t, err)
	res := executor.NewExecutor(e.Runtime, e.Schema).ExecuteRequest(context.Background(), doc, "", nil, nil)

	require.Empty(t, res.Errors)
	want := map[string]any{"blog": map[string]any{"search": []any{
		map[string]any{"name": "Ada"},
		map[string]any{"title": "Hello"},
	}}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, d.requests, 1)
	sent, err := language.ParseQuery(d.requests[0].Query)
	require.NoError(t, err)
	search := sent.Operations[0].SelectionSet[0].(*language.Field)
	require.Equal(t, "search", search.Name)
	require.Equal(t, "User", search.SelectionSet[0].(*language.InlineFragment).TypeCondition)
	require.Equal(t, "Post", search.SelectionSet[1].(*language.InlineFragment).TypeCondition)
}

func TestNamespacedQueryTypeResolvesToRenamedType(t *testing.T) {
	const sdl = `
interface Node { id: ID! }
type Query implements Node { id: ID! viewer: Query node(id: ID!): Node }
`
	// toLocal is built from a map; build repeatedly so an order-dependent
	// choice between the wrapper and relay_Query would show up.
	for i := 0; i < 20; i++ {
		d := &stubDoer{data: map[string]any{
			"node": map[string]any{"__typename": "Query", "id": "q", "viewerId": "q"},
		}}
		e, err := Namespace(build(t, sdl, d), "relay", "")
		require.NoError(t, err)

		doc, err := language.ParseQuery(`{ relay { node(id: "q") { id ... on relay_Query { viewerId: id } } } }`)
		require.NoError(t, err)
		res := executor.NewExecutor(e.Runtime, e.Schema).ExecuteRequest(context.Background(), doc, "", nil, nil)

		require.Empty(t, res.Errors)
		want := map[string]any{"relay": map[string]any{"node": map[string]any{"id": "q", "viewerId": "q"}}}
		if diff := cmp.Diff(want, res.Data); diff != "" {
			t.Fatalf("run %d: data mismatch (-want +got):\n%s", i, diff)
		}
	}
}

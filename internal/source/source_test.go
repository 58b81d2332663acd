package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	eventbus "github.com/kissu/gridsome-source-graphql-prismic/internal/eventbus"
	events "github.com/kissu/gridsome-source-graphql-prismic/internal/events"
	executor "github.com/kissu/gridsome-source-graphql-prismic/internal/executor"
	introspection "github.com/kissu/gridsome-source-graphql-prismic/internal/introspection"
	language "github.com/kissu/gridsome-source-graphql-prismic/internal/language"
	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	remotetest "github.com/kissu/gridsome-source-graphql-prismic/internal/remotetest"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
	transform "github.com/kissu/gridsome-source-graphql-prismic/internal/transform"
)

const blogSDL = `
type User { id: ID! name: String }
type Post { id: ID! title: String author: User }
type Query {
  user(id: ID!): User
  posts: [Post!]!
}
type Mutation { createPost(title: String!): Post }
`

func newBlog(t *testing.T) *remotetest.Server {
	return remotetest.New(t, blogSDL, map[string]executor.MockResolver{
		"Query.user": executor.NewMockValueResolver(map[string]any{"id": "1", "name": "Ada"}),
		"Query.posts": executor.NewMockValueResolver([]any{
			map[string]any{"id": "p1", "title": "Hello", "author": map[string]any{"id": "1", "name": "Ada"}},
		}),
	})
}

func execute(t *testing.T, frag *Fragment, query string) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	e := frag.Executable
	return executor.NewExecutor(e.Runtime, e.Schema).ExecuteRequest(context.Background(), doc, "", nil, nil)
}

func TestNewValidatesOptions(t *testing.T) {
	var cfgErr *ConfigurationError

	_, err := New(Options{FieldName: "blog"})
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "url", cfgErr.Option)

	_, err = New(Options{URL: "http://localhost"})
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "fieldName", cfgErr.Option)

	s, err := New(Options{URL: "http://localhost", FieldName: "blog"})
	require.NoError(t, err)
	require.Equal(t, "blog", s.Options().TypeName)
}

func TestBuildNamespacesRemoteSchema(t *testing.T) {
	remote := newBlog(t)
	s, err := New(Options{URL: remote.URL, FieldName: "blog"})
	require.NoError(t, err)

	frag, err := s.Build(context.Background()).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "blog", frag.FieldName)
	require.Equal(t, "blog", frag.TypeName)

	sch := frag.Executable.Schema
	require.Equal(t, []string{"blog"}, fieldNames(sch.Types["Query"]))
	require.ElementsMatch(t, []string{"user", "posts"}, fieldNames(sch.Types["blog"]))
	require.Contains(t, sch.Types, "blog_User")
	require.Contains(t, sch.Types, "blog_Post")
	require.NotContains(t, sch.Types, "User")
	require.NotContains(t, sch.Types, "Post")
	require.NotContains(t, sch.Types, "blog_Mutation")
	require.Empty(t, sch.MutationType)
	require.Contains(t, frag.Remote.Types, "Mutation")

	res := execute(t, frag, `{ blog { user(id: "1") { name } posts { title author { name } } } }`)
	require.Empty(t, res.Errors)
	want := map[string]any{"blog": map[string]any{
		"user":  map[string]any{"name": "Ada"},
		"posts": []any{map[string]any{"title": "Hello", "author": map[string]any{"name": "Ada"}}},
	}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	queries := remote.Queries()
	require.Len(t, queries, 2)
	for _, q := range queries {
		require.NotContains(t, q.Query, "blog_")
	}
}

func TestBuildUsesMasterRef(t *testing.T) {
	remote := newBlog(t)
	remote.MasterRef = "X"
	s, err := New(Options{URL: remote.URL, FieldName: "prismic", UseMasterRef: true, Headers: map[string]string{"Authorization": "Token t"}})
	require.NoError(t, err)

	frag, err := s.Build(context.Background()).Wait(context.Background())
	require.NoError(t, err)
	res := execute(t, frag, `{ prismic { user(id: "1") { id } } }`)
	require.Empty(t, res.Errors)

	reqs := remote.Requests()
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		require.Equal(t, "X", r.Header.Get(link.RefHeader))
		require.Equal(t, "Token t", r.Header.Get("Authorization"))
	}
	require.Equal(t, 1, remote.APIHits())
}

func TestBuildFailsWithoutMasterRef(t *testing.T) {
	remote := newBlog(t)
	s, err := New(Options{URL: remote.URL, FieldName: "prismic", UseMasterRef: true})
	require.NoError(t, err)

	_, err = s.Build(context.Background()).Wait(context.Background())
	var fetchErr *link.RemoteFetchError
	require.ErrorAs(t, err, &fetchErr)
	require.True(t, errors.Is(err, link.ErrNoMasterRef))
	require.Empty(t, remote.Requests())
}

func TestBuildFailsWithoutQueryType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"__schema":{
			"queryType":null,"mutationType":{"name":"Mutation"},"subscriptionType":null,"directives":[],
			"types":[{"kind":"OBJECT","name":"Mutation","fields":[{"name":"ping","args":[],"type":{"kind":"SCALAR","name":"String"}}]}]
		}}}`)
	}))
	t.Cleanup(srv.Close)
	s, err := New(Options{URL: srv.URL, FieldName: "blog"})
	require.NoError(t, err)

	frag, err := s.Build(context.Background()).Wait(context.Background())
	var shapeErr *transform.SchemaShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Nil(t, frag)
}

func TestBuildReportsIntrospectionFailure(t *testing.T) {
	remote := newBlog(t)
	remote.Close()
	s, err := New(Options{URL: remote.URL, FieldName: "blog"})
	require.NoError(t, err)

	_, err = s.Build(context.Background()).Wait(context.Background())
	var ie *introspection.IntrospectionError
	require.ErrorAs(t, err, &ie)
	var te *link.TransportError
	require.ErrorAs(t, err, &te)
}

func TestWaitHonoursContext(t *testing.T) {
	f := &Future{done: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildAllKeepsOrder(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	var mu sync.Mutex
	finished := map[string]int{}
	eventbus.Subscribe(func(_ context.Context, e events.SourceBuildFinish) {
		mu.Lock()
		defer mu.Unlock()
		require.NoError(t, e.Err)
		finished[e.Source] = e.Types
	})

	a, b := newBlog(t), newBlog(t)
	frags, err := BuildAll(context.Background(), []Options{
		{URL: a.URL, FieldName: "first"},
		{URL: b.URL, FieldName: "second", TypeName: "Second"},
	})
	require.NoError(t, err)
	require.Len(t, frags, 2)
	require.Equal(t, "first", frags[0].FieldName)
	require.Equal(t, "Second", frags[1].TypeName)
	require.Contains(t, frags[1].Executable.Schema.Types, "Second_User")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, finished, 2)
	require.Positive(t, finished["first"])
}

func TestBuildAllFailsAsAWhole(t *testing.T) {
	good := newBlog(t)
	bad := newBlog(t)
	bad.Close()

	frags, err := BuildAll(context.Background(), []Options{
		{URL: good.URL, FieldName: "good"},
		{URL: bad.URL, FieldName: "bad"},
	})
	require.Error(t, err)
	require.Nil(t, frags)

	_, err = BuildAll(context.Background(), []Options{{FieldName: "nourl"}})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func fieldNames(t *schema.Type) []string {
	var out []string
	for _, f := range t.Fields {
		out = append(out, f.Name)
	}
	return out
}

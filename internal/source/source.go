// Package source turns a remote GraphQL endpoint into a namespaced fragment
// that can be merged into a local schema.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	eventbus "github.com/kissu/gridsome-source-graphql-prismic/internal/eventbus"
	events "github.com/kissu/gridsome-source-graphql-prismic/internal/events"
	introspection "github.com/kissu/gridsome-source-graphql-prismic/internal/introspection"
	link "github.com/kissu/gridsome-source-graphql-prismic/internal/link"
	remotert "github.com/kissu/gridsome-source-graphql-prismic/internal/remotert"
	schema "github.com/kissu/gridsome-source-graphql-prismic/internal/schema"
	transform "github.com/kissu/gridsome-source-graphql-prismic/internal/transform"
)

// Fragment is the namespaced executable produced by a source.
type Fragment struct {
	FieldName  string
	TypeName   string
	Executable *remotert.Executable
	// Remote is the schema as introspected, before transforms.
	Remote *schema.Schema
}

// Source builds a Fragment from a remote endpoint.
type Source struct {
	opts   Options
	logger *zap.Logger
	client *http.Client
}

// New validates opts. It makes no network call.
func New(opts Options, o ...Option) (*Source, error) {
	opts, err := opts.validate()
	if err != nil {
		return nil, err
	}
	s := &Source{opts: opts, logger: zap.NewNop()}
	for _, f := range o {
		f(s)
	}
	s.logger = s.logger.With(zap.String("source", opts.FieldName))
	return s, nil
}

// Options returns the validated options, with defaults applied.
func (s *Source) Options() Options { return s.opts }

// Future is the pending result of Source.Build.
type Future struct {
	done chan struct{}
	frag *Fragment
	err  error
}

// Done is closed once the build finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the build finished or ctx is done.
func (f *Future) Wait(ctx context.Context) (*Fragment, error) {
	select {
	case <-f.done:
		return f.frag, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Build starts resolving the master ref, introspecting the remote schema and
// namespacing it. ctx bounds the whole build.
func (s *Source) Build(ctx context.Context) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.frag, f.err = s.build(ctx)
	}()
	return f
}

func (s *Source) build(ctx context.Context) (frag *Fragment, err error) {
	start := time.Now()
	eventbus.Publish(ctx, events.SourceBuildStart{Source: s.opts.FieldName, URL: s.opts.URL})
	defer func() {
		types := 0
		if frag != nil {
			types = len(frag.Executable.Schema.Types)
		}
		eventbus.Publish(ctx, events.SourceBuildFinish{
			Source:   s.opts.FieldName,
			URL:      s.opts.URL,
			Types:    types,
			Err:      err,
			Duration: time.Since(start),
		})
		if err != nil {
			s.logger.Error("source build failed", zap.Error(err))
			return
		}
		s.logger.Info("source ready", zap.Int("types", types), zap.Duration("duration", time.Since(start)))
	}()

	linkOpts := []link.Option{link.WithLogger(s.logger)}
	if s.client != nil {
		linkOpts = append(linkOpts, link.WithHTTPClient(s.client))
	}
	if s.opts.Timeout > 0 {
		linkOpts = append(linkOpts, link.WithTimeout(s.opts.Timeout))
	}
	l, err := link.New(ctx, s.opts.linkConfig(), linkOpts...)
	if err != nil {
		return nil, err
	}
	remote, err := introspection.Fetch(ctx, l)
	if err != nil {
		return nil, err
	}
	exec, err := transform.Namespace(remotert.Build(remote, l, remotert.WithLogger(s.logger)), s.opts.FieldName, s.opts.TypeName)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.opts.FieldName, err)
	}
	return &Fragment{
		FieldName:  s.opts.FieldName,
		TypeName:   s.opts.TypeName,
		Executable: exec,
		Remote:     remote,
	}, nil
}

// BuildAll builds every source concurrently and returns the fragments in the
// order of opts. The first failure cancels the remaining builds.
func BuildAll(ctx context.Context, opts []Options, o ...Option) ([]*Fragment, error) {
	sources := make([]*Source, len(opts))
	for i, opt := range opts {
		s, err := New(opt, o...)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		sources[i] = s
	}
	frags := make([]*Fragment, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sources {
		g.Go(func() error {
			frag, err := s.Build(gctx).Wait(gctx)
			if err != nil {
				return err
			}
			frags[i] = frag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frags, nil
}

// Package graphvec wires the graph store, embedder, vector index, translator
// and renderer into a workflow for library use without the MCP transport.
package graphvec

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/embeddings"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/graphstore"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/logging"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/render"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/server"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/translate"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/vectorindex"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/workflow"
)

// Option customises NewService.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	graph    workflow.GraphStore
	renderer render.Renderer
	wfOpts   []workflow.Option
}

// WithLogger sets the logger passed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGraphStore replaces the Neo4j store. The caller keeps ownership.
func WithGraphStore(g workflow.GraphStore) Option {
	return func(o *options) { o.graph = g }
}

// WithRenderer replaces the configured renderer.
func WithRenderer(r render.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithWorkflowOptions forwards options to workflow.New.
func WithWorkflowOptions(opts ...workflow.Option) Option {
	return func(o *options) { o.wfOpts = append(o.wfOpts, opts...) }
}

// Service owns the component handles and the workflow built on them.
type Service struct {
	wf     *workflow.Workflow
	info   server.Info
	logger *zap.Logger

	closers    []func(ctx context.Context) error
	waitRender func() error
}

// NewService builds every component described by cfg. Components opened
// before a failure are closed again.
func NewService(ctx context.Context, cfg *Config, opts ...Option) (svc *Service, err error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := logging.OrNop(o.logger)
	s := &Service{logger: logger, waitRender: func() error { return nil }}
	defer func() {
		if err != nil {
			_ = s.Close(ctx)
		}
	}()

	graph := o.graph
	if graph == nil {
		if err := cfg.Graph.Validate(); err != nil {
			return nil, err
		}
		store, err := graphstore.New(cfg.Graph, logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		if err := store.VerifyConnectivity(ctx); err != nil {
			return nil, err
		}
		graph = store
	}

	index, err := vectorindex.New(ctx, cfg.Index, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) error { return index.Close() })

	provider, err := embeddings.New(cfg.Embeddings)
	if err != nil {
		return nil, err
	}
	// an existing index table decides the vector length
	if d := index.Dimensions(); d != provider.Dimensions() {
		logger.Warn("adapting embeddings to index dimensions",
			zap.String("provider", provider.Name()),
			zap.Int("provider_dims", provider.Dimensions()),
			zap.Int("index_dims", d))
		provider = embeddings.WrapToDims(provider, d, cfg.Embeddings.AdaptMode)
	}
	if cfg.Cache {
		cached, client, err := embeddings.CacheFromEnv(provider)
		if err != nil {
			return nil, err
		}
		if client != nil {
			s.closers = append(s.closers, func(context.Context) error { return client.Close() })
		}
		provider = cached
	}

	translator := translate.Default()
	if cfg.RulesPath != "" {
		if translator, err = translate.LoadRules(cfg.RulesPath); err != nil {
			return nil, err
		}
	}

	renderer := o.renderer
	if renderer == nil {
		r, wait, err := render.New(cfg.RenderOutput, cfg.RenderAsync, logger)
		if err != nil {
			return nil, err
		}
		renderer, s.waitRender = r, wait
	}

	ids, err := workflow.IDSchemeByName(cfg.Workflow.IDScheme)
	if err != nil {
		return nil, err
	}
	wfOpts := append([]workflow.Option{workflow.WithLogger(logger), workflow.WithIDScheme(ids)}, o.wfOpts...)
	s.wf = workflow.New(cfg.Workflow, graph, embeddings.NewEmbedder(provider), index, translator, renderer, wfOpts...)
	s.info = server.Info{Provider: provider.Name(), EmbeddingDims: provider.Dimensions()}

	logger.Info("service ready",
		zap.String("vector_backend", cfg.Index.Backend),
		zap.String("provider", s.info.Provider),
		zap.Int("dims", s.info.EmbeddingDims),
		zap.String("namespace", cfg.Workflow.Namespace))
	return s, nil
}

// Workflow returns the underlying workflow.
func (s *Service) Workflow() *workflow.Workflow { return s.wf }

// Info describes the embedding provider in use.
func (s *Service) Info() server.Info { return s.info }

// Seed runs the configured seed statement.
func (s *Service) Seed(ctx context.Context) error { return s.wf.Seed(ctx) }

// Sync embeds every graph relationship into the configured namespace.
func (s *Service) Sync(ctx context.Context) (*apptype.SyncReport, error) { return s.wf.Sync(ctx) }

// Translate returns the graph statement for text.
func (s *Service) Translate(text string) string { return s.wf.Translate(text) }

// Query renders the graph records for text and returns the ranked vector matches.
func (s *Service) Query(ctx context.Context, text string) ([]apptype.Match, error) {
	return s.wf.Query(ctx, text)
}

// Run seeds, syncs and queries in one go.
func (s *Service) Run(ctx context.Context, text string) ([]apptype.Match, error) {
	return s.wf.Run(ctx, text)
}

// Close waits for pending renders and releases every component in reverse
// order of construction.
func (s *Service) Close(ctx context.Context) error {
	errs := []error{s.waitRender()}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	s.closers = nil
	return errors.Join(errs...)
}

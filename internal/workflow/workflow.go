// Package workflow wires the graph store, embedder, vector index, translator
// and renderer into the seed, sync and combined-query pipeline.
package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

// GraphStore reads and writes the property graph.
type GraphStore interface {
	Execute(ctx context.Context, statement string) error
	FetchAll(ctx context.Context) ([]apptype.GraphRecord, error)
	FetchFiltered(ctx context.Context, statement string) ([]apptype.GraphRecord, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores and searches vectors by namespace.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, entries []apptype.IndexEntry) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]apptype.Match, error)
	Prune(ctx context.Context, namespace string, keep []string) (int, error)
}

// Translator maps query text to a graph statement.
type Translator interface {
	Translate(text string) string
}

// Renderer presents graph records.
type Renderer interface {
	Render(ctx context.Context, records []apptype.GraphRecord) error
}

// Request is a combined query. Zero Namespace and TopK fall back to the config.
type Request struct {
	Text      string
	Namespace string
	TopK      int
}

// Retrieval is everything a combined query computes. Answer hands Records to
// the renderer and returns only Matches.
type Retrieval struct {
	RunID     string                `json:"runId"`
	Statement string                `json:"statement"`
	Records   []apptype.GraphRecord `json:"records"`
	Matches   []apptype.Match       `json:"matches"`
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTracer sets the tracer used for step spans.
func WithTracer(t trace.Tracer) Option {
	return func(w *Workflow) {
		if t != nil {
			w.tracer = t
		}
	}
}

// WithErrorHandler replaces FailFast.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Workflow) {
		if h != nil {
			w.onError = h
		}
	}
}

// WithIDScheme sets how synced records are assigned index ids.
func WithIDScheme(f IDFunc) Option {
	return func(w *Workflow) {
		if f != nil {
			w.ids = f
			w.idsSet = true
		}
	}
}

// Workflow runs the pipeline steps strictly in sequence.
type Workflow struct {
	cfg        Config
	graph      GraphStore
	embedder   Embedder
	index      VectorIndex
	translator Translator
	renderer   Renderer

	logger  *zap.Logger
	tracer  trace.Tracer
	onError ErrorHandler
	ids     IDFunc
	idsSet  bool
}

// New builds a Workflow. All collaborators are required.
func New(cfg *Config, graph GraphStore, embedder Embedder, index VectorIndex, translator Translator, renderer Renderer, opts ...Option) *Workflow {
	c := *cfg
	if c.Namespace == "" {
		c.Namespace = NewConfig().Namespace
	}
	if c.SeedStatement == "" {
		c.SeedStatement = DefaultSeedStatement
	}
	w := &Workflow{
		cfg:        c,
		graph:      graph,
		embedder:   embedder,
		index:      index,
		translator: translator,
		renderer:   renderer,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("github.com/ZanzyTHEbar/graphvec-bridge-go/internal/workflow"),
		onError:    FailFast,
		ids:        ContentIDs,
	}
	ids, idErr := IDSchemeByName(c.IDScheme)
	if idErr == nil {
		w.ids = ids
	}
	for _, opt := range opts {
		opt(w)
	}
	if idErr != nil && !w.idsSet {
		w.logger.Warn("unknown id scheme, using content ids",
			zap.String("id_scheme", c.IDScheme), zap.Error(idErr))
	}
	return w
}

// Namespace is the default namespace for Sync and Answer.
func (w *Workflow) Namespace() string { return w.cfg.Namespace }

// Translate exposes the configured translator.
func (w *Workflow) Translate(text string) string { return w.translator.Translate(text) }

type run struct {
	id  string
	log *zap.Logger
}

func (w *Workflow) newRun(op string) *run {
	id := uuid.NewString()
	return &run{id: id, log: w.logger.With(zap.String("run_id", id), zap.String("op", op))}
}

// step runs fn inside a span, times it and routes failures through the
// error handler. A recovered failure returns nil and fn's outputs stay empty.
func (w *Workflow) step(ctx context.Context, r *run, name Step, fn func(ctx context.Context) error) error {
	ctx, span := w.tracer.Start(ctx, "workflow."+string(name),
		trace.WithAttributes(attribute.String("workflow.run_id", r.id)))
	defer span.End()
	done := metrics.TimeOp("workflow_" + string(name))

	err := fn(ctx)
	if err == nil {
		done(true)
		return nil
	}
	done(false)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	serr := &StepError{Step: name, Err: err}
	if herr := w.onError(ctx, serr); herr != nil {
		r.log.Error("step failed", zap.String("step", string(name)), zap.Error(err))
		return herr
	}
	r.log.Warn("step failed, continuing with empty result", zap.String("step", string(name)), zap.Error(err))
	return nil
}

// Seed executes the configured seed statement.
func (w *Workflow) Seed(ctx context.Context) error {
	return w.seed(ctx, w.newRun("seed"))
}

func (w *Workflow) seed(ctx context.Context, r *run) error {
	err := w.step(ctx, r, StepSeed, func(ctx context.Context) error {
		return w.graph.Execute(ctx, w.cfg.SeedStatement)
	})
	if err == nil {
		r.log.Info("graph seeded")
	}
	return err
}

// Sync embeds every edge of the graph into the default namespace.
func (w *Workflow) Sync(ctx context.Context) (*apptype.SyncReport, error) {
	return w.SyncNamespace(ctx, "")
}

// SyncNamespace embeds every edge of the graph into namespace.
func (w *Workflow) SyncNamespace(ctx context.Context, namespace string) (*apptype.SyncReport, error) {
	return w.sync(ctx, w.newRun("sync"), namespace)
}

func (w *Workflow) sync(ctx context.Context, r *run, namespace string) (*apptype.SyncReport, error) {
	if namespace == "" {
		namespace = w.cfg.Namespace
	}
	report := &apptype.SyncReport{Namespace: namespace, IDs: []string{}}

	var records []apptype.GraphRecord
	if err := w.step(ctx, r, StepFetch, func(ctx context.Context) error {
		recs, err := w.graph.FetchAll(ctx)
		if err != nil {
			return err
		}
		records = recs
		return nil
	}); err != nil {
		return nil, err
	}
	report.Records = len(records)

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text()
	}
	var vectors [][]float32
	if err := w.step(ctx, r, StepEmbed, func(ctx context.Context) error {
		vecs, err := w.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("embedded %d of %d records", len(vecs), len(texts))
		}
		vectors = vecs
		return nil
	}); err != nil {
		return nil, err
	}
	report.Embedded = len(vectors)

	entries := make([]apptype.IndexEntry, 0, len(vectors))
	for i, v := range vectors {
		entries = append(entries, apptype.IndexEntry{ID: w.ids(i, records[i]), Vector: v, Text: texts[i]})
	}
	var upserted []string
	if err := w.step(ctx, r, StepUpsert, func(ctx context.Context) error {
		if err := w.index.Upsert(ctx, namespace, entries); err != nil {
			return err
		}
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if w.cfg.Prune && len(ids) > 0 {
			removed, err := w.index.Prune(ctx, namespace, ids)
			if err != nil {
				return fmt.Errorf("prune: %w", err)
			}
			if removed > 0 {
				r.log.Info("pruned stale vectors", zap.Int("removed", removed))
			}
		}
		upserted = ids
		return nil
	}); err != nil {
		return nil, err
	}
	report.Upserted = len(upserted)
	report.IDs = append(report.IDs, upserted...)

	r.log.Info("graph synced",
		zap.String("namespace", namespace),
		zap.Int("records", report.Records),
		zap.Int("upserted", report.Upserted))
	return report, nil
}

// Retrieve translates req.Text, fetches the matching graph records, embeds
// the text and searches the index. Nothing is rendered.
func (w *Workflow) Retrieve(ctx context.Context, req Request) (*Retrieval, error) {
	return w.retrieve(ctx, w.newRun("retrieve"), req)
}

func (w *Workflow) retrieve(ctx context.Context, r *run, req Request) (*Retrieval, error) {
	namespace := req.Namespace
	if namespace == "" {
		namespace = w.cfg.Namespace
	}
	topK := req.TopK
	if topK <= 0 {
		topK = w.cfg.TopK
	}
	out := &Retrieval{
		RunID:     r.id,
		Statement: w.translator.Translate(req.Text),
		Records:   []apptype.GraphRecord{},
		Matches:   []apptype.Match{},
	}
	r.log.Debug("query translated", zap.String("text", req.Text), zap.String("statement", out.Statement))

	if err := w.step(ctx, r, StepFetch, func(ctx context.Context) error {
		recs, err := w.graph.FetchFiltered(ctx, out.Statement)
		if err != nil {
			return err
		}
		out.Records = recs
		return nil
	}); err != nil {
		return nil, err
	}

	var vector []float32
	if err := w.step(ctx, r, StepEmbed, func(ctx context.Context) error {
		v, err := w.embedder.Embed(ctx, req.Text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	}); err != nil {
		return nil, err
	}

	if vector != nil {
		if err := w.step(ctx, r, StepQuery, func(ctx context.Context) error {
			matches, err := w.index.Query(ctx, namespace, vector, topK)
			if err != nil {
				return err
			}
			out.Matches = matches
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Answer runs Retrieve, renders the graph records and returns only the
// ranked vector matches.
func (w *Workflow) Answer(ctx context.Context, req Request) ([]apptype.Match, error) {
	return w.answer(ctx, w.newRun("answer"), req)
}

func (w *Workflow) answer(ctx context.Context, r *run, req Request) ([]apptype.Match, error) {
	res, err := w.retrieve(ctx, r, req)
	if err != nil {
		return nil, err
	}
	if err := w.step(ctx, r, StepRender, func(ctx context.Context) error {
		return w.renderer.Render(ctx, res.Records)
	}); err != nil {
		return nil, err
	}
	r.log.Info("query answered",
		zap.String("statement", res.Statement),
		zap.Int("records", len(res.Records)),
		zap.Int("matches", len(res.Matches)))
	return res.Matches, nil
}

// Query is Answer with the configured namespace and topK.
func (w *Workflow) Query(ctx context.Context, text string) ([]apptype.Match, error) {
	return w.Answer(ctx, Request{Text: text})
}

// Run seeds the graph, syncs it into the index and answers text, in that order.
func (w *Workflow) Run(ctx context.Context, text string) ([]apptype.Match, error) {
	r := w.newRun("run")
	r.log.Info("workflow started", zap.String("query", text))
	if err := w.seed(ctx, r); err != nil {
		return nil, err
	}
	if _, err := w.sync(ctx, r, ""); err != nil {
		return nil, err
	}
	return w.answer(ctx, r, Request{Text: text})
}

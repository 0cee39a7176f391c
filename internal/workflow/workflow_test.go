package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/embeddings"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/testutil"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/translate"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/vectorindex"
)

const dims = 384

type fixture struct {
	graph    *testutil.GraphStub
	index    *vectorindex.MemoryIndex
	renderer *testutil.RendererSpy
	wf       *Workflow
}

func newFixture(t *testing.T, cfg *Config, opts ...Option) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = &Config{Namespace: vectorindex.DefaultNamespace, TopK: 5, SeedStatement: DefaultSeedStatement}
	}
	f := &fixture{
		graph:    &testutil.GraphStub{SeedStatement: cfg.SeedStatement},
		index:    vectorindex.NewMemoryIndex(dims),
		renderer: &testutil.RendererSpy{},
	}
	emb := embeddings.NewEmbedder(embeddings.NewHashProvider(dims))
	f.wf = New(cfg, f.graph, emb, f.index, translate.Default(), f.renderer, opts...)
	return f
}

func TestRunRoundTripPositional(t *testing.T) {
	f := newFixture(t, nil, WithIDScheme(PositionalIDs))
	ctx := context.Background()

	require.NoError(t, f.wf.Seed(ctx))
	report, err := f.wf.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 1, report.Embedded)
	assert.Equal(t, []string{"0"}, report.IDs)

	vec, err := embeddings.NewEmbedder(embeddings.NewHashProvider(dims)).Embed(ctx, "Nob KNOWS Biru")
	require.NoError(t, err)
	require.Len(t, vec, dims)
	matches, err := f.index.Query(ctx, vectorindex.DefaultNamespace, vec, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "0", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, "Nob KNOWS Biru", matches[0].Text)
}

func TestRunAsymmetry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	matches, err := f.wf.Run(ctx, "Find all persons")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ContentIDs(0, testutil.NobKnowsBiru()), matches[0].ID)

	// graph records went to the renderer, not the caller
	require.Equal(t, 1, f.renderer.CallCount())
	rendered := f.renderer.Rendered()
	require.Len(t, rendered, 2)
	assert.Equal(t, "Nob", rendered[0].Subject.Name)
	assert.Equal(t, "Biru", rendered[1].Subject.Name)

	stmts := f.graph.Statements()
	assert.Equal(t, []string{DefaultSeedStatement, "MATCH (n:Person) RETURN n"}, stmts)
}

func TestRetrieveDoesNotRender(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.wf.Seed(ctx))
	_, err := f.wf.Sync(ctx)
	require.NoError(t, err)

	res, err := f.wf.Retrieve(ctx, Request{Text: "everything", TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) RETURN n", res.Statement)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Records, 2)
	assert.Len(t, res.Matches, 1)
	assert.Zero(t, f.renderer.CallCount())
}

func TestSyncEmptyGraph(t *testing.T) {
	f := newFixture(t, nil)
	report, err := f.wf.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Records)
	assert.Zero(t, report.Upserted)
	assert.Empty(t, report.IDs)

	n, err := f.index.Count(context.Background(), vectorindex.DefaultNamespace)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAnswerBeforeSyncFailsAtQueryStep(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.wf.Query(context.Background(), "Find all persons")
	require.Error(t, err)

	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepQuery, serr.Step)
	assert.ErrorIs(t, err, apptype.ErrNamespaceNotFound)
	assert.Zero(t, f.renderer.CallCount())
}

func TestFailFastNamesStep(t *testing.T) {
	f := newFixture(t, nil)
	boom := errors.New("bolt connection refused")
	f.graph.FetchErr = boom

	_, err := f.wf.Sync(context.Background())
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepFetch, serr.Step)
	assert.ErrorIs(t, err, boom)

	f.graph.FetchErr = nil
	f.graph.ExecuteErr = boom
	_, err = f.wf.Run(context.Background(), "x")
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepSeed, serr.Step)
}

func TestErrorHandlerRecovers(t *testing.T) {
	var seen []Step
	handler := func(_ context.Context, err *StepError) error {
		seen = append(seen, err.Step)
		return nil
	}
	f := newFixture(t, nil, WithErrorHandler(handler))
	f.graph.FetchErr = errors.New("unreachable")

	report, err := f.wf.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Records)

	matches, err := f.wf.Query(context.Background(), "Find all persons")
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 1, f.renderer.CallCount())
	assert.Empty(t, f.renderer.Rendered())
	assert.Equal(t, []Step{StepFetch, StepFetch, StepQuery}, seen)
}

func TestErrorHandlerAborts(t *testing.T) {
	stop := errors.New("stop")
	f := newFixture(t, nil, WithErrorHandler(func(context.Context, *StepError) error { return stop }))
	f.renderer.Err = errors.New("no display")
	require.NoError(t, f.wf.Seed(context.Background()))
	_, err := f.wf.Sync(context.Background())
	require.NoError(t, err)

	_, err = f.wf.Query(context.Background(), "Find all persons")
	assert.ErrorIs(t, err, stop)
}

func TestSyncPrunesStaleEntries(t *testing.T) {
	cfg := &Config{Namespace: "ns", TopK: 5, SeedStatement: DefaultSeedStatement, Prune: true}
	f := newFixture(t, cfg)
	ctx := context.Background()
	stale := make([]float32, dims)
	stale[0] = 1
	require.NoError(t, f.index.Upsert(ctx, "ns", []apptype.IndexEntry{{ID: "rel:gone", Vector: stale}}))

	require.NoError(t, f.wf.Seed(ctx))
	report, err := f.wf.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Upserted)

	n, err := f.index.Count(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestContentIDsAreIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.wf.Seed(ctx))
	first, err := f.wf.Sync(ctx)
	require.NoError(t, err)
	second, err := f.wf.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.IDs, second.IDs)

	n, err := f.index.Count(ctx, vectorindex.DefaultNamespace)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStepSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	f := newFixture(t, nil, WithTracer(tp.Tracer("test")))
	_, err := f.wf.Run(context.Background(), "Find all persons")
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"workflow.seed",
		"workflow.fetch", "workflow.embed", "workflow.upsert",
		"workflow.fetch", "workflow.embed", "workflow.query", "workflow.render",
	}, names)
}

func TestIDSchemes(t *testing.T) {
	rec := testutil.NobKnowsBiru()
	id := ContentIDs(7, rec)
	assert.Regexp(t, `^rel:[A-Za-z0-9_-]{16}$`, id)
	assert.Equal(t, id, ContentIDs(0, rec))
	assert.NotEqual(t, id, ContentIDs(0, testutil.Triple("Biru", "KNOWS", "Nob")))
	assert.Equal(t, "3", PositionalIDs(3, rec))

	f, err := IDSchemeByName(SchemePositional)
	require.NoError(t, err)
	assert.Equal(t, "0", f(0, rec))
	_, err = IDSchemeByName("uuid")
	require.Error(t, err)
}

func TestUnknownIDSchemeIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := &Config{Namespace: vectorindex.DefaultNamespace, TopK: 5, SeedStatement: DefaultSeedStatement, IDScheme: "uuid"}
	f := newFixture(t, cfg, WithLogger(zap.New(core)))

	require.Equal(t, 1, logs.FilterMessage("unknown id scheme, using content ids").Len())
	matches, err := f.wf.Run(context.Background(), "Find all persons")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ContentIDs(0, testutil.NobKnowsBiru()), matches[0].ID)

	// an explicit scheme wins and nothing is logged
	core, logs = observer.New(zap.WarnLevel)
	newFixture(t, cfg, WithLogger(zap.New(core)), WithIDScheme(PositionalIDs))
	assert.Equal(t, 0, logs.Len())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("NAMESPACE", "")
	t.Setenv("TOP_K", "")
	t.Setenv("SEED_STATEMENT", "")
	t.Setenv("ID_SCHEME", "")
	t.Setenv("SYNC_PRUNE", "")
	cfg := NewConfig()
	assert.Equal(t, "neo4j-data", cfg.Namespace)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, DefaultSeedStatement, cfg.SeedStatement)
	assert.Equal(t, SchemeContent, cfg.IDScheme)
	assert.False(t, cfg.Prune)

	t.Setenv("ID_SCHEME", "Positional")
	t.Setenv("SYNC_PRUNE", "1")
	t.Setenv("TOP_K", "9")
	cfg = NewConfig()
	assert.Equal(t, SchemePositional, cfg.IDScheme)
	assert.True(t, cfg.Prune)
	assert.Equal(t, 9, cfg.TopK)
}

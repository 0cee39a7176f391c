package graphvec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/embeddings"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/graphstore"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/testutil"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/vectorindex"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/workflow"
)

func testConfig(t *testing.T, dims int) *Config {
	t.Helper()
	return &Config{
		Graph:      graphstore.NewConfig(),
		Embeddings: &embeddings.Config{Provider: "hash", Dims: dims},
		Index:      &vectorindex.Config{Backend: vectorindex.BackendMemory, EmbeddingDims: dims},
		Workflow: &workflow.Config{
			Namespace:     vectorindex.DefaultNamespace,
			TopK:          vectorindex.DefaultTopK,
			SeedStatement: workflow.DefaultSeedStatement,
		},
		RenderOutput: "none",
	}
}

func TestServiceRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, 32)
	graph := &testutil.GraphStub{SeedStatement: cfg.Workflow.SeedStatement}

	svc, err := NewService(ctx, cfg, WithGraphStore(graph))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close(ctx)) }()

	assert.Equal(t, "hash", svc.Info().Provider)
	assert.Equal(t, 32, svc.Info().EmbeddingDims)
	assert.Equal(t, "MATCH (n:Person) RETURN n", svc.Translate("any person"))

	matches, err := svc.Run(ctx, "Find all persons")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, workflow.ContentIDs(0, testutil.NobKnowsBiru()), matches[0].ID)
	assert.Equal(t, []string{workflow.DefaultSeedStatement, "MATCH (n:Person) RETURN n"}, graph.Executed)
}

func TestServiceAdoptsIndexDims(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, 64)
	cfg.Index.EmbeddingDims = 16

	svc, err := NewService(ctx, cfg, WithGraphStore(&testutil.GraphStub{SeedStatement: cfg.Workflow.SeedStatement}))
	require.NoError(t, err)
	defer svc.Close(ctx)

	assert.Equal(t, 16, svc.Info().EmbeddingDims)
	require.NoError(t, svc.Seed(ctx))
	report, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Upserted)
}

func TestServiceRendersToFile(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, 16)
	cfg.RenderOutput = filepath.Join(t.TempDir(), "graph.dot")
	cfg.RenderAsync = true

	svc, err := NewService(ctx, cfg, WithGraphStore(&testutil.GraphStub{SeedStatement: cfg.Workflow.SeedStatement}))
	require.NoError(t, err)
	_, err = svc.Run(ctx, "Find all persons")
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx))

	data, err := os.ReadFile(cfg.RenderOutput)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Nob")
}

func TestServiceCache(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())

	ctx := context.Background()
	cfg := testConfig(t, 16)
	cfg.Cache = true
	svc, err := NewService(ctx, cfg, WithGraphStore(&testutil.GraphStub{SeedStatement: cfg.Workflow.SeedStatement}))
	require.NoError(t, err)
	defer svc.Close(ctx)

	_, err = svc.Run(ctx, "Find all persons")
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
}

func TestServiceErrors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t, 16)
	cfg.Workflow.IDScheme = "sequential"
	_, err := NewService(ctx, cfg, WithGraphStore(&testutil.GraphStub{}))
	require.Error(t, err)

	cfg = testConfig(t, 16)
	cfg.Index.Backend = "pinecone"
	_, err = NewService(ctx, cfg, WithGraphStore(&testutil.GraphStub{}))
	require.Error(t, err)

	cfg = testConfig(t, 16)
	cfg.Graph.Password = ""
	_, err = NewService(ctx, cfg)
	require.Error(t, err)
}

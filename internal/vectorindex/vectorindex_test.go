package vectorindex

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

var dbSeq atomic.Int64

func setupTestIndex(t *testing.T, dims int) *LibSQLIndex {
	t.Helper()
	cfg := NewConfig()
	// cache=shared lets every pooled connection see the same in-memory database
	cfg.URL = fmt.Sprintf("file:vectest%d?mode=memory&cache=shared", dbSeq.Add(1))
	cfg.EmbeddingDims = dims
	idx, err := OpenLibSQL(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, idx.Close()) })
	return idx
}

// setupFileIndex opens a file-backed database, where the vector_top_k probe runs.
func setupFileIndex(t *testing.T, dims, overfetch int) *LibSQLIndex {
	t.Helper()
	cfg := NewConfig()
	cfg.URL = "file:" + filepath.Join(t.TempDir(), "vectors.db")
	cfg.EmbeddingDims = dims
	cfg.ANNOverfetch = overfetch
	idx, err := OpenLibSQL(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, idx.Close()) })
	return idx
}

// backends runs fn against the libSQL (in-memory and file) and in-memory implementations.
func backends(t *testing.T, dims int, fn func(t *testing.T, idx Index)) {
	t.Run("libsql", func(t *testing.T) { fn(t, setupTestIndex(t, dims)) })
	t.Run("libsql-file", func(t *testing.T) { fn(t, setupFileIndex(t, dims, 10)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryIndex(dims)) })
}

func unit(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestUpsertThenQuerySelfMatch(t *testing.T) {
	backends(t, 4, func(t *testing.T, idx Index) {
		ctx := context.Background()
		require.NoError(t, idx.Upsert(ctx, "ns", []apptype.IndexEntry{
			{ID: "a", Vector: unit(4, 0), Text: "Nob KNOWS Biru"},
			{ID: "b", Vector: []float32{0.7, 0.7, 0, 0}},
			{ID: "c", Vector: unit(4, 2)},
		}))

		matches, err := idx.Query(ctx, "ns", unit(4, 0), 3)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "a", matches[0].ID)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
		assert.Equal(t, "Nob KNOWS Biru", matches[0].Text)
		assert.Equal(t, "b", matches[1].ID)
		assert.Equal(t, "c", matches[2].ID)
		assert.InDelta(t, 0.0, matches[2].Score, 1e-5)
	})
}

func TestUpsertOverwrites(t *testing.T) {
	backends(t, 4, func(t *testing.T, idx Index) {
		ctx := context.Background()
		require.NoError(t, idx.Upsert(ctx, "ns", []apptype.IndexEntry{{ID: "a", Vector: unit(4, 0), Text: "old"}}))
		require.NoError(t, idx.Upsert(ctx, "ns", []apptype.IndexEntry{{ID: "a", Vector: unit(4, 1), Text: "new"}}))

		n, err := idx.Count(ctx, "ns")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		matches, err := idx.Query(ctx, "ns", unit(4, 1), 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "new", matches[0].Text)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	})
}

func TestEmptyUpsertIsNoop(t *testing.T) {
	backends(t, 4, func(t *testing.T, idx Index) {
		ctx := context.Background()
		require.NoError(t, idx.Upsert(ctx, "ns", nil))
		require.NoError(t, idx.Upsert(ctx, "ns", []apptype.IndexEntry{}))
		n, err := idx.Count(ctx, "ns")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestQueryUnknownNamespace(t *testing.T) {
	backends(t, 4, func(t *testing.T, idx Index) {
		ctx := context.Background()
		_, err := idx.Query(ctx, "missing", unit(4, 0), 5)
		assert.ErrorIs(t, err, apptype.ErrNamespaceNotFound)

		_, err = idx.Query(ctx, "", unit(4, 0), 5)
		assert.ErrorIs(t, err, apptype.ErrNamespaceNotFound)
	})
}

func TestDimensionMismatch(t *testing.T) {
	backends(t, 4, func(t *testing.T, idx Index) {
		ctx := context.Background()
		err := idx.Upsert(ctx, "ns", []apptype.IndexEntry{{ID: "a", Vector: []float32{1, 2}}})
		assert.ErrorIs(t, err, apptype.ErrDimensionMismatch)

		require.NoError(t, idx.Upsert(ctx, "ns", []apptype.IndexEntry{{ID: "a", Vector: unit(4, 0)}}))
		_, err = idx.Query(ctx, "ns", []float32{1}, 5)
		assert.ErrorIs(t, err, apptype.ErrDimensionMismatch)

		err = idx.Upsert(ctx, "ns", []apptype.IndexEntry{{ID: " ", Vector: unit(4, 0)}})
		require.Error(t, err)
	})
}

func TestTopKDefaultsToFive(t *testing.T) {
	backends(t, 8, func(t *testing.T, idx Index) {
		ctx := context.Background()
		entries := make([]apptype.IndexEntry, 8)
		for i := range entries {
			entries[i] = apptype.IndexEntry{ID: fmt.Sprintf("e%d", i), Vector: unit(8, i)}
		}
		require.NoError(t, idx.Upsert(ctx, "ns", entries))
		matches, err := idx.Query(ctx, "ns", unit(8, 3), 0)
		require.NoError(t, err)
		assert.Len(t, matches, DefaultTopK)
		assert.Equal(t, "e3", matches[0].ID)
	})
}

func TestNamespacesAreIsolated(t *testing.T) {
	backends(t, 4, func(t *testing.T, idx Index) {
		ctx := context.Background()
		require.NoError(t, idx.Upsert(ctx, "one", []apptype.IndexEntry{{ID: "x", Vector: unit(4, 0)}}))
		require.NoError(t, idx.Upsert(ctx, "two", []apptype.IndexEntry{{ID: "y", Vector: unit(4, 0)}}))

		matches, err := idx.Query(ctx, "one", unit(4, 0), 5)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "x", matches[0].ID)

		require.NoError(t, idx.DeleteNamespace(ctx, "one"))
		_, err = idx.Query(ctx, "one", unit(4, 0), 5)
		assert.ErrorIs(t, err, apptype.ErrNamespaceNotFound)
		n, err := idx.Count(ctx, "two")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestPrune(t *testing.T) {
	backends(t, 4, func(t *testing.T, idx Index) {
		ctx := context.Background()
		require.NoError(t, idx.Upsert(ctx, "ns", []apptype.IndexEntry{
			{ID: "keep", Vector: unit(4, 0)},
			{ID: "stale1", Vector: unit(4, 1)},
			{ID: "stale2", Vector: unit(4, 2)},
		}))
		removed, err := idx.Prune(ctx, "ns", []string{"keep"})
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		n, err := idx.Count(ctx, "ns")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		removed, err = idx.Prune(ctx, "ns", []string{"keep"})
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}

func TestRoundTripPositionalID(t *testing.T) {
	backends(t, 384, func(t *testing.T, idx Index) {
		ctx := context.Background()
		v := make([]float32, 384)
		for i := range v {
			v[i] = float32(i%7) - 3
		}
		require.NoError(t, idx.Upsert(ctx, DefaultNamespace, []apptype.IndexEntry{{ID: "0", Vector: v, Text: "Nob KNOWS Biru"}}))
		matches, err := idx.Query(ctx, DefaultNamespace, v, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "0", matches[0].ID)
	})
}

func TestLibSQLGetDecodesBlob(t *testing.T) {
	idx := setupTestIndex(t, 4)
	ctx := context.Background()
	want := []float32{0.25, -1.5, 3, 0}
	require.NoError(t, idx.Upsert(ctx, "ns", []apptype.IndexEntry{{ID: "a", Vector: want, Text: "t"}}))

	got, err := idx.Get(ctx, "ns", "a")
	require.NoError(t, err)
	assert.Equal(t, want, got.Vector)
	assert.Equal(t, "t", got.Text)

	_, err = idx.Get(ctx, "ns", "missing")
	require.Error(t, err)
}

func TestLibSQLAdoptsExistingDims(t *testing.T) {
	cfg := NewConfig()
	cfg.URL = fmt.Sprintf("file:vecdims%d?mode=memory&cache=shared", dbSeq.Add(1))
	cfg.EmbeddingDims = 4
	first, err := OpenLibSQL(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer first.Close()

	cfg2 := *cfg
	cfg2.EmbeddingDims = 8
	second, err := OpenLibSQL(context.Background(), &cfg2, nil)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, 4, second.Dimensions())
}

func TestOpenLibSQLRejectsBadDims(t *testing.T) {
	cfg := NewConfig()
	cfg.URL = "file:baddims?mode=memory&cache=shared"
	cfg.EmbeddingDims = 0
	_, err := OpenLibSQL(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestVectorStringRoundTrip(t *testing.T) {
	s, sanitized := vectorToString([]float32{0.1, -2, float32(nanValue())})
	assert.Equal(t, 1, sanitized)
	assert.Equal(t, "[0.1,-2,0]", s)

	v, err := parseVectorString(s)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, -2, 0}, v)

	_, err = parseVectorString("0.1,0.2")
	require.Error(t, err)
}

func TestConnURL(t *testing.T) {
	assert.Equal(t, "file:x.db", connURL(&Config{URL: "file:x.db", AuthToken: "tok"}))
	assert.Equal(t, "libsql://db.example.com?authToken=tok", connURL(&Config{URL: "libsql://db.example.com", AuthToken: "tok"}))
	assert.Equal(t, "libsql://db.example.com", connURL(&Config{URL: "libsql://db.example.com"}))
}

func TestNewSelectsBackend(t *testing.T) {
	idx, err := New(context.Background(), &Config{Backend: BackendMemory, EmbeddingDims: 3}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryIndex{}, idx)
	assert.Equal(t, 3, idx.Dimensions())

	_, err = New(context.Background(), &Config{Backend: "pinecone", EmbeddingDims: 3}, nil)
	require.Error(t, err)

	_, err = New(context.Background(), &Config{Backend: BackendPGVector, EmbeddingDims: 3}, nil)
	require.Error(t, err)
}

func TestLibSQLFileUsesANN(t *testing.T) {
	idx := setupFileIndex(t, 4, 10)
	assert.True(t, idx.useANN())
	assert.False(t, setupTestIndex(t, 4).useANN())
}

func TestANNFallsBackWhenNamespaceIsCrowdedOut(t *testing.T) {
	// overfetch 1 means vector_top_k returns only topK global candidates
	idx := setupFileIndex(t, 4, 1)
	require.True(t, idx.useANN())
	ctx := context.Background()

	crowd := make([]apptype.IndexEntry, 0, 20)
	for i := 0; i < 20; i++ {
		crowd = append(crowd, apptype.IndexEntry{
			ID:     fmt.Sprintf("c%02d", i),
			Vector: []float32{1, float32(i) / 100, 0, 0},
		})
	}
	require.NoError(t, idx.Upsert(ctx, "crowd", crowd))
	require.NoError(t, idx.Upsert(ctx, "ns", []apptype.IndexEntry{
		{ID: "far", Vector: unit(4, 3), Text: "only entry"},
	}))

	matches, err := idx.Query(ctx, "ns", unit(4, 0), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "far", matches[0].ID)
	assert.InDelta(t, 0.0, matches[0].Score, 1e-5)

	// the crowding namespace still answers from the ANN path
	matches, err = idx.Query(ctx, "crowd", unit(4, 0), 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, m := range matches {
		assert.Greater(t, m.Score, 0.9)
	}
	assert.True(t, idx.useANN())
}

package vectorindex

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

func seedBench(b *testing.B, idx Index, n, dims int) {
	b.Helper()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	batch := make([]apptype.IndexEntry, 0, 200)
	flush := func() {
		if err := idx.Upsert(ctx, DefaultNamespace, batch); err != nil {
			b.Fatalf("Upsert: %v", err)
		}
		batch = batch[:0]
	}
	for i := range n {
		v := make([]float32, dims)
		for d := range v {
			v[d] = rng.Float32()
		}
		batch = append(batch, apptype.IndexEntry{ID: "e_" + strconv.Itoa(i), Vector: v, Text: "bench data"})
		if len(batch) == cap(batch) {
			flush()
		}
	}
	if len(batch) > 0 {
		flush()
	}
}

func benchQuery(b *testing.B, idx Index, dims int) {
	q := make([]float32, dims)
	for i := range q {
		q[i] = float32(i) / float32(dims)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Query(ctx, DefaultNamespace, q, 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQueryLibSQL(b *testing.B) {
	cfg := NewConfig()
	cfg.URL = fmt.Sprintf("file:benchdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	cfg.EmbeddingDims = 32
	idx, err := OpenLibSQL(context.Background(), cfg, nil)
	if err != nil {
		b.Fatalf("OpenLibSQL: %v", err)
	}
	defer idx.Close()
	seedBench(b, idx, 2000, 32)
	benchQuery(b, idx, 32)
}

func BenchmarkQueryMemory(b *testing.B) {
	idx := NewMemoryIndex(32)
	seedBench(b, idx, 2000, 32)
	benchQuery(b, idx, 32)
}

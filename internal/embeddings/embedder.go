package embeddings

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

// Embedder turns text into fixed-length vectors through a Provider and
// checks what comes back.
type Embedder struct {
	provider Provider
}

// NewEmbedder wraps p.
func NewEmbedder(p Provider) *Embedder {
	return &Embedder{provider: p}
}

// Provider returns the underlying provider.
func (e *Embedder) Provider() Provider { return e.provider }

// Dimensions is the length of every vector produced.
func (e *Embedder) Dimensions() int { return e.provider.Dimensions() }

// Embed embeds a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in order. An empty batch returns an empty result
// without calling the provider.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	done := metrics.TimeOp("embed_batch")
	success := false
	defer func() { done(success) }()

	vecs, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w", e.provider.Name(), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%s embed: got %d vectors for %d inputs", e.provider.Name(), len(vecs), len(texts))
	}
	dims := e.provider.Dimensions()
	for i, v := range vecs {
		if len(v) != dims {
			return nil, fmt.Errorf("%s embed: vector %d has length %d, want %d: %w",
				e.provider.Name(), i, len(v), dims, apptype.ErrDimensionMismatch)
		}
	}
	success = true
	return vecs, nil
}

package embeddings

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// HashProvider is a deterministic feature-hashing model that needs no server.
// Each lower-cased word and each character trigram of a word is hashed with
// xxhash into one of dims buckets with a hash-derived sign; the result is
// L2-normalised so cosine similarity reflects shared tokens.
type HashProvider struct {
	dims int
}

// NewHashProvider returns a HashProvider producing dims-length vectors.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultDims
	}
	return &HashProvider{dims: dims}
}

func (p *HashProvider) Name() string    { return "hash" }
func (p *HashProvider) Dimensions() int { return p.dims }

func (p *HashProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(in)
	}
	return out, nil
}

func (p *HashProvider) vector(text string) []float32 {
	v := make([]float32, p.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		p.add(v, "w:"+w, 1)
		padded := []rune("<" + w + ">")
		for j := 0; j+3 <= len(padded); j++ {
			p.add(v, "g:"+string(padded[j:j+3]), 0.5)
		}
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

func (p *HashProvider) add(v []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(p.dims))
	if h&(1<<63) != 0 {
		weight = -weight
	}
	v[idx] += weight
}

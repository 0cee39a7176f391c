package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

// Adapt modes accepted by WrapToDims (EMBEDDINGS_ADAPT_MODE).
const (
	// AdaptPadOrTruncate zero-pads short vectors and cuts long ones.
	AdaptPadOrTruncate = "pad_or_truncate"
	// AdaptTruncate cuts long vectors and rejects short ones.
	AdaptTruncate = "truncate"
	// AdaptPad zero-pads short vectors and rejects long ones.
	AdaptPad = "pad"
)

// adaptingProvider reshapes a provider's vectors to the index dimension.
type adaptingProvider struct {
	base       Provider
	targetDims int
	mode       string
}

// WrapToDims returns a Provider whose vectors have exactly targetDims
// components. base is returned unchanged when it already matches. Unknown
// modes behave as pad_or_truncate.
func WrapToDims(base Provider, targetDims int, mode string) Provider {
	if base == nil || targetDims <= 0 || base.Dimensions() == targetDims {
		return base
	}
	m := strings.ToLower(strings.TrimSpace(mode))
	switch m {
	case AdaptTruncate, AdaptPad:
	default:
		m = AdaptPadOrTruncate
	}
	return &adaptingProvider{base: base, targetDims: targetDims, mode: m}
}

func (p *adaptingProvider) Name() string    { return p.base.Name() }
func (p *adaptingProvider) Model() string   { return modelOf(p.base) }
func (p *adaptingProvider) Dimensions() int { return p.targetDims }

func (p *adaptingProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	vecs, err := p.base.Embed(ctx, inputs)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		a, err := adaptVector(v, p.targetDims, p.mode)
		if err != nil {
			return nil, fmt.Errorf("%s vector %d: %w", p.base.Name(), i, err)
		}
		out[i] = a
	}
	return out, nil
}

func adaptVector(v []float32, target int, mode string) ([]float32, error) {
	n := len(v)
	switch {
	case n == target:
		return v, nil
	case n > target && mode == AdaptPad:
		return nil, fmt.Errorf("%d components exceed %d in %s mode: %w", n, target, mode, apptype.ErrDimensionMismatch)
	case n < target && mode == AdaptTruncate:
		return nil, fmt.Errorf("%d components short of %d in %s mode: %w", n, target, mode, apptype.ErrDimensionMismatch)
	case n > target:
		return v[:target], nil
	}
	out := make([]float32, target)
	copy(out, v)
	return out, nil
}

package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

// cachedProvider serves repeated texts from Redis and embeds only the misses.
type cachedProvider struct {
	base   Provider
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCachedProvider wraps base with a Redis cache. Entries are keyed by
// provider name, model, dimension and the SHA-256 of the text; a ttl of zero
// keeps entries until evicted.
func NewCachedProvider(base Provider, client redis.UniversalClient, ttl time.Duration) Provider {
	if base == nil || client == nil {
		return base
	}
	return &cachedProvider{base: base, client: client, ttl: ttl}
}

// CacheFromEnv wraps base when REDIS_URL is set. EMBEDDINGS_CACHE_TTL is a Go
// duration (default 24h). The returned client is nil when caching is off and
// must be closed by the caller otherwise.
func CacheFromEnv(base Provider) (Provider, *redis.Client, error) {
	raw := os.Getenv("REDIS_URL")
	if raw == "" {
		return base, nil, nil
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	ttl := 24 * time.Hour
	if v := os.Getenv("EMBEDDINGS_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid EMBEDDINGS_CACHE_TTL: %w", err)
		}
		ttl = d
	}
	client := redis.NewClient(opts)
	return NewCachedProvider(base, client, ttl), client, nil
}

func (p *cachedProvider) Name() string    { return p.base.Name() }
func (p *cachedProvider) Model() string   { return modelOf(p.base) }
func (p *cachedProvider) Dimensions() int { return p.base.Dimensions() }

func (p *cachedProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	keys := make([]string, len(inputs))
	for i, in := range inputs {
		keys[i] = p.key(in)
	}

	out := make([][]float32, len(inputs))
	cached, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		// the cache is best effort; fall through to the provider
		cached = make([]any, len(inputs))
	}

	var missIdx []int
	var missText []string
	for i, c := range cached {
		if s, ok := c.(string); ok {
			if v, derr := decodeVector([]byte(s)); derr == nil && len(v) == p.Dimensions() {
				out[i] = v
				metrics.Default().IncEmbeddingCache(true)
				continue
			}
		}
		metrics.Default().IncEmbeddingCache(false)
		missIdx = append(missIdx, i)
		missText = append(missText, inputs[i])
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	fresh, err := p.base.Embed(ctx, missText)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missIdx) {
		return nil, fmt.Errorf("%s returned %d vectors for %d inputs", p.base.Name(), len(fresh), len(missIdx))
	}
	pipe := p.client.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		pipe.Set(ctx, keys[i], encodeVector(fresh[j]), p.ttl)
	}
	// a failed write only costs a future miss
	_, _ = pipe.Exec(ctx)
	return out, nil
}

func (p *cachedProvider) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s:%d:%s", p.base.Name(), modelOf(p.base), p.base.Dimensions(), hex.EncodeToString(sum[:]))
}

// encodeVector stores float32 components little-endian, matching the
// F32_BLOB layout used by the libSQL index.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector payload length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, base Provider) (Provider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedProvider(base, client, time.Hour), mr
}

func TestCachedProviderServesHits(t *testing.T) {
	base := &fixedProvider{dims: 3}
	p, mr := setupCache(t, base)
	ctx := context.Background()

	first, err := p.Embed(ctx, []string{"Nob KNOWS Biru"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), base.calls.Load())

	second, err := p.Embed(ctx, []string{"Nob KNOWS Biru"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), base.calls.Load())
	assert.Equal(t, first, second)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "emb:fixed::3:"))
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))
}

func TestCachedProviderEmbedsOnlyMisses(t *testing.T) {
	base := &fixedProvider{dims: 3}
	p, _ := setupCache(t, base)
	ctx := context.Background()

	_, err := p.Embed(ctx, []string{"a"})
	require.NoError(t, err)

	out, err := p.Embed(ctx, []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, out[0])
	assert.Equal(t, []float32{3, 0, 0}, out[1])
	assert.Equal(t, int32(2), base.calls.Load())
}

func TestCachedProviderFallsBackWhenRedisDown(t *testing.T) {
	base := &fixedProvider{dims: 3}
	p, mr := setupCache(t, base)
	mr.Close()

	out, err := p.Embed(context.Background(), []string{"ab"})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0, 0}, out[0])
}

func TestVectorCodec(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	got, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = decodeVector([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestCacheFromEnv(t *testing.T) {
	base := NewHashProvider(4)
	t.Setenv("REDIS_URL", "")
	p, client, err := CacheFromEnv(base)
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.Same(t, Provider(base), p)

	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("EMBEDDINGS_CACHE_TTL", "5m")
	p, client, err = CacheFromEnv(base)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
	_, err = p.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)

	t.Setenv("EMBEDDINGS_CACHE_TTL", "forever")
	_, _, err = CacheFromEnv(base)
	require.Error(t, err)
}

func TestCachedProviderSeparatesModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		vec := []float32{1, 0}
		if req.Model == "model-b" {
			vec = []float32{0, 1}
		}
		out := make([][]float32, len(req.Input))
		for i := range out {
			out[i] = vec
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	a := NewCachedProvider(NewOllama(srv.URL, "model-a", 2, srv.Client()), client, time.Hour)
	b := NewCachedProvider(NewOllama(srv.URL, "model-b", 2, srv.Client()), client, time.Hour)

	va, err := a.Embed(ctx, []string{"Nob KNOWS Biru"})
	require.NoError(t, err)
	vb, err := b.Embed(ctx, []string{"Nob KNOWS Biru"})
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0}, va[0])
	assert.Equal(t, []float32{0, 1}, vb[0])
	assert.Len(t, mr.Keys(), 2)
	assert.Equal(t, "model-b", modelOf(b))

	// wrapping keeps the model visible to the cache
	wrapped := WrapToDims(NewOllama(srv.URL, "model-a", 2, srv.Client()), 4, "")
	assert.Equal(t, "model-a", modelOf(wrapped))
}

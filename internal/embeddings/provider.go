package embeddings

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider defines a simple embeddings provider interface.
// Implementations should be concurrency-safe.
type Provider interface {
	// Name returns the provider name (e.g., "ollama", "hash").
	Name() string
	// Dimensions returns the embedding dimensionality this provider produces.
	Dimensions() int
	// Embed returns one embedding per input string.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// ModelNamer is implemented by providers that can serve more than one model.
type ModelNamer interface {
	Model() string
}

// modelOf returns p's model, or "" when p serves a single fixed model.
func modelOf(p Provider) string {
	if m, ok := p.(ModelNamer); ok {
		return m.Model()
	}
	return ""
}

// DefaultDims matches the all-MiniLM-L6-v2 sentence model.
const DefaultDims = 384

// Config selects and tunes the embeddings provider
type Config struct {
	Provider  string
	Dims      int
	AdaptMode string
}

// NewConfig creates a new Config from environment variables.
// EMBEDDINGS_PROVIDER: "ollama" (default), "openai", "localai" or "hash".
func NewConfig() *Config {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("EMBEDDINGS_PROVIDER")))
	if name == "" {
		name = "ollama"
	}
	dims := DefaultDims
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_DIMS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dims = n
		}
	}
	return &Config{
		Provider:  name,
		Dims:      dims,
		AdaptMode: os.Getenv("EMBEDDINGS_ADAPT_MODE"),
	}
}

// New constructs the configured provider and adapts its output to cfg.Dims.
func New(cfg *Config) (Provider, error) {
	if cfg.Dims <= 0 || cfg.Dims > 65536 {
		return nil, fmt.Errorf("EMBEDDING_DIMS must be between 1 and 65536 inclusive, got %d", cfg.Dims)
	}
	var p Provider
	switch cfg.Provider {
	case "ollama":
		p = newOllamaFromEnv()
	case "openai":
		p = newOpenAIFromEnv(cfg.Dims)
	case "localai", "llamacpp", "llama.cpp":
		p = newLocalAIFromEnv()
	case "hash":
		p = NewHashProvider(cfg.Dims)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
	if p == nil {
		return nil, fmt.Errorf("embeddings provider %q is not configured", cfg.Provider)
	}
	return WrapToDims(p, cfg.Dims, cfg.AdaptMode), nil
}

// NewFromEnv is New(NewConfig()).
func NewFromEnv() (Provider, error) {
	return New(NewConfig())
}

// httpTimeout reads a Go duration (e.g. "60s") or plain seconds from the first
// set variable among keys.
func httpTimeout(def time.Duration, keys ...string) time.Duration {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func f64to32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(v[i])
	}
	return out
}

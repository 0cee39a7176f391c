package embeddings

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// LocalAI serves the OpenAI-compatible /v1/embeddings endpoint.
// LOCALAI_BASE_URL defaults to http://localhost:8080/v1.
func newLocalAIFromEnv() Provider {
	base := strings.TrimSpace(os.Getenv("LOCALAI_BASE_URL"))
	if base == "" {
		base = "http://localhost:8080/v1"
	}
	model := strings.TrimSpace(os.Getenv("LOCALAI_EMBEDDINGS_MODEL"))
	if model == "" {
		model = "all-MiniLM-L6-v2"
	}
	dims := DefaultDims
	if v := strings.TrimSpace(os.Getenv("LOCALAI_EMBEDDINGS_DIMS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dims = n
		}
	}
	return NewLocalAI(base, model, os.Getenv("LOCALAI_API_KEY"), dims,
		&http.Client{Timeout: httpTimeout(15*time.Second, "EMBEDDINGS_HTTP_TIMEOUT")})
}

// NewLocalAI builds a provider for a LocalAI (or llama.cpp) server. The API key is optional.
func NewLocalAI(baseURL, model, apiKey string, dims int, client *http.Client) Provider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &openAICompatible{name: "localai", baseURL: baseURL, model: model, dims: dims, apiKey: apiKey, http: client}
}

package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// openAICompatible speaks the /v1/embeddings wire format shared by OpenAI and LocalAI.
type openAICompatible struct {
	name    string
	baseURL string
	model   string
	dims    int
	apiKey  string
	// sendDims asks the server to shorten vectors (text-embedding-3 models only).
	sendDims bool
	http     *http.Client
}

func newOpenAIFromEnv(dims int) Provider {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil
	}
	base := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	model := os.Getenv("OPENAI_EMBEDDINGS_MODEL")
	if model == "" {
		model = "text-embedding-3-small"
	}
	return NewOpenAI(base, model, apiKey, dims, &http.Client{Timeout: httpTimeout(15*time.Second, "EMBEDDINGS_HTTP_TIMEOUT")})
}

// NewOpenAI builds an OpenAI provider. text-embedding-3 models are asked for
// exactly dims components; older models report their native size.
func NewOpenAI(baseURL, model, apiKey string, dims int, client *http.Client) Provider {
	p := &openAICompatible{name: "openai", baseURL: baseURL, model: model, apiKey: apiKey, http: client}
	switch {
	case strings.HasPrefix(model, "text-embedding-3"):
		p.dims = dims
		p.sendDims = true
	case strings.Contains(model, "large"):
		p.dims = 3072
	default:
		p.dims = 1536
	}
	if p.http == nil {
		p.http = &http.Client{Timeout: 15 * time.Second}
	}
	return p
}

func (p *openAICompatible) Name() string    { return p.name }
func (p *openAICompatible) Model() string   { return p.model }
func (p *openAICompatible) Dimensions() int { return p.dims }

func (p *openAICompatible) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, err
	}
	embURL := *base
	embURL.Path = path.Join(embURL.Path, "/embeddings")

	payload := map[string]any{"model": p.model, "input": inputs}
	if p.sendDims {
		payload["dimensions"] = p.dims
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, embURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var b struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		if b.Error.Message != "" {
			return nil, fmt.Errorf("%s embeddings error: %s", p.name, b.Error.Message)
		}
		return nil, fmt.Errorf("%s embeddings http status: %s", p.name, resp.Status)
	}
	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	res := make([][]float32, 0, len(out.Data))
	for _, d := range out.Data {
		res = append(res, f64to32(d.Embedding))
	}
	return res, nil
}

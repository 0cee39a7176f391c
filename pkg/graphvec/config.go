package graphvec

import (
	"os"
	"strings"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/embeddings"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/graphstore"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/vectorindex"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/workflow"
)

// Config gathers the configuration of every component the Service builds.
// Each section maps directly to the owning package's Config.
type Config struct {
	Graph      *graphstore.Config
	Embeddings *embeddings.Config
	Index      *vectorindex.Config
	Workflow   *workflow.Config

	// RulesPath points at a YAML translator rule table. Empty uses the built-in person rule.
	RulesPath string
	// RenderOutput is a .svg, .dot or .gv path, or "none".
	RenderOutput string
	RenderAsync  bool
	// Cache enables the Redis embedding cache described by REDIS_URL.
	Cache bool
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	out := strings.TrimSpace(os.Getenv("RENDER_OUTPUT"))
	if out == "" {
		out = "graph.svg"
	}
	async := os.Getenv("RENDER_ASYNC")
	return &Config{
		Graph:        graphstore.NewConfig(),
		Embeddings:   embeddings.NewConfig(),
		Index:        vectorindex.NewConfig(),
		Workflow:     workflow.NewConfig(),
		RulesPath:    os.Getenv("TRANSLATOR_RULES"),
		RenderOutput: out,
		RenderAsync:  strings.EqualFold(async, "true") || async == "1",
		Cache:        os.Getenv("REDIS_URL") != "",
	}
}

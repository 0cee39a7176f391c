package apptype

// NamespaceArgs provides a standard way to pass the vector namespace to tools.
type NamespaceArgs struct {
	Namespace string `json:"namespace,omitempty" jsonschema:"The vector index namespace to operate on. If not provided, the configured default is used."`
}

// TranslateQueryArgs represents the arguments for the translate_query tool
type TranslateQueryArgs struct {
	Query string `json:"query" jsonschema:"Free-text question to translate into a graph statement."`
}

// TranslateQueryResult is the structured output of translate_query
type TranslateQueryResult struct {
	Query     string `json:"query"`
	Statement string `json:"statement"`
}

// SyncGraphArgs represents the arguments for the sync_graph tool
type SyncGraphArgs struct {
	NamespaceArgs NamespaceArgs `json:"namespaceArgs,omitempty" jsonschema:"Namespace context for the operation."`
	Seed          bool          `json:"seed,omitempty" jsonschema:"Run the seed statement before syncing."`
}

// CombinedQueryArgs represents the arguments for the combined_query tool
type CombinedQueryArgs struct {
	NamespaceArgs NamespaceArgs `json:"namespaceArgs,omitempty" jsonschema:"Namespace context for the operation."`
	Query         string        `json:"query" jsonschema:"Free-text question. Drives both the graph statement and the vector lookup."`
	TopK          int           `json:"topK,omitempty" jsonschema:"Maximum number of vector matches to return (default 5)."`
}

// CombinedQueryResult is the structured output of combined_query.
// It carries the vector matches only; graph records are rendered, not returned.
type CombinedQueryResult struct {
	Matches []Match `json:"matches"`
}

// Health
type HealthArgs struct{}

type HealthResult struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Revision      string `json:"revision"`
	BuildDate     string `json:"buildDate"`
	Namespace     string `json:"namespace"`
	EmbeddingDims int    `json:"embeddingDims"`
	Provider      string `json:"provider"`
}

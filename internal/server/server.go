package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/logging"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/workflow"
)

const serverName = "graphvec-bridge-go"

// Pipeline is the slice of the workflow the tools drive.
type Pipeline interface {
	Namespace() string
	Translate(text string) string
	Seed(ctx context.Context) error
	SyncNamespace(ctx context.Context, namespace string) (*apptype.SyncReport, error)
	Answer(ctx context.Context, req workflow.Request) ([]apptype.Match, error)
}

var _ Pipeline = (*workflow.Workflow)(nil)

// Info describes the embedding side of the deployment for health_check.
type Info struct {
	Provider      string
	EmbeddingDims int
}

// Health builds the health payload shared by the MCP and HTTP surfaces.
func Health(p Pipeline, info Info) apptype.HealthResult {
	return apptype.HealthResult{
		Name:          serverName,
		Version:       buildinfo.Version,
		Revision:      buildinfo.Revision,
		BuildDate:     buildinfo.BuildDate,
		Namespace:     p.Namespace(),
		EmbeddingDims: info.EmbeddingDims,
		Provider:      info.Provider,
	}
}

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server   *mcp.Server
	pipeline Pipeline
	info     Info
	logger   *zap.Logger
}

// NewMCPServer creates a new MCP server
func NewMCPServer(p Pipeline, info Info, logger *zap.Logger) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: buildinfo.Version,
	}, nil)

	s := &MCPServer{
		server:   server,
		pipeline: p,
		info:     info,
		logger:   logging.OrNop(logger),
	}
	s.setupToolHandlers()
	return s
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	translateInputSchema, err := jsonschema.For[apptype.TranslateQueryArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for TranslateQueryArgs: %v", err))
	}
	translateOutputSchema, err := jsonschema.For[apptype.TranslateQueryResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for TranslateQueryResult: %v", err))
	}
	syncInputSchema, err := jsonschema.For[apptype.SyncGraphArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for SyncGraphArgs: %v", err))
	}
	syncOutputSchema, err := jsonschema.For[apptype.SyncReport]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for SyncReport: %v", err))
	}
	queryInputSchema, err := jsonschema.For[apptype.CombinedQueryArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for CombinedQueryArgs: %v", err))
	}
	queryOutputSchema, err := jsonschema.For[apptype.CombinedQueryResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for CombinedQueryResult: %v", err))
	}
	healthInputSchema, err := jsonschema.For[apptype.HealthArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthArgs: %v", err))
	}
	healthOutputSchema, err := jsonschema.For[apptype.HealthResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthResult: %v", err))
	}

	translateAnnotations := mcp.ToolAnnotations{
		Title: "Translate Query",
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &translateAnnotations,
		Name:         "translate_query",
		Title:        "Translate Query",
		Description:  "Translate a free-text question into the graph statement the pipeline would run.",
		InputSchema:  translateInputSchema,
		OutputSchema: translateOutputSchema,
	}, s.handleTranslateQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "sync_graph",
		Title:        "Sync Graph",
		Description:  "Fetch every relationship from the graph, embed it and upsert it into the vector index.",
		InputSchema:  syncInputSchema,
		OutputSchema: syncOutputSchema,
	}, s.handleSyncGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "combined_query",
		Title:        "Combined Query",
		Description:  "Run the translated graph query (rendered server-side) and return the nearest vector matches.",
		InputSchema:  queryInputSchema,
		OutputSchema: queryOutputSchema,
	}, s.handleCombinedQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Report version, namespace and embedding configuration.",
		InputSchema:  healthInputSchema,
		OutputSchema: healthOutputSchema,
	}, s.handleHealth)
}

func (s *MCPServer) namespace(ns string) string {
	if ns == "" {
		return s.pipeline.Namespace()
	}
	return ns
}

// handleTranslateQuery handles the translate_query tool call
func (s *MCPServer) handleTranslateQuery(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.TranslateQueryArgs],
) (*mcp.CallToolResultFor[apptype.TranslateQueryResult], error) {
	done := metrics.TimeTool("translate_query")
	defer func() { done(true) }()

	q := params.Arguments.Query
	stmt := s.pipeline.Translate(q)
	return &mcp.CallToolResultFor[apptype.TranslateQueryResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: stmt}},
		StructuredContent: apptype.TranslateQueryResult{Query: q, Statement: stmt},
	}, nil
}

// handleSyncGraph handles the sync_graph tool call
func (s *MCPServer) handleSyncGraph(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.SyncGraphArgs],
) (*mcp.CallToolResultFor[apptype.SyncReport], error) {
	done := metrics.TimeTool("sync_graph")
	var success bool
	defer func() { done(success) }()

	if params.Arguments.Seed {
		if err := s.pipeline.Seed(ctx); err != nil {
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}
	ns := s.namespace(params.Arguments.NamespaceArgs.Namespace)
	report, err := s.pipeline.SyncNamespace(ctx, ns)
	if err != nil {
		s.logger.Warn("sync_graph failed", zap.String("namespace", ns), zap.Error(err))
		return nil, fmt.Errorf("sync failed: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.SyncReport]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Synced %d of %d records into %q", report.Upserted, report.Records, report.Namespace),
		}},
		StructuredContent: *report,
	}, nil
}

// handleCombinedQuery handles the combined_query tool call
func (s *MCPServer) handleCombinedQuery(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CombinedQueryArgs],
) (*mcp.CallToolResultFor[apptype.CombinedQueryResult], error) {
	done := metrics.TimeTool("combined_query")
	var success bool
	defer func() { done(success) }()

	req := workflow.Request{
		Text:      params.Arguments.Query,
		Namespace: s.namespace(params.Arguments.NamespaceArgs.Namespace),
		TopK:      params.Arguments.TopK,
	}
	if req.Text == "" {
		return nil, errors.New("query is required")
	}
	matches, err := s.pipeline.Answer(ctx, req)
	if err != nil {
		s.logger.Warn("combined_query failed", zap.String("namespace", req.Namespace), zap.Error(err))
		return nil, fmt.Errorf("query failed: %w", err)
	}
	success = true
	if matches == nil {
		matches = []apptype.Match{}
	}

	return &mcp.CallToolResultFor[apptype.CombinedQueryResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d matches", len(matches))}},
		StructuredContent: apptype.CombinedQueryResult{Matches: matches},
	}, nil
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()
	return &mcp.CallToolResultFor[apptype.HealthResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: "ok"}},
		StructuredContent: Health(s.pipeline, s.info),
	}, nil
}

// Run starts the MCP server over stdio
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, mcp.NewStdioTransport())
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("SSE MCP server listening", zap.String("addr", addr), zap.String("endpoint", endpoint))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

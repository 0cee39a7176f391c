package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/httpapi"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/logging"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/server"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/pkg/graphvec"
)

var (
	mode          = flag.String("mode", "run", "What to do: run (seed, sync, query once), mcp or http")
	query         = flag.String("query", "Find all persons", "Question to answer in run mode")
	skipSeed      = flag.Bool("skip-seed", false, "Do not run the seed statement in run mode")
	namespace     = flag.String("namespace", "", "Vector namespace (default: NAMESPACE or neo4j-data)")
	topK          = flag.Int("top-k", 0, "Number of matches to return (default: TOP_K or 5)")
	vectorBackend = flag.String("vector-backend", "", "Vector index backend: libsql, pgvector or memory")
	libsqlURL     = flag.String("libsql-url", "", "libSQL database URL (default: file:./graphvec.db)")
	authToken     = flag.String("auth-token", "", "Authentication token for remote libSQL databases")
	renderOutput  = flag.String("render", "", "Render target: .svg, .dot or .gv path, or none")
	logLevel      = flag.String("log-level", "", "Log level (default: LOG_LEVEL or info)")
	transport     = flag.String("transport", "stdio", "MCP transport to use: stdio or sse")
	addr          = flag.String("addr", ":8080", "Address to listen on for the sse transport or http mode")
	sseEndpoint   = flag.String("sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
)

func main() {
	// silently ignore a missing .env
	_ = godotenv.Load()
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Error("graphvec failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize metrics (noop if disabled)
	metrics.InitFromEnv()

	cfg := graphvec.NewConfig()

	// Override with command line flags if provided
	if *namespace != "" {
		cfg.Workflow.Namespace = *namespace
	}
	if *topK > 0 {
		cfg.Workflow.TopK = *topK
	}
	if *vectorBackend != "" {
		cfg.Index.Backend = *vectorBackend
	}
	if *libsqlURL != "" {
		cfg.Index.URL = *libsqlURL
	}
	if *authToken != "" {
		cfg.Index.AuthToken = *authToken
	}
	if *renderOutput != "" {
		cfg.RenderOutput = *renderOutput
	}

	svc, err := graphvec.NewService(ctx, cfg, graphvec.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			logger.Warn("error closing service", zap.Error(err))
		}
	}()

	switch *mode {
	case "run":
		return runOnce(ctx, svc)
	case "mcp":
		return serveMCP(ctx, svc, logger)
	case "http":
		return serveHTTP(ctx, svc, logger)
	default:
		return fmt.Errorf("unknown mode: %s (expected: run, mcp or http)", *mode)
	}
}

func runOnce(ctx context.Context, svc *graphvec.Service) error {
	if !*skipSeed {
		if err := svc.Seed(ctx); err != nil {
			return err
		}
	}
	if _, err := svc.Sync(ctx); err != nil {
		return err
	}
	matches, err := svc.Query(ctx, *query)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(matches)
}

func serveMCP(ctx context.Context, svc *graphvec.Service, logger *zap.Logger) error {
	mcpServer := server.NewMCPServer(svc.Workflow(), svc.Info(), logger)
	logger.Info("starting MCP server", zap.String("transport", *transport))
	switch *transport {
	case "stdio":
		return mcpServer.Run(ctx)
	case "sse":
		return mcpServer.RunSSE(ctx, *addr, *sseEndpoint)
	default:
		return fmt.Errorf("unknown transport: %s (expected: stdio or sse)", *transport)
	}
}

func serveHTTP(ctx context.Context, svc *graphvec.Service, logger *zap.Logger) error {
	app := httpapi.NewApp(httpapi.NewHandler(svc.Workflow(), svc.Info(), logger))
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()
	logger.Info("HTTP API listening", zap.String("addr", *addr))
	return app.Listen(*addr, fiber.ListenConfig{DisableStartupMessage: true})
}

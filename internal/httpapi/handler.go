// Package httpapi exposes the pipeline over a small JSON API.
package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/logging"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/server"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/workflow"
)

// Handler serves translate, sync, query and health endpoints.
type Handler struct {
	pipeline server.Pipeline
	info     server.Info
	logger   *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(p server.Pipeline, info server.Info, logger *zap.Logger) *Handler {
	return &Handler{pipeline: p, info: info, logger: logging.OrNop(logger)}
}

// NewApp builds a fiber app with the API mounted under /api/v1.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "graphvec-bridge-go",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	})
	app.Use(recover.New())
	h.Register(app.Group("/api/v1"))
	return app
}

// Register sets up the API routes.
func (h *Handler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Post("/translate", h.Translate)
	router.Post("/sync", h.Sync)
	router.Post("/query", h.Query)
}

// Health reports build and embedding configuration.
func (h *Handler) Health(c fiber.Ctx) error {
	done := metrics.TimeTool("http_health")
	defer func() { done(true) }()
	return c.JSON(server.Health(h.pipeline, h.info))
}

// Translate returns the graph statement for a question without running it.
func (h *Handler) Translate(c fiber.Ctx) error {
	done := metrics.TimeTool("http_translate")
	var success bool
	defer func() { done(success) }()

	var body apptype.TranslateQueryArgs
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	success = true
	return c.JSON(apptype.TranslateQueryResult{Query: body.Query, Statement: h.pipeline.Translate(body.Query)})
}

// Sync embeds every graph relationship into the vector index.
func (h *Handler) Sync(c fiber.Ctx) error {
	done := metrics.TimeTool("http_sync")
	var success bool
	defer func() { done(success) }()

	var body apptype.SyncGraphArgs
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	if body.Seed {
		if err := h.pipeline.Seed(c.Context()); err != nil {
			return h.fail(c, "seed", err)
		}
	}
	ns := body.NamespaceArgs.Namespace
	if ns == "" {
		ns = h.pipeline.Namespace()
	}
	report, err := h.pipeline.SyncNamespace(c.Context(), ns)
	if err != nil {
		return h.fail(c, "sync", err)
	}
	success = true
	return c.JSON(report)
}

// Query runs the combined pipeline and returns the vector matches only.
func (h *Handler) Query(c fiber.Ctx) error {
	done := metrics.TimeTool("http_query")
	var success bool
	defer func() { done(success) }()

	var body apptype.CombinedQueryArgs
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}
	matches, err := h.pipeline.Answer(c.Context(), workflow.Request{
		Text:      body.Query,
		Namespace: body.NamespaceArgs.Namespace,
		TopK:      body.TopK,
	})
	if err != nil {
		return h.fail(c, "query", err)
	}
	success = true
	if matches == nil {
		matches = []apptype.Match{}
	}
	return c.JSON(apptype.CombinedQueryResult{Matches: matches})
}

func (h *Handler) fail(c fiber.Ctx, op string, err error) error {
	status := statusFor(err)
	h.logger.Warn("request failed", zap.String("op", op), zap.Int("status", status), zap.Error(err))
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apptype.ErrNamespaceNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apptype.ErrQuerySyntax), errors.Is(err, apptype.ErrDimensionMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, apptype.ErrConnection):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

// Renderer presents graph records. It has no return value beyond an error.
type Renderer interface {
	Render(ctx context.Context, records []apptype.GraphRecord) error
}

// Nop discards records.
type Nop struct{}

func (Nop) Render(context.Context, []apptype.GraphRecord) error { return nil }

// FileRenderer writes a diagram to Path, choosing the format by extension:
// .svg for SVG, .dot or .gv for Graphviz source.
type FileRenderer struct {
	Path   string
	Width  int
	Height int
	Logger *zap.Logger
}

// NewFileRenderer validates the extension of path.
func NewFileRenderer(path string, logger *zap.Logger) (*FileRenderer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg", ".dot", ".gv":
	default:
		return nil, fmt.Errorf("unsupported render output %q: use .svg, .dot or .gv", path)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRenderer{Path: path, Width: 800, Height: 600, Logger: logger}, nil
}

func (r *FileRenderer) Render(ctx context.Context, records []apptype.GraphRecord) (err error) {
	done := metrics.TimeOp("render")
	defer func() { done(err == nil) }()
	if err := ctx.Err(); err != nil {
		return err
	}

	g := BuildGraph(records)
	f, err := os.Create(r.Path)
	if err != nil {
		return fmt.Errorf("create render output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	switch strings.ToLower(filepath.Ext(r.Path)) {
	case ".dot", ".gv":
		err = WriteDOT(bw, g)
	default:
		err = WriteSVG(bw, g, r.Width, r.Height)
	}
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush render output: %w", err)
	}
	if r.Logger != nil {
		r.Logger.Info("graph rendered",
			zap.String("path", r.Path), zap.Int("nodes", len(g.Nodes)), zap.Int("edges", len(g.Edges)))
	}
	return nil
}

// Async renders on a background goroutine so the caller is not blocked.
// Wait joins every outstanding render and returns their errors.
type Async struct {
	next   Renderer
	logger *zap.Logger

	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// NewAsync wraps next.
func NewAsync(next Renderer, logger *zap.Logger) *Async {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Async{next: next, logger: logger}
}

// Render copies records and returns immediately. The render runs with a
// context detached from ctx's cancellation so it can outlive the request.
func (a *Async) Render(ctx context.Context, records []apptype.GraphRecord) error {
	snapshot := append([]apptype.GraphRecord(nil), records...)
	bg := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.next.Render(bg, snapshot); err != nil {
			a.logger.Warn("background render failed", zap.Error(err))
			a.mu.Lock()
			a.errs = append(a.errs, err)
			a.mu.Unlock()
		}
	}()
	return nil
}

// Wait blocks until all renders started so far have finished.
func (a *Async) Wait() error {
	a.wg.Wait()
	a.mu.Lock()
	defer a.mu.Unlock()
	err := errors.Join(a.errs...)
	a.errs = nil
	return err
}

// New builds the renderer for output: "none" disables rendering, anything
// else is a file path whose extension picks the format. async wraps the file
// renderer in Async. The returned wait function joins background renders and
// is a no-op for synchronous renderers.
func New(output string, async bool, logger *zap.Logger) (Renderer, func() error, error) {
	noWait := func() error { return nil }
	if strings.EqualFold(output, "none") {
		return Nop{}, noWait, nil
	}
	fr, err := NewFileRenderer(output, logger)
	if err != nil {
		return nil, nil, err
	}
	if async {
		a := NewAsync(fr, logger)
		return a, a.Wait, nil
	}
	return fr, noWait, nil
}

// FromEnv calls New with RENDER_OUTPUT (default graph.svg) and RENDER_ASYNC.
func FromEnv(logger *zap.Logger) (Renderer, func() error, error) {
	out := strings.TrimSpace(os.Getenv("RENDER_OUTPUT"))
	if out == "" {
		out = "graph.svg"
	}
	v := os.Getenv("RENDER_ASYNC")
	return New(out, strings.EqualFold(v, "true") || v == "1", logger)
}

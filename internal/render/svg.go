package render

import (
	"context"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

const (
	nodeRadius  = 18
	arrowLength = 10
)

// SVGRenderer draws records as an SVG node-link diagram on W.
type SVGRenderer struct {
	W      io.Writer
	Width  int
	Height int
}

func (r *SVGRenderer) Render(ctx context.Context, records []apptype.GraphRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteSVG(r.W, BuildGraph(records), r.Width, r.Height)
}

// WriteSVG renders g: edges with arrowheads and type labels first, then
// nodes with their names on top.
func WriteSVG(w io.Writer, g *Graph, width, height int) error {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	pos := Layout(g, width, height, 2*nodeRadius+20)

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:white")

	canvas.Gid("edges")
	for _, e := range g.Edges {
		from, to := pos[e.From], pos[e.To]
		if e.From == e.To {
			canvas.Circle(from.X+nodeRadius, from.Y-nodeRadius, nodeRadius/2, "fill:none;stroke:gray")
			canvas.Text(from.X+2*nodeRadius, from.Y-2*nodeRadius, e.Type, "font-size:11px;fill:firebrick")
			continue
		}
		x1, y1, x2, y2 := trim(from, to, nodeRadius)
		canvas.Line(x1, y1, x2, y2, "stroke:gray;stroke-width:1.5")
		xs, ys := arrowHead(x1, y1, x2, y2)
		canvas.Polygon(xs, ys, "fill:gray")
		canvas.Text((from.X+to.X)/2, (from.Y+to.Y)/2-4, e.Type, "text-anchor:middle;font-size:11px;fill:firebrick")
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range g.Nodes {
		p := pos[n.Name]
		canvas.Circle(p.X, p.Y, nodeRadius, "fill:skyblue;stroke:steelblue;stroke-width:1.5")
		canvas.Text(p.X, p.Y+4, n.Name, "text-anchor:middle;font-size:12px;font-family:sans-serif")
	}
	canvas.Gend()
	canvas.End()

	if ew.err != nil {
		return fmt.Errorf("write svg: %w", ew.err)
	}
	return nil
}

// trim shortens the segment from a to b so it starts and ends on the node circles.
func trim(a, b Point, r int) (int, int, int, int) {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	d := math.Hypot(dx, dy)
	if d <= float64(2*r) {
		return a.X, a.Y, b.X, b.Y
	}
	ux, uy := dx/d, dy/d
	return a.X + int(math.Round(ux*float64(r))), a.Y + int(math.Round(uy*float64(r))),
		b.X - int(math.Round(ux*float64(r))), b.Y - int(math.Round(uy*float64(r)))
}

func arrowHead(x1, y1, x2, y2 int) ([]int, []int) {
	angle := math.Atan2(float64(y2-y1), float64(x2-x1))
	spread := math.Pi / 7
	lx := x2 - int(math.Round(arrowLength*math.Cos(angle-spread)))
	ly := y2 - int(math.Round(arrowLength*math.Sin(angle-spread)))
	rx := x2 - int(math.Round(arrowLength*math.Cos(angle+spread)))
	ry := y2 - int(math.Round(arrowLength*math.Sin(angle+spread)))
	return []int{x2, lx, rx}, []int{y2, ly, ry}
}

// errWriter keeps the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

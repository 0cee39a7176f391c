package render

import (
	"math"

	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
)

// Point is a canvas position in pixels.
type Point struct {
	X, Y int
}

// Layout places g's nodes on a width x height canvas with the Eades
// force-directed algorithm, keeping margin pixels clear on every side.
// Positions are keyed by node name.
func Layout(g *Graph, width, height, margin int) map[string]Point {
	pos := make(map[string]Point, len(g.Nodes))
	switch len(g.Nodes) {
	case 0:
		return pos
	case 1:
		pos[g.Nodes[0].Name] = Point{X: width / 2, Y: height / 2}
		return pos
	}

	ug := simple.NewUndirectedGraph()
	ids := make(map[string]int64, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[n.Name] = int64(i)
		ug.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges {
		from, to := ids[e.From], ids[e.To]
		if from == to {
			// self loops carry no layout information
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	eades := layout.EadesR2{Repulsion: 1, Rate: 0.05, Updates: 100, Theta: 0.2}
	o := layout.NewOptimizerR2(ug, eades.Update)
	for o.Update() {
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	raw := make([][2]float64, len(g.Nodes))
	for i := range g.Nodes {
		c := o.Coord2(int64(i))
		raw[i] = [2]float64{c.X, c.Y}
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
	}

	scale := func(v, lo, hi float64, size int) int {
		span := float64(size - 2*margin)
		if hi-lo < 1e-9 || math.IsNaN(v) {
			return size / 2
		}
		return margin + int(math.Round((v-lo)/(hi-lo)*span))
	}
	for i, n := range g.Nodes {
		pos[n.Name] = Point{
			X: scale(raw[i][0], minX, maxX, width),
			Y: scale(raw[i][1], minY, maxY, height),
		}
	}
	return pos
}

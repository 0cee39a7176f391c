package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emicklei/dot"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

// DOTRenderer writes records as a Graphviz digraph on W.
type DOTRenderer struct {
	W io.Writer
}

func (r *DOTRenderer) Render(ctx context.Context, records []apptype.GraphRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteDOT(r.W, BuildGraph(records))
}

// DOT returns the Graphviz source for g.
func DOT(g *Graph) string {
	dg := dot.NewGraph(dot.Directed)
	dg.Attr("rankdir", "LR")
	nodes := make(map[string]dot.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		dn := dg.Node(n.Name)
		if len(n.Labels) > 0 {
			dn.Attr("tooltip", strings.Join(n.Labels, ":"))
		}
		nodes[n.Name] = dn
	}
	for _, e := range g.Edges {
		dg.Edge(nodes[e.From], nodes[e.To], e.Type)
	}
	return dg.String()
}

// WriteDOT writes the Graphviz source for g to w.
func WriteDOT(w io.Writer, g *Graph) error {
	if _, err := io.WriteString(w, DOT(g)); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	return nil
}

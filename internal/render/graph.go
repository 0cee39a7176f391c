// Package render draws graph records as node-link diagrams.
package render

import (
	"sort"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

// Node is a diagram node keyed by name.
type Node struct {
	Name   string
	Labels []string
}

// Edge is a directed diagram edge. At most one edge exists per (From, To)
// pair; a later record overwrites the type of an earlier one.
type Edge struct {
	From string
	To   string
	Type string
}

// Graph is the diagram model built from query records.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// BuildGraph collects nodes and edges from records. Node-only records add
// isolated nodes. Nodes keep first-seen order; labels are merged and sorted.
func BuildGraph(records []apptype.GraphRecord) *Graph {
	g := &Graph{}
	nodeIdx := make(map[string]int)
	labelSets := make(map[string]map[string]struct{})
	edgeIdx := make(map[[2]string]int)

	addNode := func(n apptype.GraphNode) {
		i, ok := nodeIdx[n.Name]
		if !ok {
			i = len(g.Nodes)
			nodeIdx[n.Name] = i
			g.Nodes = append(g.Nodes, Node{Name: n.Name})
			labelSets[n.Name] = make(map[string]struct{})
		}
		for _, l := range n.Labels {
			if _, seen := labelSets[n.Name][l]; !seen {
				labelSets[n.Name][l] = struct{}{}
				g.Nodes[i].Labels = append(g.Nodes[i].Labels, l)
			}
		}
	}

	for _, r := range records {
		addNode(r.Subject)
		if !r.Complete() {
			continue
		}
		addNode(*r.Object)
		key := [2]string{r.Subject.Name, r.Object.Name}
		if i, ok := edgeIdx[key]; ok {
			g.Edges[i].Type = r.Relationship.Type
			continue
		}
		edgeIdx[key] = len(g.Edges)
		g.Edges = append(g.Edges, Edge{From: r.Subject.Name, To: r.Object.Name, Type: r.Relationship.Type})
	}
	for i := range g.Nodes {
		sort.Strings(g.Nodes[i].Labels)
	}
	return g
}

// Empty reports whether there is nothing to draw.
func (g *Graph) Empty() bool { return len(g.Nodes) == 0 }

// Package testutil holds in-process fakes for the graph store and renderer.
package testutil

import (
	"context"
	"sync"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

// GraphStub is an in-memory graph store. Execute records statements; the
// seed statement adds the Nob KNOWS Biru edge. FetchFiltered returns
// Filtered[statement] when present and every subject node otherwise.
type GraphStub struct {
	mu       sync.Mutex
	Records  []apptype.GraphRecord
	Filtered map[string][]apptype.GraphRecord
	Executed []string

	ExecuteErr error
	FetchErr   error
	// SeedStatement, when executed, appends NobKnowsBiru.
	SeedStatement string
}

// NobKnowsBiru is the record produced by the default seed.
func NobKnowsBiru() apptype.GraphRecord {
	return Triple("Nob", "KNOWS", "Biru")
}

// Triple builds a complete Person-Person record.
func Triple(subject, rel, object string) apptype.GraphRecord {
	obj := apptype.GraphNode{Name: object, Labels: []string{"Person"}, Properties: map[string]any{"name": object}}
	return apptype.GraphRecord{
		Subject:      apptype.GraphNode{Name: subject, Labels: []string{"Person"}, Properties: map[string]any{"name": subject}},
		Relationship: &apptype.GraphRelationship{Type: rel},
		Object:       &obj,
	}
}

func (g *GraphStub) Execute(_ context.Context, statement string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Executed = append(g.Executed, statement)
	if g.ExecuteErr != nil {
		return g.ExecuteErr
	}
	if g.SeedStatement != "" && statement == g.SeedStatement {
		g.Records = append(g.Records, NobKnowsBiru())
	}
	return nil
}

func (g *GraphStub) FetchAll(_ context.Context) ([]apptype.GraphRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FetchErr != nil {
		return nil, g.FetchErr
	}
	return append([]apptype.GraphRecord{}, g.Records...), nil
}

func (g *GraphStub) FetchFiltered(_ context.Context, statement string) ([]apptype.GraphRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Executed = append(g.Executed, statement)
	if g.FetchErr != nil {
		return nil, g.FetchErr
	}
	if recs, ok := g.Filtered[statement]; ok {
		return append([]apptype.GraphRecord{}, recs...), nil
	}
	// node-only rows, one per distinct subject
	seen := make(map[string]bool)
	out := []apptype.GraphRecord{}
	for _, r := range g.Records {
		for _, n := range []apptype.GraphNode{r.Subject, derefNode(r.Object)} {
			if n.Name == "" || seen[n.Name] {
				continue
			}
			seen[n.Name] = true
			out = append(out, apptype.GraphRecord{Subject: n})
		}
	}
	return out, nil
}

// Statements returns a copy of every statement seen so far.
func (g *GraphStub) Statements() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.Executed...)
}

func derefNode(n *apptype.GraphNode) apptype.GraphNode {
	if n == nil {
		return apptype.GraphNode{}
	}
	return *n
}

// RendererSpy records every Render call.
type RendererSpy struct {
	mu    sync.Mutex
	Calls [][]apptype.GraphRecord
	Err   error
}

func (r *RendererSpy) Render(_ context.Context, records []apptype.GraphRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, append([]apptype.GraphRecord(nil), records...))
	return r.Err
}

// Rendered returns the records of the last Render call.
func (r *RendererSpy) Rendered() []apptype.GraphRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return nil
	}
	return r.Calls[len(r.Calls)-1]
}

// CallCount is the number of Render calls.
func (r *RendererSpy) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}

package graphstore

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

// DecodeRecord converts a driver row into a GraphRecord. Rows keyed n, r, m
// are read by key; anything else is scanned positionally for the first node
// (subject), the first relationship and the second node (object). The bool is
// false when the row holds no node at all.
func DecodeRecord(row *neo4j.Record) (apptype.GraphRecord, bool) {
	var (
		subject, object *neo4j.Node
		rel             *neo4j.Relationship
	)

	if v, ok := row.Get("n"); ok {
		subject = asNode(v)
		if r, ok := row.Get("r"); ok {
			rel = asRelationship(r)
		}
		if m, ok := row.Get("m"); ok {
			object = asNode(m)
		}
	}

	if subject == nil {
		for _, v := range row.Values {
			if n := asNode(v); n != nil {
				if subject == nil {
					subject = n
				} else if object == nil {
					object = n
				}
				continue
			}
			if r := asRelationship(v); r != nil && rel == nil {
				rel = r
			}
		}
	}

	if subject == nil {
		return apptype.GraphRecord{}, false
	}
	out := apptype.GraphRecord{Subject: toGraphNode(*subject)}
	if rel != nil && object != nil {
		obj := toGraphNode(*object)
		out.Relationship = &apptype.GraphRelationship{
			Type:       rel.Type,
			Properties: rel.Props,
			ElementID:  rel.ElementId,
		}
		out.Object = &obj
	}
	return out, true
}

func asNode(v any) *neo4j.Node {
	switch n := v.(type) {
	case neo4j.Node:
		return &n
	case *neo4j.Node:
		return n
	}
	return nil
}

func asRelationship(v any) *neo4j.Relationship {
	switch r := v.(type) {
	case neo4j.Relationship:
		return &r
	case *neo4j.Relationship:
		return r
	}
	return nil
}

// toGraphNode names a node by its "name" property, falling back to the element id.
func toGraphNode(n neo4j.Node) apptype.GraphNode {
	name := n.ElementId
	if v, ok := n.Props["name"]; ok && v != nil {
		name = fmt.Sprint(v)
	}
	return apptype.GraphNode{
		Name:       name,
		Labels:     n.Labels,
		Properties: n.Props,
		ElementID:  n.ElementId,
	}
}

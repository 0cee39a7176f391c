package apptype

import "strings"

// GraphNode represents a node returned by the graph engine
type GraphNode struct {
	Name       string         `json:"name"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties,omitempty"`
	ElementID  string         `json:"elementId,omitempty"`
}

// HasLabel reports whether the node carries the given label (case-sensitive, as in Cypher)
func (n GraphNode) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// GraphRelationship represents a typed, directed edge between two nodes
type GraphRelationship struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	ElementID  string         `json:"elementId,omitempty"`
}

// GraphRecord is one row of a graph query: a (subject, relationship, object) triple.
// Node-only rows carry just the Subject.
type GraphRecord struct {
	Subject      GraphNode          `json:"subject"`
	Relationship *GraphRelationship `json:"relationship,omitempty"`
	Object       *GraphNode         `json:"object,omitempty"`
}

// Complete reports whether the record is a full triple
func (r GraphRecord) Complete() bool {
	return r.Relationship != nil && r.Object != nil
}

// Text renders the record as "{subject} {relType} {object}".
// Node-only records render as the subject name.
func (r GraphRecord) Text() string {
	if !r.Complete() {
		return r.Subject.Name
	}
	return strings.Join([]string{r.Subject.Name, r.Relationship.Type, r.Object.Name}, " ")
}

// IndexEntry is a vector stored under a namespace in the vector index
type IndexEntry struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Text   string    `json:"text,omitempty"`
}

// Match is a ranked vector search hit. Higher scores are closer.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text,omitempty"`
}

// SyncReport summarises one fetch/embed/upsert pass
type SyncReport struct {
	Namespace string   `json:"namespace"`
	Records   int      `json:"records"`
	Embedded  int      `json:"embedded"`
	Upserted  int      `json:"upserted"`
	IDs       []string `json:"ids"`
}

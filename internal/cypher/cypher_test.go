package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMatch(t *testing.T) {
	assert.Equal(t, "MATCH (n:Person)", BuildMatch("Person", "n"))
	assert.Equal(t, "MATCH (n)", BuildMatch("", "n"))
	assert.Equal(t, "MATCH (p:`Team Member`)", BuildMatch("Team Member", "p"))
}

func TestBuildReturn(t *testing.T) {
	assert.Equal(t, "RETURN n", BuildReturn("n"))
	assert.Equal(t, "RETURN n, r, m", BuildReturn("n", "r", "m"))
}

func TestBuildTraversal(t *testing.T) {
	tests := []struct {
		name string
		in   Traversal
		want string
	}{
		{"any out", Traversal{Direction: "out"}, "(n)-[r]->(m)"},
		{"typed in", Traversal{Relationship: "KNOWS", TargetLabel: "Person", Direction: "in"}, "(n)<-[r:KNOWS]-(m:Person)"},
		{"both", Traversal{Relationship: "KNOWS", Direction: "both"}, "(n)-[r:KNOWS]-(m)"},
		{"invalid direction defaults out", Traversal{Direction: "sideways"}, "(n)-[r]->(m)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildTraversal(tt.in, "n", "r", "m"))
		})
	}
}

func TestStatements(t *testing.T) {
	assert.Equal(t, "MATCH (n:Person) RETURN n", LabelStatement("Person"))
	assert.Equal(t, "MATCH (n) RETURN n", LabelStatement(""))
	assert.Equal(t, "MATCH (n)-[r]->(m) RETURN n, r, m", TraversalStatement())
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "Person", QuoteIdentifier("Person"))
	assert.Equal(t, "`a``b`", QuoteIdentifier("a`b"))
	assert.Equal(t, "`1st`", QuoteIdentifier("1st"))
}

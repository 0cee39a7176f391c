// Package cypher builds the small set of Cypher statements the bridge issues.
package cypher

import (
	"fmt"
	"regexp"
	"strings"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QuoteIdentifier returns name unchanged when it is a plain identifier and
// back-tick quotes it otherwise.
func QuoteIdentifier(name string) string {
	if identifier.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// BuildMatch generates a MATCH clause for a node with an optional label.
//
//	BuildMatch("Person", "n") // "MATCH (n:Person)"
//	BuildMatch("", "n")       // "MATCH (n)"
func BuildMatch(label string, alias string) string {
	return "MATCH " + nodePattern(alias, label)
}

// BuildReturn generates a RETURN clause listing the given aliases.
//
//	BuildReturn("n")           // "RETURN n"
//	BuildReturn("n", "r", "m") // "RETURN n, r, m"
func BuildReturn(aliases ...string) string {
	return "RETURN " + strings.Join(aliases, ", ")
}

// Traversal describes a single relationship hop.
type Traversal struct {
	// Relationship type; empty matches any type.
	Relationship string
	// TargetLabel of the far node; empty matches any label.
	TargetLabel string
	// Direction is "out", "in" or "both". Anything else is treated as "out".
	Direction string
}

// BuildTraversal generates a path pattern for one hop:
//
//	"out":  (n)-[r:KNOWS]->(m:Person)
//	"in":   (n)<-[r:KNOWS]-(m:Person)
//	"both": (n)-[r:KNOWS]-(m:Person)
func BuildTraversal(t Traversal, fromAlias, relAlias, toAlias string) string {
	rel := relAlias
	if t.Relationship != "" {
		rel += ":" + QuoteIdentifier(t.Relationship)
	}
	from := "(" + fromAlias + ")"
	to := nodePattern(toAlias, t.TargetLabel)
	switch t.Direction {
	case "in":
		return fmt.Sprintf("%s<-[%s]-%s", from, rel, to)
	case "both":
		return fmt.Sprintf("%s-[%s]-%s", from, rel, to)
	default:
		return fmt.Sprintf("%s-[%s]->%s", from, rel, to)
	}
}

// LabelStatement matches nodes, restricted to label when it is non-empty, and returns them.
//
//	LabelStatement("Person") // "MATCH (n:Person) RETURN n"
//	LabelStatement("")       // "MATCH (n) RETURN n"
func LabelStatement(label string) string {
	return BuildMatch(label, "n") + " " + BuildReturn("n")
}

// TraversalStatement matches every node-relationship-node triple:
// "MATCH (n)-[r]->(m) RETURN n, r, m".
func TraversalStatement() string {
	return "MATCH " + BuildTraversal(Traversal{Direction: "out"}, "n", "r", "m") + " " + BuildReturn("n", "r", "m")
}

func nodePattern(alias, label string) string {
	if label == "" {
		return "(" + alias + ")"
	}
	return "(" + alias + ":" + QuoteIdentifier(label) + ")"
}

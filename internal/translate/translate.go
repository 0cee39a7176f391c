// Package translate maps free-text questions onto graph statements with an
// ordered keyword rule table.
package translate

import (
	"strings"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/cypher"
)

// Rule maps lower-cased query text to a statement. Match reports whether the
// rule applies; Statement is only consulted when it does.
type Rule interface {
	Name() string
	Match(lowered string) bool
	Statement() string
}

// KeywordRule matches when the lower-cased text contains Keyword.
type KeywordRule struct {
	RuleName string
	Keyword  string
	Cypher   string
}

func (r KeywordRule) Name() string { return r.RuleName }

func (r KeywordRule) Match(lowered string) bool {
	return r.Keyword != "" && strings.Contains(lowered, strings.ToLower(r.Keyword))
}

func (r KeywordRule) Statement() string { return r.Cypher }

// LabelRule returns a KeywordRule whose statement matches nodes carrying label.
func LabelRule(name, keyword, label string) KeywordRule {
	return KeywordRule{RuleName: name, Keyword: keyword, Cypher: cypher.LabelStatement(label)}
}

// Translator evaluates rules in order; the first match wins.
// The zero value translates everything to the fallback statement.
type Translator struct {
	rules    []Rule
	fallback string
}

// New builds a translator from an explicit rule table. An empty fallback
// becomes the unrestricted node statement.
func New(fallback string, rules ...Rule) *Translator {
	if fallback == "" {
		fallback = cypher.LabelStatement("")
	}
	return &Translator{rules: append([]Rule(nil), rules...), fallback: fallback}
}

// Default returns the built-in table: text mentioning "person" selects
// Person nodes, anything else selects all nodes.
func Default() *Translator {
	return New(cypher.LabelStatement(""), LabelRule("person", "person", "Person"))
}

// With returns a copy of t with rule appended after the existing rules.
func (t *Translator) With(rule Rule) *Translator {
	rules := make([]Rule, 0, len(t.rules)+1)
	rules = append(rules, t.rules...)
	rules = append(rules, rule)
	return &Translator{rules: rules, fallback: t.fallback}
}

// Translate returns the statement for text. It never fails.
func (t *Translator) Translate(text string) string {
	lowered := strings.ToLower(text)
	for _, r := range t.rules {
		if r.Match(lowered) {
			return r.Statement()
		}
	}
	if t.fallback == "" {
		return cypher.LabelStatement("")
	}
	return t.fallback
}

// Rules returns the rule names in evaluation order.
func (t *Translator) Rules() []string {
	names := make([]string, len(t.rules))
	for i, r := range t.rules {
		names[i] = r.Name()
	}
	return names
}

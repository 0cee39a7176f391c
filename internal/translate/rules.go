package translate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleFile is the YAML layout accepted by LoadRules:
//
//	fallback: "MATCH (n) RETURN n"
//	rules:
//	  - name: person
//	    keyword: person
//	    label: Person
//	  - name: movies
//	    keyword: film
//	    statement: "MATCH (n:Movie) RETURN n"
type RuleFile struct {
	Fallback string     `yaml:"fallback"`
	Rules    []RuleSpec `yaml:"rules"`
}

// RuleSpec is one entry of a rule file. Exactly one of Label or Statement is set.
type RuleSpec struct {
	Name      string `yaml:"name"`
	Keyword   string `yaml:"keyword"`
	Label     string `yaml:"label"`
	Statement string `yaml:"statement"`
}

// LoadRules reads a YAML rule table from path.
func LoadRules(path string) (*Translator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules builds a translator from YAML rule table contents.
func ParseRules(data []byte) (*Translator, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	rules := make([]Rule, 0, len(file.Rules))
	for i, rs := range file.Rules {
		if rs.Keyword == "" {
			return nil, fmt.Errorf("rule %d (%s): keyword is required", i, rs.Name)
		}
		if (rs.Label == "") == (rs.Statement == "") {
			return nil, fmt.Errorf("rule %d (%s): exactly one of label or statement must be set", i, rs.Name)
		}
		name := rs.Name
		if name == "" {
			name = rs.Keyword
		}
		if rs.Label != "" {
			rules = append(rules, LabelRule(name, rs.Keyword, rs.Label))
			continue
		}
		rules = append(rules, KeywordRule{RuleName: name, Keyword: rs.Keyword, Cypher: rs.Statement})
	}
	return New(file.Fallback, rules...), nil
}

// FromEnv loads TRANSLATOR_RULES when set and returns Default otherwise.
func FromEnv() (*Translator, error) {
	path := os.Getenv("TRANSLATOR_RULES")
	if path == "" {
		return Default(), nil
	}
	return LoadRules(path)
}

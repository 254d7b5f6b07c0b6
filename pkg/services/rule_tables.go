package services

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// BridgeConcept is a predeclared target in the semantic-bridge CodeSystem.
type BridgeConcept struct {
	Code    string `yaml:"code"`
	Display string `yaml:"display"`
}

// RuleTables holds the static domain vocabulary: the traditional-to-clinical
// synonym table, the semantic-bridge lookup, and the category hints. Built
// once at process start and treated as read-only afterwards.
type RuleTables struct {
	DomainSynonyms  map[string][]string      `yaml:"domain_synonyms"`
	SemanticBridges map[string]BridgeConcept `yaml:"semantic_bridges"`
	CategoryHints   map[string][]string      `yaml:"category_hints"`

	// bridgeKeys and hintDisciplines are the map keys in sorted order so
	// iteration over the tables is deterministic across runs.
	bridgeKeys      []string
	hintDisciplines []string
}

// LoadRuleTables parses the embedded rule tables.
func LoadRuleTables() (*RuleTables, error) {
	var t RuleTables
	if err := yaml.Unmarshal(tablesYAML, &t); err != nil {
		return nil, fmt.Errorf("failed to parse rule tables: %w", err)
	}

	t.bridgeKeys = sortedKeys(t.SemanticBridges)
	t.hintDisciplines = sortedStringSliceKeys(t.CategoryHints)
	return &t, nil
}

// BridgeKeys returns the bridge trigger keywords in deterministic order.
func (t *RuleTables) BridgeKeys() []string {
	return t.bridgeKeys
}

// HintDisciplines returns the category hint disciplines in deterministic order.
func (t *RuleTables) HintDisciplines() []string {
	return t.hintDisciplines
}

// ExpandDomainSynonyms returns the clinical synonyms for any table key
// contained in the given normalized seed, in table-key order.
func (t *RuleTables) ExpandDomainSynonyms(normalizedSeed string) []string {
	compact := strings.ReplaceAll(normalizedSeed, " ", "")
	var keys []string
	for key := range t.DomainSynonyms {
		if strings.Contains(compact, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		out = append(out, t.DomainSynonyms[key]...)
	}
	return out
}

func sortedKeys(m map[string]BridgeConcept) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringSliceKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

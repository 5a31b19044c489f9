// Package rules holds the per-language vulnerability rule catalog.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule is a literal substring pattern and the description reported when it
// is found.
type Rule struct {
	Pattern     string `yaml:"pattern" json:"pattern"`
	Description string `yaml:"description" json:"description"`
}

// Catalog maps a language to its ordered rules. It is immutable once built
// and safe for concurrent readers.
type Catalog struct {
	rules map[string][]Rule
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog, parsed once per process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultRules)
		if err != nil {
			panic(fmt.Sprintf("built-in rule catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads a catalog file in the same YAML layout as the built-in one.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a catalog from YAML. Language keys are case-insensitive.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string][]Rule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	c := &Catalog{rules: make(map[string][]Rule, len(raw))}
	for lang, rs := range raw {
		key := strings.ToLower(strings.TrimSpace(lang))
		if key == "" {
			return nil, fmt.Errorf("empty language key")
		}
		for i, r := range rs {
			if r.Pattern == "" {
				return nil, fmt.Errorf("%s rule %d: empty pattern", key, i)
			}
		}
		c.rules[key] = slices.Clone(rs)
	}
	return c, nil
}

// For returns a copy of the ordered rules for language, or nil when the
// language has no rules.
func (c *Catalog) For(language string) []Rule {
	return slices.Clone(c.rules[strings.ToLower(language)])
}

// Languages returns the languages with at least one rule, sorted.
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.rules))
	for lang, rs := range c.rules {
		if len(rs) > 0 {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// Len returns the total number of rules across all languages.
func (c *Catalog) Len() int {
	n := 0
	for _, rs := range c.rules {
		n += len(rs)
	}
	return n
}

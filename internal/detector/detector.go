// Package detector matches catalog rules against the spans of a unit.
package detector

import (
	"strings"

	"github.com/ppiankov/codespectre/internal/rules"
	"github.com/ppiankov/codespectre/internal/span"
	"github.com/ppiankov/codespectre/internal/vuln"
)

// SpanSource produces the ordered spans of a unit.
type SpanSource interface {
	Spans(code, language string) []span.Span
}

// Engine runs catalog rules over spans. It is as safe for concurrent use as
// its SpanSource; a span.Extractor is not, so give each worker an Engine.
type Engine struct {
	catalog *rules.Catalog
	source  SpanSource
}

// New creates an Engine over catalog using source for spans.
func New(catalog *rules.Catalog, source SpanSource) *Engine {
	return &Engine{catalog: catalog, source: source}
}

// Detect returns at most one finding per rule for unit. For each rule the
// first span in traversal order containing its pattern wins.
func (e *Engine) Detect(unit vuln.Unit) []vuln.Finding {
	catalog := e.catalog.For(unit.Language)
	if len(catalog) == 0 {
		return nil
	}

	var findings []vuln.Finding
	want := distinct(catalog)
	matched := make(map[string]bool, want)
	for _, s := range e.source.Spans(unit.Content, unit.Language) {
		for _, r := range catalog {
			if matched[r.Pattern] {
				continue
			}
			if strings.Contains(s.Text, r.Pattern) {
				findings = append(findings, vuln.Finding{
					OriginID:    unit.OriginID,
					Line:        s.Line,
					Language:    unit.Language,
					Description: r.Description,
					Pattern:     r.Pattern,
				})
				matched[r.Pattern] = true
			}
		}
		if len(matched) == want {
			break
		}
	}
	return findings
}

// Detect runs a one-off detection with a private extractor.
func Detect(unit vuln.Unit, catalog *rules.Catalog) []vuln.Finding {
	ex := span.NewExtractor(span.Options{}, nil)
	defer ex.Close()
	return New(catalog, ex).Detect(unit)
}

func distinct(rs []rules.Rule) int {
	seen := make(map[string]bool, len(rs))
	for _, r := range rs {
		seen[r.Pattern] = true
	}
	return len(seen)
}

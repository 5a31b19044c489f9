package scanner

import (
	"context"
	"strings"

	"github.com/ppiankov/codespectre/internal/analyzer"
	"github.com/ppiankov/codespectre/internal/detector"
	"github.com/ppiankov/codespectre/internal/span"
	"github.com/ppiankov/codespectre/internal/vuln"
)

// AnalyzeSnippet detects and enriches a single piece of code. Languages
// with no rules produce an empty report.
func (s *Scanner) AnalyzeSnippet(ctx context.Context, code, language string) vuln.RepositoryReport {
	return s.AnalyzeUnit(ctx, vuln.Unit{Content: code, Language: language, OriginID: vuln.OriginSnippet})
}

// AnalyzeUnit analyzes one unit outside any workspace. The unit's origin
// becomes the report's source locator.
func (s *Scanner) AnalyzeUnit(ctx context.Context, unit vuln.Unit) vuln.RepositoryReport {
	start := s.now()

	ex := span.NewExtractor(s.cfg.Span, s.logger)
	defer ex.Close()

	unit.Language = strings.ToLower(strings.TrimSpace(unit.Language))
	if unit.OriginID == "" {
		unit.OriginID = vuln.OriginSnippet
	}
	findings := s.pipeline.AnalyzeUnit(ctx, detector.New(s.catalog, ex), unit)
	SortFindings(findings)
	return analyzer.UnitReport(unit.OriginID, findings, s.now().Sub(start).Seconds())
}

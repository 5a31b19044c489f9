package analyzer

import (
	"github.com/ppiankov/codespectre/internal/severity"
	"github.com/ppiankov/codespectre/internal/vuln"
)

// Analyze filters findings by minimum severity and computes aggregated summary statistics.
func Analyze(report vuln.RepositoryReport, cfg AnalyzerConfig) *AnalysisResult {
	filtered := make([]vuln.Finding, 0, len(report.Findings))
	for _, f := range report.Findings {
		if cfg.MinSeverity != "" && severity.Rank(f.Severity) > severity.Rank(cfg.MinSeverity) {
			continue
		}
		filtered = append(filtered, f)
	}
	report.Findings = filtered

	return &AnalysisResult{
		Report:  report,
		Summary: Summarize(report),
	}
}

// Summarize computes histograms over the findings of report.
func Summarize(report vuln.RepositoryReport) Summary {
	summary := Summary{
		TotalFilesFound:    report.TotalFilesFound,
		TotalFilesAnalyzed: report.TotalFilesAnalyzed,
		TotalFindings:      len(report.Findings),
		BySeverity:         make(map[string]int),
		ByLanguage:         make(map[string]int),
		ByCWE:              make(map[string]int),
		ByFile:             make(map[string]int),
	}

	for _, f := range report.Findings {
		sev := string(f.Severity)
		if sev == "" {
			sev = string(vuln.SeverityLow)
		}
		summary.BySeverity[sev]++
		summary.ByLanguage[f.Language]++
		if f.CWE != "" {
			summary.ByCWE[f.CWE]++
		}
		summary.ByFile[f.OriginID]++
	}
	summary.FilesWithFindings = len(summary.ByFile)

	return summary
}

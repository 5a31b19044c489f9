package analyzer

import (
	"github.com/ppiankov/codespectre/internal/vuln"
)

// Summary holds aggregated statistics about scan findings.
type Summary struct {
	TotalFilesFound    int            `json:"total_files_found"`
	TotalFilesAnalyzed int            `json:"total_files_analyzed"`
	TotalFindings      int            `json:"total_findings"`
	FilesWithFindings  int            `json:"files_with_findings"`
	BySeverity         map[string]int `json:"by_severity"`
	ByLanguage         map[string]int `json:"by_language"`
	ByCWE              map[string]int `json:"by_cwe"`
	ByFile             map[string]int `json:"by_file,omitempty"`
}

// AnalysisResult holds filtered findings and computed summary.
type AnalysisResult struct {
	Report  vuln.RepositoryReport `json:"report"`
	Summary Summary               `json:"summary"`
}

// AnalyzerConfig controls analysis behavior.
type AnalyzerConfig struct {
	// MinSeverity drops findings ranked below it. Empty keeps everything.
	MinSeverity vuln.Severity
}

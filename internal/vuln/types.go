package vuln

import "time"

// Severity levels for findings.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// OriginSnippet is the origin of a unit analyzed outside any repository.
const OriginSnippet = "snippet"

// Unit is a piece of source text handed to the detector.
type Unit struct {
	Content  string
	Language string
	OriginID string
}

// Finding represents a single rule match. The detector fills OriginID, Line,
// Language, Description and Pattern; enrichment fills the rest.
type Finding struct {
	OriginID     string   `json:"file"`
	Line         int      `json:"line"`
	Language     string   `json:"language"`
	Description  string   `json:"description"`
	Pattern      string   `json:"pattern"`
	CWE          string   `json:"cwe,omitempty"`
	CVE          []string `json:"cve,omitempty"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
	Severity     Severity `json:"severity,omitempty"`
}

// RepositoryReport is the outcome of scanning one source locator.
// TotalFilesAnalyzed never exceeds TotalFilesFound; the gap is the number
// of files that failed to read or analyze.
type RepositoryReport struct {
	SourceLocator      string    `json:"source_locator"`
	TotalFilesFound    int       `json:"total_files_found"`
	TotalFilesAnalyzed int       `json:"total_files_analyzed"`
	Findings           []Finding `json:"findings"`
	ElapsedSeconds     float64   `json:"elapsed_seconds"`
	Error              string    `json:"error,omitempty"`
	Errors             []string  `json:"errors,omitempty"`
}

// Failed reports whether the scan could not acquire its workspace.
func (r RepositoryReport) Failed() bool {
	return r.Error != ""
}

// ScanProgress reports scanning progress to callers.
type ScanProgress struct {
	Stage     string
	Message   string
	Timestamp time.Time
}

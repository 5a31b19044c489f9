package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/codespectre/internal/analyzer"
	"github.com/ppiankov/codespectre/internal/vuln"
)

// ErrUnsupportedFormat is returned for a format name or value with no reporter.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Format selects a report renderer.
type Format int

const (
	FormatJSON Format = iota
	FormatText
	FormatHTML
	FormatPDF
	FormatSARIF
)

var formatNames = map[Format]string{
	FormatJSON:  "json",
	FormatText:  "text",
	FormatHTML:  "html",
	FormatPDF:   "pdf",
	FormatSARIF: "sarif",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ContentType returns the MIME type of rendered output.
func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatSARIF:
		return "application/sarif+json"
	default:
		return "application/json"
	}
}

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool {
	return f == FormatPDF
}

// ParseFormat maps a case-insensitive name to a Format.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (use json, text, html, pdf, or sarif)", ErrUnsupportedFormat, s)
}

// Reporter is the interface for output formatters.
type Reporter interface {
	Generate(data Data) error
}

// Data holds all information needed to generate a report.
type Data struct {
	Tool      string                `json:"tool"`
	Version   string                `json:"version"`
	Timestamp time.Time             `json:"timestamp"`
	Target    Target                `json:"target"`
	Config    ReportConfig          `json:"config"`
	Report    vuln.RepositoryReport `json:"report"`
	Summary   analyzer.Summary      `json:"summary"`
}

// Target identifies what was analyzed.
type Target struct {
	Type    string `json:"type"`
	URIHash string `json:"uri_hash,omitempty"`
}

// ReportConfig captures the scan configuration used.
type ReportConfig struct {
	Branch      string `json:"branch,omitempty"`
	Workers     int    `json:"workers,omitempty"`
	MaxFileKB   int    `json:"max_file_kb,omitempty"`
	LinesOnly   bool   `json:"lines_only,omitempty"`
	MinSeverity string `json:"min_severity,omitempty"`
	FixBackend  string `json:"fix_backend,omitempty"`
}

// TextReporter generates human-readable terminal output.
type TextReporter struct {
	Writer io.Writer
	Color  bool
}

// JSONReporter generates spectre/v1 envelope JSON output.
type JSONReporter struct {
	Writer io.Writer
}

// HTMLReporter generates a standalone HTML page.
type HTMLReporter struct {
	Writer io.Writer
}

// PDFReporter generates a PDF document.
type PDFReporter struct {
	Writer io.Writer
}

// SARIFReporter generates SARIF v2.1.0 output.
type SARIFReporter struct {
	Writer io.Writer
}

// NewReporter returns the reporter for f writing to w. Text output is
// colored when w is a terminal.
func NewReporter(f Format, w io.Writer) (Reporter, error) {
	switch f {
	case FormatJSON:
		return &JSONReporter{Writer: w}, nil
	case FormatText:
		return &TextReporter{Writer: w, Color: ColorEnabled(w)}, nil
	case FormatHTML:
		return &HTMLReporter{Writer: w}, nil
	case FormatPDF:
		return &PDFReporter{Writer: w}, nil
	case FormatSARIF:
		return &SARIFReporter{Writer: w}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// Render writes data to w in format f.
func Render(w io.Writer, f Format, data Data) error {
	r, err := NewReporter(f, w)
	if err != nil {
		return err
	}
	return r.Generate(data)
}

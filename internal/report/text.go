package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/ppiankov/codespectre/internal/vuln"
)

// ColorEnabled reports whether w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type textStyles struct {
	high, medium, low lipgloss.Style
	file, fix         lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		high:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		medium: r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		low:    r.NewStyle().Faint(true),
		file:   r.NewStyle().Foreground(lipgloss.Color("6")),
		fix:    r.NewStyle().Faint(true),
	}
}

func (s textStyles) severity(sev vuln.Severity, label string) string {
	switch sev {
	case vuln.SeverityHigh:
		return s.high.Render(label)
	case vuln.SeverityMedium:
		return s.medium.Render(label)
	default:
		return s.low.Render(label)
	}
}

// Generate writes human-readable terminal output.
func (r *TextReporter) Generate(data Data) error {
	w := &errWriter{w: r.Writer}
	var styles *textStyles
	if r.Color {
		s := newTextStyles(r.Writer)
		styles = &s
	}

	w.println("codespectre: Vulnerability Analysis Report")
	w.println(strings.Repeat("=", 60))
	w.println("")

	rep := data.Report
	if rep.Error != "" {
		w.printf("Scan failed: %s\n\n", rep.Error)
		writeTextSummary(w, data)
		return w.err
	}

	if len(rep.Findings) == 0 {
		w.println("No vulnerabilities found.")
		w.println("")
		writeTextSummary(w, data)
		return w.err
	}

	w.printf("Found %d potential vulnerabilities in %d files\n\n",
		data.Summary.TotalFindings, data.Summary.FilesWithFindings)

	// Severity labels are styled outside the tabwriter; escape sequences
	// would otherwise skew column widths.
	var table bytes.Buffer
	tw := tabwriter.NewWriter(&table, 0, 4, 2, ' ', 0)
	tw2 := &errWriter{w: tw}
	tw2.printf("LOCATION\tCWE\tDESCRIPTION\n")
	tw2.printf("--------\t---\t-----------\n")
	for _, f := range rep.Findings {
		cwe := f.CWE
		if cwe == "" {
			cwe = "-"
		}
		tw2.printf("%s:%d\t%s\t%s\n", cell(f.OriginID), f.Line, cwe, cell(f.Description))
	}
	if tw2.err != nil {
		return tw2.err
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	rows := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
	for i, row := range rows {
		if i < 2 {
			label := "SEVERITY"
			if i == 1 {
				label = "--------"
			}
			w.printf("%-8s  %s\n", label, row)
			continue
		}
		f := rep.Findings[i-2]
		label := fmt.Sprintf("%-8s", strings.ToUpper(string(f.Severity)))
		if styles != nil {
			label = styles.severity(f.Severity, label)
		}
		w.printf("%s  %s\n", label, row)
	}

	fixes := 0
	for _, f := range rep.Findings {
		if f.SuggestedFix != "" {
			fixes++
		}
	}
	if fixes > 0 {
		w.println("")
		w.println("Suggested fixes")
		w.println("---------------")
		for _, f := range rep.Findings {
			if f.SuggestedFix == "" {
				continue
			}
			loc := fmt.Sprintf("%s:%d", f.OriginID, f.Line)
			fix := "-> " + oneLine(f.SuggestedFix)
			if styles != nil {
				loc = styles.file.Render(loc)
				fix = styles.fix.Render(fix)
			}
			w.printf("  %s\n    %s\n", loc, fix)
		}
	}

	w.println("")
	writeTextSummary(w, data)
	return w.err
}

func writeTextSummary(w *errWriter, data Data) {
	rep := data.Report
	w.println("Summary")
	w.println("-------")
	if rep.SourceLocator != "" {
		w.printf("Source:                  %s\n", rep.SourceLocator)
	}
	w.printf("Files found:             %d\n", rep.TotalFilesFound)
	w.printf("Files analyzed:          %d\n", rep.TotalFilesAnalyzed)
	w.printf("Total findings:          %d\n", data.Summary.TotalFindings)
	w.printf("Analysis time:           %.2f seconds\n", rep.ElapsedSeconds)
	if !data.Timestamp.IsZero() {
		w.printf("Timestamp:               %s\n", data.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}

	if len(data.Summary.BySeverity) > 0 {
		parts := formatMapSorted(data.Summary.BySeverity)
		w.printf("By severity:             %s\n", strings.Join(parts, ", "))
	}
	if len(data.Summary.ByLanguage) > 0 {
		parts := formatMapSorted(data.Summary.ByLanguage)
		w.printf("By language:             %s\n", strings.Join(parts, ", "))
	}
	if len(data.Summary.ByCWE) > 0 {
		parts := formatMapSorted(data.Summary.ByCWE)
		w.printf("By CWE:                  %s\n", strings.Join(parts, ", "))
	}

	if len(rep.Errors) > 0 {
		w.printf("\nWarnings (%d):\n", len(rep.Errors))
		for _, e := range rep.Errors {
			w.printf("  - %s\n", e)
		}
	}
}

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return truncateRunes(s, 200)
}

func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "\t", " ")
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func formatMapSorted(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return parts
}

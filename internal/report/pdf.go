package report

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Generate writes a Letter-sized PDF. Core fonts are used, so text is
// translated to cp1252 and unmappable runes become dots.
func (r *PDFReporter) Generate(data Data) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Vulnerability Analysis Report", true)
	pdf.SetCreator(data.Tool, true)
	if !data.Timestamp.IsZero() {
		pdf.SetCreationDate(data.Timestamp)
		pdf.SetModificationDate(data.Timestamp)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, "Vulnerability Analysis Report", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	rep := data.Report
	source := rep.SourceLocator
	if source == "" {
		source = "N/A"
	}
	rows := [][2]string{
		{"Source", source},
		{"Total Files Found", fmt.Sprint(rep.TotalFilesFound)},
		{"Total Files Analyzed", fmt.Sprint(rep.TotalFilesAnalyzed)},
		{"Total Vulnerabilities Found", fmt.Sprint(data.Summary.TotalFindings)},
		{"Analysis Time", fmt.Sprintf("%.2f seconds", rep.ElapsedSeconds)},
	}
	if !data.Timestamp.IsZero() {
		rows = append(rows, [2]string{"Timestamp", data.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")})
	}
	if rep.Error != "" {
		rows = append(rows, [2]string{"Error", rep.Error})
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(245, 245, 220)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 7, tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, tr(truncateRunes(row[1], 90)), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Vulnerabilities Found", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(rep.Findings) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, "No vulnerabilities found.", "", 1, "L", false, 0, "")
	}
	for i, f := range rep.Findings {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("%d. File: %s", i+1, f.OriginID)), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		meta := fmt.Sprintf("Line: %d | Language: %s | Severity: %s", f.Line, f.Language, strings.ToUpper(string(f.Severity)))
		if f.CWE != "" {
			meta += " | " + f.CWE
		}
		pdf.MultiCell(0, 5, tr(meta), "", "L", false)
		pdf.MultiCell(0, 5, tr("Description: "+f.Description), "", "L", false)
		if f.SuggestedFix != "" {
			pdf.MultiCell(0, 5, tr("Suggested fix: "+oneLine(f.SuggestedFix)), "", "L", false)
		}
		pdf.Ln(3)
	}

	if pdf.Err() {
		return fmt.Errorf("render PDF report: %w", pdf.Error())
	}
	if err := pdf.Output(r.Writer); err != nil {
		return fmt.Errorf("write PDF report: %w", err)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

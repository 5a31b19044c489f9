package scanner

import (
	"context"
	"testing"

	"github.com/ppiankov/codespectre/internal/vuln"
)

func TestAnalyzeSnippet(t *testing.T) {
	s := newTestScanner(&mockFetcher{}, 1)
	report := s.AnalyzeSnippet(context.Background(), "def f():\n    eval('x')", "Python")

	if report.SourceLocator != vuln.OriginSnippet {
		t.Errorf("SourceLocator = %q", report.SourceLocator)
	}
	if report.TotalFilesFound != 1 || report.TotalFilesAnalyzed != 1 {
		t.Errorf("counts = %d/%d, want 1/1", report.TotalFilesAnalyzed, report.TotalFilesFound)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(report.Findings))
	}
	f := report.Findings[0]
	if f.Line != 2 {
		t.Errorf("Line = %d, want 2", f.Line)
	}
	if f.OriginID != vuln.OriginSnippet {
		t.Errorf("OriginID = %q", f.OriginID)
	}
	if f.CWE != "CWE-94" {
		t.Errorf("CWE = %q, want CWE-94", f.CWE)
	}
	if f.Severity != vuln.SeverityHigh {
		t.Errorf("Severity = %q, want high", f.Severity)
	}
	if f.SuggestedFix == "" {
		t.Error("SuggestedFix is empty")
	}
}

func TestAnalyzeSnippetUnknownLanguage(t *testing.T) {
	s := newTestScanner(&mockFetcher{}, 1)
	report := s.AnalyzeSnippet(context.Background(), "eval(x)", "cobol")
	if report.Findings == nil || len(report.Findings) != 0 {
		t.Errorf("Findings = %v, want empty non-nil slice", report.Findings)
	}
}

func TestAnalyzeUnitKeepsOrigin(t *testing.T) {
	s := newTestScanner(&mockFetcher{}, 1)
	report := s.AnalyzeUnit(context.Background(), vuln.Unit{
		Content:  "int main() {\n  char b[4];\n  strcpy(b, argv[1]);\n}\n",
		Language: "c",
		OriginID: "src/main.c",
	})
	if report.SourceLocator != "src/main.c" {
		t.Errorf("SourceLocator = %q", report.SourceLocator)
	}
	if len(report.Findings) == 0 {
		t.Fatal("no findings")
	}
	for _, f := range report.Findings {
		if f.OriginID != "src/main.c" {
			t.Errorf("OriginID = %q", f.OriginID)
		}
	}
}

package analyzer

import (
	"context"
	"strings"

	"github.com/ppiankov/codespectre/internal/cwe"
	"github.com/ppiankov/codespectre/internal/fix"
	"github.com/ppiankov/codespectre/internal/severity"
	"github.com/ppiankov/codespectre/internal/vuln"
)

// excerptRadius is the number of lines kept on each side of a finding when
// building the code excerpt sent to the fix suggester.
const excerptRadius = 3

// Detector produces raw findings for a unit.
type Detector interface {
	Detect(unit vuln.Unit) []vuln.Finding
}

// Pipeline enriches raw findings with CWE/CVE data, severity and a
// suggested fix.
type Pipeline struct {
	fixes *fix.Dispatcher
}

// NewPipeline creates a pipeline that obtains fixes through d.
func NewPipeline(d *fix.Dispatcher) *Pipeline {
	return &Pipeline{fixes: d}
}

// Classify sets the CWE/CVE and severity fields of f.
func Classify(f *vuln.Finding) {
	cwe.Apply(f)
	severity.Apply(f)
}

// AnalyzeUnit detects and fully enriches one unit. Findings keep detection
// order.
func (p *Pipeline) AnalyzeUnit(ctx context.Context, d Detector, unit vuln.Unit) []vuln.Finding {
	findings := d.Detect(unit)
	p.Enrich(ctx, findings, unit.Content)
	return findings
}

// Enrich classifies findings in place and waits for their fixes.
func (p *Pipeline) Enrich(ctx context.Context, findings []vuln.Finding, code string) {
	for i := range findings {
		f := &findings[i]
		Classify(f)
		f.SuggestedFix = p.fixes.Suggest(ctx, request(f, code))
	}
}

// Batch enriches findings from many units while their fixes are computed
// in the background.
type Batch struct {
	fixes *fix.Batch
}

// NewBatch starts a batch on the pipeline's dispatcher.
func (p *Pipeline) NewBatch() *Batch {
	return &Batch{fixes: p.fixes.Batch()}
}

// Enrich classifies findings in place and schedules their fixes. The
// SuggestedFix fields must not be read until Wait returns.
func (b *Batch) Enrich(ctx context.Context, findings []vuln.Finding, code string) {
	for i := range findings {
		f := &findings[i]
		Classify(f)
		b.fixes.Go(ctx, request(f, code), func(s string) {
			f.SuggestedFix = s
		})
	}
}

// Wait blocks until every fix scheduled on the batch is attached.
func (b *Batch) Wait() {
	b.fixes.Wait()
}

// UnitReport wraps the findings of a single analyzed unit as a report.
func UnitReport(locator string, findings []vuln.Finding, elapsedSeconds float64) vuln.RepositoryReport {
	if findings == nil {
		findings = []vuln.Finding{}
	}
	return vuln.RepositoryReport{
		SourceLocator:      locator,
		TotalFilesFound:    1,
		TotalFilesAnalyzed: 1,
		Findings:           findings,
		ElapsedSeconds:     elapsedSeconds,
	}
}

func request(f *vuln.Finding, code string) fix.Request {
	return fix.Request{
		Code:        excerpt(code, f.Line, excerptRadius),
		Description: f.Description,
		Language:    f.Language,
	}
}

// excerpt returns the lines within radius of the 1-based line.
func excerpt(code string, line, radius int) string {
	lines := strings.Split(code, "\n")
	if line < 1 || line > len(lines) {
		return code
	}
	lo := max(line-1-radius, 0)
	hi := min(line+radius, len(lines))
	return strings.Join(lines[lo:hi], "\n")
}

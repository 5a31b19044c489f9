package report

import (
	"fmt"
	"html/template"
	"strings"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": func(s any) string { return strings.ToUpper(fmt.Sprint(s)) },
	"join":  strings.Join,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Vulnerability Analysis Report</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.header { background-color: #f0f0f0; padding: 20px; border-radius: 5px; }
.summary { margin: 20px 0; }
.vulnerability { border: 1px solid #ddd; margin: 10px 0; padding: 15px; border-radius: 5px; }
.file { font-weight: bold; color: #333; }
.line { color: #666; }
.description { margin-top: 10px; }
.fix { margin-top: 10px; color: #2b6; }
.severity-high { color: #c00; font-weight: bold; }
.severity-medium { color: #b80; font-weight: bold; }
.severity-low { color: #888; }
.no-vulns { color: green; font-style: italic; }
.error { color: #c00; }
</style>
</head>
<body>
<div class="header">
<h1>Vulnerability Analysis Report</h1>
</div>
<div class="summary">
<h2>Summary</h2>
<p><strong>Source:</strong> {{if .Report.SourceLocator}}{{.Report.SourceLocator}}{{else}}N/A{{end}}</p>
<p><strong>Total Files Found:</strong> {{.Report.TotalFilesFound}}</p>
<p><strong>Total Files Analyzed:</strong> {{.Report.TotalFilesAnalyzed}}</p>
<p><strong>Total Vulnerabilities Found:</strong> {{.Summary.TotalFindings}}</p>
<p><strong>Analysis Time:</strong> {{printf "%.2f" .Report.ElapsedSeconds}} seconds</p>
{{- if not .Timestamp.IsZero}}
<p><strong>Timestamp:</strong> {{.Timestamp.UTC.Format "2006-01-02 15:04:05 MST"}}</p>
{{- end}}
{{- if .Report.Error}}
<p class="error"><strong>Error:</strong> {{.Report.Error}}</p>
{{- end}}
</div>
<div class="vulnerabilities">
<h2>Vulnerabilities Found</h2>
{{- range .Report.Findings}}
<div class="vulnerability">
<div class="file">File: {{.OriginID}}</div>
<div class="line">Line: {{.Line}} | Language: {{.Language}} | <span class="severity-{{.Severity}}">{{upper .Severity}}</span>{{if .CWE}} | {{.CWE}}{{end}}{{if .CVE}} ({{join .CVE ", "}}){{end}}</div>
<div class="description">{{.Description}}</div>
{{- if .SuggestedFix}}
<div class="fix">Suggested fix: {{.SuggestedFix}}</div>
{{- end}}
</div>
{{- else}}
<p class="no-vulns">No vulnerabilities found.</p>
{{- end}}
</div>
{{- if .Report.Errors}}
<div class="warnings">
<h2>Warnings</h2>
<ul>
{{- range .Report.Errors}}
<li>{{.}}</li>
{{- end}}
</ul>
</div>
{{- end}}
</body>
</html>
`))

// Generate writes a standalone HTML page. All finding text is escaped.
func (r *HTMLReporter) Generate(data Data) error {
	if err := htmlTemplate.Execute(r.Writer, data); err != nil {
		return fmt.Errorf("render HTML report: %w", err)
	}
	return nil
}

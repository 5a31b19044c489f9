package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/codespectre/internal/report"
	"github.com/ppiankov/codespectre/internal/vuln"
)

func sampleFindings() []vuln.Finding {
	return []vuln.Finding{{
		OriginID:     vuln.OriginSnippet,
		Line:         2,
		Language:     "python",
		Description:  "Use of 'eval' is insecure and may allow code execution vulnerabilities.",
		Pattern:      "eval(",
		CWE:          "CWE-94",
		SuggestedFix: "Use ast.literal_eval() for safe evaluation of literals",
		Severity:     vuln.SeverityHigh,
	}}
}

func newTestServer(t *testing.T, svc *mockService, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.Version == "" {
		cfg.Version = "1.2.3"
	}
	ts := httptest.NewServer(New(svc, cfg, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestPingAndVersion(t *testing.T) {
	ts := newTestServer(t, &mockService{}, Config{})

	for _, prefix := range []string{"", "/api"} {
		resp, err := http.Get(ts.URL + prefix + "/ping")
		if err != nil {
			t.Fatal(err)
		}
		var ping map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&ping)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || ping["status"] != "ok" {
			t.Errorf("%s/ping = %d %v", prefix, resp.StatusCode, ping)
		}

		resp, err = http.Get(ts.URL + prefix + "/version")
		if err != nil {
			t.Fatal(err)
		}
		var ver map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&ver)
		_ = resp.Body.Close()
		if ver["version"] != "1.2.3" {
			t.Errorf("%s/version = %v", prefix, ver)
		}
	}
}

func TestAnalyze(t *testing.T) {
	svc := &mockService{snippet: vuln.RepositoryReport{Findings: sampleFindings()}}
	ts := newTestServer(t, svc, Config{})

	resp := post(t, ts.URL+"/api/analyze", `{"code":"def f():\n    eval('x')","language":"python"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Vulnerabilities) != 1 || got.Vulnerabilities[0].Line != 2 {
		t.Errorf("vulnerabilities = %+v", got.Vulnerabilities)
	}
	if got.Vulnerabilities[0].CWE != "CWE-94" {
		t.Errorf("CWE = %q", got.Vulnerabilities[0].CWE)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	ts := newTestServer(t, &mockService{}, Config{})

	tests := []struct {
		name string
		body string
	}{
		{"missing language", `{"code":"x"}`},
		{"invalid json", `{"code":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/analyze", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestAnalyzeBodyLimit(t *testing.T) {
	ts := newTestServer(t, &mockService{}, Config{MaxBodyBytes: 16})
	resp := post(t, ts.URL+"/analyze", `{"code":"`+strings.Repeat("a", 100)+`","language":"python"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &mockService{}, Config{})
	resp, err := http.Get(ts.URL + "/analyze")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestScan(t *testing.T) {
	svc := &mockService{scan: vuln.RepositoryReport{
		TotalFilesFound:    6,
		TotalFilesAnalyzed: 4,
		Findings:           sampleFindings(),
	}}
	ts := newTestServer(t, svc, Config{ScanTimeout: time.Minute})

	resp := post(t, ts.URL+"/scan", `{"repository_url":"https://github.com/example/app.git","branch":"dev"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got vuln.RepositoryReport
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.TotalFilesFound != 6 || got.TotalFilesAnalyzed != 4 {
		t.Errorf("counts = %d/%d", got.TotalFilesAnalyzed, got.TotalFilesFound)
	}
	_, branches, hadTimeout := svc.recorded()
	if len(branches) != 1 || branches[0] != "dev" {
		t.Errorf("branches = %v, want [dev]", branches)
	}
	if !hadTimeout {
		t.Error("scan context has no deadline")
	}
}

func TestScanFailureStatus(t *testing.T) {
	svc := &mockService{scan: vuln.RepositoryReport{Error: "clone failed"}}
	ts := newTestServer(t, svc, Config{})

	resp := post(t, ts.URL+"/scan", `{"repository_url":"git@github.com:example/app.git"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestScanRejectsLocalPaths(t *testing.T) {
	svc := &mockService{}
	ts := newTestServer(t, svc, Config{})

	resp := post(t, ts.URL+"/scan", `{"repository_url":"/etc"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if locators, _, _ := svc.recorded(); len(locators) != 0 {
		t.Error("scan ran for a local path")
	}

	resp = post(t, ts.URL+"/scan", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty locator status = %d, want 400", resp.StatusCode)
	}
}

func TestScanAllowLocal(t *testing.T) {
	svc := &mockService{}
	ts := newTestServer(t, svc, Config{AllowLocal: true})
	resp := post(t, ts.URL+"/scan", `{"repository_url":"/srv/repo"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestReportFormats(t *testing.T) {
	svc := &mockService{snippet: vuln.RepositoryReport{
		SourceLocator:      vuln.OriginSnippet,
		TotalFilesFound:    1,
		TotalFilesAnalyzed: 1,
		Findings:           sampleFindings(),
	}}
	ts := newTestServer(t, svc, Config{})
	body := `{"code":"eval(x)","language":"python"}`

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"json", "application/json", `"$schema": "spectre/v1"`},
		{"text", "text/plain", "Vulnerability Analysis Report"},
		{"html", "text/html", "<!DOCTYPE html>"},
		{"pdf", "application/pdf", "%PDF-"},
		{"sarif", "application/sarif+json", `"version": "2.1.0"`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp := post(t, ts.URL+"/report?format="+tt.format, body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			data, _ := io.ReadAll(resp.Body)
			if !bytes.Contains(data, []byte(tt.contains)) {
				t.Errorf("body missing %q", tt.contains)
			}
		})
	}
}

func TestReportJSONRoundTrip(t *testing.T) {
	svc := &mockService{scan: vuln.RepositoryReport{
		TotalFilesFound:    6,
		TotalFilesAnalyzed: 4,
		Findings:           sampleFindings(),
	}}
	ts := newTestServer(t, svc, Config{})

	resp := post(t, ts.URL+"/api/report", `{"repository_url":"https://github.com/example/app"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data, err := report.DecodeJSON(resp.Body)
	if err != nil {
		t.Fatalf("DecodeJSON() error: %v", err)
	}
	if data.Target.Type != "repository" {
		t.Errorf("Target.Type = %q", data.Target.Type)
	}
	if data.Report.TotalFilesFound != 6 || data.Report.TotalFilesAnalyzed != 4 {
		t.Errorf("counts = %d/%d", data.Report.TotalFilesAnalyzed, data.Report.TotalFilesFound)
	}
	if data.Summary.TotalFindings != 1 {
		t.Errorf("Summary.TotalFindings = %d", data.Summary.TotalFindings)
	}
}

func TestReportUnsupportedFormat(t *testing.T) {
	ts := newTestServer(t, &mockService{}, Config{})
	resp := post(t, ts.URL+"/report?format=xml", `{"code":"x","language":"python"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &mockService{}, Config{})
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/analyze", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://github.com/a/b", true},
		{"http://host/x.git", true},
		{"ssh://git@host/x.git", true},
		{"git://host/x.git", true},
		{"git@github.com:a/b.git", true},
		{"/tmp/repo", false},
		{"./repo", false},
		{"/tmp/a@b:c", false},
		{"file:///etc", false},
	}
	for _, tt := range tests {
		if got := IsRemote(tt.in); got != tt.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

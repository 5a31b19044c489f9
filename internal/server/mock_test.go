package server

import (
	"context"
	"sync"

	"github.com/ppiankov/codespectre/internal/scanner"
	"github.com/ppiankov/codespectre/internal/vuln"
)

// mockService records calls and returns canned reports.
type mockService struct {
	mu         sync.Mutex
	snippet    vuln.RepositoryReport
	scan       vuln.RepositoryReport
	locators   []string
	branches   []string
	languages  []string
	hadTimeout bool
}

func (m *mockService) AnalyzeSnippet(_ context.Context, _, language string) vuln.RepositoryReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.languages = append(m.languages, language)
	return m.snippet
}

func (m *mockService) Scan(ctx context.Context, locator string, opts scanner.Options, _ func(vuln.ScanProgress)) vuln.RepositoryReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locators = append(m.locators, locator)
	m.branches = append(m.branches, opts.Branch)
	_, m.hadTimeout = ctx.Deadline()
	rep := m.scan
	rep.SourceLocator = locator
	return rep
}

func (m *mockService) recorded() (locators, branches []string, hadTimeout bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locators...), append([]string(nil), m.branches...), m.hadTimeout
}

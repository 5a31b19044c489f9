package fix

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/codespectre/internal/cwe"
)

func TestLookupFixes(t *testing.T) {
	tests := []struct {
		category string
		language string
		first    string
	}{
		{cwe.CodeInjection, "python", "Replace eval() with ast.literal_eval() for safe evaluation"},
		{cwe.CodeInjection, "javascript", "Replace eval() with JSON.parse() for JSON parsing"},
		{cwe.SQLInjection, "java", "Use PreparedStatement instead of raw SQL"},
		{cwe.CrossSiteScripting, "html", "Use proper HTML encoding"},
		{cwe.BufferOverflow, "cpp", "Use strncpy() with proper bounds checking"},
		{cwe.HardcodedSecret, "go", "Use environment variables for sensitive data"},
		{cwe.InsecureDeserialization, "python", "Use json.loads() instead of pickle.loads()"},
		{cwe.BufferOverflow, "python", Generic[0]},
		{"unknown", "python", Generic[0]},
		{"", "c", Generic[0]},
	}
	for _, tt := range tests {
		got := lookupFixes(tt.category, tt.language)
		if len(got) == 0 || got[0] != tt.first {
			t.Errorf("lookupFixes(%q, %q)[0] = %v, want %q", tt.category, tt.language, got, tt.first)
		}
	}
}

func TestStaticSuggest(t *testing.T) {
	got := Static{}.Suggest(context.Background(), Request{
		Code:        "eval(x)",
		Description: "Use of 'eval' is insecure and may allow code execution vulnerabilities.",
		Language:    "Python",
	})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != "Replace eval() with ast.literal_eval() for safe evaluation" {
		t.Errorf("first = %q", got[0])
	}

	got[0] = "mutated"
	if Fixes[cwe.CodeInjection]["python"][0] == "mutated" {
		t.Error("Suggest() returned the catalog's slice")
	}
}

func TestStaticSuggestFallback(t *testing.T) {
	got := Static{}.Suggest(context.Background(), Request{Description: "CSS behaviors may lead to security vulnerabilities.", Language: "css"})
	if got[0] != Generic[0] {
		t.Errorf("first = %q, want %q", got[0], Generic[0])
	}
}

func TestGenerativeSuggest(t *testing.T) {
	b := &mockBackend{text: "  use ast.literal_eval(x)  "}
	g := NewGenerative(b, 0, CompletionOptions{})

	got := g.Suggest(context.Background(), Request{Code: "eval(x)", Description: "eval is bad", Language: "python"})
	if len(got) != 1 || got[0] != "use ast.literal_eval(x)" {
		t.Errorf("Suggest() = %v", got)
	}
	if b.opts.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", b.opts.Temperature, DefaultTemperature)
	}
	if !strings.Contains(b.prompt, "eval is bad") || !strings.Contains(b.prompt, "eval(x)") {
		t.Errorf("prompt missing request fields: %q", b.prompt)
	}
	if b.system == "" {
		t.Error("system prompt not sent")
	}
}

func TestGenerativeSuggestError(t *testing.T) {
	g := NewGenerative(&mockBackend{err: errors.New("boom")}, 0, CompletionOptions{})
	got := g.Suggest(context.Background(), Request{})
	if len(got) != 1 || !IsUnavailable(got[0]) {
		t.Fatalf("Suggest() = %v, want placeholder", got)
	}
	if !strings.Contains(got[0], "mock backend: boom") {
		t.Errorf("placeholder = %q, want backend reason", got[0])
	}
}

func TestGenerativeSuggestEmpty(t *testing.T) {
	g := NewGenerative(&mockBackend{text: "   "}, 0, CompletionOptions{})
	got := g.Suggest(context.Background(), Request{})
	if !IsUnavailable(got[0]) {
		t.Errorf("Suggest() = %v, want placeholder", got)
	}
}

func TestBuildPromptBounded(t *testing.T) {
	req := Request{Code: strings.Repeat("é", 5000), Description: "d", Language: "python"}
	p := BuildPrompt(req, 300)
	if len(p) > 300 {
		t.Errorf("len(prompt) = %d, want <= 300", len(p))
	}
	if !strings.HasSuffix(p, "Suggest a secure replacement.") {
		t.Errorf("prompt lost its instruction: %q", p[len(p)-40:])
	}
	if !strings.Contains(p, "Issue: d") {
		t.Error("prompt lost the description")
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	if got := truncate("aé", 2); got != "a" {
		t.Errorf("truncate() = %q, want %q", got, "a")
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate() = %q, want %q", got, "abc")
	}
}

func TestNewBackends(t *testing.T) {
	s, err := New(context.Background(), Options{})
	if err != nil {
		t.Fatalf("New(static) error: %v", err)
	}
	if _, ok := s.(Static); !ok {
		t.Errorf("New(\"\") = %T, want Static", s)
	}

	s, err = New(context.Background(), Options{Backend: "openai", APIKey: "k"})
	if err != nil {
		t.Fatalf("New(openai) error: %v", err)
	}
	if _, ok := s.(*Generative); !ok {
		t.Errorf("New(openai) = %T, want *Generative", s)
	}

	if _, err := New(context.Background(), Options{Backend: "openai"}); err == nil {
		t.Error("New(openai) without key should error")
	}
	if _, err := New(context.Background(), Options{Backend: "oracle"}); err == nil {
		t.Error("New(oracle) should error")
	}
}

func TestDispatcherConcurrencyCap(t *testing.T) {
	s := &slowSuggester{delay: 20 * time.Millisecond}
	d := NewDispatcher(s, DispatcherConfig{Concurrency: 2, Timeout: time.Second}, nil)

	b := d.Batch()
	results := make([]string, 8)
	for i := range results {
		b.Go(context.Background(), Request{}, func(r string) { results[i] = r })
	}
	b.Wait()

	for i, r := range results {
		if r != "done" {
			t.Errorf("results[%d] = %q, want done", i, r)
		}
	}
	if s.peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", s.peak)
	}
}

func TestDispatcherTimeout(t *testing.T) {
	s := &slowSuggester{delay: 500 * time.Millisecond, ignore: true}
	d := NewDispatcher(s, DispatcherConfig{Timeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	got := d.Suggest(context.Background(), Request{})
	if !IsUnavailable(got) {
		t.Errorf("Suggest() = %q, want placeholder", got)
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Error("Suggest() did not honour its timeout")
	}
}

func TestDispatcherTimeoutKeepsSlot(t *testing.T) {
	s := &slowSuggester{delay: 100 * time.Millisecond, ignore: true}
	d := NewDispatcher(s, DispatcherConfig{Concurrency: 1, Timeout: 10 * time.Millisecond}, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := d.Suggest(context.Background(), Request{}); !IsUnavailable(got) {
				t.Errorf("Suggest() = %q, want placeholder", got)
			}
		}()
	}
	wg.Wait()

	if peak := s.peakActive(); peak > 1 {
		t.Errorf("peak backend calls = %d, want <= 1", peak)
	}
}

func TestDispatcherCancelled(t *testing.T) {
	d := NewDispatcher(Static{}, DispatcherConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := d.Suggest(ctx, Request{}); !IsUnavailable(got) {
		t.Errorf("Suggest() = %q, want placeholder", got)
	}
}

func TestDispatcherStatic(t *testing.T) {
	d := NewDispatcher(Static{}, DispatcherConfig{RatePerSecond: 1000}, nil)
	got := d.Suggest(context.Background(), Request{Description: "Hardcoded secrets in code are a security risk.", Language: "python"})
	if got != "Use environment variables for sensitive data" {
		t.Errorf("Suggest() = %q", got)
	}
}

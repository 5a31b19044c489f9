package fix

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Defaults for generative suggestions.
const (
	DefaultMaxPromptChars = 4000
	DefaultTemperature    = 0.2
	DefaultMaxTokens      = 512
)

const systemPrompt = "You are an application security engineer. Reply with a corrected code fragment and one sentence explaining the fix."

// CompletionOptions are the sampling parameters passed to a backend.
type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
}

// Backend completes a prompt with a generative model.
type Backend interface {
	Name() string
	Complete(ctx context.Context, system, prompt string, opts CompletionOptions) (string, error)
}

// Generative asks a Backend for a single suggestion per finding.
type Generative struct {
	backend        Backend
	maxPromptChars int
	opts           CompletionOptions
}

// NewGenerative wraps backend. Zero values take the package defaults.
func NewGenerative(backend Backend, maxPromptChars int, opts CompletionOptions) *Generative {
	if maxPromptChars <= 0 {
		maxPromptChars = DefaultMaxPromptChars
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &Generative{backend: backend, maxPromptChars: maxPromptChars, opts: opts}
}

// Suggest returns the model's answer, or a placeholder on any failure.
func (g *Generative) Suggest(ctx context.Context, req Request) []string {
	text, err := g.backend.Complete(ctx, systemPrompt, BuildPrompt(req, g.maxPromptChars), g.opts)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		var be *BackendError
		if !errors.As(err, &be) {
			err = &BackendError{Backend: g.backend.Name(), Err: err}
		}
		return []string{Unavailable(err)}
	}
	return []string{strings.TrimSpace(text)}
}

// BuildPrompt renders the request into a prompt no longer than maxChars
// bytes. The code excerpt is truncated first.
func BuildPrompt(req Request, maxChars int) string {
	header := fmt.Sprintf("Language: %s\nIssue: %s\n\nCode:\n", req.Language, req.Description)
	footer := "\n\nSuggest a secure replacement."

	budget := maxChars - len(header) - len(footer)
	if budget < 0 {
		budget = 0
	}
	return truncate(header+truncate(req.Code, budget)+footer, maxChars)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Package fix produces remediation suggestions for findings, either from a
// static catalog or from a generative model backend.
package fix

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/codespectre/internal/cwe"
)

// Backend names accepted by New.
const (
	BackendStatic  = "static"
	BackendOpenAI  = "openai"
	BackendBedrock = "bedrock"
)

// Request describes the finding a suggestion is wanted for.
type Request struct {
	Code        string
	Description string
	Language    string
}

// Suggester returns ordered remediation suggestions. Implementations never
// fail; a backend problem is reported as a placeholder suggestion.
type Suggester interface {
	Suggest(ctx context.Context, req Request) []string
}

// BackendError is a failed call to a generative backend.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Unavailable is the placeholder returned instead of a suggestion when the
// backend could not produce one.
func Unavailable(err error) string {
	return "fix suggestion unavailable: " + err.Error()
}

// IsUnavailable reports whether s is a placeholder from Unavailable.
func IsUnavailable(s string) bool {
	return strings.HasPrefix(s, "fix suggestion unavailable:")
}

// Static serves suggestions from the Fixes catalog.
type Static struct{}

// Suggest returns the catalog advice for the finding's category.
func (Static) Suggest(_ context.Context, req Request) []string {
	category := ""
	if c, ok := cwe.Classify(req.Description); ok {
		category = c.Name
	}
	return slices.Clone(lookupFixes(category, strings.ToLower(req.Language)))
}

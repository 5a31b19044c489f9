// Package severity assigns a severity tier to finding descriptions.
package severity

import (
	"fmt"
	"strings"

	"github.com/ppiankov/codespectre/internal/vuln"
)

type tier struct {
	level    vuln.Severity
	triggers []string
}

// tiers are checked from most to least severe.
var tiers = []tier{
	{vuln.SeverityHigh, []string{"eval", "exec", "command injection", "code injection", "deserialization", "pickle", "buffer overflow"}},
	{vuln.SeverityMedium, []string{"without validation", "without proper", "injection", "xss", "innerhtml", "document.write", "sql", "hardcoded", "unsafe"}},
	{vuln.SeverityLow, []string{"localstorage", "sessionstorage", "memory management", "behavior"}},
}

// Classify returns the severity for description. Matching is
// case-insensitive and defaults to low.
func Classify(description string) vuln.Severity {
	d := strings.ToLower(description)
	for _, t := range tiers {
		for _, trig := range t.triggers {
			if strings.Contains(d, trig) {
				return t.level
			}
		}
	}
	return vuln.SeverityLow
}

// Apply sets f.Severity from its description.
func Apply(f *vuln.Finding) {
	f.Severity = Classify(f.Description)
}

// Rank orders severities for sorting, most severe first.
func Rank(s vuln.Severity) int {
	switch s {
	case vuln.SeverityHigh:
		return 0
	case vuln.SeverityMedium:
		return 1
	case vuln.SeverityLow:
		return 2
	default:
		return 3
	}
}

// Parse maps a case-insensitive tier name to a Severity. An empty string
// yields an empty Severity, which filters nothing.
func Parse(s string) (vuln.Severity, error) {
	switch v := vuln.Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case "", vuln.SeverityHigh, vuln.SeverityMedium, vuln.SeverityLow:
		return v, nil
	default:
		return "", fmt.Errorf("unknown severity %q (use high, medium, or low)", s)
	}
}

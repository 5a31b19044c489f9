package report

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/codespectre/internal/cwe"
	"github.com/ppiankov/codespectre/internal/vuln"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// ruleUncategorized is the rule id for findings with no CWE category.
const ruleUncategorized = "uncategorized"

// sarifReport is the top-level SARIF v2.1.0 structure.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifDefaultLevel `json:"defaultConfiguration"`
	Props            map[string]any    `json:"properties,omitempty"`
}

type sarifDefaultLevel struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string         `json:"ruleId"`
	Level     string         `json:"level"`
	Message   sarifMessage   `json:"message"`
	Locations []sarifLoc     `json:"locations,omitempty"`
	Props     map[string]any `json:"properties,omitempty"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// Generate writes SARIF v2.1.0 output.
func (r *SARIFReporter) Generate(data Data) error {
	rules := buildSARIFRules()
	results := make([]sarifResult, 0, len(data.Report.Findings))

	for _, f := range data.Report.Findings {
		ruleID := ruleUncategorized
		if c, ok := cwe.Classify(f.Description); ok {
			ruleID = c.Name
		}

		physical := sarifPhysical{ArtifactLocation: sarifArtifact{URI: f.OriginID}}
		if f.Line > 0 {
			physical.Region = &sarifRegion{StartLine: f.Line}
		}

		props := map[string]any{
			"language": f.Language,
			"pattern":  f.Pattern,
		}
		if f.CWE != "" {
			props["cwe"] = f.CWE
		}
		if len(f.CVE) > 0 {
			props["cve"] = f.CVE
		}
		if f.SuggestedFix != "" {
			props["suggestedFix"] = f.SuggestedFix
		}

		results = append(results, sarifResult{
			RuleID:    ruleID,
			Level:     sarifLevel(f.Severity),
			Message:   sarifMessage{Text: f.Description},
			Locations: []sarifLoc{{PhysicalLocation: physical}},
			Props:     props,
		})
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    data.Tool,
						Version: data.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}

	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode SARIF report: %w", err)
	}
	return nil
}

func sarifLevel(s vuln.Severity) string {
	switch s {
	case vuln.SeverityHigh:
		return "error"
	case vuln.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func buildSARIFRules() []sarifRule {
	categories := cwe.Categories()
	rules := make([]sarifRule, 0, len(categories)+1)
	for _, c := range categories {
		rules = append(rules, sarifRule{
			ID:               c.Name,
			ShortDescription: sarifMessage{Text: c.Title},
			DefaultConfig:    sarifDefaultLevel{Level: "warning"},
			Props:            map[string]any{"cwe": c.CWE},
		})
	}
	rules = append(rules, sarifRule{
		ID:               ruleUncategorized,
		ShortDescription: sarifMessage{Text: "Insecure API usage"},
		DefaultConfig:    sarifDefaultLevel{Level: "note"},
	})
	return rules
}

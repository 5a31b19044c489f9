package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/codespectre/internal/vuln"
)

// Schema identifies the JSON envelope version.
const Schema = "spectre/v1"

type envelope struct {
	Schema string `json:"$schema"`
	Data
}

// Generate writes the spectre/v1 JSON envelope.
func (r *JSONReporter) Generate(data Data) error {
	if data.Report.Findings == nil {
		data.Report.Findings = []vuln.Finding{}
	}
	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope{Schema: Schema, Data: data}); err != nil {
		return fmt.Errorf("encode JSON report: %w", err)
	}
	return nil
}

// DecodeJSON parses output produced by JSONReporter.
func DecodeJSON(r io.Reader) (Data, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Data{}, fmt.Errorf("decode JSON report: %w", err)
	}
	if env.Schema != Schema {
		return Data{}, fmt.Errorf("decode JSON report: unexpected schema %q", env.Schema)
	}
	return env.Data, nil
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/codespectre/internal/report"
)

var renderFlags struct {
	format     string
	outputFile string
	noColor    bool
}

var renderCmd = &cobra.Command{
	Use:   "render <report.json>",
	Short: "Convert a JSON report to another format",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderFlags.format, "format", defaultFormat, "Output format: text, json, html, pdf, sarif")
	renderCmd.Flags().StringVarP(&renderFlags.outputFile, "output", "o", "", "Output file path (default: stdout)")
	renderCmd.Flags().BoolVar(&renderFlags.noColor, "no-color", false, "Disable colored text output")
}

func runRender(_ *cobra.Command, args []string) error {
	f, err := os.Open(args[0]) // #nosec G304 -- path is the report the user asked to render
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := report.DecodeJSON(f)
	if err != nil {
		return err
	}
	return writeReport(data, renderFlags.format, renderFlags.outputFile, renderFlags.noColor)
}

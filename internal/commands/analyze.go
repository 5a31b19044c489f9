package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/codespectre/internal/analyzer"
	"github.com/ppiankov/codespectre/internal/discovery"
	"github.com/ppiankov/codespectre/internal/report"
	"github.com/ppiankov/codespectre/internal/severity"
	"github.com/ppiankov/codespectre/internal/vuln"
)

var analyzeFlags struct {
	engineFlags
	language    string
	format      string
	outputFile  string
	minSeverity string
	noColor     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Analyze a single file or code from stdin",
	Long: `Analyze one piece of code. The language is taken from the file extension
unless --language is given; it is required when reading stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFlags.language, "language", "l", "", "Source language (python, javascript, typescript, java, c, cpp, html, css)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.format, "format", defaultFormat, "Output format: text, json, html, pdf, sarif")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.outputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.minSeverity, "min-severity", "", "Only report findings at or above: high, medium, low")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.noColor, "no-color", false, "Disable colored text output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	analyzeFlags.applyConfig(cfg)
	if analyzeFlags.format == defaultFormat && cfg.Format != "" {
		analyzeFlags.format = cfg.Format
	}
	if analyzeFlags.minSeverity == "" {
		analyzeFlags.minSeverity = cfg.MinSeverity
	}

	minSev, err := severity.Parse(analyzeFlags.minSeverity)
	if err != nil {
		return err
	}

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	unit, err := readUnit(cmd.InOrStdin(), path, analyzeFlags.language)
	if err != nil {
		return err
	}

	engine, err := newEngine(cmd.Context(), analyzeFlags.engineFlags, cfg)
	if err != nil {
		return err
	}
	result := engine.AnalyzeUnit(cmd.Context(), unit)
	analysis := analyzer.Analyze(result, analyzer.AnalyzerConfig{MinSeverity: minSev})

	data := report.Data{
		Tool:      "codespectre",
		Version:   versionString(),
		Timestamp: time.Now().UTC(),
		Target:    report.Target{Type: "snippet"},
		Config: report.ReportConfig{
			LinesOnly:   analyzeFlags.linesOnly,
			MinSeverity: string(minSev),
			FixBackend:  analyzeFlags.fixBackend,
		},
		Report:  analysis.Report,
		Summary: analysis.Summary,
	}
	if unit.OriginID != vuln.OriginSnippet {
		data.Target.Type = "file"
		data.Target.URIHash = computeTargetHash("file", unit.OriginID, "")
	}
	return writeReport(data, analyzeFlags.format, analyzeFlags.outputFile, analyzeFlags.noColor)
}

// readUnit loads code from path, or from stdin when path is "-".
func readUnit(stdin io.Reader, path, language string) (vuln.Unit, error) {
	if path == "-" {
		if language == "" {
			return vuln.Unit{}, errors.New("--language is required when reading stdin")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return vuln.Unit{}, fmt.Errorf("read stdin: %w", err)
		}
		return vuln.Unit{Content: string(data), Language: language, OriginID: vuln.OriginSnippet}, nil
	}

	if language == "" {
		lang, ok := discovery.LanguageFor(path)
		if !ok {
			return vuln.Unit{}, fmt.Errorf("cannot infer language of %s; use --language", path)
		}
		language = lang
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is the file the user asked to analyze
	if err != nil {
		return vuln.Unit{}, fmt.Errorf("read %s: %w", path, err)
	}
	return vuln.Unit{Content: string(data), Language: language, OriginID: filepath.ToSlash(path)}, nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/codespectre/internal/analyzer"
	"github.com/ppiankov/codespectre/internal/config"
	"github.com/ppiankov/codespectre/internal/logging"
	"github.com/ppiankov/codespectre/internal/report"
	"github.com/ppiankov/codespectre/internal/scanner"
	"github.com/ppiankov/codespectre/internal/severity"
	"github.com/ppiankov/codespectre/internal/signing"
	"github.com/ppiankov/codespectre/internal/vuln"
)

const (
	defaultScanTimeout   = 30 * time.Minute
	defaultPassphraseEnv = "CODESPECTRE_SIGN_PASSPHRASE"
)

var scanFlags struct {
	engineFlags
	branch        string
	format        string
	outputFile    string
	minSeverity   string
	timeout       time.Duration
	noProgress    bool
	noColor       bool
	signKey       string
	passphraseEnv string
}

var scanCmd = &cobra.Command{
	Use:   "scan <repository-url|directory>",
	Short: "Scan every source file of a git repository or local directory",
	Long: `Clone a repository (shallow, single branch) or use a local directory in place,
analyze every supported source file, and write one report.

Files that cannot be read or analyzed are counted as found but not analyzed
and listed as warnings; they never abort the scan.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanFlags.register(scanCmd)
	scanCmd.Flags().StringVar(&scanFlags.branch, "branch", "", "Branch to clone (default: remote HEAD)")
	scanCmd.Flags().StringVar(&scanFlags.format, "format", defaultFormat, "Output format: text, json, html, pdf, sarif")
	scanCmd.Flags().StringVarP(&scanFlags.outputFile, "output", "o", "", "Output file path (default: stdout)")
	scanCmd.Flags().StringVar(&scanFlags.minSeverity, "min-severity", "", "Only report findings at or above: high, medium, low")
	scanCmd.Flags().DurationVar(&scanFlags.timeout, "timeout", defaultScanTimeout, "Scan timeout")
	scanCmd.Flags().BoolVar(&scanFlags.noProgress, "no-progress", false, "Disable progress output")
	scanCmd.Flags().BoolVar(&scanFlags.noColor, "no-color", false, "Disable colored text output")
	scanCmd.Flags().StringVar(&scanFlags.signKey, "sign-key", "", "Armored OpenPGP secret key; writes <output>.asc")
	scanCmd.Flags().StringVar(&scanFlags.passphraseEnv, "sign-passphrase-env", defaultPassphraseEnv, "Environment variable holding the signing key passphrase")
}

func runScan(cmd *cobra.Command, args []string) error {
	locator := args[0]

	cfg := loadConfig()
	applyScanConfigDefaults(cfg)

	minSev, err := severity.Parse(scanFlags.minSeverity)
	if err != nil {
		return err
	}
	if _, err := report.ParseFormat(scanFlags.format); err != nil {
		return err
	}
	if scanFlags.signKey != "" && scanFlags.outputFile == "" {
		return errors.New("--sign-key requires --output")
	}

	var signer *signing.Signer
	if scanFlags.signKey != "" {
		signer, err = signing.LoadSigner(scanFlags.signKey, []byte(os.Getenv(scanFlags.passphraseEnv)))
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}
	}

	ctx := cmd.Context()
	if scanFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanFlags.timeout)
		defer cancel()
	}

	engine, err := newEngine(ctx, scanFlags.engineFlags, cfg)
	if err != nil {
		return err
	}

	var progressFn func(vuln.ScanProgress)
	if !scanFlags.noProgress {
		progressFn = func(p vuln.ScanProgress) {
			_, _ = fmt.Fprintf(os.Stderr, "[%s] %s\n", p.Stage, p.Message)
		}
	}

	logging.L().Info("scanning", zap.String("locator", locator), zap.String("branch", scanFlags.branch))
	result := engine.Scan(ctx, locator, scanner.Options{Branch: scanFlags.branch}, progressFn)

	analysis := analyzer.Analyze(result, analyzer.AnalyzerConfig{MinSeverity: minSev})

	data := report.Data{
		Tool:      "codespectre",
		Version:   versionString(),
		Timestamp: time.Now().UTC(),
		Target: report.Target{
			Type:    "repository",
			URIHash: computeTargetHash("repository", locator, scanFlags.branch),
		},
		Config: report.ReportConfig{
			Branch:      scanFlags.branch,
			Workers:     scanFlags.workers,
			MaxFileKB:   scanFlags.maxFileKB,
			LinesOnly:   scanFlags.linesOnly,
			MinSeverity: string(minSev),
			FixBackend:  scanFlags.fixBackend,
		},
		Report:  analysis.Report,
		Summary: analysis.Summary,
	}

	if err := writeReport(data, scanFlags.format, scanFlags.outputFile, scanFlags.noColor); err != nil {
		return err
	}

	if signer != nil {
		sigPath, err := signer.SignFile(scanFlags.outputFile)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stderr, "Signed %s with key %s\n", sigPath, signer.Fingerprint())
	}

	if result.Failed() {
		return enhanceError("scan "+locator, errors.New(result.Error))
	}
	return nil
}

func applyScanConfigDefaults(cfg config.Config) {
	scanFlags.applyConfig(cfg)
	if scanFlags.format == defaultFormat && cfg.Format != "" {
		scanFlags.format = cfg.Format
	}
	if scanFlags.minSeverity == "" && cfg.MinSeverity != "" {
		scanFlags.minSeverity = cfg.MinSeverity
	}
	if scanFlags.timeout == defaultScanTimeout && cfg.TimeoutDuration() > 0 {
		scanFlags.timeout = cfg.TimeoutDuration()
	}
}

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/codespectre/internal/analyzer"
	"github.com/ppiankov/codespectre/internal/config"
	"github.com/ppiankov/codespectre/internal/discovery"
	"github.com/ppiankov/codespectre/internal/fix"
	"github.com/ppiankov/codespectre/internal/logging"
	"github.com/ppiankov/codespectre/internal/rules"
	"github.com/ppiankov/codespectre/internal/scanner"
	"github.com/ppiankov/codespectre/internal/span"
	"github.com/ppiankov/codespectre/internal/workspace"
)

const (
	defaultFormat     = "text"
	defaultFixBackend = fix.BackendStatic
	defaultMaxFileKB  = 1024
)

// engineFlags are shared by every command that runs the analysis core.
type engineFlags struct {
	workers      int
	maxFileKB    int
	linesOnly    bool
	excludeDirs  []string
	rulesFile    string
	fetchTimeout time.Duration
	fixBackend   string
	fixModel     string
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Files analyzed in parallel (default: number of CPUs)")
	cmd.Flags().IntVar(&f.maxFileKB, "max-file-kb", defaultMaxFileKB, "Skip files larger than this (KB, 0 = no limit)")
	cmd.Flags().BoolVar(&f.linesOnly, "lines-only", false, "Match line by line for every language")
	cmd.Flags().StringSliceVar(&f.excludeDirs, "exclude-dir", nil, "Additional directory names to skip")
	cmd.Flags().StringVar(&f.rulesFile, "rules", "", "Rule catalog YAML replacing the built-in rules")
	cmd.Flags().DurationVar(&f.fetchTimeout, "fetch-timeout", workspace.DefaultTimeout, "Repository clone timeout")
	cmd.Flags().StringVar(&f.fixBackend, "fix-backend", defaultFixBackend, "Fix suggestions: static, openai, or bedrock")
	cmd.Flags().StringVar(&f.fixModel, "fix-model", "", "Model for generative fix backends")
}

// applyConfig fills flags still at their defaults from cfg.
func (f *engineFlags) applyConfig(cfg config.Config) {
	if f.workers == 0 && cfg.Workers > 0 {
		f.workers = cfg.Workers
	}
	if f.maxFileKB == defaultMaxFileKB && cfg.MaxFileKB > 0 {
		f.maxFileKB = cfg.MaxFileKB
	}
	if !f.linesOnly && cfg.LinesOnly {
		f.linesOnly = true
	}
	if len(cfg.ExcludeDirs) > 0 {
		f.excludeDirs = append(append([]string(nil), cfg.ExcludeDirs...), f.excludeDirs...)
	}
	if f.rulesFile == "" && cfg.RulesFile != "" {
		f.rulesFile = cfg.RulesFile
	}
	if f.fetchTimeout == workspace.DefaultTimeout && cfg.FetchTimeoutDuration() > 0 {
		f.fetchTimeout = cfg.FetchTimeoutDuration()
	}
	if f.fixBackend == defaultFixBackend && cfg.Fix.Backend != "" {
		f.fixBackend = cfg.Fix.Backend
	}
	if f.fixModel == "" && cfg.Fix.Model != "" {
		f.fixModel = cfg.Fix.Model
	}
}

// loadConfig reads .codespectre.yaml from the working directory and applies
// environment overrides. A broken file is logged and ignored.
func loadConfig() config.Config {
	cfg, err := config.Load(".")
	if err != nil {
		logging.L().Warn("failed to load config file", zap.Error(err))
	}
	cfg.ApplyEnv()
	return cfg
}

func loadCatalog(path string) (*rules.Catalog, error) {
	if path == "" {
		return rules.Default(), nil
	}
	c, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return c, nil
}

// newEngine wires the catalog, fix backend, fetcher and discovery into a
// Scanner.
func newEngine(ctx context.Context, f engineFlags, cfg config.Config) (*scanner.Scanner, error) {
	logger := logging.L()
	span.Init(logger)

	catalog, err := loadCatalog(f.rulesFile)
	if err != nil {
		return nil, err
	}

	suggester, err := fix.New(ctx, fix.Options{
		Backend:        f.fixBackend,
		Model:          f.fixModel,
		Endpoint:       cfg.Fix.Endpoint,
		APIKey:         cfg.Fix.APIKey(),
		Region:         cfg.Fix.Region,
		Profile:        cfg.Fix.Profile,
		Timeout:        cfg.Fix.TimeoutDuration(),
		Temperature:    cfg.Fix.Temperature,
		MaxTokens:      cfg.Fix.MaxTokens,
		MaxPromptChars: cfg.Fix.MaxPromptChars,
	})
	if err != nil {
		return nil, enhanceError("initialize fix backend", err)
	}
	logger.Debug("fix backend ready", zap.String("backend", f.fixBackend))

	dispatcher := fix.NewDispatcher(suggester, fix.DispatcherConfig{
		Concurrency:   cfg.Fix.Concurrency,
		RatePerSecond: cfg.Fix.RatePerSecond,
		Timeout:       cfg.Fix.TimeoutDuration(),
	}, logger)

	var maxBytes int64
	if f.maxFileKB > 0 {
		maxBytes = int64(f.maxFileKB) * 1024
	}

	return scanner.New(
		workspace.NewGit(f.fetchTimeout, logger),
		discovery.NewWalker(f.excludeDirs, logger),
		catalog,
		analyzer.NewPipeline(dispatcher),
		scanner.Config{
			Workers:      f.workers,
			MaxFileBytes: maxBytes,
			Span:         span.Options{LinesOnly: f.linesOnly},
		},
		logger,
	), nil
}

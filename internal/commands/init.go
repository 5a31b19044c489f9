package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const configFileName = ".codespectre.yaml"

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a sample config",
	Long:  `Creates a sample .codespectre.yaml in the current directory.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing files")
}

func runInit(_ *cobra.Command, _ []string) error {
	wrote, err := writeIfNotExists(configFileName, sampleConfig, initFlags.force)
	if err != nil {
		return err
	}

	if wrote {
		fmt.Printf("Created %s\n", configFileName)
		fmt.Println("\nNext steps:")
		fmt.Println("  1. Edit .codespectre.yaml to pick an output format and fix backend")
		fmt.Println("  2. For fix.backend openai: export OPENAI_API_KEY")
		fmt.Println("  3. For fix.backend bedrock: configure AWS credentials and fix.region")
		fmt.Println("  4. Run: codespectre scan https://github.com/OWNER/REPO")
	}
	return nil
}

func writeIfNotExists(path, content string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Skipping %s (already exists, use --force to overwrite)\n", path)
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

const sampleConfig = `# codespectre configuration
# See: https://github.com/ppiankov/codespectre

# Output format: text, json, html, pdf, or sarif
format: text

# Files analyzed in parallel (default: number of CPUs)
# workers: 8

# Whole-scan and clone timeouts
timeout: 30m
fetch_timeout: 5m

# Skip files larger than this (KB)
max_file_kb: 1024

# Match line by line for every language instead of parsing
lines_only: false

# Only report findings at or above this severity: high, medium, low
# min_severity: medium

# Directory names skipped in addition to .git, node_modules, __pycache__,
# venv, env, build and dist
# exclude_dirs:
#   - vendor
#   - third_party

# Replace the built-in rule catalog
# rules_file: rules.yaml

fix:
  # static, openai, or bedrock
  backend: static
  # model: gpt-3.5-turbo
  # endpoint: https://api.openai.com/v1/chat/completions
  # api_key_env: OPENAI_API_KEY
  # region: us-east-1
  # profile: default
  timeout: 30s
  concurrency: 4
  rate_per_second: 2
  temperature: 0.2
  max_tokens: 512

server:
  addr: ":8000"
`

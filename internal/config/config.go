package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envFormat     = "CODESPECTRE_FORMAT"
	envWorkers    = "CODESPECTRE_WORKERS"
	envFixBackend = "CODESPECTRE_FIX_BACKEND"
	envFixModel   = "CODESPECTRE_FIX_MODEL"
	envRulesFile  = "CODESPECTRE_RULES_FILE"
	envServerAddr = "CODESPECTRE_ADDR"

	defaultAPIKeyEnv = "OPENAI_API_KEY"
)

// Config holds codespectre configuration loaded from .codespectre.yaml.
type Config struct {
	Format       string   `yaml:"format"`
	Workers      int      `yaml:"workers"`
	Timeout      string   `yaml:"timeout"`
	FetchTimeout string   `yaml:"fetch_timeout"`
	MaxFileKB    int      `yaml:"max_file_kb"`
	LinesOnly    bool     `yaml:"lines_only"`
	MinSeverity  string   `yaml:"min_severity"`
	ExcludeDirs  []string `yaml:"exclude_dirs"`
	RulesFile    string   `yaml:"rules_file"`
	Fix          Fix      `yaml:"fix"`
	Server       Server   `yaml:"server"`
}

// Fix configures the fix suggestion backend.
type Fix struct {
	Backend        string  `yaml:"backend"`
	Model          string  `yaml:"model"`
	Endpoint       string  `yaml:"endpoint"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Region         string  `yaml:"region"`
	Profile        string  `yaml:"profile"`
	Timeout        string  `yaml:"timeout"`
	Concurrency    int     `yaml:"concurrency"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	MaxPromptChars int     `yaml:"max_prompt_chars"`
}

// Server configures the HTTP service.
type Server struct {
	Addr string `yaml:"addr"`
}

// TimeoutDuration parses the timeout string as a duration.
func (c Config) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout)
}

// FetchTimeoutDuration parses the fetch timeout string as a duration.
func (c Config) FetchTimeoutDuration() time.Duration {
	return parseDuration(c.FetchTimeout)
}

// TimeoutDuration parses the per-call fix timeout.
func (f Fix) TimeoutDuration() time.Duration {
	return parseDuration(f.Timeout)
}

// APIKey reads the generative backend key from the configured variable.
func (f Fix) APIKey() string {
	name := f.APIKeyEnv
	if name == "" {
		name = defaultAPIKeyEnv
	}
	return os.Getenv(name)
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s)
	return d
}

// Load searches for .codespectre.yaml or .codespectre.yml in the given directory
// and returns the parsed config. Returns an empty Config if no file is found.
func Load(dir string) (Config, error) {
	candidates := []string{
		filepath.Join(dir, ".codespectre.yaml"),
		filepath.Join(dir, ".codespectre.yml"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		return cfg, nil
	}

	return Config{}, nil
}

// ApplyEnv overrides file values with CODESPECTRE_* environment variables.
// Unparseable numbers are ignored.
func (c *Config) ApplyEnv() {
	if value := os.Getenv(envFormat); value != "" {
		c.Format = strings.ToLower(value)
	}
	if value := os.Getenv(envWorkers); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			c.Workers = parsed
		}
	}
	if value := os.Getenv(envFixBackend); value != "" {
		c.Fix.Backend = strings.ToLower(value)
	}
	if value := os.Getenv(envFixModel); value != "" {
		c.Fix.Model = value
	}
	if value := os.Getenv(envRulesFile); value != "" {
		c.RulesFile = value
	}
	if value := os.Getenv(envServerAddr); value != "" {
		c.Server.Addr = value
	}
}

package commands

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/codespectre/internal/report"
)

// enhanceError wraps an error with context and suggestions for common
// fetch and fix-backend issues.
func enhanceError(action string, err error) error {
	msg := err.Error()

	var hint string
	switch {
	case strings.Contains(msg, "executable file not found"):
		hint = "git is required to clone repositories. Install git or scan a local directory"
	case strings.Contains(msg, "not found"):
		hint = "Check the repository URL and branch name"
	case strings.Contains(msg, "could not read Username") || strings.Contains(msg, "Authentication failed"):
		hint = "Private repositories need git credentials: configure a credential helper or use an SSH URL"
	case strings.Contains(msg, "clone timed out"):
		hint = "Large repository. Increase --fetch-timeout or set fetch_timeout in .codespectre.yaml"
	case strings.Contains(msg, "OPENAI_API_KEY") || strings.Contains(msg, "API key"):
		hint = "Set OPENAI_API_KEY (or fix.api_key_env) or use --fix-backend=static"
	case strings.Contains(msg, "NoCredentialProviders") || strings.Contains(msg, "failed to retrieve credentials"):
		hint = "Configure AWS credentials for Bedrock: set AWS_PROFILE, AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, or run 'aws configure'"
	case strings.Contains(msg, "ExpiredToken"):
		hint = "AWS session token expired. Refresh credentials or run 'aws sso login'"
	case strings.Contains(msg, "AccessDenied"):
		hint = "Insufficient permissions. Grant bedrock:InvokeModel for the configured model"
	case strings.Contains(msg, "Throttling"):
		hint = "API rate limit hit. Lower fix.rate_per_second or fix.concurrency"
	}

	if hint != "" {
		return fmt.Errorf("%s: %w\n  hint: %s", action, err, hint)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// computeTargetHash generates a SHA256 hash for the scanned target.
func computeTargetHash(kind, locator, branch string) string {
	input := fmt.Sprintf("type:%s,locator:%s,branch:%s", kind, locator, branch)
	h := sha256.Sum256([]byte(input))
	return fmt.Sprintf("sha256:%x", h)
}

// openOutput returns stdout, or a created file when path is set. The
// returned close func is always non-nil.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

func selectReporter(format string, w io.Writer, noColor bool) (report.Reporter, error) {
	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	r, err := report.NewReporter(f, w)
	if err != nil {
		return nil, err
	}
	if tr, ok := r.(*report.TextReporter); ok && noColor {
		tr.Color = false
	}
	return r, nil
}

// writeReport renders data to outputFile (or stdout) and closes the file.
func writeReport(data report.Data, format, outputFile string, noColor bool) error {
	if _, err := report.ParseFormat(format); err != nil {
		return err
	}
	w, closeFn, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	reporter, err := selectReporter(format, w, noColor)
	if err != nil {
		_ = closeFn()
		return err
	}
	if err := reporter.Generate(data); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

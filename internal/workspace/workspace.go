// Package workspace acquires an exclusive on-disk copy of a source locator.
package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a clone.
const DefaultTimeout = 5 * time.Minute

// Workspace is a directory holding the files to scan. Release must be called
// once the scan is done; it is safe to call more than once.
type Workspace struct {
	Root string

	release func() error
	once    sync.Once
	err     error
}

// New returns a workspace rooted at root. release, if non-nil, runs once on
// the first Release call.
func New(root string, release func() error) *Workspace {
	return &Workspace{Root: root, release: release}
}

// Release removes any temporary files backing the workspace.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		if w.release != nil {
			w.err = w.release()
		}
	})
	return w.err
}

// Fetcher acquires workspaces.
type Fetcher interface {
	Fetch(ctx context.Context, locator, branch string) (*Workspace, error)
}

// FetchError reports a workspace that could not be acquired. No partial
// workspace is left behind.
type FetchError struct {
	Locator string
	Err     error
	Stderr  string
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Git clones remote repositories with a shallow git clone. Existing local
// directories are scanned in place.
type Git struct {
	// Binary is the git executable. Defaults to "git".
	Binary string
	// TempDir is where clones are created. Defaults to os.TempDir().
	TempDir string
	Timeout time.Duration
	logger  *zap.Logger
}

// NewGit creates a Git fetcher. A zero timeout takes DefaultTimeout.
func NewGit(timeout time.Duration, logger *zap.Logger) *Git {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Git{Binary: "git", Timeout: timeout, logger: logger}
}

// Fetch implements Fetcher.
func (g *Git) Fetch(ctx context.Context, locator, branch string) (*Workspace, error) {
	if locator == "" {
		return nil, &FetchError{Locator: locator, Err: errors.New("empty source locator")}
	}

	if info, err := os.Stat(locator); err == nil && info.IsDir() {
		root, err := filepath.Abs(locator)
		if err != nil {
			return nil, &FetchError{Locator: locator, Err: err}
		}
		g.logger.Debug("using local directory", zap.String("root", root))
		return New(root, nil), nil
	}

	dir, err := os.MkdirTemp(g.TempDir, "codespectre-*")
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: fmt.Errorf("create workspace: %w", err)}
	}

	cctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, "--", locator, dir)

	cmd := exec.CommandContext(cctx, g.Binary, args...) // #nosec G204 -- locator follows "--", no shell
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			g.logger.Warn("failed to remove partial clone", zap.String("dir", dir), zap.Error(rmErr))
		}
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("clone timed out after %s", g.Timeout)
		} else if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &FetchError{Locator: locator, Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}

	g.logger.Debug("cloned repository",
		zap.String("locator", locator),
		zap.String("dir", dir),
		zap.Duration("took", time.Since(start)))

	return New(dir, func() error { return os.RemoveAll(dir) }), nil
}

package workspace

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestFetchLocalDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.py"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := NewGit(0, nil).Fetch(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if ws.Root != dir {
		t.Errorf("Root = %q, want %q", ws.Root, dir)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.py")); err != nil {
		t.Error("Release() removed a local directory it does not own")
	}
}

func TestFetchEmptyLocator(t *testing.T) {
	_, err := NewGit(0, nil).Fetch(context.Background(), "", "")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Errorf("Fetch(\"\") error = %v, want *FetchError", err)
	}
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
		"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestFetchClonesAndReleases(t *testing.T) {
	requireGit(t)

	src := t.TempDir()
	run(t, src, "init", "-q")
	if err := os.WriteFile(filepath.Join(src, "app.py"), []byte("eval(x)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, src, "add", ".")
	run(t, src, "commit", "-q", "-m", "init")

	g := NewGit(time.Minute, nil)
	g.TempDir = t.TempDir()
	ws, err := g.Fetch(context.Background(), "file://"+filepath.ToSlash(src), "")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws.Root, "app.py")); err != nil {
		t.Errorf("cloned file missing: %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if _, err := os.Stat(ws.Root); !os.IsNotExist(err) {
		t.Error("Release() did not remove the clone")
	}
	if err := ws.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}
}

func TestFetchFailureLeavesNothing(t *testing.T) {
	requireGit(t)

	g := NewGit(time.Minute, nil)
	g.TempDir = t.TempDir()
	_, err := g.Fetch(context.Background(), "file:///nonexistent/codespectre/repo.git", "")

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error = %v, want *FetchError", err)
	}
	entries, _ := os.ReadDir(g.TempDir)
	if len(entries) != 0 {
		t.Errorf("partial workspace left behind: %v", entries)
	}
}

func TestFetchTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the git binary")
	}
	bin := filepath.Join(t.TempDir(), "slowgit")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	g := NewGit(100*time.Millisecond, nil)
	g.Binary = bin
	g.TempDir = t.TempDir()

	start := time.Now()
	_, err := g.Fetch(context.Background(), "https://example.invalid/repo.git", "")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Fetch() error = %v, want timeout", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("Fetch() did not honour its timeout")
	}
	entries, _ := os.ReadDir(g.TempDir)
	if len(entries) != 0 {
		t.Errorf("partial workspace left behind: %v", entries)
	}
}

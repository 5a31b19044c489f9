package scanner

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/ppiankov/codespectre/internal/discovery"
	"github.com/ppiankov/codespectre/internal/workspace"
)

// mockFetcher hands out a fixed root and records releases.
type mockFetcher struct {
	root     string
	err      error
	released int
	mu       sync.Mutex
}

func (m *mockFetcher) Fetch(_ context.Context, locator, _ string) (*workspace.Workspace, error) {
	if m.err != nil {
		return nil, &workspace.FetchError{Locator: locator, Err: m.err}
	}
	return workspace.New(m.root, func() error {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
		return nil
	}), nil
}

// mockDiscoverer returns a fixed file list.
type mockDiscoverer struct {
	files []discovery.File
	err   error
}

func (m *mockDiscoverer) Discover(_ string) ([]discovery.File, error) {
	return m.files, m.err
}

// failingReader fails for any path containing one of the markers.
func failingReader(markers ...string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		for _, m := range markers {
			if strings.Contains(path, m) {
				return nil, errors.New("permission denied")
			}
		}
		return os.ReadFile(path)
	}
}

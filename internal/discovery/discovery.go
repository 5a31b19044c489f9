// Package discovery finds analyzable source files under a directory.
package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Languages maps file extensions to catalog languages.
var Languages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".hh":   "cpp",
	".html": "html",
	".htm":  "html",
	".css":  "css",
}

// DefaultExcludedDirs are directory names never descended into.
var DefaultExcludedDirs = []string{".git", "node_modules", "__pycache__", "venv", "env", "build", "dist"}

// File is a discovered source file.
type File struct {
	// Path is absolute on disk.
	Path string
	// RelPath is relative to the walk root, with forward slashes.
	RelPath  string
	Language string
	Size     int64
}

// Walker discovers files by walking the filesystem.
type Walker struct {
	excluded map[string]bool
	logger   *zap.Logger
}

// NewWalker creates a Walker that skips DefaultExcludedDirs plus extra.
func NewWalker(extra []string, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	excluded := make(map[string]bool, len(DefaultExcludedDirs)+len(extra))
	for _, d := range DefaultExcludedDirs {
		excluded[d] = true
	}
	for _, d := range extra {
		excluded[d] = true
	}
	return &Walker{excluded: excluded, logger: logger}
}

// LanguageFor returns the language for path by extension.
func LanguageFor(path string) (string, bool) {
	lang, ok := Languages[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Discover returns the mapped files under root sorted by RelPath. Files with
// unmapped extensions are skipped silently; unreadable entries are logged
// and skipped.
func (w *Walker) Discover(root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && w.excluded[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		lang, ok := LanguageFor(path)
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, File{
			Path:     path,
			RelPath:  filepath.ToSlash(rel),
			Language: lang,
			Size:     size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

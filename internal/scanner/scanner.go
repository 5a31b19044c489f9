// Package scanner analyzes every source file of a fetched workspace.
package scanner

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/codespectre/internal/analyzer"
	"github.com/ppiankov/codespectre/internal/detector"
	"github.com/ppiankov/codespectre/internal/discovery"
	"github.com/ppiankov/codespectre/internal/rules"
	"github.com/ppiankov/codespectre/internal/span"
	"github.com/ppiankov/codespectre/internal/vuln"
	"github.com/ppiankov/codespectre/internal/workspace"
)

// Discoverer lists the analyzable files under a root directory.
type Discoverer interface {
	Discover(root string) ([]discovery.File, error)
}

// Config controls a Scanner.
type Config struct {
	// Workers is the number of files analyzed in parallel. Defaults to the
	// number of CPUs.
	Workers int
	// MaxFileBytes skips larger files as per-file errors. Zero disables.
	MaxFileBytes int64
	Span         span.Options
}

// Options apply to one scan.
type Options struct {
	Branch string
}

// Scanner fetches a source locator, analyzes its files and folds the
// results into a single report.
type Scanner struct {
	fetcher    workspace.Fetcher
	discoverer Discoverer
	catalog    *rules.Catalog
	pipeline   *analyzer.Pipeline
	cfg        Config
	logger     *zap.Logger
	readFile   func(string) ([]byte, error) // injectable for testing
	now        func() time.Time             // injectable for testing
}

// New creates a Scanner. A nil logger discards output.
func New(fetcher workspace.Fetcher, discoverer Discoverer, catalog *rules.Catalog, pipeline *analyzer.Pipeline, cfg Config, logger *zap.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		fetcher:    fetcher,
		discoverer: discoverer,
		catalog:    catalog,
		pipeline:   pipeline,
		cfg:        cfg,
		logger:     logger,
		readFile:   os.ReadFile,
		now:        time.Now,
	}
}

type fileResult struct {
	findings []vuln.Finding
	err      error
}

// Scan never fails as a whole once the workspace is acquired: files that
// cannot be read or analyzed are counted as found but not analyzed. If the
// workspace cannot be acquired the report carries Error and zero counts.
func (s *Scanner) Scan(ctx context.Context, locator string, opts Options, progress func(vuln.ScanProgress)) vuln.RepositoryReport {
	start := s.now()
	report := vuln.RepositoryReport{
		SourceLocator: locator,
		Findings:      []vuln.Finding{},
	}

	s.reportProgress(progress, "fetch", fmt.Sprintf("Fetching %s", locator))
	ws, err := s.fetcher.Fetch(ctx, locator, opts.Branch)
	if err != nil {
		s.logger.Error("fetch failed", zap.String("locator", locator), zap.Error(err))
		report.Error = err.Error()
		report.ElapsedSeconds = s.now().Sub(start).Seconds()
		return report
	}
	defer func() {
		if err := ws.Release(); err != nil {
			s.logger.Warn("failed to release workspace", zap.String("root", ws.Root), zap.Error(err))
		}
	}()

	files, err := s.discoverer.Discover(ws.Root)
	if err != nil {
		// An unreadable workspace counts as a failed fetch.
		ferr := &workspace.FetchError{Locator: locator, Err: fmt.Errorf("discover files: %w", err)}
		s.logger.Error("discovery failed", zap.String("root", ws.Root), zap.Error(ferr))
		report.Error = ferr.Error()
		report.ElapsedSeconds = s.now().Sub(start).Seconds()
		return report
	}
	report.TotalFilesFound = len(files)
	s.reportProgress(progress, "discover", fmt.Sprintf("Found %d files", len(files)))

	results := s.analyzeFiles(ctx, files, progress)

	for i, r := range results {
		if r.err != nil {
			s.logger.Warn("skipping file", zap.String("file", files[i].RelPath), zap.Error(r.err))
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", files[i].RelPath, r.err))
			continue
		}
		report.TotalFilesAnalyzed++
		report.Findings = append(report.Findings, r.findings...)
	}

	SortFindings(report.Findings)
	report.ElapsedSeconds = s.now().Sub(start).Seconds()
	s.reportProgress(progress, "done", fmt.Sprintf("Analyzed %d/%d files, %d findings",
		report.TotalFilesAnalyzed, report.TotalFilesFound, len(report.Findings)))
	return report
}

// analyzeFiles runs a bounded pool of workers over files. Each worker owns a
// span extractor. Results are indexed like files.
func (s *Scanner) analyzeFiles(ctx context.Context, files []discovery.File, progress func(vuln.ScanProgress)) []fileResult {
	results := make([]fileResult, len(files))
	batch := s.pipeline.NewBatch()
	jobs := make(chan int)

	var g errgroup.Group
	for w := 0; w < min(s.cfg.Workers, max(len(files), 1)); w++ {
		g.Go(func() error {
			ex := span.NewExtractor(s.cfg.Span, s.logger)
			defer ex.Close()
			eng := detector.New(s.catalog, ex)

			for i := range jobs {
				results[i] = s.analyzeFile(ctx, eng, batch, files[i])
			}
			return nil
		})
	}

	fed := 0
feed:
	for fed < len(files) {
		select {
		case jobs <- fed:
			fed++
			if fed%100 == 0 {
				s.reportProgress(progress, "analyze", fmt.Sprintf("Queued %d/%d files", fed, len(files)))
			}
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	_ = g.Wait()
	batch.Wait()

	for i := fed; i < len(files); i++ {
		results[i] = fileResult{err: fmt.Errorf("not analyzed: %w", ctx.Err())}
	}
	return results
}

func (s *Scanner) analyzeFile(ctx context.Context, eng *detector.Engine, batch *analyzer.Batch, f discovery.File) (res fileResult) {
	defer func() {
		if r := recover(); r != nil {
			res = fileResult{err: fmt.Errorf("analysis panicked: %v", r)}
		}
	}()

	if s.cfg.MaxFileBytes > 0 && f.Size > s.cfg.MaxFileBytes {
		return fileResult{err: fmt.Errorf("file size %d exceeds limit %d", f.Size, s.cfg.MaxFileBytes)}
	}
	data, err := s.readFile(f.Path)
	if err != nil {
		return fileResult{err: fmt.Errorf("read: %w", err)}
	}

	content := string(data)
	findings := eng.Detect(vuln.Unit{Content: content, Language: f.Language, OriginID: f.RelPath})
	batch.Enrich(ctx, findings, content)
	return fileResult{findings: findings}
}

// SortFindings orders findings by origin, line and pattern.
func SortFindings(findings []vuln.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].OriginID != findings[j].OriginID {
			return findings[i].OriginID < findings[j].OriginID
		}
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].Pattern < findings[j].Pattern
	})
}

func (s *Scanner) reportProgress(progress func(vuln.ScanProgress), stage, msg string) {
	if progress != nil {
		progress(vuln.ScanProgress{
			Stage:     stage,
			Message:   msg,
			Timestamp: s.now(),
		})
	}
}

// Package server exposes the analysis core over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/codespectre/internal/analyzer"
	"github.com/ppiankov/codespectre/internal/report"
	"github.com/ppiankov/codespectre/internal/scanner"
	"github.com/ppiankov/codespectre/internal/vuln"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 10 << 20

// Service is the analysis core the handlers call into.
type Service interface {
	AnalyzeSnippet(ctx context.Context, code, language string) vuln.RepositoryReport
	Scan(ctx context.Context, locator string, opts scanner.Options, progress func(vuln.ScanProgress)) vuln.RepositoryReport
}

// Config controls the HTTP surface.
type Config struct {
	Tool    string
	Version string
	// AllowLocal permits /scan locators that are not remote URLs. Local
	// paths are read in place on the server host.
	AllowLocal   bool
	MaxBodyBytes int64
	ScanTimeout  time.Duration
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Server. A nil logger discards output.
func New(svc Service, cfg Config, logger *zap.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Tool == "" {
		cfg.Tool = "codespectre"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, cfg: cfg, logger: logger, now: time.Now}
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// AnalyzeResponse is the reply to POST /analyze.
type AnalyzeResponse struct {
	Vulnerabilities []vuln.Finding `json:"vulnerabilities"`
}

// ScanRequest is the body of POST /scan.
type ScanRequest struct {
	RepositoryURL string `json:"repository_url"`
	Branch        string `json:"branch,omitempty"`
}

// reportRequest accepts either request shape; repository_url selects a scan.
type reportRequest struct {
	AnalyzeRequest
	ScanRequest
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the routes, mounted both at the root and under /api/.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("POST "+prefix+"/analyze", s.handleAnalyze)
		mux.HandleFunc("POST "+prefix+"/scan", s.handleScan)
		mux.HandleFunc("POST "+prefix+"/report", s.handleReport)
		mux.HandleFunc("GET "+prefix+"/ping", s.handlePing)
		mux.HandleFunc("GET "+prefix+"/version", s.handleVersion)
	}
	return s.withCORS(s.withLogging(mux))
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.cfg.Version})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateAnalyze(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rep := s.svc.AnalyzeSnippet(r.Context(), req.Code, req.Language)
	writeJSON(w, http.StatusOK, AnalyzeResponse{Vulnerabilities: rep.Findings})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validateScan(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rep := s.scan(r.Context(), req)
	status := http.StatusOK
	if rep.Failed() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, rep)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = report.FormatJSON.String()
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req reportRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var rep vuln.RepositoryReport
	target := report.Target{Type: "snippet"}
	cfg := report.ReportConfig{}
	if req.RepositoryURL != "" {
		if err := s.validateScan(req.ScanRequest); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rep = s.scan(r.Context(), req.ScanRequest)
		target.Type = "repository"
		cfg.Branch = req.Branch
	} else {
		if err := validateAnalyze(req.AnalyzeRequest); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rep = s.svc.AnalyzeSnippet(r.Context(), req.Code, req.Language)
	}

	data := report.Data{
		Tool:      s.cfg.Tool,
		Version:   s.cfg.Version,
		Timestamp: s.now().UTC(),
		Target:    target,
		Config:    cfg,
		Report:    rep,
		Summary:   analyzer.Summarize(rep),
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, format, data); err != nil {
		s.logger.Error("render report", zap.Stringer("format", format), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format.Binary() {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report."+format.String()))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) scan(ctx context.Context, req ScanRequest) vuln.RepositoryReport {
	if s.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScanTimeout)
		defer cancel()
	}
	s.logger.Info("scan requested", zap.String("locator", req.RepositoryURL), zap.String("branch", req.Branch))
	return s.svc.Scan(ctx, req.RepositoryURL, scanner.Options{Branch: req.Branch}, nil)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func validateAnalyze(req AnalyzeRequest) error {
	if strings.TrimSpace(req.Language) == "" {
		return errors.New("language is required")
	}
	return nil
}

func (s *Server) validateScan(req ScanRequest) error {
	if strings.TrimSpace(req.RepositoryURL) == "" {
		return errors.New("repository_url is required")
	}
	if !s.cfg.AllowLocal && !IsRemote(req.RepositoryURL) {
		return fmt.Errorf("repository_url %q is not a remote repository", req.RepositoryURL)
	}
	return nil
}

// IsRemote reports whether locator names a remote git repository rather
// than a path on this host.
func IsRemote(locator string) bool {
	for _, scheme := range []string{"https://", "http://", "ssh://", "git://"} {
		if strings.HasPrefix(locator, scheme) {
			return true
		}
	}
	// scp-like syntax: user@host:path
	at := strings.Index(locator, "@")
	colon := strings.Index(locator, ":")
	return at > 0 && colon > at && !strings.Contains(locator[:at], "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", s.now().Sub(start)),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

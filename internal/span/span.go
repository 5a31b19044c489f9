// Package span turns source text into an ordered list of text spans for
// pattern matching. Languages with a tree-sitter grammar are split into
// syntax-node spans; everything else falls back to physical lines.
package span

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
)

// DefaultParseTimeout bounds a single structural parse.
const DefaultParseTimeout = 5 * time.Second

// Span is a contiguous slice of source text with its 1-based start line.
type Span struct {
	Text string
	Line int
}

// ParseError is returned by a failed structural parse. Extractor absorbs it
// and falls back to line spans.
type ParseError struct {
	Language string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Language, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options controls span extraction.
type Options struct {
	// LinesOnly disables structural parsing for every language.
	LinesOnly    bool
	ParseTimeout time.Duration
}

// Extractor produces spans. It owns one parser per language and must not be
// shared between goroutines; give each worker its own.
type Extractor struct {
	opts    Options
	logger  *zap.Logger
	parsers map[string]*sitter.Parser
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(opts Options, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ParseTimeout <= 0 {
		opts.ParseTimeout = DefaultParseTimeout
	}
	return &Extractor{
		opts:    opts,
		logger:  logger,
		parsers: make(map[string]*sitter.Parser),
	}
}

// Spans returns the spans of code in traversal order. It never fails: any
// structural parse problem degrades to line spans.
func (e *Extractor) Spans(code, language string) []Span {
	if !e.opts.LinesOnly {
		if lang := binding(language); lang != nil {
			spans, err := e.structural(code, language, lang)
			if err == nil {
				return spans
			}
			e.logger.Debug("falling back to line spans", zap.Error(err))
		}
	}
	return Lines(code)
}

// Close releases the parsers held by the extractor.
func (e *Extractor) Close() {
	for lang, p := range e.parsers {
		p.Close()
		delete(e.parsers, lang)
	}
}

func (e *Extractor) parser(language string, lang *sitter.Language) *sitter.Parser {
	p, ok := e.parsers[language]
	if !ok {
		p = sitter.NewParser()
		p.SetLanguage(lang)
		e.parsers[language] = p
	}
	return p
}

func (e *Extractor) structural(code, language string, lang *sitter.Language) (spans []Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			spans = nil
			err = &ParseError{Language: language, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	p := e.parser(language, lang)
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.ParseTimeout)
	defer cancel()

	tree, err := p.ParseCtx(ctx, nil, []byte(code))
	if err != nil {
		p.Reset()
		return nil, &ParseError{Language: language, Err: err}
	}
	if tree == nil {
		return nil, &ParseError{Language: language, Err: errors.New("no tree")}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &ParseError{Language: language, Err: errors.New("no root node")}
	}
	return buildArena(root).postOrder(code), nil
}

// Lines splits code into one span per physical line. A trailing carriage
// return is dropped from each line.
func Lines(code string) []Span {
	lines := strings.Split(code, "\n")
	spans := make([]Span, len(lines))
	for i, l := range lines {
		spans[i] = Span{Text: strings.TrimSuffix(l, "\r"), Line: i + 1}
	}
	return spans
}

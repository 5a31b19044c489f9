package span

import (
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"go.uber.org/zap"
)

// Mode describes how spans are produced for a language.
type Mode string

const (
	ModeStructural Mode = "structural"
	ModeLines      Mode = "lines"
)

var grammars = map[string]func() *sitter.Language{
	"python":     python.GetLanguage,
	"javascript": javascript.GetLanguage,
	"java":       java.GetLanguage,
	"c":          c.GetLanguage,
	"cpp":        cpp.GetLanguage,
}

var (
	bindingsOnce sync.Once
	bindings     map[string]*sitter.Language
	degraded     map[string]string
)

// loadBindings resolves every grammar once per process. A grammar that fails
// to load leaves its language in line mode.
func loadBindings() {
	bindingsOnce.Do(func() {
		bindings = make(map[string]*sitter.Language, len(grammars))
		degraded = make(map[string]string)
		for lang, get := range grammars {
			l, err := resolve(get)
			if err != nil {
				degraded[lang] = err.Error()
				continue
			}
			bindings[lang] = l
		}
	})
}

func resolve(get func() *sitter.Language) (l *sitter.Language, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grammar init panicked: %v", r)
		}
	}()
	l = get()
	if l == nil {
		return nil, fmt.Errorf("grammar returned nil language")
	}
	return l, nil
}

func binding(language string) *sitter.Language {
	loadBindings()
	return bindings[language]
}

// Init loads the grammar table and logs which languages parse structurally.
// Languages whose grammar failed are reported as degraded.
func Init(logger *zap.Logger) {
	loadBindings()
	for _, lang := range sortedKeys(grammars) {
		if reason, ok := degraded[lang]; ok {
			logger.Warn("structural parser unavailable, using line spans",
				zap.String("language", lang), zap.String("reason", reason))
			continue
		}
		logger.Debug("structural parser ready", zap.String("language", lang))
	}
}

// ModeFor reports the span mode used for language.
func ModeFor(language string) Mode {
	if binding(language) != nil {
		return ModeStructural
	}
	return ModeLines
}

// Modes returns the span mode for each of the given languages.
func Modes(languages []string) map[string]Mode {
	out := make(map[string]Mode, len(languages))
	for _, lang := range languages {
		out[lang] = ModeFor(lang)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

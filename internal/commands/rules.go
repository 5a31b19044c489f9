package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/codespectre/internal/span"
)

var rulesFlags struct {
	language  string
	rulesFile string
	jsonOut   bool
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rule catalog and how each language is parsed",
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesFlags.language, "language", "l", "", "Only list rules for this language")
	rulesCmd.Flags().StringVar(&rulesFlags.rulesFile, "rules", "", "Rule catalog YAML replacing the built-in rules")
	rulesCmd.Flags().BoolVar(&rulesFlags.jsonOut, "json", false, "Print JSON")
}

type languageRules struct {
	Language string      `json:"language"`
	Mode     span.Mode   `json:"mode"`
	Rules    []ruleEntry `json:"rules"`
}

type ruleEntry struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
}

func runRules(cmd *cobra.Command, _ []string) error {
	path := rulesFlags.rulesFile
	if path == "" {
		path = loadConfig().RulesFile
	}
	catalog, err := loadCatalog(path)
	if err != nil {
		return err
	}

	languages := catalog.Languages()
	if rulesFlags.language != "" {
		lang := strings.ToLower(rulesFlags.language)
		if len(catalog.For(lang)) == 0 {
			return fmt.Errorf("no rules for language %q (available: %s)", rulesFlags.language, strings.Join(languages, ", "))
		}
		languages = []string{lang}
	}
	modes := span.Modes(languages)

	out := make([]languageRules, 0, len(languages))
	for _, lang := range languages {
		lr := languageRules{Language: lang, Mode: modes[lang]}
		for _, r := range catalog.For(lang) {
			lr.Rules = append(lr.Rules, ruleEntry{Pattern: r.Pattern, Description: r.Description})
		}
		out = append(out, lr)
	}

	w := cmd.OutOrStdout()
	if rulesFlags.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "LANGUAGE\tMODE\tPATTERN\tDESCRIPTION\n")
	for _, lr := range out {
		for _, r := range lr.Rules {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", lr.Language, lr.Mode, r.Pattern, r.Description)
		}
	}
	return tw.Flush()
}

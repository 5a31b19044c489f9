package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "codespectre %s (commit: %s, built: %s)\n", versionString(), commit, date)
	},
}

func versionString() string {
	if version == "" {
		return "dev"
	}
	return version
}

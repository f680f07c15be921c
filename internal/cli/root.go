// Package cli implements the command surface (A4): serve, run, and health,
// one verb per file.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Medical consultation audio processing pipeline",
	Long: `pipeline ingests a clinical consultation recording, diarizes and
transcribes it, optionally translates non-English turns to English, and
optionally extracts a structured clinical record.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pipeline/internal/config"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check pipeline capability readiness and exit",
	Long: `health runs the same readiness checks the server's background
loader would, synchronously, and prints a JSON summary. It exits 0 when the
mandatory capabilities (resolver, transcriber) are ready, and 1 otherwise -
optional capabilities (diarizer, translator, extractor) are reported but
never fail the check, matching their non-fatal degrade policy (§4.8).`,
	Run: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

type healthReport struct {
	Ready        bool            `json:"ready"`
	ModelsLoaded map[string]bool `json:"models_loaded"`
	ModelErrors  []string        `json:"model_errors,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	exec, err := buildExecutor(cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build pipeline executor: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	report := healthReport{ModelsLoaded: make(map[string]bool)}

	report.ModelsLoaded["resolver"] = exec.Resolver != nil

	if err := exec.Transcriber.Ready(ctx); err != nil {
		report.ModelsLoaded["transcriber"] = false
		report.ModelErrors = append(report.ModelErrors, "transcriber: "+err.Error())
	} else {
		report.ModelsLoaded["transcriber"] = true
	}

	report.ModelsLoaded["diarizer"] = exec.Diarizer != nil && exec.Diarizer.Enabled()
	if !report.ModelsLoaded["diarizer"] {
		report.ModelErrors = append(report.ModelErrors, "diarizer: HF_TOKEN not configured")
	}

	report.ModelsLoaded["translator"] = exec.Translator != nil
	if !report.ModelsLoaded["translator"] {
		report.ModelErrors = append(report.ModelErrors, "translator: SEALION_API_KEY not configured")
	}

	report.ModelsLoaded["extractor"] = exec.Extractor != nil
	if !report.ModelsLoaded["extractor"] {
		report.ModelErrors = append(report.ModelErrors, "extractor: no clinical extractor configured")
	}

	report.Ready = report.ModelsLoaded["resolver"] && report.ModelsLoaded["transcriber"]

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if !report.Ready {
		os.Exit(1)
	}
	os.Exit(0)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pipeline/internal/config"
	"pipeline/internal/models"
	"pipeline/pkg/logger"
)

var (
	runAudioPath       string
	runAudioS3Path     string
	runJobID           string
	runSkipTranslation bool
	runSkipClinical    bool
	runLangHint        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single job against the pipeline and exit",
	Long: `run resolves, transcribes, diarizes, translates, and optionally
extracts a clinical record from one audio file, printing the resulting job
record as JSON to stdout and exiting. No server and no stdio protocol are
involved; every stage runs on the calling goroutine.`,
	Run: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runAudioPath, "audio-path", "", "local path to the consultation recording")
	runCmd.Flags().StringVar(&runAudioS3Path, "audio-s3-path", "", "s3://bucket/key or bare key against the default bucket")
	runCmd.Flags().StringVar(&runJobID, "job-id", "", "job id to report; a uuid is generated when omitted")
	runCmd.Flags().BoolVar(&runSkipTranslation, "skip-translation", false, "skip the translation stage")
	runCmd.Flags().BoolVar(&runSkipClinical, "skip-clinical", true, "skip the clinical extraction stage")
	runCmd.Flags().StringVar(&runLangHint, "lang-hint", "auto", "language hint passed to the transcriber")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	if runAudioPath == "" && runAudioS3Path == "" {
		fmt.Fprintln(os.Stderr, "run requires --audio-path or --audio-s3-path")
		os.Exit(1)
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	exec, err := buildExecutor(cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build pipeline executor: %v\n", err)
		os.Exit(1)
	}

	var ref models.AudioRef
	if runAudioPath != "" {
		ref = models.NewLocalPathRef(runAudioPath)
	} else {
		ref = models.NewBareKeyRef(runAudioS3Path)
	}

	jobID := runJobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	opts := models.DefaultJobOptions()
	opts.SkipTranslation = runSkipTranslation
	opts.SkipExtraction = runSkipClinical
	opts.LangHint = runLangHint

	job := models.Job{JobID: jobID, AudioRef: ref, Options: opts}

	result, err := exec.Run(context.Background(), job)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run canceled: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", encErr)
		os.Exit(1)
	}

	if result.Status == models.JobFailed {
		os.Exit(1)
	}
	os.Exit(0)
}

// Package config loads the pipeline's configuration from a .env file and
// the process environment into a typed Config, in the teacher's style.
package config

import (
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"pipeline/pkg/logger"
)

// Config holds all configuration values recognized by the pipeline (§6
// Environment variables).
type Config struct {
	// Server/CLI
	Port    string
	LogLevel string

	// A3 Job Store
	DatabasePath string
	OutputDir    string
	CacheDir     string

	// C1 Source Resolver
	AudioS3Bucket string
	AWSRegion     string

	// C3 Transcriber Worker
	WhisperModelSize string

	// C4 Aligner/Diarizer
	HFToken string

	// C6 Translator / C7 Extractor
	SealionAPIKey    string
	SealionBaseURL   string
	ClinicalModelName string

	// A6 Webhook
	WebhookURL string
}

// Load loads configuration from environment variables and a .env file, in
// that priority order (process environment wins).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabasePath:      getEnv("DATABASE_PATH", "data/pipeline.db"),
		OutputDir:         getEnv("OUTPUT_DIR", "outputs"),
		CacheDir:          getEnv("CACHE_DIR", "data/cache"),
		AudioS3Bucket:     getEnv("AUDIO_S3_BUCKET", ""),
		AWSRegion:         getEnv("AWS_DEFAULT_REGION", "us-east-1"),
		WhisperModelSize:  getEnv("WHISPER_MODEL_SIZE", "large-v2"),
		HFToken:           getEnv("HF_TOKEN", ""),
		SealionAPIKey:     getEnv("SEALION_API_KEY", ""),
		SealionBaseURL:    getEnv("SEALION_BASE_URL", "https://api.sea-lion.ai/v1"),
		ClinicalModelName: getEnv("CLINICAL_MODEL_NAME", "aisingapore/Gemma-SEA-LION-v4-27B-IT"),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// WatchHallucinationPolicy watches policyPath for changes and invokes
// onChange with the new file contents whenever it is rewritten. Used to
// hot-reload the turn reconstructor's hallucination-filter policy block
// without a server restart; a missing file is not an error; onChange is
// simply never called.
func WatchHallucinationPolicy(policyPath string, onChange func()) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(policyPath); os.IsNotExist(err) {
		return watcher, nil
	}
	if err := watcher.Add(policyPath); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					logger.Info("hallucination policy file changed, reloading", "path", policyPath)
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("policy watcher error", "error", err.Error())
			}
		}
	}()

	return watcher, nil
}

package cli

import (
	"pipeline/internal/config"
	"pipeline/internal/diarize"
	"pipeline/internal/extract"
	"pipeline/internal/llm"
	"pipeline/internal/normalizer"
	"pipeline/internal/pipeline"
	"pipeline/internal/queue"
	"pipeline/internal/resolver"
	"pipeline/internal/transcribe"
	"pipeline/internal/translate"
)

// poolSize is the fixed slot count for each heavy-worker pool (§5): one
// slot per loaded model instance, not per CPU.
const poolSize = 1

// buildExecutor wires every capability named by cfg into one Executor, the
// same construction used by both serve (pooled, async warm-up) and run
// (unpooled, synchronous). pooled controls whether heavy stages run through
// a queue.Pool or inline on the calling goroutine.
func buildExecutor(cfg *config.Config, pooled bool) (*pipeline.Executor, error) {
	exec := pipeline.New(cfg.OutputDir)

	res, err := resolver.New(resolver.Config{
		CacheDir:      cfg.CacheDir,
		DefaultBucket: cfg.AudioS3Bucket,
		DefaultRegion: cfg.AWSRegion,
	})
	if err != nil {
		return nil, err
	}
	exec.Resolver = res
	exec.Normalizer = normalizer.New(cfg.CacheDir)
	exec.Transcriber = transcribe.New(cfg.WhisperModelSize)
	exec.Diarizer = diarize.New(cfg.HFToken)

	if cfg.SealionAPIKey != "" {
		baseURL := cfg.SealionBaseURL
		exec.Translator = translate.New(llm.NewOpenAIService(cfg.SealionAPIKey, &baseURL), cfg.ClinicalModelName)
	}

	if cfg.ClinicalModelName != "" && cfg.SealionAPIKey != "" {
		baseURL := cfg.SealionBaseURL
		exec.Extractor = extract.NewLLMExtractorWorker(llm.NewOpenAIService(cfg.SealionAPIKey, &baseURL), cfg.ClinicalModelName)
	} else {
		exec.Extractor = extract.NewRuleOnlyExtractor()
	}

	if pooled {
		exec.Pools["transcribe"] = queue.NewPool("transcribe", poolSize)
		exec.Pools["diarize"] = queue.NewPool("diarize", poolSize)
		exec.Pools["translate"] = queue.NewPool("translate", poolSize)
		exec.Pools["extract"] = queue.NewPool("extract", poolSize)
		for _, p := range exec.Pools {
			p.Start()
		}
	}

	return exec, nil
}

func stopPools(exec *pipeline.Executor) {
	for _, p := range exec.Pools {
		p.Stop()
	}
}

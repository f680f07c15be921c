// Package pipeline implements the pipeline executor (C8): it sequences
// resolve, normalize, transcribe, diarize, align, turn-reconstruct,
// translate, and extract into one job run, persisting intermediate
// artifacts under a fixed output directory tree and applying the per-stage
// fatal/degrade error policy.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pipeline/internal/diarize"
	"pipeline/internal/extract"
	"pipeline/internal/models"
	"pipeline/internal/normalizer"
	"pipeline/internal/queue"
	"pipeline/internal/resolver"
	"pipeline/internal/transcribe"
	"pipeline/internal/translate"
	"pipeline/internal/turns"
	"pipeline/pkg/logger"
)

// JobResult is the pipeline executor's public result, carrying both the
// on-disk artifact paths (the run command's response shape, §4.9) and the
// in-memory stage outputs (consumed by the webhook notifier and the admin
// surface without a round-trip through disk).
type JobResult struct {
	JobID        string
	Status       models.JobStatus
	Artifacts    models.StageArtifacts
	Lean         *models.LeanTranscript
	Translated   *models.TranslatedTranscript
	Clinical     *models.ClinicalRecord
	ErrorMessage *string
	FailedStage  *string
}

// Executor runs a Job through every pipeline stage. Diarizer, Translator, and
// Extractor may be nil: a nil Diarizer degrades to a single default
// speaker, a nil Translator treats the transcript as already English, a
// nil Extractor simply skips extraction. Pools is keyed by worker name
// ("transcribe", "diarize", "translate", "extract") and may be nil or
// missing entries, in which case the corresponding stage runs on the
// calling goroutine directly.
type Executor struct {
	Resolver    *resolver.Resolver
	Normalizer  *normalizer.Normalizer
	Transcriber transcribe.Capability
	Diarizer    *diarize.PyAnnoteDiarizer
	Translator  *translate.Translator
	Extractor   *extract.Extractor

	Pools map[string]*queue.Pool

	Policy    *PolicyStore
	OutputDir string
}

// New constructs an Executor. outputDir is created if missing.
func New(outputDir string) *Executor {
	return &Executor{
		Pools:     make(map[string]*queue.Pool),
		Policy:    NewPolicyStore(),
		OutputDir: outputDir,
	}
}

// Run executes job end to end and returns its result. Run never returns a
// non-nil error for a job-level failure; the failure is carried in the
// returned JobResult (Status == models.JobFailed, ErrorMessage,
// FailedStage). A non-nil error return is reserved for a context
// cancellation the caller itself issued.
func (e *Executor) Run(ctx context.Context, job models.Job) (*JobResult, error) {
	start := time.Now()
	logger.Stage(job.JobID, "start", "begin", "audio_ref", audioRefString(job.AudioRef))

	result := &JobResult{JobID: job.JobID}

	localPath, err := e.resolve(ctx, job.AudioRef)
	if err != nil {
		return e.fail(result, "resolve", err, start), nil
	}
	logger.Stage(job.JobID, "resolve", "done", "path", localPath)

	normalized, err := e.normalize(ctx, localPath)
	if err != nil {
		return e.fail(result, "normalize", err, start), nil
	}
	logger.Stage(job.JobID, "normalize", "done", "path", normalized.Path)

	langHint := job.Options.LangHint
	if langHint == "" {
		langHint = "auto"
	}
	segments, detectedLang, err := e.transcribe(ctx, normalized, langHint)
	if err != nil {
		return e.fail(result, "transcribe", fmt.Errorf("%w: %w", ErrTranscribe, err), start), nil
	}
	logger.Stage(job.JobID, "transcribe", "done", "segments", len(segments), "language", detectedLang)

	stem := stemFor(job.AudioRef, localPath)
	ts := time.Now().Unix()
	rawPath, err := e.writeArtifact("00_transcripts", fmt.Sprintf("%s_whisperx_%d.json", stem, ts), rawASRArtifact{
		Segments:         segments,
		DetectedLanguage: detectedLang,
	})
	if err != nil {
		logger.Warn("failed to write raw transcript artifact", "job_id", job.JobID, "error", err.Error())
	}
	result.Artifacts.RawTranscriptPath = rawPath

	spans := e.diarize(ctx, job.JobID, normalized)
	timeline := diarize.AssignSpeakers(segments, spans, detectedLang)

	lean, err := e.reconstructTurns(job.JobID, timeline, detectedLang)
	if err != nil {
		return e.fail(result, "turn_reconstruct", fmt.Errorf("%w: %v", ErrTurnReconstruct, err), start), nil
	}
	logger.Stage(job.JobID, "turn_reconstruct", "done", "turns", len(lean.Turns))
	result.Lean = &lean

	leanPath, err := e.writeArtifact("01_transcripts_lean", fmt.Sprintf("%s_lean_%d.json", stem, ts), lean)
	if err != nil {
		logger.Warn("failed to write lean transcript artifact", "job_id", job.JobID, "error", err.Error())
	}
	result.Artifacts.LeanTranscriptPath = leanPath

	translated := e.translate(ctx, job, lean)
	result.Translated = &translated
	if !job.Options.SkipTranslation && e.Translator != nil {
		translatedPath, err := e.writeArtifact("02_translated", stem+"_translated.json", translated)
		if err != nil {
			logger.Warn("failed to write translated transcript artifact", "job_id", job.JobID, "error", err.Error())
		}
		result.Artifacts.TranslatedPath = translatedPath
	}

	if !job.Options.SkipExtraction && e.Extractor != nil {
		clinical := e.extract(ctx, job, translated.Turns)
		result.Clinical = clinical
		clinicalPath, err := e.writeArtifact("03_clinical_extraction", stem+"_clinical.json", clinical)
		if err != nil {
			logger.Warn("failed to write clinical extraction artifact", "job_id", job.JobID, "error", err.Error())
		}
		result.Artifacts.ClinicalPath = clinicalPath
	}

	result.Status = models.JobDone
	logger.JobCompleted(job.JobID, time.Since(start))
	return result, nil
}

func (e *Executor) fail(result *JobResult, stage string, err error, start time.Time) *JobResult {
	msg := err.Error()
	result.Status = models.JobFailed
	result.ErrorMessage = &msg
	result.FailedStage = &stage
	logger.JobFailed(result.JobID, time.Since(start), stage, err)
	return result
}

func (e *Executor) resolve(ctx context.Context, ref models.AudioRef) (path string, err error) {
	if e.Resolver == nil {
		return "", fmt.Errorf("%w: no resolver configured", ErrConfig)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrResolve, r)
		}
	}()
	path, err = e.Resolver.Resolve(ctx, ref)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrResolve, err)
	}
	return path, err
}

func (e *Executor) normalize(ctx context.Context, path string) (na models.NormalizedAudio, err error) {
	if e.Normalizer == nil {
		return models.NormalizedAudio{}, fmt.Errorf("%w: no normalizer configured", ErrEnvironment)
	}
	na, err = e.Normalizer.Normalize(ctx, path)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEnvironment, err)
	}
	return na, err
}

func (e *Executor) transcribe(ctx context.Context, audio models.NormalizedAudio, langHint string) ([]models.Segment, string, error) {
	if e.Transcriber == nil {
		return nil, "", fmt.Errorf("no transcriber configured")
	}
	var segments []models.Segment
	var lang string
	task := func(ctx context.Context) error {
		var innerErr error
		segments, lang, innerErr = e.Transcriber.Transcribe(ctx, audio, langHint)
		return innerErr
	}
	if err := e.submit("transcribe", ctx, task); err != nil {
		return nil, "", err
	}
	return segments, lang, nil
}

// diarize runs the diarizer and returns speaker spans, or nil on any
// failure: per §4.8, Align/Diarize is non-fatal and degrades to a single
// default speaker, which turns.Reconstruct already does when no span ever
// covers a word.
func (e *Executor) diarize(ctx context.Context, jobID string, audio models.NormalizedAudio) []models.SpeakerSpan {
	if e.Diarizer == nil || !e.Diarizer.Enabled() {
		logger.Stage(jobID, "diarize", "skipped", "reason", "no diarization credential configured")
		return nil
	}

	var spans []models.SpeakerSpan
	task := func(ctx context.Context) error {
		var innerErr error
		spans, innerErr = e.Diarizer.Diarize(ctx, audio)
		return innerErr
	}
	if err := e.submit("diarize", ctx, task); err != nil {
		logger.Warn("diarization failed, continuing with single default speaker", "job_id", jobID, "error", err.Error())
		return nil
	}
	logger.Stage(jobID, "diarize", "done", "spans", len(spans))
	return spans
}

func (e *Executor) reconstructTurns(jobID string, timeline models.EnrichedTimeline, detectedLang string) (lean models.LeanTranscript, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("turn reconstruction panic: %v", r)
		}
	}()
	policy := turns.DefaultPolicy()
	if e.Policy != nil {
		policy = e.Policy.Get()
	}
	lean = turns.Reconstruct(timeline, []string{detectedLang}, policy)
	return lean, nil
}

// translate runs the translator when the job didn't ask to skip it and a
// translator is configured; otherwise the lean transcript is treated as
// already English, per §4.8's non-fatal Translate policy.
func (e *Executor) translate(ctx context.Context, job models.Job, lean models.LeanTranscript) models.TranslatedTranscript {
	if job.Options.SkipTranslation || e.Translator == nil {
		return models.TranslatedTranscript{LanguagesDetected: []string{"en"}, Turns: lean.Turns}
	}

	var translated models.TranslatedTranscript
	task := func(ctx context.Context) error {
		var innerErr error
		translated, innerErr = e.Translator.Translate(ctx, lean)
		return innerErr
	}
	if err := e.submit("translate", ctx, task); err != nil {
		logger.Warn("translation failed, continuing with lean transcript as-is", "job_id", job.JobID, "error", err.Error())
		return models.TranslatedTranscript{LanguagesDetected: []string{"en"}, Turns: lean.Turns}
	}
	return translated
}

func (e *Executor) extract(ctx context.Context, job models.Job, turns []models.Turn) *models.ClinicalRecord {
	var record *models.ClinicalRecord
	task := func(ctx context.Context) error {
		record = e.Extractor.Extract(ctx, turns)
		return nil
	}
	if err := e.submit("extract", ctx, task); err != nil {
		logger.Warn("clinical extraction failed, recording empty record", "job_id", job.JobID, "error", err.Error())
		return models.NewEmptyClinicalRecord()
	}
	return record
}

// submit runs task on the named pool if one is registered, or inline on
// the calling goroutine otherwise.
func (e *Executor) submit(poolName string, ctx context.Context, task queue.Task) error {
	if p, ok := e.Pools[poolName]; ok && p != nil {
		return p.Submit(ctx, task)
	}
	return task(ctx)
}

type rawASRArtifact struct {
	Segments         []models.Segment `json:"segments"`
	DetectedLanguage string            `json:"detected_language"`
}

func (e *Executor) writeArtifact(subdir, filename string, v any) (string, error) {
	dir := filepath.Join(e.OutputDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func stemFor(ref models.AudioRef, resolvedPath string) string {
	base := filepath.Base(resolvedPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func audioRefString(ref models.AudioRef) string {
	switch ref.Kind {
	case models.AudioRefLocalPath:
		return ref.LocalPath
	case models.AudioRefRemoteURI:
		return fmt.Sprintf("%s://%s/%s", ref.Scheme, ref.Bucket, ref.Key)
	case models.AudioRefBareKey:
		return ref.BareKey
	default:
		return ""
	}
}

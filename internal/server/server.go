// Package server implements the server & dispatch component (C9): a
// single long-running process speaking line-delimited JSON over stdin/
// stdout, backed by a background loader that warms up the heavy workers
// without blocking health probes.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"pipeline/internal/models"
	"pipeline/internal/pipeline"
	"pipeline/internal/repository"
	"pipeline/internal/resolver"
	"pipeline/internal/webhook"
	"pipeline/pkg/logger"
)

// LoaderFunc warms up one named capability. It returns a non-fatal error
// on failure; the server records it on the registry and keeps serving the
// capabilities that did load.
type LoaderFunc func(ctx context.Context) error

// Server owns the stdio protocol loop and the background worker loader.
type Server struct {
	Executor *pipeline.Executor
	Registry *models.WorkerRegistry
	Webhook  *webhook.Service
	WebhookURL string

	// Jobs persists a JobRecord per job (A3), keeping a durable running ->
	// done/failed trail an observer can poll. Nil disables
	// persistence entirely; the stdio protocol still works without it.
	Jobs repository.JobRepository

	loaders map[string]LoaderFunc

	writeMu sync.Mutex
}

// New returns a Server bound to executor, with registry as the shared
// readiness/error state.
func New(executor *pipeline.Executor, registry *models.WorkerRegistry) *Server {
	if registry == nil {
		registry = models.NewWorkerRegistry()
	}
	return &Server{
		Executor: executor,
		Registry: registry,
		loaders:  make(map[string]LoaderFunc),
	}
}

// RegisterLoader adds a named warm-up step run by the background loader.
// Names match WorkerRegistry's convention: "resolver", "transcriber",
// "diarizer", "translator", "extractor".
func (s *Server) RegisterLoader(name string, fn LoaderFunc) {
	s.loaders[name] = fn
}

// StartBackgroundLoader runs every registered loader sequentially on its
// own goroutine, recording per-worker success/failure on the registry, then
// closes Registry.Ready and emits one unsolicited {"event":"ready"} line to
// out. It does not block the caller.
func (s *Server) StartBackgroundLoader(ctx context.Context, out io.Writer) {
	go func() {
		for name, fn := range s.loaders {
			err := fn(ctx)
			s.Registry.MarkLoaded(name, err)
			if err != nil {
				logger.Warn("worker load failed, continuing with remaining workers", "worker", name, "error", err.Error())
			} else {
				logger.Info("worker loaded", "worker", name)
			}
		}
		s.Registry.CloseReady()
		if out != nil {
			s.writeLine(out, map[string]any{"event": "ready"})
		}
	}()
}

// request is the decoded shape of any line on stdin.
type request struct {
	Cmd             string `json:"cmd"`
	JobID           string `json:"job_id,omitempty"`
	AudioPath       string `json:"audio_path,omitempty"`
	AudioS3Path     string `json:"audio_s3_path,omitempty"`
	SkipTranslation *bool  `json:"skip_translation,omitempty"`
	SkipClinical    *bool  `json:"skip_clinical,omitempty"`
}

// Serve runs the single-reader request loop until in is exhausted or ctx is
// canceled. Each line is a complete request; each response is exactly one
// line, serialized through a single writer lock.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeLine(out, map[string]any{
				"status": "error",
				"error":  fmt.Sprintf("malformed request: %v", err),
			})
			continue
		}

		s.dispatch(ctx, req, out)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req request, out io.Writer) {
	switch req.Cmd {
	case "health":
		s.handleHealth(out)
	case "run":
		s.handleRun(ctx, req, out)
	case "":
		s.writeLine(out, map[string]any{"status": "error", "error": "missing cmd"})
	default:
		s.writeLine(out, map[string]any{
			"status": "error",
			"error":  fmt.Sprintf("Unknown command: %s", req.Cmd),
		})
	}
}

func (s *Server) handleHealth(out io.Writer) {
	loaded, errs := s.Registry.Snapshot()
	s.writeLine(out, map[string]any{
		"status":        "ok",
		"ready":         s.Registry.IsReady(),
		"models_loaded": loaded,
		"model_errors":  errs,
	})
}

func (s *Server) handleRun(ctx context.Context, req request, out io.Writer) {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	ref, err := audioRefFromRequest(req)
	if err != nil {
		s.writeLine(out, map[string]any{
			"job_id": jobID,
			"status": "failed",
			"error":  err.Error(),
		})
		return
	}

	opts := models.DefaultJobOptions()
	if req.SkipTranslation != nil {
		opts.SkipTranslation = *req.SkipTranslation
	}
	if req.SkipClinical != nil {
		opts.SkipExtraction = *req.SkipClinical
	}

	job := models.Job{JobID: jobID, AudioRef: ref, Options: opts}
	s.persistJob(ctx, job, models.JobRunning, nil)

	result := s.runJob(ctx, job)
	if result.Status == models.JobFailed && result.Trace == "" {
		result.Trace = string(debug.Stack())
	}
	s.persistJob(ctx, job, result.Status, result)

	if result.Status == models.JobDone {
		s.writeLine(out, map[string]any{
			"job_id": result.JobID,
			"status": "done",
			"result": result.Artifacts,
		})
		s.notifyWebhook(ctx, result)
		return
	}

	errMsg := ""
	if result.ErrorMessage != nil {
		errMsg = *result.ErrorMessage
	}
	s.writeLine(out, map[string]any{
		"job_id": result.JobID,
		"status": "failed",
		"error":  errMsg,
		"trace":  result.Trace,
	})
	s.notifyWebhook(ctx, result)
}

// runJob invokes the executor, converting any panic into a failed
// JobResult with a captured stack trace rather than crashing the server
// (per §7, failed run responses carry stack-trace text for debugging).
func (s *Server) runJob(ctx context.Context, job models.Job) (result *pipelineResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			stage := "unknown"
			result = &pipelineResult{
				JobResult: pipeline.JobResult{
					JobID:        job.JobID,
					Status:       models.JobFailed,
					ErrorMessage: &msg,
					FailedStage:  &stage,
				},
				Trace: string(debug.Stack()),
			}
		}
	}()

	r, err := s.Executor.Run(ctx, job)
	if err != nil {
		msg := err.Error()
		return &pipelineResult{JobResult: pipeline.JobResult{
			JobID:        job.JobID,
			Status:       models.JobFailed,
			ErrorMessage: &msg,
		}}
	}
	return &pipelineResult{JobResult: *r}
}

// pipelineResult wraps pipeline.JobResult with the stack trace text the
// protocol attaches to failed run responses.
type pipelineResult struct {
	pipeline.JobResult
	Trace string
}

// persistJob writes a JobRecord snapshot (A3). A nil result records the
// initial running row; a non-nil result records the final
// artifacts and error state. Persistence failures are logged, not fatal -
// the stdio protocol is the contract of record, the job store is an
// observability convenience.
func (s *Server) persistJob(ctx context.Context, job models.Job, status models.JobStatus, result *pipelineResult) {
	if s.Jobs == nil {
		return
	}

	audioRefJSON, _ := json.Marshal(job.AudioRef)
	optionsJSON, _ := json.Marshal(job.Options)

	record := &models.JobRecord{
		JobID:        job.JobID,
		Status:       status,
		AudioRefJSON: string(audioRefJSON),
		OptionsJSON:  string(optionsJSON),
	}

	if result != nil {
		existing, err := s.Jobs.FindByID(ctx, job.JobID)
		if err != nil {
			logger.Warn("failed to load job record for update", "job_id", job.JobID, "error", err.Error())
			return
		}
		artifactsJSON, _ := json.Marshal(result.Artifacts)
		existing.Status = status
		existing.ArtifactsJSON = string(artifactsJSON)
		existing.ErrorMessage = result.ErrorMessage
		existing.FailedStage = result.FailedStage

		if err := s.Jobs.Update(ctx, existing); err != nil {
			logger.Warn("failed to update job record", "job_id", job.JobID, "error", err.Error())
		}
		return
	}

	if err := s.Jobs.Create(ctx, record); err != nil {
		logger.Warn("failed to create job record", "job_id", job.JobID, "error", err.Error())
	}
}

func (s *Server) notifyWebhook(ctx context.Context, result *pipelineResult) {
	if s.Webhook == nil || s.WebhookURL == "" {
		return
	}
	var errMsg *string
	if result.ErrorMessage != nil {
		m := *result.ErrorMessage
		errMsg = &m
	}
	payload := webhook.WebhookPayload{
		JobID:        result.JobID,
		Status:       result.Status,
		Lean:         result.Lean,
		Translated:   result.Translated,
		Clinical:     result.Clinical,
		ErrorMessage: errMsg,
		FailedStage:  result.FailedStage,
		CompletedAt:  time.Now(),
	}
	if err := s.Webhook.SendWebhook(ctx, s.WebhookURL, payload); err != nil {
		logger.Warn("webhook delivery failed", "job_id", result.JobID, "error", err.Error())
	}
}

func (s *Server) writeLine(out io.Writer, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to marshal response", "error", err.Error())
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	out.Write(data)
	out.Write([]byte("\n"))
}

func audioRefFromRequest(req request) (models.AudioRef, error) {
	if req.AudioPath != "" {
		return models.NewLocalPathRef(req.AudioPath), nil
	}
	if req.AudioS3Path != "" {
		if scheme, bucket, key, ok := resolver.ParseRemoteURI(req.AudioS3Path); ok {
			return models.NewRemoteURIRef(scheme, bucket, key), nil
		}
		return models.NewBareKeyRef(req.AudioS3Path), nil
	}
	return models.AudioRef{}, fmt.Errorf("run command requires audio_path or audio_s3_path")
}

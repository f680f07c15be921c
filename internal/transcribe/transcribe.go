// Package transcribe wraps the ASR capability (C3): it accepts a
// normalized audio buffer and a language hint and returns time-stamped
// segments plus the detected language. The capability itself runs out of
// process, invoked through uv/python; this package owns only the
// request/response contract and the readiness check.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pipeline/internal/models"
	"pipeline/pkg/binaries"
	"pipeline/pkg/logger"
)

// Capability describes what the core requires of an ASR backend, regardless
// of implementation.
type Capability interface {
	// Transcribe runs inference over audio at langHint ("auto" or an ISO
	// language code) and returns segments plus the language the model
	// reports.
	Transcribe(ctx context.Context, audio models.NormalizedAudio, langHint string) ([]models.Segment, string, error)

	// Ready reports whether the backend's environment (interpreter,
	// module, weights) is available without running inference.
	Ready(ctx context.Context) error
}

// WhisperXTranscriber invokes the whisperx capability as a Python
// sub-process through uv, communicating over a single JSON request/response
// pair on stdio.
type WhisperXTranscriber struct {
	modelSize string

	readyOnce singleflight.Group
	mu        sync.Mutex
	lastReady error
	checked   bool
}

// New constructs a WhisperXTranscriber for the given model size preset
// (WHISPER_MODEL_SIZE). It performs no subprocess work until Transcribe or
// Ready is called.
func New(modelSize string) *WhisperXTranscriber {
	if modelSize == "" {
		modelSize = "large-v2"
	}
	return &WhisperXTranscriber{modelSize: modelSize}
}

type transcribeRequest struct {
	AudioPath string `json:"audio_path"`
	Language  string `json:"language"`
	ModelSize string `json:"model_size"`
}

type transcribeResponse struct {
	Segments         []models.Segment `json:"segments"`
	DetectedLanguage string            `json:"detected_language"`
	Error            string            `json:"error,omitempty"`
}

// Transcribe runs the ASR sub-process once per call; the process loads its
// own model and exits, so repeated calls re-pay model-load cost. The server
// uses this same type (its background loader only runs Ready), and so does
// the one-shot CLI path.
func (t *WhisperXTranscriber) Transcribe(ctx context.Context, audio models.NormalizedAudio, langHint string) ([]models.Segment, string, error) {
	if langHint == "" {
		langHint = "auto"
	}

	req := transcribeRequest{AudioPath: audio.Path, Language: langHint, ModelSize: t.modelSize}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: encode request: %v", ErrTranscribe, err)
	}

	uv := binaries.UV()
	cmd := exec.CommandContext(ctx, uv, "run", "python", "-m", "whisperx_transcriber", "--stdio")
	cmd.Stdin = bytes.NewReader(reqBody)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	logger.Performance("transcribe.run", time.Since(start), "model_size", t.modelSize)

	if runErr != nil {
		return nil, "", fmt.Errorf("%w: %v: %s", ErrTranscribe, runErr, stderr.String())
	}

	var resp transcribeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, "", fmt.Errorf("%w: parse response: %v", ErrTranscribe, err)
	}
	if resp.Error != "" {
		return nil, "", fmt.Errorf("%w: %s", ErrTranscribe, resp.Error)
	}

	return resp.Segments, resp.DetectedLanguage, nil
}

// Ready probes the sub-process environment (the uv-managed interpreter and
// the whisperx_transcriber module) without running inference, deduplicating
// concurrent probes against the same backend.
func (t *WhisperXTranscriber) Ready(ctx context.Context) error {
	v, err, _ := t.readyOnce.Do("ready", func() (interface{}, error) {
		uv := binaries.UV()
		cmd := exec.CommandContext(ctx, uv, "run", "python", "-c", "import whisperx")
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("%w: %v: %s", ErrModelLoad, err, stderr.String())
		}
		return struct{}{}, nil
	})
	t.mu.Lock()
	t.checked = true
	t.lastReady = err
	t.mu.Unlock()
	_ = v
	return err
}

// LastCheck reports the outcome of the most recent Ready probe, or
// (false, nil) if none has run yet.
func (t *WhisperXTranscriber) LastCheck() (checked bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.checked, t.lastReady
}

// Package diarize implements the aligner/diarizer (C4): it produces
// per-word speaker labels by overlapping an ASR timeline with a
// diarization timeline. Diarization itself is best-effort; on failure or
// missing credential the engine proceeds with every word unassigned, and
// turn reconstruction attributes the whole conversation to one default
// speaker.
package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"pipeline/internal/models"
	"pipeline/pkg/binaries"
)

// DefaultSpeaker is the id turn reconstruction falls back to when no
// speaker span ever covers a word.
const DefaultSpeaker = "SPEAKER_00"

// PyAnnoteDiarizer invokes the pyannote diarization capability as a
// sub-process, gated on an HF_TOKEN credential.
type PyAnnoteDiarizer struct {
	hfToken string
}

// New returns a PyAnnoteDiarizer. An empty hfToken means diarization is
// disabled; callers should check Enabled before calling Diarize.
func New(hfToken string) *PyAnnoteDiarizer {
	return &PyAnnoteDiarizer{hfToken: hfToken}
}

// Enabled reports whether a diarization credential is configured.
func (d *PyAnnoteDiarizer) Enabled() bool {
	return d.hfToken != ""
}

type diarizeRequest struct {
	AudioPath string `json:"audio_path"`
	HFToken   string `json:"hf_token"`
}

type diarizeResponse struct {
	Spans []models.SpeakerSpan `json:"spans"`
	Error string                `json:"error,omitempty"`
}

// Diarize runs the diarization sub-process over audio and returns the
// resulting speaker spans.
func (d *PyAnnoteDiarizer) Diarize(ctx context.Context, audio models.NormalizedAudio) ([]models.SpeakerSpan, error) {
	if !d.Enabled() {
		return nil, ErrNoToken
	}

	req := diarizeRequest{AudioPath: audio.Path, HFToken: d.hfToken}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrDiarize, err)
	}

	uv := binaries.UV()
	cmd := exec.CommandContext(ctx, uv, "run", "python", "-m", "pyannote_diarizer", "--stdio")
	cmd.Stdin = bytes.NewReader(reqBody)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrDiarize, err, stderr.String())
	}

	var resp diarizeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrDiarize, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrDiarize, resp.Error)
	}
	return resp.Spans, nil
}

// AssignSpeakers fuses a segment stream with a speaker-span stream into an
// EnrichedTimeline, following the word-level overlap algorithm of §4.4:
// for each word, the speaker whose span maximizes temporal overlap wins;
// ties break to the earliest span start; a word with no overlapping span
// is left unassigned.
func AssignSpeakers(segments []models.Segment, spans []models.SpeakerSpan, detectedLanguage string) models.EnrichedTimeline {
	out := make([]models.Segment, len(segments))
	for i, seg := range segments {
		words := make([]models.Word, len(seg.Words))
		for j, w := range seg.Words {
			words[j] = w
			if spk, ok := bestSpeaker(w, spans); ok {
				speaker := spk
				words[j].Speaker = &speaker
			}
		}
		out[i] = seg
		out[i].Words = words
	}
	return models.EnrichedTimeline{Segments: out, DetectedLanguage: detectedLanguage}
}

// bestSpeaker returns the speaker id whose span maximizes overlap with w,
// breaking ties by earliest span start. ok is false when no span overlaps.
func bestSpeaker(w models.Word, spans []models.SpeakerSpan) (speaker string, ok bool) {
	var bestOverlap float64
	var bestStart float64
	found := false

	for _, span := range spans {
		overlap := overlapSeconds(w.Start, w.End, span.Start, span.End)
		if overlap <= 0 {
			continue
		}
		if !found || overlap > bestOverlap || (overlap == bestOverlap && span.Start < bestStart) {
			bestOverlap = overlap
			bestStart = span.Start
			speaker = span.SpeakerID
			found = true
		}
	}
	return speaker, found
}

func overlapSeconds(ws, we, ss, se float64) float64 {
	lo := ws
	if ss > lo {
		lo = ss
	}
	hi := we
	if se < hi {
		hi = se
	}
	if hi-lo < 0 {
		return 0
	}
	return hi - lo
}

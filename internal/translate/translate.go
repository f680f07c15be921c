// Package translate implements the translator worker (C6): it translates
// non-English turn texts to English in bulk via a remote chat-completion
// service, falling back to per-turn translation when the bulk response
// can't be parsed back into the expected number of turns.
package translate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pipeline/internal/llm"
	"pipeline/internal/models"
	"pipeline/pkg/logger"
)

// RateLimitDelay is the minimum spacing between per-turn requests, sized to
// respect a 10-requests-per-minute quota (60s / 10 ≈ 6s, padded for
// safety).
const RateLimitDelay = 6500 * time.Millisecond

// defaultChatModel is used when New is given an empty model name.
const defaultChatModel = "aisingapore/Gemma-SEA-LION-v4-27B-IT"

var markerPattern = regexp.MustCompile(`(?m)^\[TURN_(\d+)\]\s*(.*)$`)

// Translator drives translation of a LeanTranscript through an LLM
// service.
type Translator struct {
	service Service
	model   string
	sleep   func(time.Duration)
}

// Service is the chat-completion call the translator depends on; declared
// locally so tests can substitute a fake without importing the llm
// package's HTTP-backed implementation.
type Service interface {
	ChatCompletion(ctx context.Context, model string, messages []llm.ChatMessage, temperature float64) (*llm.ChatResponse, error)
}

// New returns a Translator backed by service, prompting model (falling back
// to defaultChatModel when empty). A nil sleep function defaults to
// time.Sleep; tests pass a no-op to avoid real delays.
func New(service Service, model string) *Translator {
	if model == "" {
		model = defaultChatModel
	}
	return &Translator{service: service, model: model, sleep: time.Sleep}
}

// Translate turns lean into a TranslatedTranscript. The English
// fast-path returns the input unchanged when every detected language is
// already "en".
func (t *Translator) Translate(ctx context.Context, lean models.LeanTranscript) (models.TranslatedTranscript, error) {
	if lean.IsEnglishOnly() {
		return models.TranslatedTranscript{
			LanguagesDetected: lean.LanguagesDetected,
			Turns:             lean.Turns,
		}, nil
	}

	translated, err := t.bulkTranslate(ctx, lean.Turns)
	if err != nil {
		logger.Warn("bulk translation failed, falling back to per-turn", "error", err.Error())
		translated = t.perTurnTranslate(ctx, lean.Turns)
	}

	return models.TranslatedTranscript{
		LanguagesDetected: []string{"en"},
		Turns:             translated,
	}, nil
}

// bulkTranslate serializes every non-empty turn text with a per-turn
// marker, sends one chat-completion request, and parses the response back
// into a position-indexed list using the same markers. Returns an error
// (triggering the per-turn fallback) when the reparse yields fewer turns
// than expected.
func (t *Translator) bulkTranslate(ctx context.Context, turns []models.Turn) ([]models.Turn, error) {
	var sb strings.Builder
	expected := 0
	for _, turn := range turns {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		fmt.Fprintf(&sb, "[TURN_%d] %s\n", turn.TurnID, turn.Text)
		expected++
	}
	if expected == 0 {
		return cloneTurns(turns), nil
	}

	prompt := fmt.Sprintf(
		"Please translate the following text to English. If the text is already in English, return it unchanged. Preserve each [TURN_n] marker exactly, one per line:\n\n%s",
		sb.String(),
	)

	resp, err := t.service.ChatCompletion(ctx, t.model, []llm.ChatMessage{
		{Role: "user", Content: prompt},
	}, 0.1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslate, err)
	}

	byTurn := parseMarkers(resp.Content)
	if len(byTurn) < expected {
		return nil, fmt.Errorf("%w: expected %d turns, parsed %d", ErrTranslate, expected, len(byTurn))
	}

	out := cloneTurns(turns)
	for i := range out {
		if text, ok := byTurn[out[i].TurnID]; ok {
			out[i].Text = text
		}
	}
	return out, nil
}

func parseMarkers(text string) map[int]string {
	out := make(map[int]string)
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out[id] = strings.TrimSpace(m[2])
	}
	return out
}

// perTurnTranslate translates each non-empty turn with its own request,
// spacing requests by RateLimitDelay. A failed individual request leaves
// that turn's original text in place.
func (t *Translator) perTurnTranslate(ctx context.Context, turns []models.Turn) []models.Turn {
	out := cloneTurns(turns)
	for i := range out {
		if strings.TrimSpace(out[i].Text) == "" {
			continue
		}
		if i > 0 {
			t.sleep(RateLimitDelay)
		}
		prompt := fmt.Sprintf(
			"Please translate the following text to English. If it is already in English, return it unchanged:\n\n%s",
			out[i].Text,
		)
		resp, err := t.service.ChatCompletion(ctx, t.model, []llm.ChatMessage{
			{Role: "user", Content: prompt},
		}, 0.1)
		if err != nil {
			logger.Warn("per-turn translation failed, keeping original text", "turn_id", out[i].TurnID, "error", err.Error())
			continue
		}
		out[i].Text = strings.TrimSpace(resp.Content)
	}
	return out
}

func cloneTurns(turns []models.Turn) []models.Turn {
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out
}

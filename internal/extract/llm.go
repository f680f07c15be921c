package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"pipeline/internal/llm"
	"pipeline/internal/models"
	"pipeline/pkg/logger"
)

// defaultExtractModel is used when NewLLMExtractor is given an empty model
// name.
const defaultExtractModel = "aisingapore/Gemma-SEA-LION-v4-27B-IT"

const maxJSONRetries = 3

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
var bareJSON = regexp.MustCompile(`(?s)\{.*\}`)

const schemaInstruction = `You extract structured clinical information from a doctor-patient consultation transcript. Respond with a single JSON object and nothing else, matching exactly this schema:

{
  "summary": string,
  "chief_complaint": string or null,
  "symptoms_present": [string],
  "symptoms_negated": [string],
  "onset_or_duration": string or null,
  "allergy_substance": [string],
  "meds_current": [string],
  "conditions_past": [string],
  "primary_diagnosis": string or null,
  "rx_drug": string or null,
  "rx_dose": string or null,
  "follow_up": string or null,
  "red_flags": [string]
}

Use lowercase for drug and disease names. Do not speculate: if information is absent from the transcript, use null or an empty list. Do not invent symptoms, medications, or diagnoses that are not explicitly stated.`

// LLMExtractor is the generative strategy: it prompts a chat-completion
// service for a structured clinical record and falls back to the rule
// strategy when JSON parsing is exhausted.
type LLMExtractor struct {
	service  Service
	model    string
	fallback *RuleExtractor
}

// Service is the chat-completion call the extractor depends on, declared
// locally so tests can substitute a fake without importing llm's
// HTTP-backed implementation.
type Service interface {
	ChatCompletion(ctx context.Context, model string, messages []llm.ChatMessage, temperature float64) (*llm.ChatResponse, error)
}

// NewLLMExtractor returns an LLMExtractor backed by service, prompting
// model (falling back to defaultExtractModel when empty) and falling back
// to fallback when generation or JSON parsing fails after retries.
func NewLLMExtractor(service Service, model string, fallback *RuleExtractor) *LLMExtractor {
	if model == "" {
		model = defaultExtractModel
	}
	return &LLMExtractor{service: service, model: model, fallback: fallback}
}

// Extract prompts the LLM with a deterministic schema-declaring prompt and
// retries up to maxJSONRetries times on JSON parse failure before falling
// through to the rule strategy.
func (e *LLMExtractor) Extract(ctx context.Context, flattened string) *models.ClinicalRecord {
	prompt := fmt.Sprintf("%s\n\nTranscript:\n%s", schemaInstruction, flattened)
	messages := []llm.ChatMessage{{Role: "user", Content: prompt}}

	var lastErr error
	for attempt := 1; attempt <= maxJSONRetries; attempt++ {
		resp, err := e.service.ChatCompletion(ctx, e.model, messages, 0.0)
		if err != nil {
			lastErr = fmt.Errorf("%w: generation attempt %d: %v", ErrExtract, attempt, err)
			continue
		}
		record, err := parseClinicalJSON(resp.Content)
		if err != nil {
			lastErr = fmt.Errorf("%w: parse attempt %d: %v", ErrExtract, attempt, err)
			continue
		}
		return record
	}

	logger.Warn("llm extraction exhausted retries, falling back to rule strategy", "error", lastErr.Error())
	return e.fallback.Extract(flattened)
}

// parseClinicalJSON accepts either a raw JSON object or one embedded in
// markdown fences.
func parseClinicalJSON(content string) (*models.ClinicalRecord, error) {
	candidate := strings.TrimSpace(content)

	if m := fencedJSON.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	} else if m := bareJSON.FindString(candidate); m != "" {
		candidate = m
	}

	var record models.ClinicalRecord
	if err := json.Unmarshal([]byte(candidate), &record); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	normalizeClinicalRecord(&record)
	return &record, nil
}

func normalizeClinicalRecord(r *models.ClinicalRecord) {
	r.SymptomsPresent = dedupeLower(r.SymptomsPresent)
	r.SymptomsNegated = dedupeLower(r.SymptomsNegated)
	r.AllergySubstance = dedupeLower(r.AllergySubstance)
	r.MedsCurrent = dedupeLower(r.MedsCurrent)
	r.ConditionsPast = dedupeLower(r.ConditionsPast)
	r.RedFlags = dedupeLower(r.RedFlags)
	if r.PrimaryDiagnosis != nil {
		lower := strings.ToLower(*r.PrimaryDiagnosis)
		r.PrimaryDiagnosis = &lower
	}
	if r.RxDrug != nil {
		lower := strings.ToLower(*r.RxDrug)
		r.RxDrug = &lower
	}
}

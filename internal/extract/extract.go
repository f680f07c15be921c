package extract

import (
	"context"
	"strings"

	"pipeline/internal/models"
)

// Strategy is implemented by both extraction strategies selected at
// worker init.
type Strategy interface {
	Extract(ctx context.Context, turns []models.Turn) *models.ClinicalRecord
}

// Extractor is the C7 extractor worker. It wraps whichever strategy was
// selected at construction and exposes the shared public contract.
type Extractor struct {
	strategy Strategy
}

// NewRuleOnlyExtractor builds an Extractor that never calls a generative
// model.
func NewRuleOnlyExtractor() *Extractor {
	return &Extractor{strategy: ruleStrategy{NewRuleExtractor()}}
}

// NewLLMExtractorWorker builds an Extractor backed by an LLM service
// prompting model, with the rule strategy as its fallback.
func NewLLMExtractorWorker(service Service, model string) *Extractor {
	llm := NewLLMExtractor(service, model, NewRuleExtractor())
	return &Extractor{strategy: llmStrategy{llm}}
}

// Extract flattens turns into "speaker: text" lines and runs the
// configured strategy. Accepts either a LeanTranscript's or a
// TranslatedTranscript's turns, since both share the same turn shape.
func (e *Extractor) Extract(ctx context.Context, turns []models.Turn) (record *models.ClinicalRecord) {
	defer func() {
		// Rule-strategy panics (malformed regex input, unexpected nil) are
		// never expected, but a clinical extractor staying up outweighs
		// strict panic propagation for the worker loop.
		if r := recover(); r != nil {
			record = models.NewEmptyClinicalRecord()
		}
	}()
	return e.strategy.Extract(ctx, turns)
}

func flatten(turns []models.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		speaker := t.Speaker
		if speaker == "" {
			speaker = "SPEAKER_00"
		}
		sb.WriteString(speaker)
		sb.WriteString(": ")
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

type ruleStrategy struct {
	rule *RuleExtractor
}

func (s ruleStrategy) Extract(ctx context.Context, turns []models.Turn) *models.ClinicalRecord {
	return s.rule.Extract(flatten(turns))
}

type llmStrategy struct {
	llm *LLMExtractor
}

func (s llmStrategy) Extract(ctx context.Context, turns []models.Turn) *models.ClinicalRecord {
	return s.llm.Extract(ctx, flatten(turns))
}

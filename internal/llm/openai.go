package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService adapts the go-openai SDK to the narrow ChatCompletion
// interface the translator and extractor depend on. SEA-LION and any other
// OpenAI-compatible endpoint are reached the same way, by pointing baseURL
// at their API instead.
type OpenAIService struct {
	client *openai.Client
}

// NewOpenAIService creates a new OpenAI-compatible service. A nil baseURL
// (or an empty string) targets the real OpenAI API.
func NewOpenAIService(apiKey string, baseURL *string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != nil && *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	return &OpenAIService{client: openai.NewClientWithConfig(cfg)}
}

// ChatMessage represents a single chat turn, independent of the SDK's own
// message type so callers outside this package don't need the SDK import.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the trimmed shape the pipeline's callers need from a
// completion.
type ChatResponse struct {
	Content      string
	FinishReason string
	PromptTokens int
	TotalTokens  int
}

// ChatCompletion performs a non-streaming chat completion.
func (s *OpenAIService) ChatCompletion(ctx context.Context, model string, messages []ChatMessage, temperature float64) (*ChatResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}
	if temperature != 0 {
		req.Temperature = float32(temperature)
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm: chat completion: empty choices")
	}

	return &ChatResponse{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

package summary

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/preassess/portal-api/internal/config"
	"github.com/preassess/portal-api/internal/model"
)

const systemPrompt = "You are a clinical documentation assistant. Summarize the " +
	"following pre-anesthesia assessment conversation for the anesthesiology team: " +
	"relevant history, current medication, allergies, and the recommendations given. " +
	"Be concise and factual; do not invent information."

// Service produces a free-text summary of a finished conversation.
// Best-effort collaborator: callers must tolerate failure.
type Service interface {
	Summarize(ctx context.Context, messages []*model.ConversationMessage) (string, error)
}

type openAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(cfg config.OpenAIConfig) Service {
	m := cfg.Model
	if m == "" {
		m = "gpt-4o-mini"
	}
	return &openAIService{
		client: openai.NewClient(cfg.APIKey),
		model:  m,
	}
}

func (s *openAIService) Summarize(ctx context.Context, messages []*model.ConversationMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("nothing to summarize")
	}

	var transcript strings.Builder
	for _, msg := range messages {
		transcript.WriteString(string(msg.Role))
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript.String()},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary generation returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

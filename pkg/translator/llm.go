package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/campusdesk/campusdesk/pkg/generator"
	"github.com/campusdesk/campusdesk/pkg/models"
	"github.com/campusdesk/campusdesk/pkg/upstream"
)

// LLM translates with an OpenAI-compatible chat model.
type LLM struct {
	model  string
	client *openai.Client
}

// NewLLM creates an LLM backend. baseURL overrides the API base URL.
func NewLLM(apiKey, baseURL, model string) *LLM {
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &LLM{model: model, client: openai.NewClientWithConfig(cc)}
}

func (l *LLM) Name() string { return "openai" }

// Translate asks the model for a bare translation of text into target.
func (l *LLM) Translate(ctx context.Context, text string, target models.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Translate the following text to %s. Respond with only the translation, nothing else.\n\n%s", target.Name(), text),
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", generator.ClassifyOpenAI(l.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", upstream.Generic(l.Name(), errors.New("no translation returned"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

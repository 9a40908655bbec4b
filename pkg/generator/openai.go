package generator

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/campusdesk/campusdesk/pkg/config"
	"github.com/campusdesk/campusdesk/pkg/upstream"
)

// OpenAI completes prompts against any OpenAI-compatible chat endpoint.
type OpenAI struct {
	name        string
	model       string
	temperature float32
	client      *openai.Client
}

// NewOpenAI creates an OpenAI-compatible provider. cfg.URL overrides the
// API base URL.
func NewOpenAI(cfg config.ProviderConfig) *OpenAI {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.URL != "" {
		cc.BaseURL = cfg.URL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		name:        cfg.Name,
		model:       model,
		temperature: cfg.Temperature,
		client:      openai.NewClientWithConfig(cc),
	}
}

func (o *OpenAI) Name() string { return o.name }

// Complete sends prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	return chatComplete(ctx, o.client, o.name, o.model, o.temperature, prompt)
}

// chatComplete runs one chat completion and classifies its failure.
func chatComplete(ctx context.Context, client *openai.Client, provider, model string, temperature float32, prompt string) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", ClassifyOpenAI(provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", upstream.Generic(provider, errors.New("no choices returned"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ClassifyOpenAI maps HTTP 429 and insufficient_quota responses onto quota
// failures.
func ClassifyOpenAI(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota" {
			return upstream.Quota(provider, err)
		}
		return upstream.Generic(provider, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return upstream.Quota(provider, err)
	}
	return upstream.Generic(provider, err)
}

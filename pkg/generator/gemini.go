package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/campusdesk/campusdesk/pkg/config"
	"github.com/campusdesk/campusdesk/pkg/upstream"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini completes prompts with the Google Gemini API.
type Gemini struct {
	name        string
	model       string
	temperature float32
	client      *genai.Client
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, cfg config.ProviderConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.URL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.URL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{name: cfg.Name, model: model, temperature: cfg.Temperature, client: client}, nil
}

func (g *Gemini) Name() string { return g.name }

// Complete sends prompt as a single user turn.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	temp := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		return "", classifyGemini(g.name, err)
	}
	text := resp.Text()
	if text == "" {
		return "", upstream.Generic(g.name, errors.New("empty response"))
	}
	return text, nil
}

// classifyGemini maps RESOURCE_EXHAUSTED and HTTP 429 onto quota failures.
func classifyGemini(provider string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isGeminiQuota(apiErr) {
		return upstream.Quota(provider, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && isGeminiQuota(*apiErrPtr) {
		return upstream.Quota(provider, err)
	}
	return upstream.Generic(provider, err)
}

func isGeminiQuota(e genai.APIError) bool {
	return e.Code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}

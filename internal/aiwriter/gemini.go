// Package aiwriter drafts portfolio project descriptions with a language model.
package aiwriter

import (
	"context"
	"errors"
	"fmt"

	"devfolio/internal/models"
	"devfolio/internal/observability"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Model turns a prompt into a text reply.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiModel calls the Gemini API through google.golang.org/genai.
type GeminiModel struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiModel creates a Gemini-backed Model.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiModel{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.7),
			MaxOutputTokens: 2000,
			TopP:            genai.Ptr[float32](0.95),
			TopK:            genai.Ptr[float32](40),
		},
	}, nil
}

// Generate sends prompt as a single user turn and returns the concatenated text parts.
func (g *GeminiModel) Generate(ctx context.Context, prompt string) (reply string, err error) {
	span, ctx := observability.StartClientSpan(ctx, "gemini", "generate_content")
	defer func() { span.Finish(err) }()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		observability.ExternalCallFailures.WithLabelValues("gemini").Inc()
		return "", models.NewUpstreamError("Failed to generate description", err)
	}
	return resp.Text(), nil
}

// Unconfigured is the Model used when no API key is set.
type Unconfigured struct{}

// Generate always reports the feature as disabled.
func (Unconfigured) Generate(context.Context, string) (string, error) {
	return "", models.NewFeatureDisabledError("ai_descriptions")
}

package relay

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Generator = (*Gemini)(nil)

// NewGemini creates a Gemini generator bound to a single model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return responseText(result), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	content := result.Candidates[0].Content
	if content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

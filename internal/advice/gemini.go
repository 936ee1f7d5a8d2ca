package advice

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for advice and categorization.
const DefaultModelName = "gemini-2.5-flash"

// GeminiGenerator implements TextGenerator against the Gemini API. The
// client reads its API key from the environment (GEMINI_API_KEY / GOOGLE_API_KEY).
type GeminiGenerator struct {
	model string
}

// NewGeminiGenerator creates a generator for the given model, defaulting to
// DefaultModelName when model is empty.
func NewGeminiGenerator(model string) *GeminiGenerator {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiGenerator{model: model}
}

// GenerateText implements TextGenerator.
func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("GenerateText: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenerateText: generate content: %w", err)
	}

	return resp.Text(), nil
}

// Ensure GeminiGenerator implements TextGenerator.
var _ TextGenerator = (*GeminiGenerator)(nil)

package extraction

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when a request does not name one.
const DefaultModelName = "gemini-2.5-flash"

// Gemini implements Model with the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini client. Credentials come from the environment
// (GOOGLE_API_KEY, or GOOGLE_GENAI_USE_VERTEXAI with project and location).
func NewGemini(ctx context.Context) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Generate sends the prompt with the PDF attached inline.
func (g *Gemini) Generate(ctx context.Context, model, prompt string, pdf []byte) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdf,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}
	return raw, nil
}

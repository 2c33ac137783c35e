package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements the Provider interface for Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

// Complete sends the query to Gemini and concatenates the text parts of every candidate
func (g *GeminiProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if prompt.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(prompt.System)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.Query))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return "", NewStatusError(g.Name(), apiErr.Code, err)
		}
		return "", Classify(g.Name(), err)
	}

	if len(resp.Candidates) == 0 {
		return "", NewError(g.Name(), ErrorKindMalformed, fmt.Errorf("no candidates in response"))
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}

	return sb.String(), nil
}

// Close closes the Gemini client
func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiLegacyProvider uses the older generative-ai-go SDK. The SDK has no
// search grounding tool, so Request.WebSearch is ignored.
type GeminiLegacyProvider struct {
	client *genai.Client
}

var _ Provider = (*GeminiLegacyProvider)(nil)

func NewGeminiLegacyProvider(ctx context.Context, apiKey string) (*GeminiLegacyProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini-legacy: %w (set GEMINI_API_KEY)", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiLegacyProvider{client: client}, nil
}

func (p *GeminiLegacyProvider) Generate(ctx context.Context, req *Request) (string, error) {
	model := p.client.GenerativeModel(modelFor(req.Model, "gemini", "gemini-1.5-flash"))
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini-legacy generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini-legacy: %w", ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return nonEmpty("gemini-legacy", sb.String())
}

// Close releases the underlying gRPC connection.
func (p *GeminiLegacyProvider) Close() error {
	return p.client.Close()
}

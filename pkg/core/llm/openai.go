package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider talks to the Responses and Images APIs.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	imageModel string
	httpClient *http.Client
}

var (
	_ Provider       = (*OpenAIProvider)(nil)
	_ ImageGenerator = (*OpenAIProvider)(nil)
)

// NewOpenAIProvider returns a provider for apiKey. An empty baseURL selects
// the public endpoint.
func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY)", ErrMissingAPIKey)
	}
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		imageModel: "gpt-image-1",
		httpClient: newHTTPClient(),
	}, nil
}

type responsesTool struct {
	Type string `json:"type"`
}

type responsesRequest struct {
	Model           string          `json:"model"`
	Instructions    string          `json:"instructions,omitempty"`
	Input           string          `json:"input"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty"`
	Tools           []responsesTool `json:"tools,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				out.WriteString(c.Text)
			}
		}
	}
	return out.String()
}

// Generate sends one Responses API request.
func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (string, error) {
	model := req.Model
	if model == "" {
		model = "gpt-5"
	}
	body := responsesRequest{
		Model:           model,
		Instructions:    req.SystemPrompt,
		Input:           req.Prompt,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.WebSearch {
		body.Tools = []responsesTool{{Type: "web_search"}}
	}

	var resp responsesResponse
	if err := postJSON(ctx, p.httpClient, "openai", p.baseURL+"/responses", p.apiKey, body, &resp); err != nil {
		return "", err
	}
	return nonEmpty("openai", extractOutputText(resp))
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage creates a landscape banner and returns the decoded image.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	body := imageRequest{Model: p.imageModel, Prompt: prompt, Size: "1536x1024", N: 1}

	var resp imageResponse
	if err := postJSON(ctx, p.httpClient, "openai", p.baseURL+"/images/generations", p.apiKey, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai images: %w", ErrEmptyResponse)
	}
	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai images: decode: %w", err)
	}
	return img, nil
}

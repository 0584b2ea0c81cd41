package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const deepSeekBaseURL = "https://api.deepseek.com"

// DeepSeekProvider calls the chat completions endpoint. It has no search
// tool, so Request.WebSearch is ignored.
type DeepSeekProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*DeepSeekProvider)(nil)

func NewDeepSeekProvider(apiKey, baseURL string) (*DeepSeekProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek: %w (set DEEPSEEK_API_KEY)", ErrMissingAPIKey)
	}
	if baseURL == "" {
		baseURL = deepSeekBaseURL
	}
	return &DeepSeekProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}, nil
}

type DeepSeekRequest struct {
	Messages       []Message      `json:"messages"`
	Model          string         `json:"model"`
	Thinking       *ThinkingParam `json:"thinking,omitempty"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat ResponseFormat `json:"response_format"`
	Stream         bool           `json:"stream"`
	Temperature    float64        `json:"temperature"`
	TopP           float64        `json:"top_p"`
}

type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type ThinkingParam struct {
	Type string `json:"type"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type DeepSeekResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// deepSeekMaxTokens is the service's output ceiling for deepseek-chat.
const deepSeekMaxTokens = 8192

func (p *DeepSeekProvider) Generate(ctx context.Context, req *Request) (string, error) {
	model := modelFor(req.Model, "deepseek", "deepseek-chat")
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 || maxTokens > deepSeekMaxTokens {
		maxTokens = deepSeekMaxTokens
	}

	var messages []Message
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Content: req.SystemPrompt, Role: "system"})
	}
	messages = append(messages, Message{Content: req.Prompt, Role: "user"})

	body := DeepSeekRequest{
		Messages:       messages,
		Model:          model,
		Thinking:       &ThinkingParam{Type: "disabled"},
		MaxTokens:      maxTokens,
		ResponseFormat: ResponseFormat{Type: "text"},
		Temperature:    1.0,
		TopP:           1.0,
	}

	var resp DeepSeekResponse
	if err := postJSON(ctx, p.httpClient, "deepseek", p.baseURL+"/chat/completions", p.apiKey, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek: no choices: %w", ErrEmptyResponse)
	}
	return nonEmpty("deepseek", resp.Choices[0].Message.Content)
}

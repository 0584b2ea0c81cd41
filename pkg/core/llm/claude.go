package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// claudeMaxTokens caps the output budget; the Messages API rejects larger
// values for most models.
const claudeMaxTokens = 32000

// ClaudeProvider calls the Anthropic Messages API.
type ClaudeProvider struct {
	client anthropic.Client
}

var _ Provider = (*ClaudeProvider)(nil)

// NewClaudeProvider returns a provider for apiKey. Extra options such as
// option.WithBaseURL are passed to the client.
func NewClaudeProvider(apiKey string, opts ...option.RequestOption) (*ClaudeProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("claude: %w (set ANTHROPIC_API_KEY)", ErrMissingAPIKey)
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ClaudeProvider{client: anthropic.NewClient(opts...)}, nil
}

func (p *ClaudeProvider) Generate(ctx context.Context, req *Request) (string, error) {
	model := modelFor(req.Model, "claude", "claude-sonnet-4-5")
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 || maxTokens > claudeMaxTokens {
		maxTokens = claudeMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.WebSearch {
		params.Tools = []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{}},
		}
	}

	// Large budgets are only accepted over the streaming endpoint.
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var msg anthropic.Message
	for stream.Next() {
		if err := msg.Accumulate(stream.Current()); err != nil {
			return "", fmt.Errorf("claude stream decode failed: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("claude API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return nonEmpty("claude", out.String())
}

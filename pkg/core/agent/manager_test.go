package agent

import (
	"context"
	"testing"

	"race_preview/pkg/core/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct{}

func (fakeProvider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	return "ok", nil
}

func TestActiveBuildsAndCaches(t *testing.T) {
	m := NewManager("deepseek", Keys{DeepSeek: "k"})

	p1, err := m.Active(context.Background())
	require.NoError(t, err)
	p2, err := m.Active(context.Background())
	require.NoError(t, err)

	assert.IsType(t, &llm.DeepSeekProvider{}, p1)
	assert.Same(t, p1, p2)
}

func TestDefaultProviderIsOpenAI(t *testing.T) {
	m := NewManager("", Keys{})
	assert.Equal(t, "openai", m.GetActiveProvider())

	_, err := m.Active(context.Background())
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestUnknownProvider(t *testing.T) {
	m := NewManager("kimi", Keys{})
	_, err := m.Active(context.Background())
	assert.ErrorContains(t, err, `provider "kimi" not found`)
}

func TestRegisterOverrides(t *testing.T) {
	m := NewManager("openai", Keys{})
	m.Register("openai", fakeProvider{})

	p, err := m.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakeProvider{}, p)
}

func TestImageGenerator(t *testing.T) {
	m := NewManager("claude", Keys{Anthropic: "a"})
	_, ok := m.ImageGenerator(context.Background())
	assert.False(t, ok)

	m = NewManager("claude", Keys{Anthropic: "a", OpenAI: "o"})
	gen, ok := m.ImageGenerator(context.Background())
	require.True(t, ok)
	assert.IsType(t, &llm.OpenAIProvider{}, gen)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"claude", "deepseek", "gemini", "gemini-legacy", "openai"}, Names())
}

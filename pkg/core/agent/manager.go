// Package agent selects and builds the generation provider for a run.
package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"race_preview/pkg/core/llm"
)

// Keys holds provider credentials.
type Keys struct {
	OpenAI    string
	Gemini    string
	Anthropic string
	DeepSeek  string
}

// KeysFromEnv reads credentials from the environment.
func KeysFromEnv() Keys {
	return Keys{
		OpenAI:    os.Getenv("OPENAI_API_KEY"),
		Gemini:    os.Getenv("GEMINI_API_KEY"),
		Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
		DeepSeek:  os.Getenv("DEEPSEEK_API_KEY"),
	}
}

type factory func(ctx context.Context, keys Keys) (llm.Provider, error)

var factories = map[string]factory{
	"openai": func(ctx context.Context, k Keys) (llm.Provider, error) {
		return llm.NewOpenAIProvider(k.OpenAI, "")
	},
	"gemini": func(ctx context.Context, k Keys) (llm.Provider, error) {
		return llm.NewGeminiProvider(ctx, k.Gemini)
	},
	"gemini-legacy": func(ctx context.Context, k Keys) (llm.Provider, error) {
		return llm.NewGeminiLegacyProvider(ctx, k.Gemini)
	},
	"claude": func(ctx context.Context, k Keys) (llm.Provider, error) {
		return llm.NewClaudeProvider(k.Anthropic)
	},
	"deepseek": func(ctx context.Context, k Keys) (llm.Provider, error) {
		return llm.NewDeepSeekProvider(k.DeepSeek, "")
	},
}

// Manager builds providers on first use and caches them.
type Manager struct {
	activeProvider string
	keys           Keys

	mu        sync.Mutex
	providers map[string]llm.Provider
}

func NewManager(activeProvider string, keys Keys) *Manager {
	if activeProvider == "" {
		activeProvider = "openai"
	}
	return &Manager{
		activeProvider: activeProvider,
		keys:           keys,
		providers:      make(map[string]llm.Provider),
	}
}

// Register installs a ready provider under name, replacing any cached one.
func (m *Manager) Register(name string, p llm.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = p
}

// GetProviderByName returns the named provider, building it if needed.
func (m *Manager) GetProviderByName(ctx context.Context, name string) (llm.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.providers[name]; ok {
		return p, nil
	}
	build, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found (known: %v)", name, Names())
	}
	p, err := build(ctx, m.keys)
	if err != nil {
		return nil, err
	}
	m.providers[name] = p
	return p, nil
}

// Active returns the configured provider.
func (m *Manager) Active(ctx context.Context) (llm.Provider, error) {
	return m.GetProviderByName(ctx, m.activeProvider)
}

func (m *Manager) GetActiveProvider() string {
	return m.activeProvider
}

// ImageGenerator returns an image-capable provider, or false when none is
// available. The active provider wins; otherwise OpenAI is tried when a key
// is present.
func (m *Manager) ImageGenerator(ctx context.Context) (llm.ImageGenerator, bool) {
	if p, err := m.Active(ctx); err == nil {
		if gen, ok := p.(llm.ImageGenerator); ok {
			return gen, true
		}
	}
	if m.keys.OpenAI == "" {
		return nil, false
	}
	p, err := m.GetProviderByName(ctx, "openai")
	if err != nil {
		return nil, false
	}
	gen, ok := p.(llm.ImageGenerator)
	return gen, ok
}

// Close releases providers that hold connections.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		if c, ok := p.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Names lists the providers that can be selected in config.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

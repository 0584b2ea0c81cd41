package generation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"race_preview/pkg/core/llm"
	"race_preview/pkg/core/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	GenerateFunc func(ctx context.Context, req *llm.Request) (string, error)
	calls        atomic.Int32
}

func (m *MockProvider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	m.calls.Add(1)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "ok", nil
}

var greeting = &prompt.PromptTemplate{
	ID:             "test.greeting",
	SystemPrompt:   "be terse",
	UserPromptTmpl: "Preview {{.driverName}}",
	Variables:      []prompt.PromptVariable{{Name: "driverName", Required: true}},
}

func TestRunSuccess(t *testing.T) {
	var seen llm.Request
	p := &MockProvider{GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
		seen = *req
		return "See [source](https://x.com/a) now", nil
	}}
	u := NewUnit(p, llm.Request{Model: "gpt-5", MaxOutputTokens: 100, WebSearch: true}, 0, nil)

	out := u.Run(context.Background(), Job{
		Entity:   "Lando Norris",
		Template: greeting,
		Vars:     prompt.Vars{"driverName": "Lando Norris"},
	})

	require.True(t, out.Succeeded(), out.Err)
	assert.Equal(t, "Lando Norris", out.Entity)
	assert.Equal(t, "See source now", out.Value)
	assert.Equal(t, "See [source](https://x.com/a) now", out.Raw)

	assert.Equal(t, "Preview Lando Norris", seen.Prompt)
	assert.Equal(t, "be terse", seen.SystemPrompt)
	assert.Equal(t, "gpt-5", seen.Model)
	assert.Equal(t, 100, seen.MaxOutputTokens)
	assert.True(t, seen.WebSearch)
}

func TestRunParseCallback(t *testing.T) {
	u := NewUnit(&MockProvider{}, llm.Request{}, 0, nil)
	out := u.Run(context.Background(), Job{
		Entity:   "x",
		Template: greeting,
		Vars:     prompt.Vars{"driverName": "x"},
		Parse:    func(cleaned string) any { return len(cleaned) },
	})
	require.True(t, out.Succeeded())
	assert.Equal(t, 2, out.Value)
}

func TestRunFailureKinds(t *testing.T) {
	tests := []struct {
		name      string
		provider  *MockProvider
		vars      prompt.Vars
		parse     func(string) any
		wantKind  Kind
		wantCalls int32
		check     func(t *testing.T, err error)
	}{
		{
			name:      "missing variable never calls the provider",
			provider:  &MockProvider{},
			vars:      prompt.Vars{},
			wantKind:  FailureConfig,
			wantCalls: 0,
			check: func(t *testing.T, err error) {
				var missing *prompt.MissingVariableError
				assert.True(t, errors.As(err, &missing))
			},
		},
		{
			name: "provider error",
			provider: &MockProvider{GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
				return "", &llm.HTTPError{Provider: "openai", StatusCode: 500}
			}},
			vars:      prompt.Vars{"driverName": "x"},
			wantKind:  FailureService,
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				var httpErr *llm.HTTPError
				assert.True(t, errors.As(err, &httpErr))
			},
		},
		{
			name: "whitespace reply",
			provider: &MockProvider{GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
				return " \n\t", nil
			}},
			vars:      prompt.Vars{"driverName": "x"},
			wantKind:  FailureService,
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, llm.ErrEmptyResponse)
			},
		},
		{
			name: "provider panic is recovered",
			provider: &MockProvider{GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
				panic("sdk nil deref")
			}},
			vars:      prompt.Vars{"driverName": "x"},
			wantKind:  FailureService,
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "sdk nil deref")
			},
		},
		{
			name:      "parse panic is recovered",
			provider:  &MockProvider{},
			vars:      prompt.Vars{"driverName": "x"},
			parse:     func(string) any { panic("boom") },
			wantKind:  FailureParse,
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUnit(tt.provider, llm.Request{}, 0, nil)
			out := u.Run(context.Background(), Job{Entity: "e", Template: greeting, Vars: tt.vars, Parse: tt.parse})

			assert.False(t, out.Succeeded())
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantCalls, tt.provider.calls.Load())
			require.Error(t, out.Err)
			tt.check(t, out.Err)
		})
	}
}

func TestRunReportsMissingFields(t *testing.T) {
	u := NewUnit(&MockProvider{}, llm.Request{}, 0, nil)
	out := u.Run(context.Background(), Job{
		Entity:   "x",
		Template: greeting,
		Vars:     prompt.Vars{"driverName": "x"},
		Missing:  func(string) []string { return []string{"full"} },
	})
	require.True(t, out.Succeeded())
	assert.Equal(t, []string{"full"}, out.Missing)
}

func TestRunTimeout(t *testing.T) {
	p := &MockProvider{GenerateFunc: func(ctx context.Context, req *llm.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	u := NewUnit(p, llm.Request{}, 20*time.Millisecond, nil)

	out := u.Run(context.Background(), Job{Entity: "e", Template: greeting, Vars: prompt.Vars{"driverName": "x"}})
	assert.Equal(t, FailureService, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestRunNilTemplate(t *testing.T) {
	u := NewUnit(&MockProvider{}, llm.Request{}, 0, nil)
	out := u.Run(context.Background(), Job{Entity: "e"})
	assert.Equal(t, FailureConfig, out.Kind)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "service", FailureService.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

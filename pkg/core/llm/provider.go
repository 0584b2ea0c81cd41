// Package llm wraps the generative text services behind a single Provider
// interface.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when a service replies with no usable text.
var ErrEmptyResponse = errors.New("llm: empty response")

// ErrMissingAPIKey is returned when a provider is built without credentials.
var ErrMissingAPIKey = errors.New("llm: missing API key")

// Request is one generation call.
type Request struct {
	Model           string
	Prompt          string
	SystemPrompt    string
	MaxOutputTokens int
	// WebSearch asks the service to ground the reply with live search
	// results. Providers without a search tool ignore it.
	WebSearch bool
}

// Provider is the interface for all LLM providers. Implementations must be
// safe for concurrent use.
type Provider interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

// ImageGenerator produces PNG bytes from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// HTTPError is a non-2xx reply from a raw HTTP provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Body)
}

// modelFor keeps requested when it names a model of family, otherwise the
// provider's fallback. Config carries one model name for whichever provider
// is active.
func modelFor(requested, family, fallback string) string {
	if strings.HasPrefix(requested, family) {
		return requested
	}
	return fallback
}

const defaultHTTPTimeout = 10 * time.Minute

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// postJSON sends body to url and decodes a 2xx reply into out.
func postJSON(ctx context.Context, httpClient *http.Client, provider, url, apiKey string, body, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("%s: encode request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: call: %w", provider, err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("%s: read body: %w", provider, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Provider: provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", provider, err)
	}
	return nil
}

func nonEmpty(provider, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", provider, ErrEmptyResponse)
	}
	return text, nil
}

package prompt

import (
	"fmt"
	"sort"
	"sync"
)

// Identifiers of the prompts shipped in library/.
const (
	RaceContext   = "race.context"
	DriverPreview = "race.driver_preview"
	TopFive       = "race.top5"
	Underdogs     = "race.underdogs"
	Prediction    = "race.prediction"
	DetectGP      = "race.detect_gp"
	HeaderImage   = "race.header_image"
)

// Registry holds loaded prompts. It is built once per run and passed to the
// components that render prompts.
type Registry struct {
	prompts map[string]*PromptTemplate
	mu      sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{prompts: make(map[string]*PromptTemplate)}
}

// Register adds a prompt template to the registry, replacing any prompt
// with the same ID.
func (r *Registry) Register(pt *PromptTemplate) error {
	if pt.ID == "" {
		return fmt.Errorf("prompt ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts[pt.ID] = pt
	return nil
}

// GetPrompt retrieves a prompt by ID
func (r *Registry) GetPrompt(id string) (*PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.prompts[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt not found: %s", id)
}

// MustGetPrompt is like GetPrompt but panics on error
func (r *Registry) MustGetPrompt(id string) *PromptTemplate {
	p, err := r.GetPrompt(id)
	if err != nil {
		panic(err)
	}
	return p
}

// ListPrompts returns all registered prompt IDs, sorted
func (r *Registry) ListPrompts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered prompts
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts)
}

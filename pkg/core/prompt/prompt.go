// Package prompt provides the prompt library for generation requests.
// Prompts are defined in JSON files, embedded into the binary and optionally
// overridden from a directory at runtime, so wording can change without code
// changes.
package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// PromptTemplate represents a reusable prompt with metadata
type PromptTemplate struct {
	ID             string           `json:"id"`                   // Unique identifier (e.g., "race.top5")
	Name           string           `json:"name"`                 // Human-readable name
	Category       string           `json:"category"`             // Category (race, ...)
	Description    string           `json:"description"`          // Description of prompt purpose
	SystemPrompt   string           `json:"system_prompt"`        // Optional system prompt content
	UserPromptTmpl string           `json:"user_prompt_template"` // Go template for user prompt
	Variables      []PromptVariable `json:"variables"`            // Variables used in template
	Version        string           `json:"version"`              // Version for tracking changes
}

// PromptVariable defines a variable used in a prompt template
type PromptVariable struct {
	Name        string `json:"name"`        // Variable name (e.g., "driverName")
	Type        string `json:"type"`        // Type: string, int
	Description string `json:"description"` // What this variable represents
	Required    bool   `json:"required"`    // Whether this variable is required
	Default     string `json:"default"`     // Default value if not provided
}

// Vars holds runtime values for template substitution.
type Vars map[string]interface{}

// With returns a copy of v extended with key=value. The receiver is left
// untouched so a shared base set can be reused across concurrent renders.
func (v Vars) With(key string, value interface{}) Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out[key] = value
	return out
}

// MissingVariableError reports required variables that had no value at
// render time. It is a configuration error, raised before any request.
type MissingVariableError struct {
	PromptID string
	Names    []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("prompt %s: missing required variables: %s", e.PromptID, strings.Join(e.Names, ", "))
}

// resolve fills defaults and reports required variables that are absent or
// blank.
func (pt *PromptTemplate) resolve(vars Vars) (Vars, error) {
	resolved := make(Vars, len(vars)+len(pt.Variables))
	for k, v := range vars {
		resolved[k] = v
	}

	var missing []string
	for _, def := range pt.Variables {
		val, ok := resolved[def.Name]
		if ok && !isBlank(val) {
			continue
		}
		if def.Default != "" {
			resolved[def.Name] = def.Default
			continue
		}
		if def.Required {
			missing = append(missing, def.Name)
			continue
		}
		if !ok {
			resolved[def.Name] = ""
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingVariableError{PromptID: pt.ID, Names: missing}
	}
	return resolved, nil
}

func isBlank(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case fmt.Stringer:
		return strings.TrimSpace(val.String()) == ""
	default:
		return false
	}
}

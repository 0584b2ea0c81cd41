package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"
)

//go:embed library
var library embed.FS

// Default returns a registry holding the built-in prompt library.
func Default() (*Registry, error) {
	r := NewRegistry()
	sub, err := fs.Sub(library, "library")
	if err != nil {
		return nil, err
	}
	if err := loadPrompts(r, sub); err != nil {
		return nil, fmt.Errorf("failed to load built-in prompts: %w", err)
	}
	return r, nil
}

// LoadFromDirectory loads every prompt JSON file under dir into r, replacing
// built-in prompts that share an ID.
// Expected structure:
//
//	dir/
//	  race/
//	    top5.json
//	    underdogs.json
func LoadFromDirectory(r *Registry, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("prompts directory not found: %s", dir)
	}
	return loadPrompts(r, os.DirFS(dir))
}

func loadPrompts(r *Registry, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		var pt PromptTemplate
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}

		if pt.ID == "" {
			pt.ID = generateIDFromPath(p)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(p)
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		return nil
	})
}

// generateIDFromPath creates a prompt ID from the file path
// e.g., "race/top5.json" -> "race.top5"
func generateIDFromPath(p string) string {
	return strings.ReplaceAll(strings.TrimSuffix(p, ".json"), "/", ".")
}

// detectCategory extracts the category from the folder structure
func detectCategory(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// Render executes the user prompt template with vars. Required variables
// without a value fail with *MissingVariableError before the template runs;
// optional ones fall back to their default or "".
func Render(pt *PromptTemplate, vars Vars) (string, error) {
	resolved, err := pt.resolve(vars)
	if err != nil {
		return "", err
	}
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", pt.ID, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}(resolved)); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", pt.ID, err)
	}
	return buf.String(), nil
}

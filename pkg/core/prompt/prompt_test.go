package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLibrary(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	for _, id := range []string{RaceContext, DriverPreview, TopFive, Underdogs, Prediction, DetectGP, HeaderImage} {
		pt, err := r.GetPrompt(id)
		require.NoError(t, err, id)
		assert.Equal(t, "race", pt.Category)
		assert.NotEmpty(t, pt.UserPromptTmpl)
	}
}

func TestRenderDriverPreview(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	out, err := Render(r.MustGetPrompt(DriverPreview), Vars{
		"driverName":   "Lando Norris",
		"driverNumber": 4,
		"team":         "McLaren",
		"circuit":      "singapore",
		"season":       "2025",
		"raceContext":  "Hot and humid.",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Driver: Lando Norris (#4)")
	assert.Contains(t, out, "Team: McLaren")
	assert.Contains(t, out, "Hot and humid.")
	assert.Contains(t, out, "PERFECT_QUALI:")
	assert.NotContains(t, out, "<no value>")
}

func TestRenderMissingRequiredVariable(t *testing.T) {
	pt := &PromptTemplate{
		ID:             "test.missing",
		UserPromptTmpl: "{{.a}} {{.b}} {{.c}}",
		Variables: []PromptVariable{
			{Name: "a", Required: true},
			{Name: "b", Required: true},
			{Name: "c"},
		},
	}

	_, err := Render(pt, Vars{"b": "  "})

	var missing *MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "test.missing", missing.PromptID)
	assert.Equal(t, []string{"a", "b"}, missing.Names)
}

func TestRenderDefaultsAndOptional(t *testing.T) {
	pt := &PromptTemplate{
		ID:             "test.defaults",
		UserPromptTmpl: "[{{.mode}}][{{.extra}}]",
		Variables: []PromptVariable{
			{Name: "mode", Required: true, Default: "dry"},
			{Name: "extra"},
		},
	}

	out, err := Render(pt, nil)
	require.NoError(t, err)
	assert.Equal(t, "[dry][]", out)
}

func TestRenderUndeclaredVariableFails(t *testing.T) {
	pt := &PromptTemplate{ID: "test.undeclared", UserPromptTmpl: "{{.ghost}}"}

	_, err := Render(pt, Vars{})
	assert.Error(t, err)
}

func TestVarsWithCopies(t *testing.T) {
	base := Vars{"circuit": "monza"}
	ext := base.With("driverName", "Charles Leclerc")

	assert.Len(t, base, 1)
	assert.Equal(t, "Charles Leclerc", ext["driverName"])
	assert.Equal(t, "monza", ext["circuit"])
}

func TestLoadFromDirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "race"), 0o755))
	body := `{"user_prompt_template": "Custom top five for {{.raceContext}}", "variables": [{"name": "raceContext", "required": true}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "race", "top5.json"), []byte(body), 0o644))

	r, err := Default()
	require.NoError(t, err)
	before := r.Count()
	require.NoError(t, LoadFromDirectory(r, dir))

	assert.Equal(t, before, r.Count())
	pt := r.MustGetPrompt(TopFive)
	assert.Equal(t, "race", pt.Category)
	assert.True(t, strings.HasPrefix(pt.UserPromptTmpl, "Custom top five"))

	assert.Error(t, LoadFromDirectory(r, filepath.Join(dir, "missing")))
}

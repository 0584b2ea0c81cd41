package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "previews.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gpt-5", cfg.Model)
	assert.Equal(t, 30000, cfg.MaxOutputTokens)
	assert.True(t, cfg.WebSearch)
	assert.Len(t, cfg.Drivers, 20)
	assert.Equal(t, "Max Verstappen", cfg.DriverNames()[0])
	assert.True(t, cfg.NeedsDetection())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
provider: claude
web_search: false
request_timeout: 90s
concurrency: 4
circuit: singapore
race_date: "2025-10-05"
sessions:
  fp1: "P1: Norris"
drivers:
  - name: Lando Norris
    team: McLaren
    number: 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Provider)
	assert.False(t, cfg.WebSearch)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.False(t, cfg.NeedsDetection())
	assert.Equal(t, "P1: Norris", cfg.Sessions["fp1"])
	require.Len(t, cfg.Drivers, 1)
	assert.Equal(t, 4, cfg.Drivers[0].Number)

	// untouched keys keep defaults
	assert.Equal(t, "gpt-5", cfg.Model)
	assert.Equal(t, "preview_data.json", cfg.OutputPath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
max_output_tokens: 0
sessions:
  fp4: "nope"
drivers:
  - name: A
  - name: A
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_output_tokens")
	assert.Contains(t, err.Error(), `unknown session "fp4"`)
	assert.Contains(t, err.Error(), `duplicate driver "A"`)
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFindDriver(t *testing.T) {
	cfg := Default()
	d, ok := cfg.FindDriver("Oscar Piastri")
	require.True(t, ok)
	assert.Equal(t, 81, d.Number)

	_, ok = cfg.FindDriver("Ayrton Senna")
	assert.False(t, ok)
}

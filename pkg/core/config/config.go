// Package config loads the generator settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"race_preview/pkg/core/preview"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "config/previews.yaml"

type Config struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	WebSearch       bool          `yaml:"web_search"`
	RequestTimeout  time.Duration `yaml:"request_timeout"` // 0 disables the per-request timeout
	Concurrency     int           `yaml:"concurrency"`     // 0 launches every unit at once

	// Circuit and RaceDate are detected from the service when either is empty.
	Circuit  string `yaml:"circuit"`
	RaceDate string `yaml:"race_date"`
	Season   string `yaml:"season"`

	// Sessions maps fp1, fp2, fp3, sprint_qualifying, sprint and qualifying
	// to free-text results.
	Sessions map[string]string `yaml:"sessions"`
	Drivers  []preview.Driver  `yaml:"drivers"`

	OutputPath   string `yaml:"output_path"`
	ImagePath    string `yaml:"image_path"`
	HeaderImage  bool   `yaml:"header_image"`
	PromptDir    string `yaml:"prompt_dir"` // optional override of the built-in prompts
	LogMode      string `yaml:"log_mode"`
	StandingsURL string `yaml:"standings_url"`
	Archive      bool   `yaml:"archive"`
}

// Default returns the settings for the 2025 season.
func Default() *Config {
	return &Config{
		Provider:        "openai",
		Model:           "gpt-5",
		MaxOutputTokens: 30000,
		WebSearch:       true,
		Season:          "2025",
		Sessions:        map[string]string{},
		Drivers:         Grid2025(),
		OutputPath:      "preview_data.json",
		ImagePath:       "gp_header.png",
		HeaderImage:     true,
		LogMode:         "dev",
		StandingsURL:    "https://f1api.dev/api",
	}
}

// Grid2025 is the 2025 driver line-up.
func Grid2025() []preview.Driver {
	return []preview.Driver{
		{Name: "Max Verstappen", Team: "Red Bull", Number: 1},
		{Name: "Yuki Tsunoda", Team: "Red Bull", Number: 22},
		{Name: "Lewis Hamilton", Team: "Ferrari", Number: 44},
		{Name: "Charles Leclerc", Team: "Ferrari", Number: 16},
		{Name: "Lando Norris", Team: "McLaren", Number: 4},
		{Name: "Oscar Piastri", Team: "McLaren", Number: 81},
		{Name: "George Russell", Team: "Mercedes", Number: 63},
		{Name: "Kimi Antonelli", Team: "Mercedes", Number: 12},
		{Name: "Fernando Alonso", Team: "Aston Martin", Number: 14},
		{Name: "Lance Stroll", Team: "Aston Martin", Number: 18},
		{Name: "Pierre Gasly", Team: "Alpine", Number: 10},
		{Name: "Franco Colapinto", Team: "Alpine", Number: 45},
		{Name: "Esteban Ocon", Team: "Haas", Number: 31},
		{Name: "Oliver Bearman", Team: "Haas", Number: 87},
		{Name: "Alex Albon", Team: "Williams", Number: 23},
		{Name: "Carlos Sainz", Team: "Williams", Number: 55},
		{Name: "Liam Lawson", Team: "Racing Bulls", Number: 30},
		{Name: "Isack Hadjar", Team: "Racing Bulls", Number: 6},
		{Name: "Nico Hulkenberg", Team: "Sauber", Number: 27},
		{Name: "Gabriel Bortoleto", Team: "Sauber", Number: 5},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, falling back to Default when path does not exist.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate reports settings the generator cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.MaxOutputTokens <= 0 {
		problems = append(problems, "max_output_tokens must be positive")
	}
	if c.Concurrency < 0 {
		problems = append(problems, "concurrency must not be negative")
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "request_timeout must not be negative")
	}
	if len(c.Drivers) == 0 {
		problems = append(problems, "drivers must not be empty")
	}
	seen := make(map[string]bool, len(c.Drivers))
	for _, d := range c.Drivers {
		if strings.TrimSpace(d.Name) == "" {
			problems = append(problems, "driver with empty name")
			continue
		}
		if seen[d.Name] {
			problems = append(problems, fmt.Sprintf("duplicate driver %q", d.Name))
		}
		seen[d.Name] = true
	}
	known := make(map[string]bool)
	for _, k := range preview.SessionKeys() {
		known[k] = true
	}
	for k := range c.Sessions {
		if !known[k] {
			problems = append(problems, fmt.Sprintf("unknown session %q", k))
		}
	}
	if c.OutputPath == "" {
		problems = append(problems, "output_path must be set")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// NeedsDetection reports whether the next GP must be detected.
func (c *Config) NeedsDetection() bool {
	return c.Circuit == "" || c.RaceDate == ""
}

// DriverNames returns the configured names in grid order.
func (c *Config) DriverNames() []string {
	names := make([]string, len(c.Drivers))
	for i, d := range c.Drivers {
		names[i] = d.Name
	}
	return names
}

// FindDriver looks up a driver by exact name.
func (c *Config) FindDriver(name string) (preview.Driver, bool) {
	for _, d := range c.Drivers {
		if d.Name == name {
			return d, true
		}
	}
	return preview.Driver{}, false
}

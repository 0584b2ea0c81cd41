package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type raceInfo struct {
	Circuit  string `json:"circuit"`
	RaceDate string `json:"race_date"`
	GPName   string `json:"gp_name"`
}

func TestSmartParseStrategies(t *testing.T) {
	inputs := []string{
		`{"circuit": "singapore", "race_date": "2025-10-05", "gp_name": "Singapore Grand Prix"}`,
		`{circuit: 'singapore', race_date: '2025-10-05', gp_name: 'Singapore Grand Prix',}`,
	}
	for _, in := range inputs {
		var info raceInfo
		_, err := SmartParse(in, &info)
		require.NoError(t, err, in)
		assert.Equal(t, "singapore", info.Circuit)
		assert.Equal(t, "2025-10-05", info.RaceDate)
	}
}

func TestExtractJSONObject(t *testing.T) {
	reply := "Sure! Here it is:\n{\"circuit\": \"monaco\", \"race_date\": \"2025-05-25\"}\nGood luck."
	assert.Equal(t, `{"circuit": "monaco", "race_date": "2025-05-25"}`, ExtractJSONObject(reply))
	assert.Equal(t, "no object", ExtractJSONObject("no object"))
}

func TestCleanMarkdown(t *testing.T) {
	assert.Equal(t, "## Title\nBody", CleanMarkdown("```markdown\n## Title\nBody\n```"))
	assert.Equal(t, "plain", CleanMarkdown("  plain  "))
}

func TestMarkdownSection(t *testing.T) {
	full := "## Current Form\nTwo wins in the last five races.\nLeads the standings.\n\n## Circuit History & Strengths\nWon here twice."

	assert.Equal(t, "Two wins in the last five races.\nLeads the standings.", MarkdownSection(full, "Current Form"))
	assert.Equal(t, "Won here twice.", MarkdownSection(full, "circuit history & strengths"))
	assert.Equal(t, "", MarkdownSection(full, "The Stakes"))
	assert.Equal(t, "", MarkdownSection("no headings at all", "Current Form"))
}

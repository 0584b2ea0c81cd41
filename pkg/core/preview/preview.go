// Package preview defines the race weekend content types and the reply
// schemas used to parse them.
package preview

import (
	"race_preview/pkg/core/parse"
)

// Driver is one entity on the grid.
type Driver struct {
	Name   string `yaml:"name" json:"name"`
	Team   string `yaml:"team" json:"team"`
	Number int    `yaml:"number" json:"number"`
}

// Preview is the per-driver record stored under "drivers".
type Preview struct {
	TLDR         string `json:"tldr,omitempty"`
	Full         string `json:"full"`
	StakesLevel  string `json:"stakes_level"`
	PerfectQuali string `json:"perfect_quali"`
	PerfectRace  string `json:"perfect_race"`
	GoodQuali    string `json:"good_quali"`
	GoodRace     string `json:"good_race"`
}

// ErrorTLDR marks a preview whose generation failed.
const ErrorTLDR = "Error generating preview"

// DefaultStakes is used where a stakes level is needed but none was parsed.
const DefaultStakes = "medium"

// ErrorPreview is the placeholder stored for a driver whose generation
// failed, so the slot is still present in the document.
func ErrorPreview(err error) Preview {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Preview{TLDR: ErrorTLDR, Full: msg, StakesLevel: DefaultStakes}
}

// Failed reports whether p is an error placeholder.
func (p Preview) Failed() bool {
	return p.TLDR == ErrorTLDR
}

// TopPick is one entry of the ranked "top5" list.
type TopPick struct {
	Rank   int    `json:"rank"`
	Driver string `json:"driver"`
	Reason string `json:"reason"`
	Stakes string `json:"stakes"`
}

// Underdog is one entry of the narrative "underdogs" list.
type Underdog struct {
	Driver         string `json:"driver"`
	Title          string `json:"title"`
	Story          string `json:"story"`
	SurpriseFactor string `json:"surprise_factor"`
}

// Metadata describes the event a document was generated for.
type Metadata struct {
	Circuit     string `json:"circuit"`
	Date        string `json:"date"`
	Season      string `json:"season"`
	GPName      string `json:"gpName,omitempty"`
	RunID       string `json:"runId,omitempty"`
	GeneratedAt string `json:"generatedAt,omitempty"`
}

// FromRecord converts a parsed driver preview reply.
func FromRecord(rec parse.Record) Preview {
	return Preview{
		Full:         rec.String("full"),
		StakesLevel:  rec.String("stakes_level"),
		PerfectQuali: rec.String("perfect_quali"),
		PerfectRace:  rec.String("perfect_race"),
		GoodQuali:    rec.String("good_quali"),
		GoodRace:     rec.String("good_race"),
	}
}

// TopPicksFromEntries converts parsed top-5 blocks. The rank is the block
// ordinal.
func TopPicksFromEntries(entries []parse.Entry) []TopPick {
	picks := make([]TopPick, 0, len(entries))
	for _, e := range entries {
		picks = append(picks, TopPick{
			Rank:   e.Ordinal,
			Driver: e.Record.String("driver"),
			Reason: e.Record.String("reason"),
			Stakes: e.Record.String("stakes"),
		})
	}
	return picks
}

// UnderdogsFromEntries converts parsed underdog blocks.
func UnderdogsFromEntries(entries []parse.Entry) []Underdog {
	out := make([]Underdog, 0, len(entries))
	for _, e := range entries {
		out = append(out, Underdog{
			Driver:         e.Record.String("driver"),
			Title:          e.Record.String("title"),
			Story:          e.Record.String("story"),
			SurpriseFactor: e.Record.String("surprise_factor"),
		})
	}
	return out
}

// ErrorSection is the text stored for a free-text section whose generation
// failed.
func ErrorSection(err error) string {
	if err == nil {
		return "Error generating section"
	}
	return "Error generating section: " + err.Error()
}

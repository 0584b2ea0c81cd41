package preview

import (
	"fmt"
	"sort"
	"strings"

	"race_preview/pkg/core/utils"
)

// Session keys in weekend order, with display names.
var sessionOrder = []struct{ key, label string }{
	{"fp1", "FP1"},
	{"fp2", "FP2"},
	{"fp3", "FP3"},
	{"sprint_qualifying", "Sprint Qualifying"},
	{"sprint", "Sprint Race"},
	{"qualifying", "Qualifying"},
}

// SessionKeys lists the recognised session result keys.
func SessionKeys() []string {
	keys := make([]string, len(sessionOrder))
	for i, s := range sessionOrder {
		keys[i] = s.key
	}
	return keys
}

// SessionContext renders the completed session results for prompts, in
// weekend order. It returns "" when no session has results.
func SessionContext(results map[string]string) string {
	var sb strings.Builder
	for _, s := range sessionOrder {
		r := strings.TrimSpace(results[s.key])
		if r == "" {
			continue
		}
		fmt.Fprintf(&sb, "**%s:**\n%s\n\n", s.label, r)
	}
	if sb.Len() == 0 {
		return ""
	}
	return strings.TrimSpace("COMPLETED SESSIONS THIS WEEKEND:\n\n" + sb.String())
}

// CompletedSessions returns the keys that have results, in weekend order.
func CompletedSessions(results map[string]string) []string {
	var done []string
	for _, s := range sessionOrder {
		if strings.TrimSpace(results[s.key]) != "" {
			done = append(done, s.key)
		}
	}
	return done
}

const summaryFallbackLen = 200

// Summary is the "Current Form" section of the preview, or the first 200
// characters of the full text when the section is missing.
func Summary(p Preview) string {
	if form := utils.MarkdownSection(p.Full, "Current Form"); form != "" {
		return form
	}
	runes := []rune(p.Full)
	if len(runes) > summaryFallbackLen {
		runes = runes[:summaryFallbackLen]
	}
	return strings.TrimSpace(string(runes))
}

// OrderedNames returns the keys of previews in grid order. Names missing
// from order follow, sorted.
func OrderedNames(order []string, previews map[string]Preview) []string {
	names := make([]string, 0, len(previews))
	seen := make(map[string]bool, len(previews))
	for _, n := range order {
		if _, ok := previews[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var extra []string
	for n := range previews {
		if !seen[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// SummaryDigest renders "Name:\n<summary>" blocks for the top-5 and
// underdog prompts.
func SummaryDigest(order []string, previews map[string]Preview) string {
	names := OrderedNames(order, previews)
	blocks := make([]string, 0, len(names))
	for _, n := range names {
		blocks = append(blocks, fmt.Sprintf("%s:\n%s", n, Summary(previews[n])))
	}
	return strings.Join(blocks, "\n\n")
}

// FullDigest renders every preview with its result expectations for the
// prediction prompt.
func FullDigest(order []string, previews map[string]Preview) string {
	names := OrderedNames(order, previews)
	blocks := make([]string, 0, len(names))
	for _, n := range names {
		p := previews[n]
		stakes := p.StakesLevel
		if stakes == "" {
			stakes = DefaultStakes
		}
		blocks = append(blocks, fmt.Sprintf(
			"**%s** (%s stakes):\n%s\n\nPerfect Result: Quali %s, Race %s\nGood Result: Quali %s, Race %s",
			n, stakes, p.Full,
			orNA(p.PerfectQuali), orNA(p.PerfectRace), orNA(p.GoodQuali), orNA(p.GoodRace),
		))
	}
	return strings.Join(blocks, "\n\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Package extract removes presentation artifacts (links and web addresses)
// from generated replies before they are parsed or stored.
package extract

import (
	"regexp"
	"strings"
)

var (
	// [label](target)
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	// http(s) addresses up to whitespace or a closing parenthesis
	bareURL = regexp.MustCompile(`https?://[^\s)]+`)
	// "(example.com)", "(www.site.co.uk/path)" and the whitespace before it
	domainResidue = regexp.MustCompile(`\s*\([a-zA-Z0-9\-.]+\.(?:com|org|net|co\.uk|io|gov|edu)[^)]*\)`)
)

// Clean strips links, bare addresses and parenthesised domain residues.
// Links collapse to their label before addresses are removed so a link
// target is never processed twice. Passes repeat until the text is stable,
// which makes Clean idempotent even when a removal exposes a new artifact.
func Clean(raw string) string {
	text := raw
	for {
		next := cleanOnce(text)
		if next == text {
			return text
		}
		text = next
	}
}

func cleanOnce(text string) string {
	text = markdownLink.ReplaceAllString(text, "$1")
	text = bareURL.ReplaceAllString(text, "")
	text = domainResidue.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

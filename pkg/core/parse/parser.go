package parse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// markerHit is one occurrence of "MARKER:" in the text.
type markerHit struct {
	field      int // index into the field slice
	start      int // first byte of the marker, including leading emphasis
	valueStart int // first byte after the colon
	bold       bool
}

// Parse extracts every field of schema from text.
func Parse(text string, schema Schema) Record {
	rec, _ := ParseWithReport(text, schema)
	return rec
}

// ParseWithReport is Parse that also returns the keys of required fields the
// reply did not contain.
func ParseWithReport(text string, schema Schema) (Record, []string) {
	return parseFields(text, schema.Fields)
}

func parseFields(text string, fields []Field) (Record, []string) {
	hits := findMarkers(text, fields)
	rec := make(Record, len(fields))
	var missing []string

	for i, f := range fields {
		rec[f.Key] = emptyValue(f)

		first := -1
		for h := range hits {
			if hits[h].field == i {
				first = h
				break
			}
		}
		if first < 0 {
			if f.Required {
				missing = append(missing, f.Key)
			}
			continue
		}

		start := hits[first].valueStart
		end := len(text)
		for _, h := range hits {
			if h.start >= start {
				end = h.start
				break
			}
		}
		rec[f.Key] = capture(text[start:end], f, hits[first].bold)
	}
	return rec, missing
}

func capture(raw string, f Field, bold bool) Value {
	if bold {
		// closing "**" of "**STAKES:**"
		raw = strings.TrimLeft(raw, "*")
	}
	raw = strings.TrimLeft(raw, " \t")
	if f.Kind != MultiLine {
		// a scalar may sit on the line after its marker
		raw = strings.TrimLeft(raw, " \t\r\n")
		if nl := strings.IndexAny(raw, "\r\n"); nl >= 0 {
			raw = raw[:nl]
		}
	}
	raw = strings.TrimSpace(raw)
	if f.Fold {
		raw = strings.ToLower(raw)
	}

	if f.Kind != List {
		return Value{Text: raw}
	}
	items := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return Value{Items: items, IsList: true}
}

// findMarkers returns every occurrence of every field marker, ordered by
// position. A marker only counts at a token boundary so "QUALI:" never
// matches inside "GOOD_QUALI:".
func findMarkers(text string, fields []Field) []markerHit {
	var hits []markerHit
	for i, f := range fields {
		token := f.Marker + ":"
		offset := 0
		for {
			idx := strings.Index(text[offset:], token)
			if idx < 0 {
				break
			}
			pos := offset + idx
			offset = pos + len(token)
			if !atBoundary(text, pos) {
				continue
			}
			start := pos
			for start > 0 && text[start-1] == '*' {
				start--
			}
			hits = append(hits, markerHit{field: i, start: start, valueStart: pos + len(token), bold: start < pos})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].start < hits[b].start })
	return hits
}

func atBoundary(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}

// ParseEntries splits text into ordinal-headed blocks and parses each block
// with the schema fields. Blocks whose ordinal is not a positive integer are
// dropped, a repeated ordinal keeps its first block, and the result is sorted
// by ordinal regardless of the order the reply used. Missing entries are
// never fabricated.
func ParseEntries(text string, schema EntrySchema) []Entry {
	header := headerPattern(schema.Prefix)
	locs := header.FindAllStringSubmatchIndex(text, -1)

	seen := make(map[int]bool)
	var entries []Entry
	for i, loc := range locs {
		blockEnd := len(text)
		if i+1 < len(locs) {
			blockEnd = locs[i+1][0]
		}

		ordinal, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || ordinal <= 0 || seen[ordinal] {
			continue
		}
		seen[ordinal] = true

		rec, _ := parseFields(text[loc[1]:blockEnd], schema.Fields)
		if schema.HeadKey != "" {
			rec[schema.HeadKey] = Value{Text: strings.Trim(text[loc[4]:loc[5]], " \t\r*")}
		}
		entries = append(entries, Entry{Ordinal: ordinal, Record: rec})
	}

	sort.SliceStable(entries, func(a, b int) bool { return entries[a].Ordinal < entries[b].Ordinal })
	if schema.Size > 0 && len(entries) > schema.Size {
		entries = entries[:schema.Size]
	}
	return entries
}

// headerPattern matches "<prefix><ordinal>: <head>" at line start, after
// optional heading hashes, bullets or emphasis ("### #1:", "## UNDERDOG #2:").
func headerPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t*#-]*` + regexp.QuoteMeta(prefix) + `([^\s:*]+)\**:[ \t]*(.*)$`)
}

// Package parse extracts typed fields from loosely formatted model replies.
//
// Replies are expected to label their fields with markers such as
// "STAKES: high". The parser is best-effort: absent fields resolve to empty
// values and malformed entries are skipped, so a parse never fails.
package parse

import "encoding/json"

// Kind describes how a field value is captured.
type Kind int

const (
	// Scalar values stop at the first line break.
	Scalar Kind = iota
	// MultiLine values run until the next marker or the end of the text.
	MultiLine
	// List values are comma separated and trimmed element by element.
	List
)

// Field declares one expected marker in a reply.
type Field struct {
	Key      string // key in the resulting Record
	Marker   string // literal label without the colon, e.g. "PERFECT_QUALI"
	Kind     Kind
	Required bool // reported by ParseWithReport when absent
	Fold     bool // lower-case the captured value
}

// Schema is a named, versioned set of fields for one prompt/response pair.
type Schema struct {
	Name    string
	Version string
	Fields  []Field
}

// EntrySchema describes a reply made of repeated blocks, each headed by
// "<Prefix><ordinal>: <head>", for instance "#2: Lando Norris" or
// "UNDERDOG #1: Alex Albon".
type EntrySchema struct {
	Name    string
	Version string
	Prefix  string
	HeadKey string // Record key receiving the header text
	Fields  []Field
	Size    int // maximum number of entries kept, 0 for unbounded
}

// Value is either a string or an ordered list of strings.
type Value struct {
	Text   string
	Items  []string
	IsList bool
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsList {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.Text)
}

// Record maps field keys to extracted values. Every key of the schema that
// produced it is present.
type Record map[string]Value

// String returns the text of key, or "" when absent or a list.
func (r Record) String(key string) string {
	return r[key].Text
}

// List returns the items of key. The result is never nil.
func (r Record) List(key string) []string {
	items := r[key].Items
	if items == nil {
		return []string{}
	}
	return items
}

// Entry is one ordinal-keyed block of a ranked or narrative reply.
type Entry struct {
	Ordinal int
	Record  Record
}

func emptyValue(f Field) Value {
	if f.Kind == List {
		return Value{Items: []string{}, IsList: true}
	}
	return Value{}
}

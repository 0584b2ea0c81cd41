// Package store persists the preview document that the web page reads.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"race_preview/pkg/core/preview"
)

// ErrNotFound is returned by Load when the document does not exist.
var ErrNotFound = errors.New("preview document not found")

// ErrSectionMissing is returned by accessors for absent sections.
var ErrSectionMissing = errors.New("section missing")

// Top-level section names.
const (
	SectionDrivers     = "drivers"
	SectionTop5        = "top5"
	SectionUnderdogs   = "underdogs"
	SectionPrediction  = "prediction"
	SectionRaceContext = "raceContext"
	SectionMetadata    = "metadata"
	SectionStandings   = "standings"
)

// Document is the aggregate of every section. Sections are held as raw JSON
// so untouched sections round-trip byte for byte.
type Document struct {
	root *object
}

func NewDocument() *Document {
	return &Document{root: newObject()}
}

// Has reports whether the section is present.
func (d *Document) Has(name string) bool {
	_, ok := d.root.get(name)
	return ok
}

// Raw returns the stored bytes of a section.
func (d *Document) Raw(name string) (json.RawMessage, bool) {
	return d.root.get(name)
}

// Sections lists section names in document order.
func (d *Document) Sections() []string {
	return append([]string(nil), d.root.keys...)
}

// Set replaces a section in place. Use MergeSection to keep the original.
func (d *Document) Set(name string, value any) error {
	raw, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("encode section %s: %w", name, err)
	}
	d.root.set(name, raw)
	return nil
}

// Decode unmarshals a section into v.
func (d *Document) Decode(name string, v any) error {
	raw, ok := d.root.get(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrSectionMissing)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode section %s: %w", name, err)
	}
	return nil
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return d.root.MarshalJSON()
}

// Drivers returns the driver previews.
func (d *Document) Drivers() (map[string]preview.Preview, error) {
	var out map[string]preview.Preview
	if err := d.Decode(SectionDrivers, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]preview.Preview{}
	}
	return out, nil
}

// DriverNames returns the driver keys in document order.
func (d *Document) DriverNames() ([]string, error) {
	raw, ok := d.root.get(SectionDrivers)
	if !ok {
		return nil, fmt.Errorf("%s: %w", SectionDrivers, ErrSectionMissing)
	}
	obj, err := parseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("decode section %s: %w", SectionDrivers, err)
	}
	return append([]string(nil), obj.keys...), nil
}

func (d *Document) Metadata() (preview.Metadata, error) {
	var m preview.Metadata
	err := d.Decode(SectionMetadata, &m)
	return m, err
}

func (d *Document) RaceContext() (string, error) {
	var s string
	err := d.Decode(SectionRaceContext, &s)
	return s, err
}

func (d *Document) Prediction() (string, error) {
	var s string
	err := d.Decode(SectionPrediction, &s)
	return s, err
}

func (d *Document) TopPicks() ([]preview.TopPick, error) {
	var out []preview.TopPick
	err := d.Decode(SectionTop5, &out)
	return out, err
}

func (d *Document) Underdogs() ([]preview.Underdog, error) {
	var out []preview.Underdog
	err := d.Decode(SectionUnderdogs, &out)
	return out, err
}

// EncodeDrivers encodes previews as a JSON object keyed by name, in the
// given order.
func EncodeDrivers(order []string, previews map[string]preview.Preview) (json.RawMessage, error) {
	obj := newObject()
	for _, name := range preview.OrderedNames(order, previews) {
		raw, err := json.Marshal(previews[name])
		if err != nil {
			return nil, err
		}
		obj.set(name, raw)
	}
	return obj.MarshalJSON()
}

// MergeSection returns a copy of doc with exactly one section replaced.
func MergeSection(doc *Document, name string, value any) (*Document, error) {
	raw, err := encodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("encode section %s: %w", name, err)
	}
	merged := &Document{root: doc.root.clone()}
	merged.root.set(name, raw)
	return merged, nil
}

// MergeEntity returns a copy of doc with one driver replaced or appended.
// Other drivers keep their bytes and order.
func MergeEntity(doc *Document, name string, record any) (*Document, error) {
	drivers := newObject()
	if raw, ok := doc.root.get(SectionDrivers); ok {
		var err error
		if drivers, err = parseObject(raw); err != nil {
			return nil, fmt.Errorf("decode section %s: %w", SectionDrivers, err)
		}
	}
	val, err := encodeValue(record)
	if err != nil {
		return nil, fmt.Errorf("encode driver %s: %w", name, err)
	}
	drivers.set(name, val)

	encoded, err := drivers.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return MergeSection(doc, SectionDrivers, json.RawMessage(encoded))
}

// Load reads the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	root, err := parseObject(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &Document{root: root}, nil
}

// Save writes doc to path atomically: the bytes go to a temporary file in
// the same directory, which is synced and renamed over path.
func Save(doc *Document, path string) (err error) {
	compact, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	buf.WriteByte('\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

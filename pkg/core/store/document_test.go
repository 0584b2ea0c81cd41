package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"race_preview/pkg/core/preview"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument(t *testing.T) *Document {
	t.Helper()
	drivers, err := EncodeDrivers(
		[]string{"Max Verstappen", "Lando Norris"},
		map[string]preview.Preview{
			"Lando Norris":   {Full: "Steady.", StakesLevel: "high"},
			"Max Verstappen": {Full: "Fast.", StakesLevel: "medium"},
		},
	)
	require.NoError(t, err)

	doc := NewDocument()
	require.NoError(t, doc.Set(SectionDrivers, drivers))
	require.NoError(t, doc.Set(SectionTop5, []preview.TopPick{{Rank: 1, Driver: "Max Verstappen"}}))
	require.NoError(t, doc.Set(SectionUnderdogs, []preview.Underdog{}))
	require.NoError(t, doc.Set(SectionPrediction, "Verstappen wins."))
	require.NoError(t, doc.Set(SectionRaceContext, "Hot."))
	require.NoError(t, doc.Set(SectionMetadata, preview.Metadata{Circuit: "singapore", Date: "2025-10-05", Season: "2025", RunID: "run-1"}))
	return doc
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "preview_data.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadRejectsNonObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview_data.json")
	require.NoError(t, Save(sampleDocument(t), path))

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{SectionDrivers, SectionTop5, SectionUnderdogs, SectionPrediction, SectionRaceContext, SectionMetadata}, doc.Sections())

	names, err := doc.DriverNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Max Verstappen", "Lando Norris"}, names)

	drivers, err := doc.Drivers()
	require.NoError(t, err)
	assert.Equal(t, "Steady.", drivers["Lando Norris"].Full)

	meta, err := doc.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "singapore", meta.Circuit)

	rc, err := doc.RaceContext()
	require.NoError(t, err)
	assert.Equal(t, "Hot.", rc)

	picks, err := doc.TopPicks()
	require.NoError(t, err)
	assert.Len(t, picks, 1)

	dogs, err := doc.Underdogs()
	require.NoError(t, err)
	assert.Empty(t, dogs)

	assert.False(t, doc.Has(SectionStandings))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestDecodeMissingSection(t *testing.T) {
	_, err := NewDocument().Prediction()
	assert.ErrorIs(t, err, ErrSectionMissing)
}

func TestMergeSectionLeavesOtherSectionsUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview_data.json")
	require.NoError(t, Save(sampleDocument(t), path))
	doc, err := Load(path)
	require.NoError(t, err)

	merged, err := MergeSection(doc, SectionPrediction, "Norris wins.")
	require.NoError(t, err)

	for _, name := range []string{SectionDrivers, SectionTop5, SectionUnderdogs, SectionRaceContext, SectionMetadata} {
		before, _ := doc.Raw(name)
		after, _ := merged.Raw(name)
		assert.Equal(t, string(before), string(after), name)
	}
	p, err := merged.Prediction()
	require.NoError(t, err)
	assert.Equal(t, "Norris wins.", p)

	// the source document is not modified
	p, err = doc.Prediction()
	require.NoError(t, err)
	assert.Equal(t, "Verstappen wins.", p)

	require.NoError(t, Save(merged, path))
	reloaded, err := Load(path)
	require.NoError(t, err)
	before, _ := doc.Raw(SectionDrivers)
	after, _ := reloaded.Raw(SectionDrivers)
	assert.Equal(t, string(before), string(after))
}

func TestMergeSectionAddsNewSection(t *testing.T) {
	doc := sampleDocument(t)
	merged, err := MergeSection(doc, SectionStandings, map[string]any{"latestRound": 3})
	require.NoError(t, err)

	assert.True(t, merged.Has(SectionStandings))
	assert.False(t, doc.Has(SectionStandings))
	assert.Equal(t, SectionStandings, merged.Sections()[len(merged.Sections())-1])
}

func TestMergeEntity(t *testing.T) {
	doc := sampleDocument(t)
	beforeMax := driverRaw(t, doc, "Max Verstappen")

	merged, err := MergeEntity(doc, "Lando Norris", preview.Preview{Full: "Rebuilt.", StakesLevel: "low"})
	require.NoError(t, err)

	names, err := merged.DriverNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Max Verstappen", "Lando Norris"}, names)

	drivers, err := merged.Drivers()
	require.NoError(t, err)
	assert.Equal(t, "Rebuilt.", drivers["Lando Norris"].Full)
	assert.Equal(t, beforeMax, driverRaw(t, merged, "Max Verstappen"))

	for _, name := range []string{SectionTop5, SectionMetadata, SectionPrediction} {
		before, _ := doc.Raw(name)
		after, _ := merged.Raw(name)
		assert.Equal(t, string(before), string(after))
	}

	merged, err = MergeEntity(merged, "Oscar Piastri", preview.Preview{Full: "New."})
	require.NoError(t, err)
	names, err = merged.DriverNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Max Verstappen", "Lando Norris", "Oscar Piastri"}, names)
}

func TestMergeSectionRejectsInvalidRaw(t *testing.T) {
	_, err := MergeSection(NewDocument(), SectionTop5, json.RawMessage(`{broken`))
	assert.Error(t, err)
}

func driverRaw(t *testing.T, doc *Document, name string) string {
	t.Helper()
	raw, ok := doc.Raw(SectionDrivers)
	require.True(t, ok)
	obj, err := parseObject(raw)
	require.NoError(t, err)
	v, ok := obj.get(name)
	require.True(t, ok)
	return string(v)
}

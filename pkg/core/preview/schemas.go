package preview

import (
	"race_preview/pkg/core/parse"
	"race_preview/pkg/core/utils"
)

var DriverPreviewSchema = parse.Schema{
	Name:    "driver_preview",
	Version: "1",
	Fields: []parse.Field{
		{Key: "full", Marker: "FULL", Kind: parse.MultiLine, Required: true},
		{Key: "stakes_level", Marker: "STAKES", Kind: parse.Scalar, Required: true, Fold: true},
		{Key: "perfect_quali", Marker: "PERFECT_QUALI", Kind: parse.Scalar},
		{Key: "perfect_race", Marker: "PERFECT_RACE", Kind: parse.Scalar},
		{Key: "good_quali", Marker: "GOOD_QUALI", Kind: parse.Scalar},
		{Key: "good_race", Marker: "GOOD_RACE", Kind: parse.Scalar},
	},
}

var TopFiveSchema = parse.EntrySchema{
	Name:    "top5",
	Version: "1",
	Prefix:  "#",
	HeadKey: "driver",
	Fields: []parse.Field{
		{Key: "reason", Marker: "REASON", Kind: parse.MultiLine, Required: true},
		{Key: "stakes", Marker: "STAKES", Kind: parse.MultiLine},
	},
	Size: 5,
}

var UnderdogSchema = parse.EntrySchema{
	Name:    "underdogs",
	Version: "1",
	Prefix:  "UNDERDOG #",
	HeadKey: "driver",
	Fields: []parse.Field{
		{Key: "title", Marker: "TITLE", Kind: parse.Scalar, Required: true},
		{Key: "story", Marker: "STORY", Kind: parse.MultiLine, Required: true},
		{Key: "surprise_factor", Marker: "SURPRISE_FACTOR", Kind: parse.MultiLine},
	},
	Size: 3,
}

// ParsePreview parses a cleaned driver preview reply.
func ParsePreview(cleaned string) any {
	return FromRecord(parse.Parse(cleaned, DriverPreviewSchema))
}

// MissingPreviewFields lists the required preview fields a cleaned reply lacks.
func MissingPreviewFields(cleaned string) []string {
	_, missing := parse.ParseWithReport(cleaned, DriverPreviewSchema)
	return missing
}

// ParseTopPicks parses a cleaned top-5 reply.
func ParseTopPicks(cleaned string) any {
	return TopPicksFromEntries(parse.ParseEntries(cleaned, TopFiveSchema))
}

// ParseUnderdogs parses a cleaned underdogs reply.
func ParseUnderdogs(cleaned string) any {
	return UnderdogsFromEntries(parse.ParseEntries(cleaned, UnderdogSchema))
}

// ParseText keeps a cleaned free-text reply, minus any code fence the model
// wrapped around it.
func ParseText(cleaned string) any {
	return utils.CleanMarkdown(cleaned)
}

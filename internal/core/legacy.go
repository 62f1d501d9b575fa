package core

import (
	"strconv"
	"strings"
)

// bhkAliases maps legacy room-count tokens to BHK codes.
var bhkAliases = map[string]BHK{
	"1":      BHK1,
	"2":      BHK2,
	"3":      BHK3,
	"4":      BHK4,
	"studio": BHKStudio,
	"Studio": BHKStudio,
	"BHK 1":  BHK1,
	"BHK 2":  BHK2,
	"BHK 3":  BHK3,
	"BHK 4":  BHK4,
}

// timelineAliases maps legacy timeline shorthand to Timeline codes.
var timelineAliases = map[string]Timeline{
	"0-3m":      TimelineZeroToThree,
	"3-6m":      TimelineThreeToSix,
	">6m":       TimelineMoreThanSix,
	"Exploring": TimelineExploring,
}

// NormalizeBHK converts a legacy bhk token. Unknown tokens are returned
// unchanged so the validator can report them.
func NormalizeBHK(s string) string {
	s = strings.TrimSpace(s)
	if code, ok := bhkAliases[s]; ok {
		return string(code)
	}
	return s
}

// NormalizeTimeline converts a legacy timeline token. Canonical codes pass
// through; anything else yields "".
func NormalizeTimeline(s string) string {
	s = strings.TrimSpace(s)
	if code, ok := timelineAliases[s]; ok {
		return string(code)
	}
	if containsExact(Timelines, s) {
		return s
	}
	return ""
}

// TagSeparators are the characters that split a tag cell. A tag can never
// contain one of them.
const TagSeparators = ",|"

// SplitTags splits a tag cell on commas and pipes. Segments are trimmed;
// order, duplicates and empty segments are kept.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := make([]string, 0, strings.Count(s, ",")+strings.Count(s, "|")+1)
	start := 0
	for i, r := range s {
		if strings.ContainsRune(TagSeparators, r) {
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// MapLegacyRow converts a CSV row into a RawBuyer. Cells that are empty
// after trimming become absent. Columns other than bhk, timeline, tags and
// the budgets are copied through as text.
func MapLegacyRow(row CSVRow) RawBuyer {
	raw := make(RawBuyer, len(row))
	for key, cell := range row {
		cell = strings.TrimSpace(cell)
		switch key {
		case "bhk":
			if cell != "" {
				raw[key] = NormalizeBHK(cell)
			}
		case "timeline":
			if t := NormalizeTimeline(cell); t != "" {
				raw[key] = t
			}
		case "tags":
			raw[key] = SplitTags(cell)
		case "budgetMin", "budgetMax":
			if cell == "" {
				continue
			}
			if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
				raw[key] = n
			} else {
				raw[key] = cell
			}
		default:
			if cell != "" {
				raw[key] = cell
			}
		}
	}
	return raw
}

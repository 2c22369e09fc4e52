package parse

import (
	"strings"
)

// Number of leading runes (a sequence number such as "01 ") carried
// by each station segment of the OnOff field.
const SegmentPrefixLen = 3

// Strips encoding debris from names starting with Prefix by cutting
// Head runes from the front and Tail runes from the back.
type TrimRule struct {
	Prefix string
	Head   int
	Tail   int
}

// Collapses all names starting with Prefix into Name.
type AliasRule struct {
	Prefix string
	Name   string
}

// Both tables are evaluated in order, each rule seeing the output of
// the previous one.
var ArtifactRules = []TrimRule{
	{Prefix: " ", Head: 4, Tail: 5},
	{Prefix: "- ", Head: 5, Tail: 5},
}

var AliasRules = []AliasRule{
	{Prefix: "Monument", Name: "Monument"},
	{Prefix: "Central", Name: "Central Station"},
}

// Extracts a station name from the pipe delimited OnOff field of a
// survey row. Field counts segments from the end: 2 is the boarding
// (source) station, 1 the alighting (destination) station.
func Convert(text string, field int) string {
	segments := strings.Split(text, "|")
	if field < 1 || field > len(segments) {
		return ""
	}
	return Normalize(cutRunes(segments[len(segments)-field], SegmentPrefixLen, 0))
}

// Applies ArtifactRules and AliasRules to a station name.
func Normalize(name string) string {
	for _, rule := range ArtifactRules {
		if strings.HasPrefix(name, rule.Prefix) {
			name = cutRunes(name, rule.Head, rule.Tail)
		}
	}
	for _, rule := range AliasRules {
		if strings.HasPrefix(name, rule.Prefix) {
			name = rule.Name
		}
	}
	return name
}

// Removes head runes from the front and tail runes from the back of
// s. Yields "" when nothing would remain.
func cutRunes(s string, head int, tail int) string {
	r := []rune(s)
	if head+tail >= len(r) {
		return ""
	}
	return string(r[head : len(r)-tail])
}

// Package fields maps raw survey CSV headers to canonical field names.
//
// The survey spreadsheets are human-authored and the headers are ragged
// ("Size (sf)", "Latitude(Non Obscured)", trailing spaces, ...). Known
// headers are resolved through a fixed table; anything else falls back to a
// slug-style derivation. A derived name that is not a valid identifier is a
// fatal condition: it aborts the whole import rather than producing a row
// keyed by garbage.
package fields

import (
	"fmt"
	"strings"
	"unicode"
)

// Drop is the mapping value that discards a column entirely. Dropped columns
// never appear in parsed rows.
const Drop = ""

// nameMap is the fixed table of known survey headers. Matching is
// case-sensitive; headers are trimmed before lookup. An empty value drops
// the column.
var nameMap = map[string]string{
	"Name in BES Reports":       "name",
	"Project":                   "project",
	"Watershed":                 "watershed",
	"Building Use":              "building_use",
	"Solar over Ecoroof":        "solar_over_ecoroof",
	"Type":                      "type",
	"Year":                      "year_built",
	"Size (sf)":                 "square_footage",
	"Latitude(Non Obscured)":    "latitude",
	"Longitude (Non Obscured)":  "longitude",
	"Confidence (Non Obscured)": "confidence",
	"Latitude":                  "latitude_obscured",
	"Longitude":                 "longitude_obscured",
	"Confidence":                "confidence_obscured",

	// Columns the pipeline never consumes. Addresses are dropped on purpose:
	// the published data set must not carry them.
	"Address":            Drop,
	"Address (Obscured)": Drop,
	"Address_Clean":      Drop,
	"Number":             Drop,
	"Depth":              Drop,
	"Cost":               Drop,
	"Composition":        Drop,
	"Irrigation":         Drop,
	"Drainage":           Drop,
	"Plants":             Drop,
	"Maintenance":        Drop,
	"Contractor":         Drop,
}

// Normalize resolves a raw header to its canonical field name.
//
// Resolution order:
//  1. Exact match in the fixed table ("" means drop; the caller must treat
//     (Drop, true, nil) as "discard this column").
//  2. Derived name via Clean.
//
// The second return reports whether the header was found in the fixed table.
// Derived names are validated with IsIdentifier; an invalid result is an
// error and the caller is expected to abort.
func Normalize(header string) (name string, known bool, err error) {
	h := strings.TrimSpace(header)
	if mapped, ok := nameMap[h]; ok {
		return mapped, true, nil
	}
	derived := Clean(h)
	if !IsIdentifier(derived) {
		return "", false, fmt.Errorf("fields: header %q derives to %q, which is not a valid identifier", header, derived)
	}
	return derived, false, nil
}

// Clean derives a field name from an unmapped header: lowercase, strip
// everything except letters, digits, underscores and whitespace, then
// collapse whitespace runs to single underscores.
//
// Clean is idempotent: Clean(Clean(s)) == Clean(s).
func Clean(name string) string {
	name = strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), "_")
}

// IsIdentifier reports whether s is a valid field identifier: a letter or
// underscore followed by letters, digits, or underscores.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

package importer

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName title-cases a value only when its first character is
// lowercase. Already-cased values (proper names, acronyms like "PSU") pass
// through untouched.
func NormalizeName(name string) string {
	for _, r := range name {
		if unicode.IsLower(r) {
			return cases.Title(language.English).String(name)
		}
		break
	}
	return name
}

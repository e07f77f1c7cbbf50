// Package normalize canonicalizes user-supplied identifiers and labels
// before they are stored or compared.
package normalize

import "strings"

// Email trims and lowercases an address. Stored emails are always in this
// form, so lookups must normalize first.
func Email(s string) string {
	return key(s)
}

// Name trims a display name or title and collapses runs of whitespace
// to a single space. Case is kept.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role, Status and AuthMethod are enum-like values compared exactly.
func Role(s string) string       { return key(s) }
func Status(s string) string     { return key(s) }
func AuthMethod(s string) string { return key(s) }

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

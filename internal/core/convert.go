package core

// convert.go provides cell cleanup for values read from hospital exports.
//
// These functions handle the messy reality of spreadsheet and CSV cells:
//   - Excel formula prefixes (="00123") used to keep leading zeros
//   - Surrounding quotes and stray whitespace
//   - Non-breaking spaces copied from EMR screens
//
// Cleaned values are always text; typed parsing (dates) happens later.

import "strings"

// HeaderIndex maps normalized column names to their position.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell removes common artifacts from a cell value:
// - Trims whitespace, including non-breaking spaces
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// compactFold lowercases s and drops all whitespace, the comparison form
// used for fuzzy header matching.
func compactFold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

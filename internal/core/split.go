package core

import (
	"fmt"
	"strings"
)

// DefaultDelimiter is used when no candidate delimiter occurs in a sample.
const DefaultDelimiter = "/"

// delimiterSampleSize is how many non-empty values DetectDelimiter reads.
const delimiterSampleSize = 100

// Delimiter candidates in tie-break order.
var delimiterCandidates = []string{"/", "-", "|", ",", " "}

// Position selects which segment of a combined field to keep.
type Position int

const (
	PositionFirst Position = iota
	PositionLast
)

func (p Position) String() string {
	if p == PositionLast {
		return "last"
	}
	return "first"
}

// ParsePosition accepts "first"/"last" and the Korean "앞"/"뒤".
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "front", "앞":
		return PositionFirst, nil
	case "last", "back", "뒤":
		return PositionLast, nil
	}
	return PositionFirst, fmt.Errorf("invalid position %q: want first or last", s)
}

// DetectDelimiter guesses the delimiter of a combined column such as
// "F/34". It samples the first 100 non-empty values as given and counts,
// for each candidate, how many values contain it. The most frequent
// candidate wins; ties go to the earlier candidate. Returns "/" when
// nothing matches.
func DetectDelimiter(values []string) string {
	counts := make([]int, len(delimiterCandidates))
	sampled := 0
	for _, v := range values {
		if sampled == delimiterSampleSize {
			break
		}
		if v == "" {
			continue
		}
		sampled++
		for i, d := range delimiterCandidates {
			if strings.Contains(v, d) {
				counts[i]++
			}
		}
	}

	best := -1
	for i, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return DefaultDelimiter
	}
	return delimiterCandidates[best]
}

// SplitField extracts one segment of a combined value. A value without the
// delimiter is a single segment and is both first and last. Returns false
// when the value or the selected segment is empty.
func SplitField(value, delim string, pos Position) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" || delim == "" {
		return "", false
	}
	parts := strings.Split(value, delim)
	var seg string
	if pos == PositionLast {
		seg = parts[len(parts)-1]
	} else {
		seg = parts[0]
	}
	seg = strings.TrimSpace(seg)
	return seg, seg != ""
}

// SplitColumn applies SplitField to every value. Rows that cannot be split
// are empty strings.
func SplitColumn(values []string, delim string, pos Position) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i], _ = SplitField(v, delim, pos)
	}
	return out
}

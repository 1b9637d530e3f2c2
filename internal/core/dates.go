package core

// dates.go normalizes the date and time spellings found in EMR exports.
//
// Parsing order:
//  1. Korean display dates ("2024. 01. 05.") are collapsed to "2024.01.05"
//  2. Malformed trailing times ("2025-03-08 075844", "07:5844") are repaired
//  3. The explicit layouts in timestampLayouts are tried in order
//  4. Spreadsheet serial numbers are converted
//  5. dateparse.ParseStrict is the last resort; ambiguous mm/dd is rejected
//
// Anything still unparseable is an absent Timestamp, never an error and
// never the zero time.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

var (
	gluedTimeRegex = regexp.MustCompile(`^(.*\s)(\d{2}):?(\d{2})(\d{2})$`)
	bareTimeRegex  = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})$`)
	timeOnlyRegex  = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
	serialRegex    = regexp.MustCompile(`^\d{4,5}(\.\d+)?$`)
	dottedRegex    = regexp.MustCompile(`^(\d{4})\.\s*(\d{1,2})\.\s*(\d{1,2})\.?(\s+\S.*)?$`)
)

// timestampLayouts is tried in order; the first successful layout wins.
var timestampLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02 1504",
	"2006/01/02 1504",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"2006.01.02 15:04",
	"2006.01.02 1504",
	"2006.01.02 15:04:05",
}

// Spreadsheet serials accepted as dates: 1927-05-18 through 2119-01-10.
const (
	minSerial = 10000
	maxSerial = 80000
)

// missingTokens are spellings of "no value" left behind by other tools.
var missingTokens = map[string]bool{
	"nan": true, "nat": true, "none": true, "null": true, "-": true, "n/a": true,
}

// RepairTime rewrites a malformed trailing time into HH:MM:SS.
//
//	"2025-03-08 075844"  -> "2025-03-08 07:58:44"
//	"2025-03-08 07:5844" -> "2025-03-08 07:58:44"
//	"075844"             -> "07:58:44"
//
// Other values are returned unchanged.
func RepairTime(s string) string {
	if m := gluedTimeRegex.FindStringSubmatch(s); m != nil {
		return m[1] + m[2] + ":" + m[3] + ":" + m[4]
	}
	if m := bareTimeRegex.FindStringSubmatch(s); m != nil {
		return m[1] + ":" + m[2] + ":" + m[3]
	}
	return s
}

// collapseDotted rewrites "2024. 1. 5." and "2024.01.05 07:30" style dates
// to the zero-padded "2024.01.05" form, keeping any trailing time.
func collapseDotted(s string) string {
	m := dottedRegex.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[1] + "." + pad2(m[2]) + "." + pad2(m[3]) + m[4]
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ParseTimestamp parses a raw cell into a Timestamp.
// Returns an invalid Timestamp when the value is empty or unparseable.
func ParseTimestamp(raw string) Timestamp {
	s := CleanCell(raw)
	if s == "" || missingTokens[strings.ToLower(s)] {
		return Timestamp{}
	}

	s = RepairTime(collapseDotted(s))
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimestampOf(t)
		}
	}

	// A time of day alone has no date to anchor it.
	if timeOnlyRegex.MatchString(s) {
		return Timestamp{}
	}

	if serialRegex.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return fromSerial(f)
		}
	}

	// Without a location ParseStrict reads naive values as UTC.
	t, err := dateparse.ParseStrict(s)
	if err != nil || t.Year() < 1800 {
		return Timestamp{}
	}
	return TimestampOf(t)
}

// ParseCell parses a value that may already be typed: time.Time values
// from a spreadsheet library, numeric serials, or text.
func ParseCell(v any) Timestamp {
	switch x := v.(type) {
	case nil:
		return Timestamp{}
	case time.Time:
		if x.IsZero() {
			return Timestamp{}
		}
		return TimestampOf(x)
	case Timestamp:
		return x
	case float64:
		return fromSerial(x)
	case int:
		return fromSerial(float64(x))
	case int64:
		return fromSerial(float64(x))
	case string:
		return ParseTimestamp(x)
	default:
		return Timestamp{}
	}
}

// NormalizeColumn parses every value of a column.
func NormalizeColumn(values []string) []Timestamp {
	out := make([]Timestamp, len(values))
	for i, v := range values {
		out[i] = ParseTimestamp(v)
	}
	return out
}

func fromSerial(f float64) Timestamp {
	if math.IsNaN(f) || f < minSerial || f > maxSerial {
		return Timestamp{}
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return Timestamp{}
	}
	// Serial fractions carry float noise; round to the second.
	return TimestampOf(t.Round(time.Second))
}

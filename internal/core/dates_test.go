package core

import (
	"testing"
	"time"
)

func TestRepairTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"glued six digits", "2025-03-08 075844", "2025-03-08 07:58:44"},
		{"partially colon separated", "2025-03-08 07:5844", "2025-03-08 07:58:44"},
		{"bare six digits", "075844", "07:58:44"},
		{"well formed time untouched", "2025-03-08 07:58:44", "2025-03-08 07:58:44"},
		{"compact HHMM untouched", "2025-03-08 0758", "2025-03-08 0758"},
		{"date only untouched", "2025-03-08", "2025-03-08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RepairTime(tt.input); got != tt.want {
				t.Errorf("RepairTime(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      time.Time
	}{
		// Explicit layouts
		{"iso date", "2024-01-15", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"slash date", "2024/01/15", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"day first dash", "15-01-2024", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"day first slash", "15/01/2024", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"day first wins when ambiguous", "03/02/2024", true, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"minutes", "2024-01-15 07:30", true, time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC)},
		{"compact minutes", "2024/01/15 0730", true, time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC)},
		{"seconds", "2024/01/15 07:30:15", true, time.Date(2024, 1, 15, 7, 30, 15, 0, time.UTC)},
		{"dotted date", "2024.01.05", true, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"dotted minutes", "2024.01.05 07:30", true, time.Date(2024, 1, 5, 7, 30, 0, 0, time.UTC)},
		{"dotted compact minutes", "2024.01.05 0730", true, time.Date(2024, 1, 5, 7, 30, 0, 0, time.UTC)},
		{"dotted seconds", "2024.01.05 07:30:00", true, time.Date(2024, 1, 5, 7, 30, 0, 0, time.UTC)},
		{"dotted glued time", "2024.01.05 075844", true, time.Date(2024, 1, 5, 7, 58, 44, 0, time.UTC)},

		// Korean display dates
		{"spaced dotted date", "2024. 01. 05.", true, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"spaced dotted unpadded", "2024. 1. 5.", true, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"spaced dotted with time", "2024. 01. 05. 07:30", true, time.Date(2024, 1, 5, 7, 30, 0, 0, time.UTC)},

		// Repaired times
		{"glued time", "2025-03-08 075844", true, time.Date(2025, 3, 8, 7, 58, 44, 0, time.UTC)},
		{"half glued time", "2025-03-08 07:5844", true, time.Date(2025, 3, 8, 7, 58, 44, 0, time.UTC)},

		// Cleanup
		{"surrounding spaces", "  2024-01-15  ", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"excel text prefix", `="2024-01-15"`, true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},

		// Fallbacks
		{"spreadsheet serial", "45306", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"month name fallback", "Jan 15, 2024", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},

		// Absent
		{"empty", "", false, time.Time{}},
		{"whitespace", "   ", false, time.Time{}},
		{"nan token", "nan", false, time.Time{}},
		{"NaT token", "NaT", false, time.Time{}},
		{"garbage", "not a date", false, time.Time{}},
		{"time of day only", "075844", false, time.Time{}},
		{"bare year", "2024", false, time.Time{}},
		{"ambiguous month first", "01/15/2024", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ParseTimestamp(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if tt.wantValid && !got.Time.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got.Time, tt.want)
			}
		})
	}
}

func TestParseTimestamp_RoundTrip(t *testing.T) {
	ref := time.Date(2024, 3, 8, 7, 58, 44, 0, time.UTC)

	for _, layout := range timestampLayouts {
		t.Run(layout, func(t *testing.T) {
			formatted := ref.Format(layout)
			want, err := time.Parse(layout, formatted)
			if err != nil {
				t.Fatalf("time.Parse(%q): %v", formatted, err)
			}

			got := ParseTimestamp(formatted)
			if !got.Valid {
				t.Fatalf("ParseTimestamp(%q) is absent", formatted)
			}
			if !got.Time.Equal(want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", formatted, got.Time, want)
			}
		})
	}
}

func TestCollapseDotted(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024. 01. 05.", "2024.01.05"},
		{"2024. 1. 5. 07:30", "2024.01.05 07:30"},
		{"2024.01.05", "2024.01.05"},
		{"2024-01-05", "2024-01-05"},
		{"2014.05", "2014.05"},
	}

	for _, tt := range tests {
		if got := collapseDotted(tt.input); got != tt.want {
			t.Errorf("collapseDotted(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseCell(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		input     any
		wantValid bool
	}{
		{"nil", nil, false},
		{"time value", day, true},
		{"zero time", time.Time{}, false},
		{"serial float", 45306.0, true},
		{"serial int", 45306, true},
		{"small number", 12.0, false},
		{"text", "2024-01-15", true},
		{"unsupported type", struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCell(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ParseCell(%v).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if got.Valid && !got.Day().Date.Equal(day) {
				t.Errorf("ParseCell(%v) day = %v, want %v", tt.input, got.Day().Date, day)
			}
		})
	}
}

func TestNormalizeColumn(t *testing.T) {
	got := NormalizeColumn([]string{"2024-01-15", "", "bogus"})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if !got[0].Valid || got[1].Valid || got[2].Valid {
		t.Errorf("validity = [%v %v %v], want [true false false]", got[0].Valid, got[1].Valid, got[2].Valid)
	}
}

func TestTimestampDay(t *testing.T) {
	ts := TimestampOf(time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC))
	if got := ts.Day().String(); got != "2024-01-15" {
		t.Errorf("Day() = %q, want 2024-01-15", got)
	}
	if got := (Timestamp{}).Day(); got.Valid {
		t.Error("absent timestamp should give an absent day")
	}
}

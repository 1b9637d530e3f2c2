package core

import (
	"strings"
	"testing"
)

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{
			name:   "majority slash",
			values: append(repeat("F/34", 80), repeat("M-2", 20)...),
			want:   "/",
		},
		{
			name:   "majority dash",
			values: append(repeat("F/34", 20), repeat("M-2", 80)...),
			want:   "-",
		},
		{
			name:   "tie goes to earlier candidate",
			values: append(repeat("F|34", 3), repeat("M,2", 3)...),
			want:   "|",
		},
		{
			name:   "space",
			values: []string{"F 34", "M 2"},
			want:   " ",
		},
		{
			name:   "no delimiter defaults to slash",
			values: []string{"F", "M"},
			want:   "/",
		},
		{
			name:   "empty values skipped",
			values: []string{"", "", "F-1"},
			want:   "-",
		},
		{
			name:   "padding counts as given",
			values: []string{" F", "M ", "F/3"},
			want:   " ",
		},
		{
			name:   "only first hundred sampled",
			values: append(repeat("F-1", 100), repeat("F/1", 150)...),
			want:   "-",
		},
		{
			name:   "no values",
			values: nil,
			want:   "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter(tt.values); got != tt.want {
				t.Errorf("DetectDelimiter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitField(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		delim  string
		pos    Position
		want   string
		wantOK bool
	}{
		{"first segment", "F/34", "/", PositionFirst, "F", true},
		{"last segment", "F/34", "/", PositionLast, "34", true},
		{"three segments last", "34/F/NICU", "/", PositionLast, "NICU", true},
		{"trims segment", "F / 34", "/", PositionFirst, "F", true},
		{"single segment first", "M", "/", PositionFirst, "M", true},
		{"single segment last", "M", "/", PositionLast, "M", true},
		{"single segment padded", " F ", "/", PositionLast, "F", true},
		{"empty value", "", "/", PositionLast, "", false},
		{"empty segment", "/34", "/", PositionFirst, "", false},
		{"empty last segment", "F/", "/", PositionLast, "", false},
		{"empty delimiter", "F/34", "", PositionFirst, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SplitField(tt.value, tt.delim, tt.pos)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("SplitField(%q, %q, %v) = (%q, %v), want (%q, %v)",
					tt.value, tt.delim, tt.pos, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSplitColumn(t *testing.T) {
	got := SplitColumn([]string{"F/34", "/2", "M"}, "/", PositionFirst)
	if strings.Join(got, ",") != "F,,M" {
		t.Errorf("SplitColumn() = %q, want [F  M]", got)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		input   string
		want    Position
		wantErr bool
	}{
		{"first", PositionFirst, false},
		{"", PositionFirst, false},
		{"앞", PositionFirst, false},
		{"LAST", PositionLast, false},
		{"뒤", PositionLast, false},
		{"middle", PositionFirst, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePosition(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePosition(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

package core

import (
	"fmt"
	"testing"
)

func TestInitials(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"김민지", "ㄱㅁㅈ"},
		{"박서준", "ㅂㅅㅈ"},
		{"쌍둥이", "ㅆㄷㅇ"},
		{"홍길동A", "ㅎㄱㄷA"},
		{"Baby 김", "Baby ㄱ"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Initials(tt.input); got != tt.want {
				t.Errorf("Initials(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateBirthDates(t *testing.T) {
	t.Run("short values reject the column", func(t *testing.T) {
		raw := make(map[PatientID]string)
		for i := 0; i < 9; i++ {
			raw[PatientID(fmt.Sprintf("P%d", i))] = "1990"
		}
		raw["P9"] = "1990-01-01"

		days, warns := ValidateBirthDates(raw)
		if days != nil {
			t.Errorf("days = %v, want nil", days)
		}
		if len(warns) != 1 || warns[0].Code != WarnBirthRejected {
			t.Errorf("warnings = %v, want one %s", warns, WarnBirthRejected)
		}
	})

	t.Run("long but unparseable values are kept with a warning", func(t *testing.T) {
		raw := map[PatientID]string{
			"P1": "1990-01-01",
			"P2": "정보없음정보없음",
			"P3": "미상미상미상미상",
		}

		days, warns := ValidateBirthDates(raw)
		if days == nil {
			t.Fatal("days = nil, want the parsed subset")
		}
		if got := days["P1"].String(); got != "1990-01-01" {
			t.Errorf("P1 = %q, want 1990-01-01", got)
		}
		if _, ok := days["P2"]; ok {
			t.Error("P2 should not have a birth date")
		}
		if len(warns) != 1 || warns[0].Code != WarnBirthPartial {
			t.Errorf("warnings = %v, want one %s", warns, WarnBirthPartial)
		}
	})

	t.Run("clean column", func(t *testing.T) {
		raw := map[PatientID]string{"P1": "1990-01-01", "P2": "2024/03/05", "P3": ""}

		days, warns := ValidateBirthDates(raw)
		if len(warns) != 0 {
			t.Errorf("warnings = %v, want none", warns)
		}
		if len(days) != 2 {
			t.Errorf("len(days) = %d, want 2", len(days))
		}
	})

	t.Run("all empty", func(t *testing.T) {
		days, warns := ValidateBirthDates(map[PatientID]string{"P1": ""})
		if days != nil || len(warns) != 1 || warns[0].Code != WarnBirthRejected {
			t.Errorf("got (%v, %v), want rejection", days, warns)
		}
	})
}

func enrichRecords(ids ...string) []Record {
	recs := make([]Record, len(ids))
	for i, id := range ids {
		recs[i] = Record{Event: CultureEvent{ID: PatientID(id)}, Outcome: Matched}
	}
	return recs
}

func TestEnricherApply(t *testing.T) {
	info := mustTable(t, "info", [][]string{
		{"환자번호", "환자명", "생년월일", "성별/나이"},
		{"P1", "김민지", "2024-01-01", "F/0"},
		{"P2", "박서준", "2023-12-30", "M/1"},
		{"P1", "김민지", "2024-01-02", "F/0"}, // later row wins
	})
	registry := mustTable(t, "registry", [][]string{{"등록번호"}, {"P2"}})

	cfg := MatchConfig{
		Name:  &AttributeRoles{Source: "info", ID: "환자번호", Value: "환자명"},
		Birth: &AttributeRoles{Source: "info", ID: "환자번호", Value: "생년월일"},
		Sex: &SexRoles{
			AttributeRoles: AttributeRoles{Source: "info", ID: "환자번호", Value: "성별/나이"},
			Combined:       true,
			Position:       PositionFirst,
		},
		Registry: &RegistryRoles{ID: "등록번호"},
	}
	in := Inputs{Aux: map[string]*Table{"info": info}, Registry: registry}
	records := enrichRecords("P1", "P2", "P3")

	got := NewEnricher(cfg, nil).Apply(records, in)

	if len(got.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", got.Warnings)
	}
	if !got.HasBirth || !got.HasName || !got.HasSex || !got.HasRegistry {
		t.Errorf("flags = %+v, want all set", got)
	}

	p1, p2, p3 := got.Records[0], got.Records[1], got.Records[2]
	if p1.Initial != "ㄱㅁㅈ" || p1.Sex != "F" || p1.BirthDate.String() != "2024-01-02" || p1.Registered {
		t.Errorf("P1 = %+v", p1)
	}
	if p2.Sex != "M" || !p2.Registered {
		t.Errorf("P2 = %+v", p2)
	}
	if p3.Initial != "" || p3.Sex != "" || p3.BirthDate.Valid || p3.Registered {
		t.Errorf("P3 should stay blank, got %+v", p3)
	}

	if records[0].Initial != "" {
		t.Error("Apply modified its input")
	}
}

func TestEnricherApply_Warnings(t *testing.T) {
	info := mustTable(t, "info", [][]string{
		{"환자번호", "생년", "성별"},
		{"P1", "1990", "F-1"},
		{"P2", "1991", "-2"},
	})
	registry := mustTable(t, "registry", [][]string{{"등록번호", "비고"}, {"", "none"}})

	cfg := MatchConfig{
		Birth: &AttributeRoles{Source: "info", ID: "환자번호", Value: "생년"},
		Sex: &SexRoles{
			AttributeRoles: AttributeRoles{Source: "info", ID: "환자번호", Value: "성별"},
			Combined:       true,
			Delimiter:      "-",
		},
		Registry: &RegistryRoles{ID: "등록번호"},
	}
	in := Inputs{Aux: map[string]*Table{"info": info}, Registry: registry}

	got := NewEnricher(cfg, nil).Apply(enrichRecords("P1", "P2"), in)

	codes := make(map[string]bool)
	for _, w := range got.Warnings {
		codes[w.Code] = true
	}
	for _, code := range []string{WarnBirthRejected, WarnSexUnsplit, WarnRegistryEmpty} {
		if !codes[code] {
			t.Errorf("missing warning %s in %v", code, got.Warnings)
		}
	}

	if got.HasBirth {
		t.Error("rejected birth column should not be tracked")
	}
	if !got.HasRegistry {
		t.Error("an empty registry is still checked")
	}
	if got.Records[0].Sex != "F" || got.Records[1].Sex != "" {
		t.Errorf("sexes = %q, %q; want F and empty", got.Records[0].Sex, got.Records[1].Sex)
	}
}

func TestEnricherApply_DetectsDelimiter(t *testing.T) {
	cultures := mustTable(t, "cultures", [][]string{
		{"환자번호", "시행일", "성별나이"},
		{"P1", "2024-01-05", "34 F"},
		{"P2", "2024-01-05", "2 M"},
	})

	cfg := MatchConfig{
		Sex: &SexRoles{
			AttributeRoles: AttributeRoles{Source: SourceCultures, ID: "환자번호", Value: "성별나이"},
			Combined:       true,
			Position:       PositionLast,
		},
	}

	got := NewEnricher(cfg, nil).Apply(enrichRecords("P1", "P2"), Inputs{Cultures: cultures})

	if got.Records[0].Sex != "F" || got.Records[1].Sex != "M" {
		t.Errorf("sexes = %q, %q; want F and M", got.Records[0].Sex, got.Records[1].Sex)
	}
}

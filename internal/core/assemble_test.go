package core

import (
	"reflect"
	"testing"
)

func TestAssemble(t *testing.T) {
	ep := &Episode{ID: "P1", Admit: ts("2024-01-01"), Discharge: ts("2024-01-10")}
	late := &Episode{ID: "P1", Admit: ts("2024-01-03")}

	records := []Record{
		{Event: CultureEvent{ID: "P9", CollectedAt: ts("2024-01-01")}, Outcome: Unresolved},
		{Event: CultureEvent{ID: "P1", CollectedAt: ts("2024-01-06")}, Episode: ep, Outcome: Matched},
		{Event: CultureEvent{ID: "P2", RawTime: "??"}, Outcome: Unresolved},
		{Event: CultureEvent{ID: "P1", CollectedAt: ts("2024-01-05")}, Episode: late, Outcome: Matched},
		{Event: CultureEvent{ID: "P1", CollectedAt: ts("2024-01-05")}, Episode: ep, Outcome: Matched},
		{Event: CultureEvent{ID: "P1", CollectedAt: ts("2024-01-02")}, Episode: ep, Outcome: BeforeWindow},
	}

	got := Assemble(records, false)

	wantIDs := []PatientID{"P1", "P1", "P1", "P9", "P2"}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d records, want %d", len(got), len(wantIDs))
	}
	for i, rec := range got {
		if rec.Event.ID != wantIDs[i] {
			t.Errorf("row %d: ID = %s, want %s", i, rec.Event.ID, wantIDs[i])
		}
		if rec.Seq != i+1 {
			t.Errorf("row %d: Seq = %d, want %d", i, rec.Seq, i+1)
		}
	}

	// The duplicate 01-05 culture keeps the earlier admission.
	if got[0].Admit().Day().String() != "2024-01-01" {
		t.Errorf("first row admission = %s, want 2024-01-01", got[0].Admit().Day())
	}
	if got[1].Event.CollectedAt.Day().String() != "2024-01-06" || got[2].Outcome != BeforeWindow {
		t.Errorf("unexpected order: %+v", got)
	}

	if records[0].Seq != 0 {
		t.Error("Assemble modified its input")
	}
}

func TestAssemble_OrganismIdentity(t *testing.T) {
	at := ts("2024-01-05 10:00")
	records := []Record{
		{Event: CultureEvent{ID: "P1", CollectedAt: at, Organism: "E. coli"}},
		{Event: CultureEvent{ID: "P1", CollectedAt: at, Organism: "S. aureus"}},
		{Event: CultureEvent{ID: "P1", CollectedAt: at, Organism: "E. coli"}},
	}

	if got := len(Assemble(records, true)); got != 2 {
		t.Errorf("tracking organism: %d records, want 2", got)
	}
	if got := len(Assemble(records, false)); got != 1 {
		t.Errorf("ignoring organism: %d records, want 1", got)
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	records := []Record{
		{Event: CultureEvent{ID: "P2", CollectedAt: ts("2024-01-05")}, Outcome: AfterWindow},
		{Event: CultureEvent{ID: "P1", CollectedAt: ts("2024-01-05")}, Outcome: Matched},
		{Event: CultureEvent{ID: "P1", CollectedAt: ts("2024-01-05")}, Outcome: Matched},
	}

	once := Assemble(records, false)
	twice := Assemble(once, false)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Assemble is not idempotent:\n%+v\n%+v", once, twice)
	}
}

func TestResultExport(t *testing.T) {
	ep := &Episode{ID: "007", Admit: ts("2024-01-01 09:30"), Discharge: ts("2024-01-10")}
	res := &Result{
		Records: []Record{{
			Seq:        1,
			Event:      CultureEvent{ID: "007", CollectedAt: ts("2024-01-05 13:00"), Ward: "MICU", Organism: "E. coli"},
			Episode:    ep,
			Outcome:    Matched,
			Initial:    "ㄱㅁㅈ",
			Sex:        "F",
			BirthDate:  day("2023-12-31"),
			Registered: true,
		}, {
			Seq:     2,
			Event:   CultureEvent{ID: "008", CollectedAt: ts("2024-01-05")},
			Outcome: Unresolved,
		}},
	}

	t.Run("minimal columns", func(t *testing.T) {
		got := res.Export(VariantExternal)
		wantHeader := []string{"번호", "등록번호_ID", "입실일", "퇴실일", "혈액배양 의뢰일", "비고"}
		if !reflect.DeepEqual(got.Header, wantHeader) {
			t.Errorf("header = %q, want %q", got.Header, wantHeader)
		}
		wantRows := [][]string{
			{"1", "007", "2024-01-01", "2024-01-10", "2024-01-05", ""},
			{"2", "008", "", "", "2024-01-05", "시행부서 확인"},
		}
		if !reflect.DeepEqual(got.Rows, wantRows) {
			t.Errorf("rows = %q, want %q", got.Rows, wantRows)
		}
	})

	t.Run("every optional column", func(t *testing.T) {
		full := *res
		full.TrackOrganism = true
		full.TrackWard = true
		full.TrackName = true
		full.TrackSex = true
		full.TrackBirth = true
		full.RegistryChecked = true

		got := full.Export(VariantInternal)
		wantHeader := []string{
			"번호", "등록번호_ID", "이름_초성", "성별", "생년월일",
			"입실일", "퇴실일", "혈액배양 의뢰일", "혈액배양 분리균", "BSI 분류",
			"KONIS WRAP 등록여부", "혈액배양 시행병동", "비고",
		}
		if !reflect.DeepEqual(got.Header, wantHeader) {
			t.Errorf("header = %q, want %q", got.Header, wantHeader)
		}
		wantFirst := []string{
			"1", "007", "ㄱㅁㅈ", "F", "2023-12-31",
			"2024-01-01", "2024-01-10", "2024-01-05", "E. coli", "",
			"Y", "MICU", "",
		}
		if !reflect.DeepEqual(got.Rows[0], wantFirst) {
			t.Errorf("row = %q, want %q", got.Rows[0], wantFirst)
		}
		if got.Rows[1][10] != "N" {
			t.Errorf("registry flag = %q, want N", got.Rows[1][10])
		}
	})

	t.Run("external variant has no BSI column", func(t *testing.T) {
		full := *res
		full.TrackOrganism = true
		for _, h := range full.Export(VariantExternal).Header {
			if h == ColBSI {
				t.Error("external export should not carry the BSI column")
			}
		}
	})
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		input   string
		want    Variant
		wantErr bool
	}{
		{"", VariantExternal, false},
		{"external", VariantExternal, false},
		{"Internal", VariantInternal, false},
		{"both", VariantExternal, true},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseVariant(%q) = (%v, %v), want (%v, err=%v)", tt.input, got, err, tt.want, tt.wantErr)
		}
	}
}

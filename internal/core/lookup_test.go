package core

import (
	"reflect"
	"testing"
)

func lookupRecord(id, organism, sex, birth, admit, culture string, outcome Outcome) Record {
	return Record{
		Event:     CultureEvent{ID: PatientID(id), CollectedAt: ts(culture), Organism: organism},
		Episode:   &Episode{ID: PatientID(id), Admit: ts(admit)},
		Outcome:   outcome,
		Sex:       sex,
		BirthDate: day(birth),
	}
}

func TestFindCaseCandidates(t *testing.T) {
	res := &Result{Records: []Record{
		lookupRecord("P1", "E. coli", "F", "2024-01-01", "2024-01-02", "2024-01-06", Matched),
		lookupRecord("P1", "E. coli", "F", "2024-01-01", "2024-01-02", "2024-01-07", Matched),
		lookupRecord("P2", "S. aureus", "f", "2024-01-01", "2024-01-02", "2024-01-08", Matched),
		lookupRecord("P3", "E. coli", "F", "2024-01-01", "2024-01-02", "2024-01-09", Matched),
		lookupRecord("P4", "E. coli", "F", "2024-01-01", "2024-01-02", "2024-01-06", BeforeWindow),
		lookupRecord("P5", "E. coli", "M", "2024-01-01", "2024-01-02", "2024-01-06", Matched),
		lookupRecord("P6", "E. coli", "F", "2024-01-01", "2024-01-02", "2024-01-06", Matched),
	}}
	cases := []RegistryCase{
		{CaseNo: "C1", Sex: "F", Birth: day("2024-01-01"), ICUAdmit: day("2024-01-02"), Infection: day("2024-01-06"), Row: 0},
		{CaseNo: "C2", Sex: "M", Birth: day("2020-05-05"), ICUAdmit: day("2024-01-02"), Infection: day("2024-01-06"), Row: 1},
	}

	got := FindCaseCandidates(cases, res)

	type pair struct {
		caseNo, id, organism string
		found                bool
	}
	var gotPairs []pair
	for _, c := range got {
		gotPairs = append(gotPairs, pair{c.Case.CaseNo, string(c.ID), c.Organism, c.Found})
	}

	// C1: P1 is proposed once, P2 matches sex case-insensitively, P3 is out
	// of the infection window, P4 is not matched, P5 has another sex and P6
	// would be a fourth candidate.
	want := []pair{
		{"C1", "P1", "E. coli", true},
		{"C1", "P2", "S. aureus", true},
		{"C1", "P6", "E. coli", true},
		{"C2", "", "", false},
	}
	if !reflect.DeepEqual(gotPairs, want) {
		t.Errorf("candidates =\n%v\nwant\n%v", gotPairs, want)
	}
}

func TestFindCaseCandidates_Limit(t *testing.T) {
	var recs []Record
	for _, id := range []string{"A", "B", "C", "D"} {
		recs = append(recs, lookupRecord(id, "E. coli", "F", "2024-01-01", "2024-01-02", "2024-01-06", Matched))
	}
	cases := []RegistryCase{{CaseNo: "C1", Sex: "F", Birth: day("2024-01-01"), ICUAdmit: day("2024-01-02"), Infection: day("2024-01-06")}}

	if got := FindCaseCandidates(cases, &Result{Records: recs}); len(got) != 3 {
		t.Errorf("got %d candidates, want 3", len(got))
	}
}

func TestLoadCasesAndExport(t *testing.T) {
	table := mustTable(t, "cases", [][]string{
		{"사례번호", "생년월일", "성별", "ICU입실일", "감염일"},
		{"C1", "2024-01-01", "F", "2024-01-02", "2024-01-06"},
		{"C2", "unknown", "M", "2024-01-02", "2024-01-06"},
	})
	roles := CaseRoles{CaseNo: "사례번호", Birth: "생년월일", Sex: "성별", ICUAdmit: "ICU입실일", Infection: "감염일"}

	cases, err := LoadCases(table, roles)
	if err != nil {
		t.Fatalf("LoadCases: %v", err)
	}
	if len(cases) != 2 || cases[0].Infection.String() != "2024-01-06" || cases[1].Birth.Valid {
		t.Fatalf("cases = %+v", cases)
	}

	res := &Result{Records: []Record{
		lookupRecord("P1", "E. coli", "F", "2024-01-01", "2024-01-02", "2024-01-08", Matched),
	}}
	exp := CaseExport(table, FindCaseCandidates(cases, res))

	wantHeader := []string{"사례번호", "생년월일", "성별", "ICU입실일", "감염일", "추정ID", "추정ID분리균"}
	if !reflect.DeepEqual(exp.Header, wantHeader) {
		t.Errorf("header = %q, want %q", exp.Header, wantHeader)
	}
	wantRows := [][]string{
		{"C1", "2024-01-01", "F", "2024-01-02", "2024-01-06", "P1", "E. coli"},
		{"C2", "unknown", "M", "2024-01-02", "2024-01-06", "", ""},
	}
	if !reflect.DeepEqual(exp.Rows, wantRows) {
		t.Errorf("rows = %q, want %q", exp.Rows, wantRows)
	}

	roles.Infection = "감염일자"
	if _, err := LoadCases(table, roles); err == nil {
		t.Error("LoadCases succeeded with a missing column")
	}
}

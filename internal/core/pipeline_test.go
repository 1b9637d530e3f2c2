package core

import (
	"errors"
	"reflect"
	"testing"
)

func scenarioInputs(t *testing.T) Inputs {
	t.Helper()
	return Inputs{
		Episodes: mustTable(t, "episodes", [][]string{
			{"환자번호", "입실일", "퇴실일"},
			{"P1", "2024-01-01", "2024-01-10"},
		}),
		Cultures: mustTable(t, "cultures", [][]string{
			{"환자번호", "시행일", "시행병동", "미생물"},
			{"P1", "2024-01-02", "MICU", "E. coli"},
			{"P1", "2024-01-05", "MICU", "E. coli"},
			{"P1", "2024-01-15", "MICU", "E. coli"},
			{"P2", "2024-01-05", "MICU", "S. aureus"},
		}),
	}
}

func scenarioConfig() MatchConfig {
	return MatchConfig{
		Episodes: EpisodeRoles{ID: "환자번호", Admit: "입실일", Discharge: "퇴실일"},
		Cultures: CultureRoles{ID: "환자번호", CollectedAt: "시행일"},
	}
}

func mustPipeline(t *testing.T, cfg MatchConfig) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestPipelineRun(t *testing.T) {
	res, err := mustPipeline(t, scenarioConfig()).Run(scenarioInputs(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := res.Export(VariantExternal)

	wantHeader := []string{"번호", "등록번호_ID", "입실일", "퇴실일", "혈액배양 의뢰일", "비고"}
	if !reflect.DeepEqual(got.Header, wantHeader) {
		t.Errorf("header = %q, want %q", got.Header, wantHeader)
	}

	wantRows := [][]string{
		{"1", "P1", "2024-01-01", "2024-01-10", "2024-01-05", ""},
		{"2", "P1", "2024-01-01", "2024-01-10", "2024-01-02", "감시기간 이전"},
		{"3", "P1", "2024-01-01", "2024-01-10", "2024-01-15", "감시기간 이후"},
		{"4", "P2", "", "", "2024-01-05", "시행부서 확인"},
	}
	if !reflect.DeepEqual(got.Rows, wantRows) {
		t.Errorf("rows =\n%q\nwant\n%q", got.Rows, wantRows)
	}

	counts := res.Counts()
	if counts[Matched] != 1 || counts[BeforeWindow] != 1 || counts[AfterWindow] != 1 || counts[Unresolved] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestPipelineRun_DottedTimestamps(t *testing.T) {
	in := Inputs{
		Episodes: mustTable(t, "episodes", [][]string{
			{"환자번호", "입실일", "퇴실일"},
			{"P1", "2024.01.01 09:00", "2024.01.10 18:00"},
		}),
		Cultures: mustTable(t, "cultures", [][]string{
			{"환자번호", "시행일"},
			{"P1", "2024.01.05 07:30"},
			{"P1", "2024. 01. 02."},
			{"P1", "2024.01.12 075844"},
		}),
	}

	res, err := mustPipeline(t, scenarioConfig()).Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := make(map[string]Outcome)
	for _, rec := range res.Records {
		got[rec.Event.CollectedAt.Day().String()] = rec.Outcome
	}
	want := map[string]Outcome{
		"2024-01-05": Matched,
		"2024-01-02": BeforeWindow,
		"2024-01-12": AfterWindow,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("outcomes = %v, want %v", got, want)
	}
}

func TestPipelineRun_Idempotent(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Cultures.Organism = "미생물"
	cfg.Cultures.Ward = "시행병동"
	p := mustPipeline(t, cfg)

	first, err := p.Run(scenarioInputs(t))
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := p.Run(scenarioInputs(t))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	a, b := first.Export(VariantInternal), second.Export(VariantInternal)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("runs differ:\n%v\n%v", a, b)
	}
}

func TestPipelineRun_OneRowPerEvent(t *testing.T) {
	in := scenarioInputs(t)
	in.Episodes = mustTable(t, "episodes", [][]string{
		{"환자번호", "입실일", "퇴실일"},
		{"P1", "2024-01-01", "2024-01-10"},
		{"P1", "2024-01-04", ""},
		{"P1", "2023-06-01", "2023-06-03"},
	})

	res, err := mustPipeline(t, scenarioConfig()).Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != in.Cultures.Len() {
		t.Errorf("got %d records for %d cultures", len(res.Records), in.Cultures.Len())
	}
}

func TestPipelineRun_NearestStrategy(t *testing.T) {
	in := scenarioInputs(t)
	in.Episodes = mustTable(t, "episodes", [][]string{
		{"환자번호", "입실일", "퇴실일"},
		{"P1", "2024-01-01", "2024-01-03"},
		{"P1", "2024-01-04", "2024-01-20"},
	})
	cfg := scenarioConfig()
	cfg.Strategy = StrategyNearest

	res, err := mustPipeline(t, cfg).Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 01-05 anchors on the 01-04 stay and is before its window; the range
	// strategy would have matched it to the first stay.
	for _, rec := range res.Records {
		if rec.Event.ID == "P1" && rec.Event.CollectedAt.Day().String() == "2024-01-05" {
			if rec.Outcome != BeforeWindow {
				t.Errorf("outcome = %v, want before_window", rec.Outcome)
			}
			return
		}
	}
	t.Fatal("culture on 2024-01-05 not found")
}

func TestPipelineRun_WardCheck(t *testing.T) {
	in := scenarioInputs(t)
	in.Cultures = mustTable(t, "cultures", [][]string{
		{"환자번호", "시행일", "시행병동"},
		{"N1", "2024-01-05", "NICU"},
		{"N2", "2024-01-05", "PICU"},
	})
	cfg := scenarioConfig()
	cfg.Cultures.Ward = "시행병동"

	res, err := mustPipeline(t, cfg).Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := res.Export(VariantExternal)
	if got.Rows[0][1] != "N1" || got.Rows[0][len(got.Header)-1] != "입퇴실일 확인" {
		t.Errorf("first row = %q, want N1 flagged for ward check", got.Rows[0])
	}
	if got.Rows[1][len(got.Header)-1] != "시행부서 확인" {
		t.Errorf("second row = %q, want unresolved", got.Rows[1])
	}
}

func TestPipelineRun_Registry(t *testing.T) {
	in := scenarioInputs(t)
	in.Registry = mustTable(t, "registry", [][]string{{"등록번호"}, {"P2"}})
	cfg := scenarioConfig()
	cfg.Registry = &RegistryRoles{ID: "등록번호"}

	res, err := mustPipeline(t, cfg).Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.RegistryChecked {
		t.Fatal("RegistryChecked = false")
	}

	exp := res.Export(VariantExternal)
	col := -1
	for i, h := range exp.Header {
		if h == ColRegistry {
			col = i
		}
	}
	if col < 0 {
		t.Fatalf("header %q has no registry column", exp.Header)
	}
	for _, row := range exp.Rows {
		want := "N"
		if row[1] == "P2" {
			want = "Y"
		}
		if row[col] != want {
			t.Errorf("%s registry = %q, want %q", row[1], row[col], want)
		}
	}
}

func TestPipelineRun_MissingColumns(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Episodes.Admit = "입원일"
	cfg.Cultures.Ward = "병동"

	_, err := mustPipeline(t, cfg).Run(scenarioInputs(t))
	if err == nil {
		t.Fatal("Run succeeded with missing columns")
	}

	var colErr *ColumnError
	if !errors.As(err, &colErr) {
		t.Fatalf("err = %v, want *ColumnError", err)
	}
	if got := MapError(err).Code; got != "COL001" {
		t.Errorf("code = %q, want COL001", got)
	}
}

func TestPipelineRun_MissingTable(t *testing.T) {
	in := scenarioInputs(t)
	in.Cultures = nil

	_, err := mustPipeline(t, scenarioConfig()).Run(in)
	if !errors.Is(err, ErrMissingTable) {
		t.Errorf("err = %v, want ErrMissingTable", err)
	}
}

func TestNewPipeline_BadWardPattern(t *testing.T) {
	cfg := scenarioConfig()
	cfg.WardPattern = "NICU("

	if _, err := NewPipeline(cfg); err == nil || MapError(err).Code != "CFG001" {
		t.Errorf("err = %v, want CFG001", err)
	}
}

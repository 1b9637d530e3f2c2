package core

import (
	"fmt"
	"strings"
)

// maxCaseCandidates is how many patient IDs are proposed per case.
const maxCaseCandidates = 3

// infectionWindowDays is how many days after the infection date a culture
// may be drawn and still support the case.
const infectionWindowDays = 2

// Case lookup export headers.
const (
	ColCandidateID       = "추정ID"
	ColCandidateOrganism = "추정ID분리균"
	caseSheetTitle       = "추정ID"
)

// CaseRoles names the columns of a registry case list.
type CaseRoles struct {
	CaseNo    string
	Birth     string
	Sex       string
	ICUAdmit  string
	Infection string
}

// RegistryCase is one registered infection case. Registries do not carry
// hospital patient IDs, so cases are matched on demographics and dates.
type RegistryCase struct {
	CaseNo    string
	Birth     Day
	Sex       string
	ICUAdmit  Day
	Infection Day
	Row       int // 0-based data row in the case table
}

// CaseCandidate proposes a patient ID for a case. Found=false marks a case
// with no plausible patient.
type CaseCandidate struct {
	Case     RegistryCase
	ID       PatientID
	Organism string
	Found    bool
}

// LoadCases reads registry cases from a table.
func LoadCases(t *Table, roles CaseRoles) ([]RegistryCase, error) {
	cols := []struct {
		role, name string
	}{
		{"case number", roles.CaseNo},
		{"birth date", roles.Birth},
		{"sex", roles.Sex},
		{"ICU admission date", roles.ICUAdmit},
		{"infection date", roles.Infection},
	}
	values := make([][]string, len(cols))
	for i, c := range cols {
		if err := requireColumn(t, c.role, c.name); err != nil {
			return nil, fmt.Errorf("load cases: %w", err)
		}
		values[i], _ = t.Column(c.name)
	}

	out := make([]RegistryCase, t.Len())
	for r := range out {
		out[r] = RegistryCase{
			CaseNo:    values[0][r],
			Birth:     ParseTimestamp(values[1][r]).Day(),
			Sex:       values[2][r],
			ICUAdmit:  ParseTimestamp(values[3][r]).Day(),
			Infection: ParseTimestamp(values[4][r]).Day(),
			Row:       r,
		}
	}
	return out, nil
}

// FindCaseCandidates proposes up to three patient IDs per case from the
// matched records of a run. A record supports a case when sex, birth date
// and ICU admission day are equal and the culture was drawn on the
// infection day or within the two days after it. Candidates are distinct
// (ID, organism) pairs in result order. Cases without support get a single
// candidate with Found=false.
func FindCaseCandidates(cases []RegistryCase, res *Result) []CaseCandidate {
	var pool []Record
	for _, rec := range res.Records {
		if rec.Outcome == Matched {
			pool = append(pool, rec)
		}
	}

	var out []CaseCandidate
	for _, c := range cases {
		seen := make(map[string]bool)
		n := 0
		for _, rec := range pool {
			if n == maxCaseCandidates {
				break
			}
			if !supportsCase(rec, c) {
				continue
			}
			key := string(rec.Event.ID) + "\x00" + rec.Event.Organism
			if seen[key] {
				continue
			}
			seen[key] = true
			n++
			out = append(out, CaseCandidate{Case: c, ID: rec.Event.ID, Organism: rec.Event.Organism, Found: true})
		}
		if n == 0 {
			out = append(out, CaseCandidate{Case: c})
		}
	}
	return out
}

func supportsCase(rec Record, c RegistryCase) bool {
	if !c.Birth.Valid || !c.ICUAdmit.Valid || !c.Infection.Valid {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(rec.Sex), strings.TrimSpace(c.Sex)) || rec.Sex == "" {
		return false
	}
	if rec.BirthDate.Compare(c.Birth) != 0 || rec.AdmitDay().Compare(c.ICUAdmit) != 0 {
		return false
	}
	day := rec.Event.CollectedAt.Day()
	return day.Valid &&
		day.Compare(c.Infection) >= 0 &&
		day.Compare(c.Infection.AddDays(infectionWindowDays)) <= 0
}

// CaseExport renders candidates next to the original case rows.
func CaseExport(cases *Table, cands []CaseCandidate) Export {
	header := make([]string, 0, len(cases.Header)+2)
	header = append(header, cases.Header...)
	header = append(header, ColCandidateID, ColCandidateOrganism)

	rows := make([][]string, len(cands))
	for i, c := range cands {
		row := make([]string, 0, len(header))
		if c.Case.Row >= 0 && c.Case.Row < cases.Len() {
			row = append(row, cases.Rows[c.Case.Row]...)
		} else {
			row = append(row, make([]string, len(cases.Header))...)
		}
		row = append(row, string(c.ID), c.Organism)
		rows[i] = row
	}
	return Export{Sheet: caseSheetTitle, Header: header, Rows: rows}
}

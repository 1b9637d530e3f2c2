package core

import "strings"

// Candidate header fragments for each role, in priority order.
// They cover the Korean and English headers of common hospital exports.
var (
	IDCandidates        = []string{"환자번호", "병록번호", "patientid", "patient_id"}
	AdmitCandidates     = []string{"입실"}
	DischargeCandidates = []string{"퇴실"}
	CultureCandidates   = []string{"시행일", "채취일", "검사일", "접수일"}
	WardCandidates      = []string{"병동", "부서"}
	OrganismCandidates  = []string{"미생물", "결과"}
	BirthCandidates     = []string{"생년월일", "birthdate", "dob"}
	NameCandidates      = []string{"환자명", "이름", "성명", "name"}
	SexCandidates       = []string{"성별", "gender", "sex"}
	CombinedCandidates  = []string{"성별/나이", "S/A", "S|A"}
	CensusIDCandidates  = []string{"연구등록번호", "등록번호", "환자ID", "환자번호", "병록번호", "번호", "id", "patientid"}
)

// FindColumn returns the first column whose name contains a candidate
// fragment, ignoring case and whitespace. Fragments are tried in order and,
// for each fragment, columns are scanned in their original order, so an
// earlier fragment always beats an earlier column.
func FindColumn(candidates []string, columns []string) (string, bool) {
	folded := make([]string, len(columns))
	for i, c := range columns {
		folded[i] = compactFold(c)
	}
	for _, cand := range candidates {
		frag := compactFold(cand)
		if frag == "" {
			continue
		}
		for i, col := range folded {
			if strings.Contains(col, frag) {
				return columns[i], true
			}
		}
	}
	return "", false
}

// Suggestion is a proposed column for one role. Found=false means the
// caller must pick the column manually.
type Suggestion struct {
	Role   string `json:"role"`
	Column string `json:"column,omitempty"`
	Found  bool   `json:"found"`
}

// RoleSuggestions are the proposed columns for the two required tables.
type RoleSuggestions struct {
	Episodes []Suggestion `json:"episodes"`
	Cultures []Suggestion `json:"cultures"`
}

// SuggestRoles proposes columns for every role of the episode and culture
// tables. Either table may be nil.
func SuggestRoles(episodes, cultures *Table) RoleSuggestions {
	var out RoleSuggestions
	if episodes != nil {
		out.Episodes = suggest(episodes.Header, []roleCandidates{
			{"id", IDCandidates},
			{"admit", AdmitCandidates},
			{"discharge", DischargeCandidates},
		})
	}
	if cultures != nil {
		out.Cultures = suggest(cultures.Header, []roleCandidates{
			{"id", IDCandidates},
			{"collected_at", CultureCandidates},
			{"ward", WardCandidates},
			{"organism", OrganismCandidates},
		})
	}
	return out
}

// SuggestAttributes proposes the key and attribute columns of an
// auxiliary table.
func SuggestAttributes(t *Table) []Suggestion {
	if t == nil {
		return nil
	}
	return suggest(t.Header, []roleCandidates{
		{"id", IDCandidates},
		{"birth", BirthCandidates},
		{"name", NameCandidates},
		{"sex", SexCandidates},
		{"combined", CombinedCandidates},
	})
}

type roleCandidates struct {
	role  string
	cands []string
}

func suggest(header []string, roles []roleCandidates) []Suggestion {
	out := make([]Suggestion, len(roles))
	for i, rc := range roles {
		col, ok := FindColumn(rc.cands, header)
		out[i] = Suggestion{Role: rc.role, Column: col, Found: ok}
	}
	return out
}

package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Assemble sorts records by outcome priority, culture time and admission
// time (absent values last), drops duplicate events keeping the first, and
// numbers the rest from 1. The input is not modified.
func Assemble(records []Record, trackOrganism bool) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Outcome != b.Outcome {
			return a.Outcome < b.Outcome
		}
		if c := a.Event.CollectedAt.Compare(b.Event.CollectedAt); c != 0 {
			return c < 0
		}
		return a.Admit().Compare(b.Admit()) < 0
	})

	seen := make(map[string]bool, len(sorted))
	out := sorted[:0]
	for _, rec := range sorted {
		key := rec.Event.identity(trackOrganism)
		if seen[key] {
			continue
		}
		seen[key] = true
		rec.Seq = len(out) + 1
		out = append(out, rec)
	}
	return out
}

// Variant selects the export layout.
type Variant int

const (
	// VariantExternal is the layout submitted to external auditors.
	VariantExternal Variant = iota
	// VariantInternal adds an empty BSI classification column for
	// in-house review.
	VariantInternal
)

func (v Variant) String() string {
	if v == VariantInternal {
		return "internal"
	}
	return "external"
}

// ParseVariant accepts "external" and "internal".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "external":
		return VariantExternal, nil
	case "internal":
		return VariantInternal, nil
	}
	return VariantExternal, fmt.Errorf("invalid variant %q: want external or internal", s)
}

// Export column headers.
const (
	ColNo            = "번호"
	ColID            = "등록번호_ID"
	ColInitial       = "이름_초성"
	ColSex           = "성별"
	ColBirth         = "생년월일"
	ColAdmit         = "입실일"
	ColDischarge     = "퇴실일"
	ColCultureDate   = "혈액배양 의뢰일"
	ColOrganism      = "혈액배양 분리균"
	ColBSI           = "BSI 분류"
	ColRegistry      = "KONIS WRAP 등록여부"
	ColWard          = "혈액배양 시행병동"
	ColRemark        = "비고"
	registryYes      = "Y"
	registryNo       = "N"
	exportSheetTitle = "매칭결과"
)

// Export is a rendered table ready to be written to a file.
type Export struct {
	Sheet  string     `json:"sheet"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type exportColumn struct {
	name  string
	value func(Record) string
}

// columns lists the export columns for the result, skipping attributes
// that were not tracked.
func (r *Result) columns(v Variant) []exportColumn {
	cols := []exportColumn{
		{ColNo, func(rec Record) string { return strconv.Itoa(rec.Seq) }},
		{ColID, func(rec Record) string { return string(rec.Event.ID) }},
	}
	if r.TrackName {
		cols = append(cols, exportColumn{ColInitial, func(rec Record) string { return rec.Initial }})
	}
	if r.TrackSex {
		cols = append(cols, exportColumn{ColSex, func(rec Record) string { return rec.Sex }})
	}
	if r.TrackBirth {
		cols = append(cols, exportColumn{ColBirth, func(rec Record) string { return rec.BirthDate.String() }})
	}
	cols = append(cols,
		exportColumn{ColAdmit, func(rec Record) string { return rec.Admit().Day().String() }},
		exportColumn{ColDischarge, func(rec Record) string { return rec.Discharge().Day().String() }},
		exportColumn{ColCultureDate, func(rec Record) string { return rec.Event.CollectedAt.Day().String() }},
	)
	if r.TrackOrganism {
		cols = append(cols, exportColumn{ColOrganism, func(rec Record) string { return rec.Event.Organism }})
	}
	if v == VariantInternal {
		cols = append(cols, exportColumn{ColBSI, func(Record) string { return "" }})
	}
	if r.RegistryChecked {
		cols = append(cols, exportColumn{ColRegistry, func(rec Record) string {
			if rec.Registered {
				return registryYes
			}
			return registryNo
		}})
	}
	if r.TrackWard {
		cols = append(cols, exportColumn{ColWard, func(rec Record) string { return rec.Event.Ward }})
	}
	return append(cols, exportColumn{ColRemark, func(rec Record) string { return rec.Outcome.Label() }})
}

// Export renders the result in the given layout. Dates are YYYY-MM-DD and
// patient IDs are kept as text.
func (r *Result) Export(v Variant) Export {
	cols := r.columns(v)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}

	rows := make([][]string, len(r.Records))
	for i, rec := range r.Records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.value(rec)
		}
		rows[i] = row
	}

	return Export{Sheet: exportSheetTitle, Header: header, Rows: rows}
}

package core

// census.go derives ICU episodes from monthly bed-census sheets.
//
// A census sheet has one row per patient and one column per day, headed
// like "2025.02.01(토)" or "2025-02-01". A cell equal to the presence marker means the
// patient was in the unit that day. Consecutive present days form one
// episode whose first and last days are the admission and discharge.

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DefaultCensusMarker is the cell value meaning "present".
const DefaultCensusMarker = "1"

// AdmitUncertainRemark marks episodes that start on the first census day;
// the real admission may be earlier than the data.
const AdmitUncertainRemark = "입실일 확인 필요"

// Census export headers.
const (
	CensusColAdmit     = "입실일"
	CensusColDischarge = "퇴실일"
	CensusColRemark    = "비고"
	censusSheetTitle   = "입퇴원내역"
	unknownYearMonth   = "9999-99"
)

var (
	censusDateRegex = regexp.MustCompile(`^\s*(\d{4})[.\-/](\d{2})[.\-/](\d{2})`)
	yearMonthRegex  = regexp.MustCompile(`(\d{4})[_\-.]?(0[1-9]|1[0-2])`)
)

// ErrNoCensusDates is returned when no sheet has a date-headed column.
var ErrNoCensusDates = errors.New("no census date columns found (expected headers like 2025.02.01)")

// CensusSheet is one uploaded census file.
type CensusSheet struct {
	Name  string // file name, used for ordering
	Table *Table
}

// CensusConfig selects the ID column and presence marker.
type CensusConfig struct {
	IDColumn string
	Marker   string
}

// DerivedEpisode is an episode reconstructed from census presence.
type DerivedEpisode struct {
	ID        PatientID
	Admit     Day
	Discharge Day
	Remark    string
}

// CensusYearMonth extracts "YYYY-MM" from a file name such as
// "icu_2025_02.xlsx". Names without one sort last as "9999-99".
func CensusYearMonth(name string) string {
	m := yearMonthRegex.FindStringSubmatch(name)
	if m == nil {
		return unknownYearMonth
	}
	return m[1] + "-" + m[2]
}

// SortCensusSheets orders sheets by the year-month in their names.
func SortCensusSheets(sheets []CensusSheet) []CensusSheet {
	out := make([]CensusSheet, len(sheets))
	copy(out, sheets)
	sort.SliceStable(out, func(i, j int) bool {
		return CensusYearMonth(out[i].Name) < CensusYearMonth(out[j].Name)
	})
	return out
}

// DeriveEpisodes reconstructs episodes from census sheets. The result is
// ordered by patient ID, then admission.
func DeriveEpisodes(sheets []CensusSheet, cfg CensusConfig) ([]DerivedEpisode, error) {
	marker := strings.TrimSpace(cfg.Marker)
	if marker == "" {
		marker = DefaultCensusMarker
	}

	present := make(map[PatientID]map[time.Time]bool)
	var first time.Time
	var anyDates bool

	for _, sh := range SortCensusSheets(sheets) {
		ids, err := sh.Table.Column(cfg.IDColumn)
		if err != nil {
			return nil, fmt.Errorf("census %s: %w", sh.Name, err)
		}

		for col, h := range sh.Table.Header {
			m := censusDateRegex.FindStringSubmatch(h)
			if m == nil {
				continue
			}
			day, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3])
			if err != nil {
				continue
			}
			if !anyDates || day.Before(first) {
				first = day
			}
			anyDates = true

			for r, id := range ids {
				if id == "" || CleanCell(sh.Table.Rows[r][col]) != marker {
					continue
				}
				pid := PatientID(id)
				if present[pid] == nil {
					present[pid] = make(map[time.Time]bool)
				}
				present[pid][day] = true
			}
		}
	}

	if !anyDates {
		return nil, ErrNoCensusDates
	}

	ids := make([]PatientID, 0, len(present))
	for id := range present {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []DerivedEpisode
	for _, id := range ids {
		days := make([]time.Time, 0, len(present[id]))
		for d := range present[id] {
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

		// A day that is not present, or missing from every sheet, ends a stay.
		blockStart := days[0]
		for i := 1; i <= len(days); i++ {
			if i < len(days) && days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
				continue
			}
			ep := DerivedEpisode{
				ID:        id,
				Admit:     Day{Date: blockStart, Valid: true},
				Discharge: Day{Date: days[i-1], Valid: true},
			}
			if blockStart.Equal(first) {
				ep.Remark = AdmitUncertainRemark
			}
			out = append(out, ep)
			if i < len(days) {
				blockStart = days[i]
			}
		}
	}
	return out, nil
}

// CensusExport renders derived episodes with idHeader as the ID column.
func CensusExport(episodes []DerivedEpisode, idHeader string) Export {
	rows := make([][]string, len(episodes))
	for i, ep := range episodes {
		rows[i] = []string{string(ep.ID), ep.Admit.String(), ep.Discharge.String(), ep.Remark}
	}
	return Export{
		Sheet:  censusSheetTitle,
		Header: []string{idHeader, CensusColAdmit, CensusColDischarge, CensusColRemark},
		Rows:   rows,
	}
}

// Table converts an export back into a Table, so derived episodes can be
// fed straight into a match run.
func (e Export) Table(name string) (*Table, error) {
	raw := make([][]string, 0, len(e.Rows)+1)
	raw = append(raw, e.Header)
	raw = append(raw, e.Rows...)
	return NewTable(name, raw)
}

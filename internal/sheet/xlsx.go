package sheet

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Layouts used to render date-formatted cells.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
	timeLayout     = "15:04:05"
)

// Built-in number formats that display dates or times.
// 14-17 are dates, 18-21 and 45-47 are times, 22 is date and time.
func builtinDateKind(id int) dateKind {
	switch {
	case id >= 14 && id <= 17:
		return kindDate
	case id == 22:
		return kindDateTime
	case id >= 18 && id <= 21, id >= 45 && id <= 47:
		return kindTime
	}
	return kindNone
}

type dateKind int

const (
	kindNone dateKind = iota
	kindDate
	kindDateTime
	kindTime
)

// readXLSX returns the cells of the first worksheet. Cells are read raw so
// that a date is never reformatted through a locale-dependent number
// format; date-styled numeric cells are converted here instead.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	dc := newDateConverter(f, name)
	for r, row := range rows {
		for c, v := range row {
			if s, ok := dc.convert(c+1, r+1, v); ok {
				row[c] = s
			}
		}
	}
	return rows, nil
}

// dateConverter renders numeric cells whose style is a date format.
// Style lookups are cached per style ID.
type dateConverter struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	kinds    map[int]dateKind
}

func newDateConverter(f *excelize.File, sheet string) *dateConverter {
	dc := &dateConverter{f: f, sheet: sheet, kinds: make(map[int]dateKind)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		dc.date1904 = *props.Date1904
	}
	return dc
}

func (dc *dateConverter) convert(col, row int, v string) (string, bool) {
	if v == "" {
		return "", false
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial < 0 {
		return "", false
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false
	}
	styleID, err := dc.f.GetCellStyle(dc.sheet, cell)
	if err != nil || styleID == 0 {
		return "", false
	}

	kind := dc.kind(styleID)
	if kind == kindNone {
		return "", false
	}

	t, err := excelize.ExcelDateToTime(serial, dc.date1904)
	if err != nil {
		return "", false
	}
	// Excel stores times to the millisecond; round away float noise.
	t = t.Round(time.Second)

	switch {
	case kind == kindTime && serial < 1:
		return t.Format(timeLayout), true
	case kind == kindDate && serial == math.Trunc(serial):
		return t.Format(dateLayout), true
	default:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format(dateLayout), true
		}
		return t.Format(dateTimeLayout), true
	}
}

func (dc *dateConverter) kind(styleID int) dateKind {
	if k, ok := dc.kinds[styleID]; ok {
		return k
	}
	k := kindNone
	if style, err := dc.f.GetStyle(styleID); err == nil && style != nil {
		k = builtinDateKind(style.NumFmt)
		if k == kindNone && style.CustomNumFmt != nil {
			k = customDateKind(*style.CustomNumFmt)
		}
	}
	dc.kinds[styleID] = k
	return k
}

// customDateKind classifies a custom number format code such as
// "yyyy-mm-dd hh:mm" or "[$-412]yyyy\"년\" m\"월\" d\"일\"".
func customDateKind(code string) dateKind {
	var b strings.Builder
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '[':
			bracket = true
		case ch == ']':
			bracket = false
		case bracket:
		case ch == '\\':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	tokens := strings.ToLower(b.String())
	if i := strings.IndexByte(tokens, ';'); i >= 0 {
		tokens = tokens[:i]
	}

	hasDate := strings.ContainsAny(tokens, "yd")
	hasTime := strings.ContainsAny(tokens, "hs")
	switch {
	case hasDate && hasTime:
		return kindDateTime
	case hasDate:
		return kindDate
	case hasTime:
		return kindTime
	}
	return kindNone
}

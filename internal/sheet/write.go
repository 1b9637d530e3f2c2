package sheet

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/icumatch/internal/core"
)

const (
	minColumnWidth = 8
	maxColumnWidth = 40
)

// Write renders exports in the given format. CSV carries only the first
// export; xlsx writes one worksheet per export.
func Write(w io.Writer, format Format, exports ...core.Export) error {
	if len(exports) == 0 {
		return fmt.Errorf("write: nothing to export")
	}
	if format == FormatCSV {
		return writeCSV(w, exports[0].Header, exports[0].Rows)
	}
	return writeXLSX(w, exports)
}

// writeXLSX writes every cell as a string so patient IDs keep their
// leading zeros and dates are not reinterpreted by Excel.
func writeXLSX(w io.Writer, exports []core.Export) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	first := f.GetSheetName(0)
	used := make(map[string]bool, len(exports))
	for i, exp := range exports {
		name := sheetName(exp.Sheet, i, used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}

		if err := writeSheet(f, name, exp, headerStyle); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, name string, exp core.Export, headerStyle int) error {
	widths := make([]int, len(exp.Header))

	if err := f.SetSheetRow(name, "A1", toRow(exp.Header, widths)); err != nil {
		return err
	}
	for r, row := range exp.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, toRow(row, widths)); err != nil {
			return err
		}
	}

	if len(exp.Header) == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(len(exp.Header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(name, col, col, float64(clamp(width+2, minColumnWidth, maxColumnWidth))); err != nil {
			return err
		}
	}
	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// toRow converts cells for SetSheetRow and tracks display widths. Hangul
// takes about two columns per character.
func toRow(cells []string, widths []int) *[]any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
		if i < len(widths) {
			if w := displayWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return &row
}

func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if utf8.RuneLen(r) > 1 {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sheetName returns a unique worksheet name of at most 31 characters,
// the Excel limit.
func sheetName(name string, i int, used map[string]bool) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	out := truncateRunes(name, 31)
	for n := 2; used[out]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		out = truncateRunes(name, 31-len(suffix)) + suffix
	}
	used[out] = true
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

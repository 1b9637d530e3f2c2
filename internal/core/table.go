package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTable is returned when a source has no header row.
var ErrEmptyTable = errors.New("empty file: no header row")

// Table is an in-memory sheet: a header row and data rows of text cells.
// Tables are read-only once built.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string

	index HeaderIndex
}

// NewTable builds a Table from raw rows, the first of which is the header.
// Header cells are cleaned; short rows are padded and fully blank rows are
// dropped.
func NewTable(name string, raw [][]string) (*Table, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}

	header := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		header[i] = CleanCell(h)
	}
	// Trailing unnamed columns are export noise.
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}

	rows := make([][]string, 0, len(raw)-1)
	for _, r := range raw[1:] {
		row := make([]string, len(header))
		blank := true
		for i := range header {
			if i < len(r) {
				row[i] = strings.TrimSpace(r[i])
				if row[i] != "" {
					blank = false
				}
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}

	return &Table{
		Name:   name,
		Header: header,
		Rows:   rows,
		index:  MakeHeaderIndex(header),
	}, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.col(column)
	return ok
}

func (t *Table) col(column string) (int, bool) {
	idx := t.index
	if idx == nil {
		idx = MakeHeaderIndex(t.Header)
	}
	i, ok := idx[strings.ToLower(CleanCell(column))]
	return i, ok
}

// Column returns the cleaned values of the named column.
func (t *Table) Column(column string) ([]string, error) {
	i, ok := t.col(column)
	if !ok {
		return nil, &ColumnError{Table: t.Name, Column: column}
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = CleanCell(row[i])
	}
	return out, nil
}

// ColumnError reports a configured column that the table does not have.
type ColumnError struct {
	Table  string
	Role   string
	Column string
}

func (e *ColumnError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("missing required column: no %s column selected for %s", e.Role, e.Table)
	}
	if e.Role == "" {
		return fmt.Sprintf("missing required column %q in %s", e.Column, e.Table)
	}
	return fmt.Sprintf("missing required column %q (%s) in %s", e.Column, e.Role, e.Table)
}

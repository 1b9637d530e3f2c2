// Package sheet reads and writes the spreadsheet files exchanged with the
// hospital: xlsx workbooks and CSV exports in UTF-8 or CP949.
//
// Readers return a core.Table of text cells. Date-formatted xlsx cells are
// rendered as "2006-01-02" or "2006-01-02 15:04:05" so the core date
// normalizer sees the same text a user would.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/icumatch/internal/core"
)

// MaxFileSize is the largest file Read accepts (50MB).
var MaxFileSize int64 = 50 * 1024 * 1024

// ErrUnsupported is returned for files that are neither xlsx nor csv.
var ErrUnsupported = errors.New("unsupported file type: expected .xlsx or .csv")

// ErrTooLarge is returned when a file exceeds MaxFileSize.
var ErrTooLarge = errors.New("file too large")

// Format is a supported file format.
type Format int

const (
	FormatXLSX Format = iota
	FormatCSV
)

func (f Format) String() string {
	if f == FormatCSV {
		return "csv"
	}
	return "xlsx"
}

// ContentType returns the MIME type used when serving the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// FormatOf picks the format from a file name.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	}
	return 0, fmt.Errorf("%s: %w", name, ErrUnsupported)
}

// ParseFormat accepts "xlsx" and "csv".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	}
	return 0, fmt.Errorf("format %q: %w", s, ErrUnsupported)
}

// Read parses r as the format implied by name and returns the first
// worksheet as a Table named name.
func Read(name string, r io.Reader) (*core.Table, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, fmt.Errorf("%s: %w: exceeds %dMB limit", name, ErrTooLarge, MaxFileSize/(1024*1024))
	}

	var raw [][]string
	switch format {
	case FormatXLSX:
		raw, err = readXLSX(data)
	case FormatCSV:
		raw, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return core.NewTable(name, raw)
}

// ReadFile reads the file at path. The table is named after the base name.
func ReadFile(path string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

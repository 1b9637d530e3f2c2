package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decoderFor picks the decoder for raw CSV bytes. A byte-order mark always
// wins; otherwise valid UTF-8 is kept as is and anything else is read as
// CP949, the default export encoding of Korean hospital systems.
func decoderFor(data []byte) transform.Transformer {
	fallback := encoding.Nop.NewDecoder()
	if !utf8.Valid(data) {
		fallback = korean.EUCKR.NewDecoder()
	}
	return unicode.BOMOverride(fallback)
}

// readCSV decodes and parses a CSV file. Rows may have different lengths;
// the table builder pads them.
func readCSV(data []byte) ([][]string, error) {
	decoded, _, err := transform.Bytes(decoderFor(data), data)
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return rows, nil
}

// utf8BOM lets Excel open UTF-8 CSV files with Korean text correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

package core

// csv_format.go is the always-available CSV adapter.
//
// Input is decoded as UTF-8 through golang.org/x/text: a leading byte-order
// mark (common in files saved by Excel on Windows) is dropped and invalid
// byte sequences become U+FFFD instead of failing the whole file.

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func init() {
	RegisterFormat(csvFormat{})
}

type csvFormat struct{}

func (csvFormat) Name() string          { return FormatCSV }
func (csvFormat) FileExtension() string { return ".csv" }
func (csvFormat) ContentType() string   { return "text/csv" }
func (csvFormat) EnumStyle() EnumStyle  { return EnumCodes }

// Parse reads every record. Rows may have differing field counts.
//
// encoding/csv skips blank lines, so each blank line between the header and
// a later record is put back as an empty row. Data row i then stays on file
// line i+2 and the blank line is reported like any other row without a name.
// Blank lines at the very end of the file are not rows.
func (csvFormat) Parse(r io.Reader) (*Sheet, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	sheet := &Sheet{}
	haveHeader := false
	nextLine := 0 // line the next record starts on when no blank lines intervene

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if !haveHeader {
			sheet.Header = rec
			haveHeader = true
		} else {
			for ; nextLine < line; nextLine++ {
				sheet.Rows = append(sheet.Rows, []any{})
			}
			sheet.Rows = append(sheet.Rows, StringRow(rec))
		}
		nextLine = line + 1 + recordNewlines(rec)
	}

	return sheet, nil
}

// recordNewlines counts line breaks inside quoted fields of rec.
func recordNewlines(rec []string) int {
	n := 0
	for _, f := range rec {
		n += strings.Count(f, "\n")
	}
	return n
}

// Write emits the header followed by each row, cells rendered as plain strings.
func (csvFormat) Write(w io.Writer, s *Sheet) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(s.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, 0, len(s.Header))
	for _, row := range s.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, CellString(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

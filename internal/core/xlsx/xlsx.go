// Package xlsx adds Excel workbook support to the lead import/export pipeline.
//
// Importing this package for its side effect registers the "excel" format
// with package core:
//
//	import _ "github.com/JonMunkholm/leads/internal/core/xlsx"
//
// Binaries built without it still handle CSV; Excel requests then fail with
// core.ErrFormatUnavailable.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/leads/internal/core"
)

// SheetName is the worksheet written on export.
const SheetName = "Leads"

const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func init() {
	core.RegisterFormat(Format{})
}

// Format reads and writes .xlsx workbooks.
type Format struct{}

func (Format) Name() string              { return core.FormatExcel }
func (Format) FileExtension() string     { return ".xlsx" }
func (Format) ContentType() string       { return contentType }
func (Format) EnumStyle() core.EnumStyle { return core.EnumLabels }

// Parse reads the active worksheet. The first row is the header; other
// sheets are ignored.
//
// Numeric cells come back as float64 so that downstream code sees the stored
// number rather than its display format. Text cells, including digits stored
// as text such as "0803", and cells whose display is not a plain number
// (dates, percentages) stay strings.
func (Format) Parse(r io.Reader) (*core.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(f.GetActiveSheetIndex())
	if name == "" {
		return &core.Sheet{}, nil
	}

	shown, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	sheet := &core.Sheet{}
	for i, cols := range shown {
		if i == 0 {
			sheet.Header = cols
			continue
		}
		row := make([]any, len(cols))
		for j, text := range cols {
			row[j] = typedCell(f, name, i, j, text, raw)
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

// typedCell returns the float64 behind a numeric cell, or text otherwise.
// i and j are zero-based row and column indexes.
func typedCell(f *excelize.File, sheet string, i, j int, text string, raw [][]string) any {
	if _, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err != nil {
		return text
	}
	if i >= len(raw) || j >= len(raw[i]) {
		return text
	}

	ref, err := excelize.CoordinatesToCellName(j+1, i+1)
	if err != nil {
		return text
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil || (typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset) {
		return text
	}

	n, err := strconv.ParseFloat(raw[i][j], 64)
	if err != nil {
		return text
	}
	return n
}

// Write stores the sheet as a single worksheet named SheetName.
func (Format) Write(w io.Writer, s *core.Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	header := make([]any, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

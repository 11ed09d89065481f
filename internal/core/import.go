package core

// import.go runs one file import from raw bytes to persisted leads.
//
// The pipeline is synchronous and row-at-a-time:
//  1. Pick a format by file suffix and check that its adapter is linked in
//  2. Parse the whole file into a Sheet
//  3. Resolve the header row into a ColumnMap
//  4. Coerce and save each data row in file order
//
// Failures in steps 1-3 are fatal and produce exactly one error message.
// Failures in step 4 reject only the row: the message is recorded and the
// loop moves on. Rows are saved one by one without a surrounding
// transaction, so leads saved before a crash stay saved.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/leads/internal/logging"
)

// rowNumberOffset converts a zero-based data row index into the one-based
// line number a user sees in a spreadsheet, assuming a single header row.
const rowNumberOffset = 2

// Fatal import messages shown to users.
const (
	MsgUnsupportedFormat  = "Unsupported file format. Use CSV or Excel."
	MsgExcelUnavailable   = "Excel support is not available in this build. Use CSV."
	MsgFileEmpty          = "File is empty."
	msgFileProcessingFail = "File processing error: %v"
)

// ImportResult summarises one import run.
type ImportResult struct {
	ImportID  string        `json:"import_id"`
	FileName  string        `json:"file_name"`
	TotalRows int           `json:"total_rows"`
	Inserted  int           `json:"inserted"`
	Errors    []string      `json:"errors"`
	Fatal     bool          `json:"fatal"`
	Duration  time.Duration `json:"duration"`
}

// Rejected returns the number of data rows that were not saved.
func (r *ImportResult) Rejected() int {
	return r.TotalRows - r.Inserted
}

// Importer reads lead files and saves every acceptable row.
type Importer struct {
	leads LeadStore
	staff StaffDirectory
}

// NewImporter creates an importer. staff may be nil to skip assignment lookups.
func NewImporter(leads LeadStore, staff StaffDirectory) *Importer {
	return &Importer{leads: leads, staff: staff}
}

// Import processes one file. It never returns an error: fatal problems are
// reported as the single entry in Errors with Fatal set.
//
// Saves run on a context detached from ctx's cancellation so a client that
// disconnects mid-upload does not leave the file half processed.
func (imp *Importer) Import(ctx context.Context, fileName string, data []byte, actor *Staff) *ImportResult {
	start := time.Now()
	result := &ImportResult{
		ImportID: uuid.New().String(),
		FileName: fileName,
		Errors:   []string{},
	}

	logger := logging.WithFields(ctx,
		"import_id", result.ImportID,
		"file", fileName,
	)
	logger.Info("import started", "bytes", len(data))

	sheet, cols, err := imp.prepare(fileName, data)
	if err != nil {
		result.Fatal = true
		result.Errors = append(result.Errors, fatalMessage(err))
		result.Duration = time.Since(start)
		logger.Warn("import rejected", "error", err)
		return result
	}

	saveCtx := context.WithoutCancel(ctx)
	coercer := NewRowCoercer(cols, imp.staff)
	result.TotalRows = len(sheet.Rows)

	for i, row := range sheet.Rows {
		line := i + rowNumberOffset
		if err := imp.importRow(saveCtx, coercer, row, actor, result.ImportID); err != nil {
			msg := fmt.Sprintf("Row %d: %v", line, err)
			result.Errors = append(result.Errors, msg)
			logger.Debug("row rejected", "row", line, "reason", err.Error())
			continue
		}
		result.Inserted++
	}

	result.Duration = time.Since(start)
	logger.Info("import completed",
		slog.Int("rows", result.TotalRows),
		slog.Int("inserted", result.Inserted),
		slog.Int("rejected", result.Rejected()),
		slog.Duration("duration", result.Duration),
	)
	return result
}

// prepare runs the fatal stages: format detection, parsing and header resolution.
func (imp *Importer) prepare(fileName string, data []byte) (*Sheet, ColumnMap, error) {
	format, err := FormatForFilename(fileName)
	if err != nil {
		return nil, nil, err
	}
	if len(data) == 0 {
		return nil, nil, errEmptyFile
	}

	sheet, err := format.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &parseError{err: err}
	}
	if len(sheet.Header) == 0 {
		return nil, nil, errEmptyFile
	}

	cols, err := ResolveColumns(sheet.Header)
	if err != nil {
		return nil, nil, err
	}
	return sheet, cols, nil
}

// importRow coerces and saves a single row. Panics are turned into errors so
// one bad row cannot end the run.
func (imp *Importer) importRow(ctx context.Context, c *RowCoercer, row []any, actor *Staff, importID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	lead, err := c.Coerce(ctx, row)
	if err != nil {
		return err
	}
	lead.CreatedBy = actor
	lead.ImportID = importID

	return imp.leads.Save(ctx, lead)
}

var errEmptyFile = errors.New("empty file")

// parseError marks a failure inside a format adapter.
type parseError struct {
	err error
}

func (e *parseError) Error() string { return e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// fatalMessage maps a fatal import error to the message shown to users.
func fatalMessage(err error) string {
	var pe *parseError
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return MsgUnsupportedFormat
	case errors.Is(err, ErrFormatUnavailable):
		return MsgExcelUnavailable
	case errors.Is(err, errEmptyFile):
		return MsgFileEmpty
	case errors.Is(err, ErrNoNameColumn):
		return ErrNoNameColumn.Error()
	case errors.As(err, &pe):
		return fmt.Sprintf(msgFileProcessingFail, pe.err)
	default:
		return fmt.Sprintf(msgFileProcessingFail, err)
	}
}

package core

import (
	"bytes"
	"fmt"
)

// ExportTimeLayout formats Created At and Updated At in exported files.
const ExportTimeLayout = "2006-01-02 15:04"

// ExportBaseName is the file name, without extension, used for lead downloads.
const ExportBaseName = "nissie_leads"

// Template download metadata.
const (
	TemplateFileName    = "leads_template.csv"
	TemplateContentType = "text/csv"
)

// ExportHeader is the column order of every export.
var ExportHeader = []string{
	"First Name", "Last Name", "Phone Number", "Email", "Point of Contact",
	"Prospect Response", "Remarks", "Status", "Color Code", "Source",
	"Assigned To", "Created At", "Updated At",
}

// templateHeader uses canonical field names so the template imports as-is.
var templateHeader = []string{
	FieldFirstName, FieldLastName, FieldPhoneNumber, FieldEmail, FieldPointOfContact,
	FieldProspectResponse, FieldRemarks, FieldStatus, FieldSource, FieldAssignedTo,
}

var templateExample = []string{
	"John", "Doe", "+234 800 123 4567", "john@example.com", "Website",
	"Interested in 3-bedroom", "Called back twice", string(StatusNew), "Website", "username",
}

// ExportSheet lays out records as a Sheet in the given enum style.
// Records are written in the order given.
func ExportSheet(records []Lead, style EnumStyle) *Sheet {
	sheet := &Sheet{
		Header: append([]string(nil), ExportHeader...),
		Rows:   make([][]any, 0, len(records)),
	}

	for i := range records {
		l := &records[i]

		status, color := string(l.Status), string(l.ColorCode)
		if style == EnumLabels {
			status, color = l.Status.Label(), l.ColorCode.Label()
		}

		sheet.Rows = append(sheet.Rows, []any{
			l.FirstName, l.LastName, l.PhoneNumber, l.Email,
			l.PointOfContact, l.ProspectResponse, l.Remarks,
			status, color, l.Source,
			l.AssignedUsername(),
			l.CreatedAt.Format(ExportTimeLayout),
			l.UpdatedAt.Format(ExportTimeLayout),
		})
	}
	return sheet
}

// Export renders records in format. It does not touch the store.
func Export(records []Lead, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := format.Write(&buf, ExportSheet(records, format.EnumStyle())); err != nil {
		return nil, fmt.Errorf("export %s: %w", format.Name(), err)
	}
	return buf.Bytes(), nil
}

// ExportFormat resolves a download format name. Anything that is not
// "excel" falls back to CSV.
func ExportFormat(name string) (Format, error) {
	if name == FormatExcel {
		return FormatByName(FormatExcel)
	}
	return FormatByName(FormatCSV)
}

// ExportFileName returns the download name for an export in format.
func ExportFileName(format Format) string {
	return ExportBaseName + format.FileExtension()
}

// TemplateCSV returns the blank import template: a header and one example row.
func TemplateCSV() []byte {
	csv, err := FormatByName(FormatCSV)
	if err != nil {
		panic("csv format not registered")
	}

	var buf bytes.Buffer
	sheet := &Sheet{
		Header: templateHeader,
		Rows:   [][]any{StringRow(templateExample)},
	}
	if err := csv.Write(&buf, sheet); err != nil {
		// Writes to a bytes.Buffer only fail on programmer error.
		panic(fmt.Sprintf("write template: %v", err))
	}
	return buf.Bytes()
}

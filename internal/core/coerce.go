package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/JonMunkholm/leads/internal/logging"
)

// ErrMissingFirstName rejects a row whose first name is blank after derivation.
var ErrMissingFirstName = errors.New("Missing first name, skipped")

// RowCoercer turns raw rows into leads using a resolved ColumnMap.
//
// Only a missing first name rejects a row. Bad status or color values fall
// back to defaults, unknown staff usernames leave the lead unassigned and
// over-long values are truncated.
type RowCoercer struct {
	cols  ColumnMap
	staff StaffDirectory
}

// NewRowCoercer returns a coercer for the given columns. staff may be nil,
// in which case assignments are never resolved.
func NewRowCoercer(cols ColumnMap, staff StaffDirectory) *RowCoercer {
	return &RowCoercer{cols: cols, staff: staff}
}

// Coerce builds a lead from one data row. The lead is not persisted and has
// no CreatedBy; the caller owns those.
func (c *RowCoercer) Coerce(ctx context.Context, row []any) (*Lead, error) {
	first, last := c.names(row)
	if first == "" {
		return nil, ErrMissingFirstName
	}

	l := &Lead{
		FirstName:        first,
		LastName:         last,
		PhoneNumber:      Truncate(c.cell(row, FieldPhoneNumber), MaxPhoneNumberLen),
		Email:            Truncate(c.cell(row, FieldEmail), MaxEmailLen),
		PointOfContact:   Truncate(c.cell(row, FieldPointOfContact), MaxPointOfContactLen),
		ProspectResponse: c.cell(row, FieldProspectResponse),
		Remarks:          c.cell(row, FieldRemarks),
		Source:           Truncate(c.cell(row, FieldSource), MaxSourceLen),
		Status:           ParseStatus(c.cell(row, FieldStatus)),
		ColorCode:        ParseColorCode(c.cell(row, FieldColorCode)),
	}

	if username := c.cell(row, FieldAssignedTo); username != "" {
		l.AssignedTo = c.lookupStaff(ctx, username)
	}

	return l, nil
}

// names derives first and last name, either from dedicated columns or by
// splitting the combined name column on its first whitespace run.
func (c *RowCoercer) names(row []any) (string, string) {
	if _, ok := c.cols.Index(FieldFirstName); ok {
		return Truncate(c.cell(row, FieldFirstName), MaxFirstNameLen),
			Truncate(c.cell(row, FieldLastName), MaxLastNameLen)
	}

	full := c.cell(row, FieldProspectName)
	end := strings.IndexFunc(full, unicode.IsSpace)
	if end < 0 {
		return Truncate(full, MaxFirstNameLen), ""
	}
	first := full[:end]
	last := strings.TrimLeftFunc(full[end:], unicode.IsSpace)
	return Truncate(first, MaxFirstNameLen), Truncate(last, MaxLastNameLen)
}

func (c *RowCoercer) cell(row []any, field string) string {
	idx, ok := c.cols.Index(field)
	return cellAt(row, idx, ok)
}

// lookupStaff resolves an assignee. Any failure leaves the lead unassigned.
func (c *RowCoercer) lookupStaff(ctx context.Context, username string) *Staff {
	if c.staff == nil {
		return nil
	}
	s, err := c.staff.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrStaffNotFound) {
			logging.FromContext(ctx).Warn("staff lookup failed",
				slog.String("username", username),
				slog.Any("error", err),
			)
		}
		return nil
	}
	return s
}

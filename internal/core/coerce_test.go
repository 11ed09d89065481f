package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func mustColumns(t *testing.T, header ...string) ColumnMap {
	t.Helper()
	cols, err := ResolveColumns(header)
	if err != nil {
		t.Fatalf("ResolveColumns(%v): %v", header, err)
	}
	return cols
}

func TestRowCoercer_SeparateNames(t *testing.T) {
	cols := mustColumns(t, "first_name", "last_name", "phone", "status", "color", "assigned_to")
	c := NewRowCoercer(cols, newFakeStaff("ada"))

	l, err := c.Coerce(context.Background(), []any{" Jane ", "Doe", 8031234567.0, "Qualified", "#28a745", "ADA"})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}

	if l.FirstName != "Jane" || l.LastName != "Doe" {
		t.Errorf("name = %q %q", l.FirstName, l.LastName)
	}
	if l.PhoneNumber != "8031234567" {
		t.Errorf("PhoneNumber = %q, want integral float without fraction", l.PhoneNumber)
	}
	if l.Status != StatusQualified {
		t.Errorf("Status = %q", l.Status)
	}
	if l.ColorCode != ColorGreen {
		t.Errorf("ColorCode = %q", l.ColorCode)
	}
	if l.AssignedTo == nil || l.AssignedTo.Username != "ada" {
		t.Errorf("AssignedTo = %+v", l.AssignedTo)
	}
	if l.CreatedBy != nil || l.ID != 0 {
		t.Error("Coerce must not set CreatedBy or ID")
	}
}

func TestRowCoercer_CombinedName(t *testing.T) {
	cols := mustColumns(t, "Prospect Name", "Email")
	c := NewRowCoercer(cols, nil)

	tests := []struct {
		full      string
		wantFirst string
		wantLast  string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"Mary  Ann   Smith", "Mary", "Ann   Smith"},
		{"Madonna", "Madonna", ""},
		{"  Chidi\tOkafor ", "Chidi", "Okafor"},
	}

	for _, tt := range tests {
		l, err := c.Coerce(context.Background(), []any{tt.full, "x@y.z"})
		if err != nil {
			t.Fatalf("Coerce(%q): %v", tt.full, err)
		}
		if l.FirstName != tt.wantFirst || l.LastName != tt.wantLast {
			t.Errorf("Coerce(%q) = %q / %q, want %q / %q", tt.full, l.FirstName, l.LastName, tt.wantFirst, tt.wantLast)
		}
	}
}

func TestRowCoercer_MissingFirstName(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		row    []any
	}{
		{"blank first name", []string{"first_name", "last_name"}, []any{"  ", "Doe"}},
		{"nil cell", []string{"first_name"}, []any{nil}},
		{"short row", []string{"email", "first_name"}, []any{"a@b.c"}},
		{"blank combined name", []string{"name"}, []any{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRowCoercer(mustColumns(t, tt.header...), nil)
			_, err := c.Coerce(context.Background(), tt.row)
			if !errors.Is(err, ErrMissingFirstName) {
				t.Errorf("err = %v, want ErrMissingFirstName", err)
			}
		})
	}
}

func TestRowCoercer_LenientValues(t *testing.T) {
	cols := mustColumns(t, "first_name", "status", "color_code", "assigned_to", "source", "remarks")
	c := NewRowCoercer(cols, newFakeStaff("ada"))

	long := strings.Repeat("s", 150)
	remarks := strings.Repeat("r", 1000)
	l, err := c.Coerce(context.Background(), []any{"Jane", "pending", "purple", "ghost", long, remarks})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}

	if l.Status != StatusNew {
		t.Errorf("unknown status = %q, want new", l.Status)
	}
	if l.ColorCode != ColorNone {
		t.Errorf("unknown color = %q, want none", l.ColorCode)
	}
	if l.AssignedTo != nil {
		t.Errorf("unknown staff should leave lead unassigned, got %+v", l.AssignedTo)
	}
	if len(l.Source) != MaxSourceLen {
		t.Errorf("Source length = %d, want %d", len(l.Source), MaxSourceLen)
	}
	if len(l.Remarks) != 1000 {
		t.Errorf("Remarks length = %d, want untruncated", len(l.Remarks))
	}
}

func TestRowCoercer_StaffLookupError(t *testing.T) {
	staff := newFakeStaff("ada")
	staff.err = errors.New("connection refused")
	c := NewRowCoercer(mustColumns(t, "first_name", "staff"), staff)

	l, err := c.Coerce(context.Background(), []any{"Jane", "ada"})
	if err != nil {
		t.Fatalf("lookup failures must not reject the row: %v", err)
	}
	if l.AssignedTo != nil {
		t.Errorf("AssignedTo = %+v, want nil", l.AssignedTo)
	}
}

func TestRowCoercer_FirstNameTruncatedByRunes(t *testing.T) {
	c := NewRowCoercer(mustColumns(t, "first_name"), nil)

	long := strings.Repeat("\u00e9", MaxFirstNameLen+1)
	l, err := c.Coerce(context.Background(), []any{long})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}

	if got := utf8.RuneCountInString(l.FirstName); got != MaxFirstNameLen {
		t.Errorf("FirstName has %d runes, want %d", got, MaxFirstNameLen)
	}
	if !utf8.ValidString(l.FirstName) {
		t.Error("truncation split a rune")
	}
}

func TestRowCoercer_Idempotent(t *testing.T) {
	header := []string{
		"first_name", "last_name", "phone", "email", "poc", "response",
		"remarks", "status", "source", "color", "assigned_to",
	}
	c := NewRowCoercer(mustColumns(t, header...), newFakeStaff("ada"))
	ctx := context.Background()

	first, err := c.Coerce(ctx, []any{
		"  Jane ", strings.Repeat("d", 120), 8031234567.0, " jane@example.com",
		"Referral", "Call back", "  keen  ", "Qualified", strings.Repeat("s", 150),
		"#28a745", "ADA",
	})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}

	// Feed the coerced values back in, in column order.
	row := []any{
		first.FirstName, first.LastName, first.PhoneNumber, first.Email,
		first.PointOfContact, first.ProspectResponse, first.Remarks,
		string(first.Status), first.Source, string(first.ColorCode),
		first.AssignedUsername(),
	}
	second, err := c.Coerce(ctx, row)
	if err != nil {
		t.Fatalf("second Coerce: %v", err)
	}

	if a, b := InputFromLead(first), InputFromLead(second); a != b {
		t.Errorf("coercing twice changed the lead:\n first: %+v\nsecond: %+v", a, b)
	}
}

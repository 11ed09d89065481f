package core

// columns.go maps a file's header row onto canonical lead fields.
//
// Source files come from many places (portals, exported contact lists, hand
// made spreadsheets), so the same column shows up as "Phone", "Mobile" or
// "Tel". Each canonical field has an ordered alias list; headers are
// normalized (trim, lowercase, spaces to underscores) and matched exactly.

import (
	"errors"
	"strings"
)

// Canonical field names.
const (
	FieldFirstName        = "first_name"
	FieldLastName         = "last_name"
	FieldProspectName     = "prospect_name" // combined "First Last" column
	FieldPhoneNumber      = "phone_number"
	FieldEmail            = "email"
	FieldPointOfContact   = "point_of_contact"
	FieldProspectResponse = "prospect_response"
	FieldRemarks          = "remarks"
	FieldStatus           = "status"
	FieldSource           = "source"
	FieldColorCode        = "color_code"
	FieldAssignedTo       = "assigned_to"
)

// ErrNoNameColumn is returned when neither a first-name column nor a combined
// name column exists. The import fails before any row is read.
var ErrNoNameColumn = errors.New(`no name column found: file needs a "first_name" or "name"/"prospect_name" column`)

// columnSynonyms lists canonical fields in resolution order with their aliases.
// Earlier fields claim a header index first.
var columnSynonyms = []struct {
	field   string
	aliases []string
}{
	{FieldFirstName, []string{"first_name", "firstname", "given_name"}},
	{FieldLastName, []string{"last_name", "lastname", "surname", "family_name"}},
	{FieldProspectName, []string{"prospect_name", "name", "full_name", "contact_name", "customer_name"}},
	{FieldPhoneNumber, []string{"phone_number", "phone", "tel", "mobile", "contact"}},
	{FieldEmail, []string{"email", "e-mail", "mail"}},
	{FieldPointOfContact, []string{"point_of_contact", "contact_point", "poc", "referral"}},
	{FieldProspectResponse, []string{"prospect_response", "response", "feedback"}},
	{FieldRemarks, []string{"remarks", "notes", "comments"}},
	{FieldStatus, []string{"status"}},
	{FieldSource, []string{"source", "lead_source"}},
	{FieldColorCode, []string{"color_code", "color"}},
	{FieldAssignedTo, []string{"assigned_to", "assigned_staff", "staff", "assigned"}},
}

// NormalizeHeader lowercases, trims and replaces spaces with underscores.
// Headers go through CleanCell first, so an Excel formula wrapper (="Name")
// and surrounding quotes are also stripped.
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(CleanCell(h)), " ", "_")
}

// ColumnMap maps canonical field names to column positions.
type ColumnMap map[string]int

// Index returns the column position of field and whether it was resolved.
func (m ColumnMap) Index(field string) (int, bool) {
	i, ok := m[field]
	return i, ok
}

// UsesCombinedName reports whether names must be split from a single column.
func (m ColumnMap) UsesCombinedName() bool {
	_, first := m[FieldFirstName]
	_, combined := m[FieldProspectName]
	return !first && combined
}

// ResolveColumns builds a ColumnMap from a raw header row.
//
// For each canonical field the first alias present wins, and a header
// position is never given to two fields. Returns ErrNoNameColumn when no
// usable name column exists.
func ResolveColumns(header []string) (ColumnMap, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	claimed := make(map[int]bool, len(header))
	cols := make(ColumnMap)

	for _, syn := range columnSynonyms {
		if idx, ok := findColumn(normalized, syn.aliases, claimed); ok {
			cols[syn.field] = idx
			claimed[idx] = true
		}
	}

	_, hasFirst := cols[FieldFirstName]
	_, hasCombined := cols[FieldProspectName]
	if !hasFirst && !hasCombined {
		return nil, ErrNoNameColumn
	}

	return cols, nil
}

// findColumn returns the first unclaimed position matching any alias,
// trying aliases in order.
func findColumn(headers, aliases []string, claimed map[int]bool) (int, bool) {
	for _, alias := range aliases {
		for i, h := range headers {
			if h == alias && !claimed[i] {
				return i, true
			}
		}
	}
	return 0, false
}

package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Field length limits, counted in characters (runes).
const (
	MaxFirstNameLen      = 100
	MaxLastNameLen       = 100
	MaxPhoneNumberLen    = 50
	MaxEmailLen          = 254
	MaxPointOfContactLen = 200
	MaxSourceLen         = 100
)

// Status is the pipeline stage of a lead.
type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusQualified   Status = "qualified"
	StatusProposal    Status = "proposal"
	StatusNegotiation Status = "negotiation"
	StatusWon         Status = "won"
	StatusLost        Status = "lost"
)

var statusLabels = []struct {
	code  Status
	label string
}{
	{StatusNew, "New"},
	{StatusContacted, "Contacted"},
	{StatusQualified, "Qualified"},
	{StatusProposal, "Proposal Sent"},
	{StatusNegotiation, "Negotiation"},
	{StatusWon, "Won"},
	{StatusLost, "Lost"},
}

// Statuses returns every status code in display order.
func Statuses() []Status {
	out := make([]Status, len(statusLabels))
	for i, s := range statusLabels {
		out[i] = s.code
	}
	return out
}

// Valid reports whether s is one of the known status codes.
func (s Status) Valid() bool {
	for _, sl := range statusLabels {
		if sl.code == s {
			return true
		}
	}
	return false
}

// Label returns the human-facing name of the status.
func (s Status) Label() string {
	for _, sl := range statusLabels {
		if sl.code == s {
			return sl.label
		}
	}
	return string(s)
}

// ParseStatus lowercases the input and returns the matching status.
// Anything unrecognised becomes StatusNew.
func ParseStatus(v string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if s.Valid() {
		return s
	}
	return StatusNew
}

// ColorCode tags a lead with one of a fixed set of colors. The empty code means no color.
type ColorCode string

const (
	ColorNone   ColorCode = ""
	ColorGreen  ColorCode = "#28a745"
	ColorYellow ColorCode = "#ffc107"
	ColorBlue   ColorCode = "#17a2b8"
	ColorGray   ColorCode = "#6c757d"
	ColorRed    ColorCode = "#dc3545"
	ColorPink   ColorCode = "#e83e8c"
	ColorOrange ColorCode = "#fd7e14"
	ColorTeal   ColorCode = "#20c997"
)

var colorLabels = []struct {
	code  ColorCode
	label string
}{
	{ColorNone, "No Color"},
	{ColorGreen, "Green - Hot Lead"},
	{ColorYellow, "Yellow - Warm Lead"},
	{ColorBlue, "Blue - New"},
	{ColorGray, "Gray - Cold"},
	{ColorRed, "Red - Urgent"},
	{ColorPink, "Pink - Follow Up"},
	{ColorOrange, "Orange - Interested"},
	{ColorTeal, "Teal - Qualified"},
}

// ColorCodes returns every color code, starting with ColorNone.
func ColorCodes() []ColorCode {
	out := make([]ColorCode, len(colorLabels))
	for i, c := range colorLabels {
		out[i] = c.code
	}
	return out
}

// Valid reports whether c is a known code. ColorNone is valid.
func (c ColorCode) Valid() bool {
	for _, cl := range colorLabels {
		if cl.code == c {
			return true
		}
	}
	return false
}

// Label returns the display name, e.g. "Green - Hot Lead".
func (c ColorCode) Label() string {
	for _, cl := range colorLabels {
		if cl.code == c {
			return cl.label
		}
	}
	return string(c)
}

// ParseColorCode matches v exactly (after trimming) against the known codes.
// Unknown values become ColorNone.
func ParseColorCode(v string) ColorCode {
	c := ColorCode(strings.TrimSpace(v))
	if c != ColorNone && c.Valid() {
		return c
	}
	return ColorNone
}

// Staff is an entry in the staff directory. Leads reference staff both as
// the assignee and as the creating actor.
type Staff struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Lead is a sales prospect.
type Lead struct {
	ID               int64     `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	PhoneNumber      string    `json:"phone_number"`
	Email            string    `json:"email"`
	PointOfContact   string    `json:"point_of_contact"`
	ProspectResponse string    `json:"prospect_response"`
	Remarks          string    `json:"remarks"`
	Status           Status    `json:"status"`
	ColorCode        ColorCode `json:"color_code"`
	Source           string    `json:"source"`
	AssignedTo       *Staff    `json:"assigned_to,omitempty"`
	CreatedBy        *Staff    `json:"created_by,omitempty"`
	ImportID         string    `json:"import_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (l *Lead) FullName() string {
	name := strings.TrimSpace(l.FirstName + " " + l.LastName)
	if name == "" {
		return l.FirstName
	}
	return name
}

// AssignedUsername returns the assignee's username or "".
func (l *Lead) AssignedUsername() string {
	if l.AssignedTo == nil {
		return ""
	}
	return l.AssignedTo.Username
}

// Normalize trims and truncates every string field to its limit and forces
// status and color into their enumerations.
func Normalize(l *Lead) {
	l.FirstName = Truncate(strings.TrimSpace(l.FirstName), MaxFirstNameLen)
	l.LastName = Truncate(strings.TrimSpace(l.LastName), MaxLastNameLen)
	l.PhoneNumber = Truncate(strings.TrimSpace(l.PhoneNumber), MaxPhoneNumberLen)
	l.Email = Truncate(strings.TrimSpace(l.Email), MaxEmailLen)
	l.PointOfContact = Truncate(strings.TrimSpace(l.PointOfContact), MaxPointOfContactLen)
	l.ProspectResponse = strings.TrimSpace(l.ProspectResponse)
	l.Remarks = strings.TrimSpace(l.Remarks)
	l.Source = Truncate(strings.TrimSpace(l.Source), MaxSourceLen)
	l.Status = ParseStatus(string(l.Status))
	l.ColorCode = ParseColorCode(string(l.ColorCode))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

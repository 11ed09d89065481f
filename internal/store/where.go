package store

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/leads/internal/core"
)

// Placeholder renders the bind parameter for the n-th argument (1-based).
type Placeholder func(n int) string

// Dollar renders PostgreSQL placeholders: $1, $2, ...
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Question renders SQLite placeholders.
func Question(int) string { return "?" }

// WhereBuilder accumulates AND-ed conditions and their arguments.
// Empty values are skipped so optional filters can be added unconditionally.
type WhereBuilder struct {
	conditions  []string
	args        []any
	argIndex    int
	placeholder Placeholder
}

// NewWhereBuilder returns a builder using PostgreSQL placeholders.
func NewWhereBuilder() *WhereBuilder {
	return NewWhereBuilderWith(Dollar)
}

// NewWhereBuilderWith returns a builder using the given placeholder style.
func NewWhereBuilderWith(ph Placeholder) *WhereBuilder {
	return &WhereBuilder{argIndex: 1, placeholder: ph}
}

func (wb *WhereBuilder) bind(v any) string {
	p := wb.placeholder(wb.argIndex)
	wb.args = append(wb.args, v)
	wb.argIndex++
	return p
}

// Add appends "col = value". Empty strings and zero IDs are skipped.
func (wb *WhereBuilder) Add(col string, val any) {
	switch v := val.(type) {
	case string:
		if v == "" {
			return
		}
	case int64:
		if v == 0 {
			return
		}
	case nil:
		return
	}
	wb.conditions = append(wb.conditions, col+" = "+wb.bind(val))
}

// AddSearch appends a case-insensitive substring match across cols, OR-ed together.
// LIKE wildcards in query are matched literally.
func (wb *WhereBuilder) AddSearch(query string, cols ...string) {
	query = strings.TrimSpace(query)
	if query == "" || len(cols) == 0 {
		return
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = "LOWER(" + col + ") LIKE " + wb.bind(pattern) + ` ESCAPE '\'`
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
}

// Build returns " WHERE a AND b" (or "" with no conditions) and the arguments.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// LeadSearchColumns are matched by LeadFilter.Search.
var LeadSearchColumns = []string{
	"l.first_name", "l.last_name", "l.phone_number",
	"l.email", "l.remarks", "l.point_of_contact",
}

// LeadWhere builds the WHERE clause for f against the "l" leads alias.
func LeadWhere(ph Placeholder, f core.LeadFilter) (string, []any) {
	wb := NewWhereBuilderWith(ph)
	wb.AddSearch(f.Search, LeadSearchColumns...)
	wb.Add("l.status", string(f.Status))
	wb.Add("l.color_code", string(f.Color))
	wb.Add("l.assigned_to_id", f.StaffID)
	return wb.Build()
}

// LeadSelect selects every lead column plus assignee and creator usernames.
// Append a WHERE clause and LeadOrder.
const LeadSelect = `SELECT l.id, l.first_name, l.last_name, l.phone_number, l.email,
	l.point_of_contact, l.prospect_response, l.remarks, l.status, l.color_code,
	l.source, l.import_id, l.created_at, l.updated_at,
	a.id, a.username, c.id, c.username
	FROM leads l
	LEFT JOIN staff a ON a.id = l.assigned_to_id
	LEFT JOIN staff c ON c.id = l.created_by_id`

// LeadOrder sorts most recently updated first; id breaks ties.
const LeadOrder = ` ORDER BY l.updated_at DESC, l.id DESC`

// StaffRef builds a *core.Staff from nullable join columns.
func StaffRef(id *int64, username *string) *core.Staff {
	if id == nil {
		return nil
	}
	s := &core.Staff{ID: *id}
	if username != nil {
		s.Username = *username
	}
	return s
}

// StaffID returns the nullable foreign key for s.
func StaffID(s *core.Staff) *int64 {
	if s == nil || s.ID == 0 {
		return nil
	}
	id := s.ID
	return &id
}

// Package sqlite stores leads in a single SQLite file using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/store"
)

// Store is a SQLite-backed store.Backend.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Backend = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v >= 1 {
		return tx.Commit()
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS staff (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL COLLATE NOCASE UNIQUE,
  created_at DATETIME NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS leads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL DEFAULT '',
  phone_number TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  point_of_contact TEXT NOT NULL DEFAULT '',
  prospect_response TEXT NOT NULL DEFAULT '',
  remarks TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'new',
  color_code TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  assigned_to_id INTEGER REFERENCES staff(id) ON DELETE SET NULL,
  created_by_id INTEGER REFERENCES staff(id) ON DELETE SET NULL,
  import_id TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_leads_updated_at ON leads(updated_at);`,
		`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);`,
		`CREATE INDEX IF NOT EXISTS idx_leads_assigned_to ON leads(assigned_to_id);`,
		`PRAGMA user_version = 1;`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return tx.Commit()
}

// Save inserts l when its ID is zero and updates it otherwise.
func (s *Store) Save(ctx context.Context, l *core.Lead) error {
	now := s.now()

	if l.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
INSERT INTO leads (
  first_name, last_name, phone_number, email, point_of_contact,
  prospect_response, remarks, status, color_code, source,
  assigned_to_id, created_by_id, import_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			l.FirstName, l.LastName, l.PhoneNumber, l.Email, l.PointOfContact,
			l.ProspectResponse, l.Remarks, string(l.Status), string(l.ColorCode), l.Source,
			store.StaffID(l.AssignedTo), store.StaffID(l.CreatedBy), l.ImportID, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		l.ID, l.CreatedAt, l.UpdatedAt = id, now, now
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE leads SET
  first_name = ?, last_name = ?, phone_number = ?, email = ?, point_of_contact = ?,
  prospect_response = ?, remarks = ?, status = ?, color_code = ?, source = ?,
  assigned_to_id = ?, updated_at = ?
WHERE id = ?;`,
		l.FirstName, l.LastName, l.PhoneNumber, l.Email, l.PointOfContact,
		l.ProspectResponse, l.Remarks, string(l.Status), string(l.ColorCode), l.Source,
		store.StaffID(l.AssignedTo), now, l.ID,
	)
	if err != nil {
		return fmt.Errorf("update lead %d: %w", l.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update lead %d: %w", l.ID, core.ErrLeadNotFound)
	}
	l.UpdatedAt = now
	return nil
}

// Get returns one lead.
func (s *Store) Get(ctx context.Context, id int64) (*core.Lead, error) {
	row := s.db.QueryRowContext(ctx, store.LeadSelect+` WHERE l.id = ?`, id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get lead %d: %w", id, core.ErrLeadNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get lead %d: %w", id, err)
	}
	return l, nil
}

// Query returns leads matching f, most recently updated first.
func (s *Store) Query(ctx context.Context, f core.LeadFilter) ([]core.Lead, error) {
	where, args := store.LeadWhere(store.Question, f)

	rows, err := s.db.QueryContext(ctx, store.LeadSelect+where+store.LeadOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var out []core.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// Delete removes a lead.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete lead %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete lead %d: %w", id, core.ErrLeadNotFound)
	}
	return nil
}

// CountByStatus counts leads per status.
func (s *Store) CountByStatus(ctx context.Context) (map[core.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[core.Status(status)] = n
	}
	return counts, rows.Err()
}

// FindByUsername looks a staff member up ignoring case.
func (s *Store) FindByUsername(ctx context.Context, username string) (*core.Staff, error) {
	var st core.Staff
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username FROM staff WHERE username = ? COLLATE NOCASE;`, username,
	).Scan(&st.ID, &st.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find %q: %w", username, core.ErrStaffNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", username, err)
	}
	return &st, nil
}

// CreateStaff adds a staff member.
func (s *Store) CreateStaff(ctx context.Context, username string) (*core.Staff, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO staff (username, created_at) VALUES (?, ?);`, username, s.now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("create %q: %w", username, store.ErrStaffExists)
		}
		return nil, fmt.Errorf("create %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &core.Staff{ID: id, Username: username}, nil
}

// ListStaff returns all staff ordered by username.
func (s *Store) ListStaff(ctx context.Context) ([]core.Staff, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username FROM staff ORDER BY username;`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []core.Staff
	for rows.Next() {
		var st core.Staff
		if err := rows.Scan(&st.ID, &st.Username); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(sc scanner) (*core.Lead, error) {
	var (
		l                    core.Lead
		status, color        string
		assignedID, createID sql.NullInt64
		assignedBy, createBy sql.NullString
	)
	err := sc.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.PhoneNumber, &l.Email,
		&l.PointOfContact, &l.ProspectResponse, &l.Remarks, &status, &color,
		&l.Source, &l.ImportID, &l.CreatedAt, &l.UpdatedAt,
		&assignedID, &assignedBy, &createID, &createBy,
	)
	if err != nil {
		return nil, err
	}
	l.Status = core.Status(status)
	l.ColorCode = core.ColorCode(color)
	l.AssignedTo = staffRef(assignedID, assignedBy)
	l.CreatedBy = staffRef(createID, createBy)
	return &l, nil
}

func staffRef(id sql.NullInt64, username sql.NullString) *core.Staff {
	if !id.Valid {
		return nil
	}
	return &core.Staff{ID: id.Int64, Username: username.String}
}

// Package postgres stores leads in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/store"
)

// uniqueViolation is the SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store is a PostgreSQL-backed store.Backend.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*Store)(nil)

// Open connects to url, verifies the connection and applies the schema.
func Open(ctx context.Context, url string, opts PoolOptions) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool. The schema is assumed to exist.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS staff (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(150) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS staff_username_lower_idx ON staff (LOWER(username));

CREATE TABLE IF NOT EXISTS leads (
    id BIGSERIAL PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL DEFAULT '',
    phone_number VARCHAR(50) NOT NULL DEFAULT '',
    email VARCHAR(254) NOT NULL DEFAULT '',
    point_of_contact VARCHAR(200) NOT NULL DEFAULT '',
    prospect_response TEXT NOT NULL DEFAULT '',
    remarks TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'new',
    color_code VARCHAR(20) NOT NULL DEFAULT '',
    source VARCHAR(100) NOT NULL DEFAULT '',
    assigned_to_id BIGINT REFERENCES staff(id) ON DELETE SET NULL,
    created_by_id BIGINT REFERENCES staff(id) ON DELETE SET NULL,
    import_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS leads_updated_at_idx ON leads (updated_at DESC);
CREATE INDEX IF NOT EXISTS leads_status_idx ON leads (status);
CREATE INDEX IF NOT EXISTS leads_assigned_to_idx ON leads (assigned_to_id);
`

// Migrate creates tables and indexes that do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Save inserts l when its ID is zero and updates it otherwise.
func (s *Store) Save(ctx context.Context, l *core.Lead) error {
	if l.ID == 0 {
		err := s.pool.QueryRow(ctx, `
			INSERT INTO leads (
				first_name, last_name, phone_number, email, point_of_contact,
				prospect_response, remarks, status, color_code, source,
				assigned_to_id, created_by_id, import_id
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING id, created_at, updated_at`,
			l.FirstName, l.LastName, l.PhoneNumber, l.Email, l.PointOfContact,
			l.ProspectResponse, l.Remarks, string(l.Status), string(l.ColorCode), l.Source,
			store.StaffID(l.AssignedTo), store.StaffID(l.CreatedBy), l.ImportID,
		).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		return nil
	}

	err := s.pool.QueryRow(ctx, `
		UPDATE leads SET
			first_name = $1, last_name = $2, phone_number = $3, email = $4,
			point_of_contact = $5, prospect_response = $6, remarks = $7,
			status = $8, color_code = $9, source = $10, assigned_to_id = $11,
			updated_at = now()
		WHERE id = $12
		RETURNING updated_at`,
		l.FirstName, l.LastName, l.PhoneNumber, l.Email,
		l.PointOfContact, l.ProspectResponse, l.Remarks,
		string(l.Status), string(l.ColorCode), l.Source, store.StaffID(l.AssignedTo),
		l.ID,
	).Scan(&l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update lead %d: %w", l.ID, core.ErrLeadNotFound)
	}
	if err != nil {
		return fmt.Errorf("update lead %d: %w", l.ID, err)
	}
	return nil
}

// Get returns one lead.
func (s *Store) Get(ctx context.Context, id int64) (*core.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx, store.LeadSelect+` WHERE l.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get lead %d: %w", id, core.ErrLeadNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get lead %d: %w", id, err)
	}
	return l, nil
}

// Query returns leads matching f, most recently updated first.
func (s *Store) Query(ctx context.Context, f core.LeadFilter) ([]core.Lead, error) {
	where, args := store.LeadWhere(store.Dollar, f)

	rows, err := s.pool.Query(ctx, store.LeadSelect+where+store.LeadOrder, args...)
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
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete lead %d: %w", id, core.ErrLeadNotFound)
	}
	return nil
}

// CountByStatus counts leads per status.
func (s *Store) CountByStatus(ctx context.Context) (map[core.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.Status]int)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[core.Status(status)] = int(n)
	}
	return counts, rows.Err()
}

// FindByUsername looks a staff member up ignoring case.
func (s *Store) FindByUsername(ctx context.Context, username string) (*core.Staff, error) {
	var st core.Staff
	err := s.pool.QueryRow(ctx,
		`SELECT id, username FROM staff WHERE LOWER(username) = LOWER($1)`, username,
	).Scan(&st.ID, &st.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find %q: %w", username, core.ErrStaffNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", username, err)
	}
	return &st, nil
}

// CreateStaff adds a staff member.
func (s *Store) CreateStaff(ctx context.Context, username string) (*core.Staff, error) {
	st := core.Staff{Username: username}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO staff (username) VALUES ($1) RETURNING id`, username,
	).Scan(&st.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("create %q: %w", username, store.ErrStaffExists)
		}
		return nil, fmt.Errorf("create %q: %w", username, err)
	}
	return &st, nil
}

// ListStaff returns all staff ordered by username.
func (s *Store) ListStaff(ctx context.Context) ([]core.Staff, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, username FROM staff ORDER BY username`)
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

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanLead(row pgx.Row) (*core.Lead, error) {
	var (
		l                    core.Lead
		status, color        string
		assignedID, createID *int64
		assignedBy, createBy *string
	)
	err := row.Scan(
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
	l.AssignedTo = store.StaffRef(assignedID, assignedBy)
	l.CreatedBy = store.StaffRef(createID, createBy)
	return &l, nil
}

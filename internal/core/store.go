package core

import (
	"context"
	"errors"
)

var (
	// ErrLeadNotFound is returned by a LeadStore when no lead has the given ID.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrStaffNotFound is returned by a StaffDirectory for unknown usernames.
	ErrStaffNotFound = errors.New("staff member not found")
)

// LeadFilter narrows a lead query. Zero values mean "no filter".
type LeadFilter struct {
	// Search is a case-insensitive substring matched against first name,
	// last name, phone number, email, remarks and point of contact.
	Search  string
	Status  Status
	Color   ColorCode
	StaffID int64
}

// LeadStore persists leads. Implementations live under internal/store.
//
// Save inserts when l.ID is zero and updates otherwise; it sets ID,
// CreatedAt and UpdatedAt on the passed lead.
type LeadStore interface {
	Save(ctx context.Context, l *Lead) error
	Get(ctx context.Context, id int64) (*Lead, error)
	Query(ctx context.Context, f LeadFilter) ([]Lead, error)
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// StaffDirectory resolves staff members by username, ignoring case.
type StaffDirectory interface {
	FindByUsername(ctx context.Context, username string) (*Staff, error)
}

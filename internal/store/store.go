// Package store defines the storage backend contract and the SQL helpers
// shared by the concrete backends in its subpackages:
//
//	store/memory    in-process maps, for tests and throwaway runs
//	store/sqlite    single-file SQLite through modernc.org/sqlite
//	store/postgres  PostgreSQL through pgxpool
package store

import (
	"context"
	"errors"

	"github.com/JonMunkholm/leads/internal/core"
)

// ErrStaffExists is returned by CreateStaff when the username is taken,
// compared case-insensitively.
var ErrStaffExists = errors.New("staff member already exists")

// StaffManager administers the staff directory.
type StaffManager interface {
	CreateStaff(ctx context.Context, username string) (*core.Staff, error)
	ListStaff(ctx context.Context) ([]core.Staff, error)
}

// Backend is everything the application needs from a storage engine.
type Backend interface {
	core.LeadStore
	core.StaffDirectory
	StaffManager

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Package admin provides administrative operations on the staff directory.
package admin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/store"
)

// Timeout bounds each administrative operation.
const Timeout = 30 * time.Second

// MaxUsernameLen is the longest accepted username.
const MaxUsernameLen = 150

// ErrInvalidUsername rejects usernames that are empty, too long or contain
// characters other than letters, digits and . @ + - _
var ErrInvalidUsername = errors.New("invalid username")

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Staff manages staff members.
type Staff struct {
	Store store.StaffManager
}

// Add creates a staff member after checking the username.
func (s *Staff) Add(ctx context.Context, username string) (*core.Staff, error) {
	username = strings.TrimSpace(username)
	if err := CheckUsername(username); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	st, err := s.Store.CreateStaff(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("add staff: %w", err)
	}
	return st, nil
}

// List returns every staff member ordered by username.
func (s *Staff) List(ctx context.Context) ([]core.Staff, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	return s.Store.ListStaff(ctx)
}

// CheckUsername validates a username without touching the store.
func CheckUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: empty", ErrInvalidUsername)
	case len([]rune(username)) > MaxUsernameLen:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidUsername, MaxUsernameLen)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("%w: %q may only contain letters, digits and . @ + - _", ErrInvalidUsername, username)
	}
	return nil
}

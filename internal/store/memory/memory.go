// Package memory is an in-process store backend. Data lives only as long as
// the Store value.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/store"
)

// Store keeps leads and staff in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	leads    map[int64]core.Lead
	staff    map[int64]core.Staff
	leadSeq  int64
	staffSeq int64
	now      func() time.Time
}

var _ store.Backend = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		leads: make(map[int64]core.Lead),
		staff: make(map[int64]core.Staff),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Save inserts or updates l and fills in its ID and timestamps.
func (s *Store) Save(ctx context.Context, l *core.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ref := range []*core.Staff{l.AssignedTo, l.CreatedBy} {
		if ref != nil {
			if _, ok := s.staff[ref.ID]; !ok {
				return fmt.Errorf("save lead: violates foreign key constraint: staff %d", ref.ID)
			}
		}
	}

	now := s.now()
	if l.ID == 0 {
		s.leadSeq++
		l.ID = s.leadSeq
		l.CreatedAt = now
	} else {
		existing, ok := s.leads[l.ID]
		if !ok {
			return fmt.Errorf("save lead %d: %w", l.ID, core.ErrLeadNotFound)
		}
		l.CreatedAt = existing.CreatedAt
	}
	l.UpdatedAt = now

	s.leads[l.ID] = cloneLead(*l)
	return nil
}

// Get returns the lead with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (*core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, fmt.Errorf("get lead %d: %w", id, core.ErrLeadNotFound)
	}
	out := s.resolve(l)
	return &out, nil
}

// Query returns matching leads, most recently updated first.
func (s *Store) Query(ctx context.Context, f core.LeadFilter) ([]core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]core.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if !matches(l, f, search) {
			continue
		}
		out = append(out, s.resolve(l))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func matches(l core.Lead, f core.LeadFilter, search string) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Color != "" && l.ColorCode != f.Color {
		return false
	}
	if f.StaffID != 0 && (l.AssignedTo == nil || l.AssignedTo.ID != f.StaffID) {
		return false
	}
	if search == "" {
		return true
	}
	for _, v := range []string{l.FirstName, l.LastName, l.PhoneNumber, l.Email, l.Remarks, l.PointOfContact} {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

// Delete removes a lead.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[id]; !ok {
		return fmt.Errorf("delete lead %d: %w", id, core.ErrLeadNotFound)
	}
	delete(s.leads, id)
	return nil
}

// CountByStatus counts leads per status.
func (s *Store) CountByStatus(ctx context.Context) (map[core.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[core.Status]int)
	for _, l := range s.leads {
		counts[l.Status]++
	}
	return counts, nil
}

// FindByUsername looks a staff member up ignoring case.
func (s *Store) FindByUsername(ctx context.Context, username string) (*core.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.staff {
		if strings.EqualFold(st.Username, username) {
			found := st
			return &found, nil
		}
	}
	return nil, fmt.Errorf("find %q: %w", username, core.ErrStaffNotFound)
}

// CreateStaff adds a staff member.
func (s *Store) CreateStaff(ctx context.Context, username string) (*core.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.staff {
		if strings.EqualFold(st.Username, username) {
			return nil, fmt.Errorf("create %q: %w", username, store.ErrStaffExists)
		}
	}
	s.staffSeq++
	st := core.Staff{ID: s.staffSeq, Username: username}
	s.staff[st.ID] = st
	return &st, nil
}

// ListStaff returns all staff ordered by username.
func (s *Store) ListStaff(ctx context.Context) ([]core.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Staff, 0, len(s.staff))
	for _, st := range s.staff {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Snapshot returns every lead ordered by ID.
func (s *Store) Snapshot() []core.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, s.resolve(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// resolve refreshes staff references so renamed or removed staff show up
// the way a join would.
func (s *Store) resolve(l core.Lead) core.Lead {
	l.AssignedTo = s.staffRef(l.AssignedTo)
	l.CreatedBy = s.staffRef(l.CreatedBy)
	return l
}

func (s *Store) staffRef(ref *core.Staff) *core.Staff {
	if ref == nil {
		return nil
	}
	st, ok := s.staff[ref.ID]
	if !ok {
		return nil
	}
	return &st
}

func cloneLead(l core.Lead) core.Lead {
	if l.AssignedTo != nil {
		a := *l.AssignedTo
		l.AssignedTo = &a
	}
	if l.CreatedBy != nil {
		c := *l.CreatedBy
		l.CreatedBy = &c
	}
	return l
}

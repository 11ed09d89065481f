package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeLeads is an in-package LeadStore. saveHook, when set, runs before
// each save and may fail it.
type fakeLeads struct {
	mu       sync.Mutex
	leads    []Lead
	seq      int64
	saveHook func(l *Lead) error
}

func (f *fakeLeads) Save(ctx context.Context, l *Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.saveHook != nil {
		if err := f.saveHook(l); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	l.UpdatedAt = now
	if l.ID == 0 {
		f.seq++
		l.ID = f.seq
		l.CreatedAt = now
		f.leads = append(f.leads, *l)
		return nil
	}
	for i := range f.leads {
		if f.leads[i].ID == l.ID {
			f.leads[i] = *l
			return nil
		}
	}
	return fmt.Errorf("save lead %d: %w", l.ID, ErrLeadNotFound)
}

func (f *fakeLeads) Get(_ context.Context, id int64) (*Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, ErrLeadNotFound
}

func (f *fakeLeads) Query(_ context.Context, filter LeadFilter) ([]Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Lead
	for _, l := range f.leads {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(l.FirstName), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeLeads) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.leads {
		if l.ID == id {
			f.leads = append(f.leads[:i], f.leads[i+1:]...)
			return nil
		}
	}
	return ErrLeadNotFound
}

func (f *fakeLeads) CountByStatus(context.Context) (map[Status]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[Status]int)
	for _, l := range f.leads {
		counts[l.Status]++
	}
	return counts, nil
}

func (f *fakeLeads) all() []Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Lead(nil), f.leads...)
}

// fakeStaff resolves usernames case-insensitively. err, when set, is
// returned for every lookup.
type fakeStaff struct {
	byName map[string]*Staff
	err    error
}

func newFakeStaff(names ...string) *fakeStaff {
	fs := &fakeStaff{byName: make(map[string]*Staff)}
	for i, n := range names {
		fs.byName[strings.ToLower(n)] = &Staff{ID: int64(i + 1), Username: n}
	}
	return fs
}

func (f *fakeStaff) FindByUsername(_ context.Context, username string) (*Staff, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.byName[strings.ToLower(strings.TrimSpace(username))]; ok {
		return s, nil
	}
	return nil, ErrStaffNotFound
}

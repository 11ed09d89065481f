// Package storetest holds behaviour tests every store.Backend must pass.
package storetest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/store"
)

// Run exercises a fresh backend from open for each subtest.
func Run(t *testing.T, open func(t *testing.T) store.Backend) {
	tests := []struct {
		name string
		fn   func(t *testing.T, b store.Backend)
	}{
		{"SaveAndGet", testSaveAndGet},
		{"Update", testUpdate},
		{"NotFound", testNotFound},
		{"QueryFilters", testQueryFilters},
		{"QueryOrder", testQueryOrder},
		{"CountByStatus", testCountByStatus},
		{"Staff", testStaff},
		{"UnknownStaffReference", testUnknownStaffReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := open(t)
			t.Cleanup(func() { _ = b.Close() })
			tt.fn(t, b)
		})
	}
}

func save(t *testing.T, b store.Backend, l core.Lead) core.Lead {
	t.Helper()
	if l.Status == "" {
		l.Status = core.StatusNew
	}
	require.NoError(t, b.Save(context.Background(), &l))
	require.NotZero(t, l.ID)
	return l
}

func firstNames(leads []core.Lead) []string {
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.FirstName
	}
	return out
}

func testSaveAndGet(t *testing.T, b store.Backend) {
	ctx := context.Background()
	ada, err := b.CreateStaff(ctx, "ada")
	require.NoError(t, err)

	saved := save(t, b, core.Lead{
		FirstName:        "Jane",
		LastName:         "Doe",
		PhoneNumber:      "+234 800",
		Email:            "jane@example.com",
		PointOfContact:   "Website",
		ProspectResponse: "Interested",
		Remarks:          "call back",
		Status:           core.StatusQualified,
		ColorCode:        core.ColorGreen,
		Source:           "Referral",
		AssignedTo:       ada,
		CreatedBy:        ada,
		ImportID:         "imp-1",
	})
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := b.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "+234 800", got.PhoneNumber)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, "Website", got.PointOfContact)
	assert.Equal(t, "Interested", got.ProspectResponse)
	assert.Equal(t, "call back", got.Remarks)
	assert.Equal(t, core.StatusQualified, got.Status)
	assert.Equal(t, core.ColorGreen, got.ColorCode)
	assert.Equal(t, "Referral", got.Source)
	assert.Equal(t, "imp-1", got.ImportID)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "ada", got.AssignedTo.Username)
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, ada.ID, got.CreatedBy.ID)
}

func testUpdate(t *testing.T, b store.Backend) {
	ctx := context.Background()
	l := save(t, b, core.Lead{FirstName: "Old"})

	l.FirstName = "New"
	l.Status = core.StatusLost
	require.NoError(t, b.Save(ctx, &l))

	got, err := b.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.FirstName)
	assert.Equal(t, core.StatusLost, got.Status)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func testNotFound(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, err := b.Get(ctx, 999)
	assert.True(t, errors.Is(err, core.ErrLeadNotFound), "Get: %v", err)

	err = b.Delete(ctx, 999)
	assert.True(t, errors.Is(err, core.ErrLeadNotFound), "Delete: %v", err)

	err = b.Save(ctx, &core.Lead{ID: 999, FirstName: "Ghost", Status: core.StatusNew})
	assert.True(t, errors.Is(err, core.ErrLeadNotFound), "Save: %v", err)

	_, err = b.FindByUsername(ctx, "nobody")
	assert.True(t, errors.Is(err, core.ErrStaffNotFound), "FindByUsername: %v", err)
}

func testQueryFilters(t *testing.T, b store.Backend) {
	ctx := context.Background()
	ada, err := b.CreateStaff(ctx, "ada")
	require.NoError(t, err)

	save(t, b, core.Lead{FirstName: "Alice", Email: "ALICE@corp.test", Status: core.StatusWon})
	save(t, b, core.Lead{FirstName: "Bob", PointOfContact: "met alice", AssignedTo: ada})
	save(t, b, core.Lead{FirstName: "Carol", PhoneNumber: "0803 50%", ColorCode: core.ColorRed})
	save(t, b, core.Lead{FirstName: "Dan", ProspectResponse: "alice"})

	tests := []struct {
		name   string
		filter core.LeadFilter
		want   []string
	}{
		{"search is case-insensitive across fields", core.LeadFilter{Search: "Alice"}, []string{"Alice", "Bob"}},
		{"percent is literal", core.LeadFilter{Search: "50%"}, []string{"Carol"}},
		{"underscore is literal", core.LeadFilter{Search: "_"}, []string{}},
		{"status", core.LeadFilter{Status: core.StatusWon}, []string{"Alice"}},
		{"color", core.LeadFilter{Color: core.ColorRed}, []string{"Carol"}},
		{"staff", core.LeadFilter{StaffID: ada.ID}, []string{"Bob"}},
		{"combined", core.LeadFilter{Search: "alice", StaffID: ada.ID}, []string{"Bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, firstNames(got))
		})
	}
}

func testQueryOrder(t *testing.T, b store.Backend) {
	ctx := context.Background()
	first := save(t, b, core.Lead{FirstName: "First"})
	save(t, b, core.Lead{FirstName: "Second"})

	// Touch the older lead so it becomes the most recently updated.
	time.Sleep(10 * time.Millisecond)
	first.Remarks = "touched"
	require.NoError(t, b.Save(ctx, &first))

	got, err := b.Query(ctx, core.LeadFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second"}, firstNames(got))
}

func testCountByStatus(t *testing.T, b store.Backend) {
	ctx := context.Background()
	save(t, b, core.Lead{FirstName: "A", Status: core.StatusWon})
	save(t, b, core.Lead{FirstName: "B", Status: core.StatusWon})
	l := save(t, b, core.Lead{FirstName: "C"})
	require.NoError(t, b.Delete(ctx, l.ID))

	counts, err := b.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[core.Status]int{core.StatusWon: 2}, counts)
}

func testStaff(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, err := b.CreateStaff(ctx, "grace")
	require.NoError(t, err)
	_, err = b.CreateStaff(ctx, "ada")
	require.NoError(t, err)

	_, err = b.CreateStaff(ctx, "GRACE")
	assert.True(t, errors.Is(err, store.ErrStaffExists), "duplicate: %v", err)

	found, err := b.FindByUsername(ctx, "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", found.Username)

	list, err := b.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ada", list[0].Username)
	assert.Equal(t, "grace", list[1].Username)

	assert.NoError(t, b.Ping(ctx))
}

func testUnknownStaffReference(t *testing.T, b store.Backend) {
	err := b.Save(context.Background(), &core.Lead{
		FirstName:  "Orphan",
		Status:     core.StatusNew,
		AssignedTo: &core.Staff{ID: 4242, Username: "gone"},
	})
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "foreign key constraint")
}

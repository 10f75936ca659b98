package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	hire := time.Date(2022, time.March, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveProfile(ctx, leave.Profile{EmployeeID: "emp-1", Name: "Mei", HireDate: &hire}))
	require.NoError(t, s.SaveProfile(ctx, leave.Profile{EmployeeID: "emp-2", Name: "No Hire Date"}))

	p, err := s.GetProfile(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.HireDate)
	assert.True(t, hire.Equal(*p.HireDate))

	p, err = s.GetProfile(ctx, "emp-2")
	require.NoError(t, err)
	assert.Nil(t, p.HireDate)

	p, err = s.GetProfile(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, p)

	all, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_CategoryCap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveCategory(ctx, leave.Category{ID: "sick", Name: "Sick Leave", TotalHoursCap: leave.CapPtr(40)}))
	require.NoError(t, s.SaveCategory(ctx, leave.Category{ID: "annual", Name: "Annual Leave"}))

	c, err := s.GetCategory(ctx, "sick")
	require.NoError(t, err)
	require.NotNil(t, c.TotalHoursCap)
	assert.Equal(t, "40", c.TotalHoursCap.String())

	c, err = s.GetCategory(ctx, "annual")
	require.NoError(t, err)
	assert.Nil(t, c.TotalHoursCap)

	c, err = s.GetCategory(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestStore_SumHours(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveCategory(ctx, leave.Category{ID: "a", Name: "  Annual Leave "}))
	require.NoError(t, s.SaveCategory(ctx, leave.Category{ID: "s", Name: "Sick Leave"}))

	june := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	reqs := []leave.Request{
		{ID: "1", EmployeeID: "e", CategoryID: "a", StartTime: june, EndTime: june, RequestedHours: 8, Status: leave.StatusPending},
		{ID: "2", EmployeeID: "e", CategoryID: "a", StartTime: june, EndTime: june, RequestedHours: 4, Status: leave.StatusManagerRejected},
		{ID: "3", EmployeeID: "e", CategoryID: "s", StartTime: june, EndTime: june, RequestedHours: 2, Status: leave.StatusHrApproved},
		{ID: "4", EmployeeID: "e", CategoryID: "deleted", StartTime: june, EndTime: june, RequestedHours: 1, Status: leave.StatusHrApproved},
		{ID: "5", EmployeeID: "x", CategoryID: "a", StartTime: june, EndTime: june, RequestedHours: 16, Status: leave.StatusPending},
	}
	for _, r := range reqs {
		require.NoError(t, s.SaveRequest(ctx, r))
	}

	sum := func(q leave.HoursQuery) string {
		got, err := s.SumHours(ctx, q)
		require.NoError(t, err)
		return got.String()
	}

	assert.Equal(t, "8", sum(leave.HoursQuery{EmployeeID: "e", CategoryName: "annual leave", Statuses: leave.ConsumedStatuses}))
	assert.Equal(t, "11", sum(leave.HoursQuery{EmployeeID: "e", Statuses: leave.ConsumedStatuses}))
	assert.Equal(t, "3", sum(leave.HoursQuery{EmployeeID: "e", Statuses: leave.ApprovedStatuses}))
	assert.Equal(t, "0", sum(leave.HoursQuery{EmployeeID: "e"}))
	assert.Equal(t, "0", sum(leave.HoursQuery{EmployeeID: "e", CategoryID: "a", Statuses: leave.ConsumedStatuses, ExcludeID: "1"}))

	june1 := leave.MonthWindow(june)
	july := leave.MonthWindow(june.AddDate(0, 1, 0))
	assert.Equal(t, "11", sum(leave.HoursQuery{EmployeeID: "e", Statuses: leave.ConsumedStatuses, Window: &june1}))
	assert.Equal(t, "0", sum(leave.HoursQuery{EmployeeID: "e", Statuses: leave.ConsumedStatuses, Window: &july}))
}

func TestStore_SumHours_WindowAcrossZones(t *testing.T) {
	// GIVEN: A request starting 2025-07-01 01:00 in UTC+2, i.e. June 30 in UTC
	ctx := context.Background()
	s := newTestStore(t)
	zone := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2025, time.July, 1, 1, 0, 0, 0, zone)
	require.NoError(t, s.SaveRequest(ctx, leave.Request{
		ID: "1", EmployeeID: "e", CategoryID: "s", StartTime: start, EndTime: start,
		RequestedHours: 8, Status: leave.StatusPending,
	}))

	// WHEN: Asking for July in the same zone
	july := leave.MonthWindow(time.Date(2025, time.July, 15, 0, 0, 0, 0, zone))
	got, err := s.SumHours(ctx, leave.HoursQuery{EmployeeID: "e", Statuses: leave.PendingStatuses, Window: &july})

	// THEN: The request falls in July
	require.NoError(t, err)
	assert.Equal(t, "8", got.String())
}

func TestStore_UpdateRequestStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRequest(ctx, leave.Request{
		ID: "1", EmployeeID: "e", CategoryID: "s", StartTime: at, EndTime: at, RequestedHours: 8,
	}))

	require.NoError(t, s.UpdateRequestStatus(ctx, "1", leave.StatusPending, leave.StatusManagerApproved, "mgr", "fine"))

	r, err := s.GetRequest(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusManagerApproved, r.Status)
	assert.Equal(t, "mgr", r.DecidedBy)
	assert.Equal(t, "fine", r.DecisionReason)

	// Stale from-status loses the race.
	err = s.UpdateRequestStatus(ctx, "1", leave.StatusPending, leave.StatusManagerRejected, "mgr", "")
	var trErr *leave.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, leave.StatusManagerApproved, trErr.From)

	err = s.UpdateRequestStatus(ctx, "nope", leave.StatusPending, leave.StatusManagerApproved, "mgr", "")
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestStore_ListRequestsAndReset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRequest(ctx, leave.Request{ID: "b", EmployeeID: "e", StartTime: base.AddDate(0, 0, 2), EndTime: base, RequestedHours: 1}))
	require.NoError(t, s.SaveRequest(ctx, leave.Request{ID: "a", EmployeeID: "e", StartTime: base, EndTime: base, RequestedHours: 1}))
	require.NoError(t, s.SaveRequest(ctx, leave.Request{ID: "c", EmployeeID: "other", StartTime: base, EndTime: base, RequestedHours: 1}))

	list, err := s.ListRequests(ctx, "e")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, leave.RequestID("a"), list[0].ID)

	require.NoError(t, s.Reset(ctx))
	list, err = s.ListRequests(ctx, "e")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_SaveCategory_RejectsDuplicateNormalizedName(t *testing.T) {
	// GIVEN: An "Annual Leave" category
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveCategory(ctx, leave.Category{ID: "a1", Name: "Annual Leave"}))

	// WHEN: Saving another category whose name only differs by case and padding
	err := s.SaveCategory(ctx, leave.Category{ID: "a2", Name: "  annual LEAVE "})

	// THEN: It is rejected and only one annual category exists
	assert.ErrorIs(t, err, leave.ErrDuplicateName)

	all, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Updating the existing category keeps working
	require.NoError(t, s.SaveCategory(ctx, leave.Category{ID: "a1", Name: "ANNUAL LEAVE", TotalHoursCap: leave.CapPtr(80)}))
}

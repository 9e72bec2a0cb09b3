package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
)

type dashComplaintStub struct {
	complaints []models.Complaint
	stats      models.ComplaintStats
	statsCalls int
}

func (d *dashComplaintStub) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	if filter.ForwardedToDepartment != "" {
		var out []models.Complaint
		for _, c := range d.complaints {
			if c.ForwardedToDepartment != nil && *c.ForwardedToDepartment == filter.ForwardedToDepartment {
				out = append(out, c)
			}
		}
		return out, nil
	}
	return d.complaints, nil
}

func (d *dashComplaintStub) Stats(ctx context.Context, filter models.ComplaintFilter) (*models.ComplaintStats, error) {
	d.statsCalls++
	stats := d.stats
	return &stats, nil
}

type dashAssignmentStub struct {
	assignments []models.Assignment
}

func (d *dashAssignmentStub) ListByDM(ctx context.Context, dmID string) ([]models.Assignment, error) {
	return d.assignments, nil
}

type dashUserStub struct {
	total int
}

func (d *dashUserStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, d.total, nil
}

func newDashboardServiceForTest(t *testing.T) (*DashboardService, *dashComplaintStub) {
	t.Helper()
	deptID := "dept-1"
	complaints := &dashComplaintStub{
		complaints: []models.Complaint{
			{ID: "c-1", TrackingID: "SJD/2026/CMP000001", Title: "Water supply", District: "Raipur", Status: models.StatusPending, CreatedAt: time.Now()},
			{ID: "c-2", TrackingID: "SJD/2026/CMP000002", Title: "Road damage", District: "Raipur", Status: models.StatusInProgress, CreatedAt: time.Now()},
			{ID: "c-3", TrackingID: "SJD/2026/CMP000003", Title: "Pension delay", District: "Bilaspur", Status: models.StatusResolved, CreatedAt: time.Now()},
			{ID: "c-4", TrackingID: "SJD/2026/CMP000004", Title: "Ration card", District: "Bilaspur", Status: models.StatusForwarded, ForwardedToDepartment: &deptID, CreatedAt: time.Now()},
		},
		stats: models.ComplaintStats{Total: 4, Pending: 1, InProgress: 1, Resolved: 1, Forwarded: 1},
	}
	assignments := &dashAssignmentStub{
		assignments: []models.Assignment{
			{ID: "a-1", Status: models.AssignmentAssigned},
			{ID: "a-2", Status: models.AssignmentAccepted},
			{ID: "a-3", Status: models.AssignmentCompleted},
			{ID: "a-4", Status: models.AssignmentCompleted},
		},
	}
	svc := NewDashboardService(complaints, assignments, &dashUserStub{total: 42}, nil, zap.NewNop(), DashboardServiceConfig{})
	return svc, complaints
}

func TestDashboardServiceOverview(t *testing.T) {
	svc, _ := newDashboardServiceForTest(t)

	overview, cached, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 4, overview.Complaints.Total)
	assert.Equal(t, 42, overview.TotalAccounts)
	require.Len(t, overview.Recent, 4)
	assert.Equal(t, "SJD/2026/CMP000001", overview.Recent[0].TrackingID)

	// Resolved and rejected complaints do not count toward district load.
	require.Len(t, overview.Districts, 2)
	assert.Equal(t, "Raipur", overview.Districts[0].District)
	assert.Equal(t, 2, overview.Districts[0].Open)
	assert.Equal(t, 1, overview.Districts[1].Open)
}

func TestDashboardServiceDM(t *testing.T) {
	svc, _ := newDashboardServiceForTest(t)

	view, cached, err := svc.DM(context.Background(), &models.User{ID: "dm-1", Role: models.RoleDM})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 4, view.Assignments.Total)
	assert.Equal(t, 1, view.Assignments.Assigned)
	assert.Equal(t, 1, view.Assignments.Accepted)
	assert.Equal(t, 2, view.Assignments.Completed)
}

func TestDashboardServiceDepartment(t *testing.T) {
	svc, _ := newDashboardServiceForTest(t)

	view, cached, err := svc.Department(context.Background(), &models.User{ID: "dept-1", Role: models.RoleDepartment})
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, view.Recent, 1)
	assert.Equal(t, "SJD/2026/CMP000004", view.Recent[0].TrackingID)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	svc, complaints := newDashboardServiceForTest(t)

	_, _, err := svc.Overview(context.Background())
	require.NoError(t, err)
	_, _, err = svc.Overview(context.Background())
	require.NoError(t, err)
	// No cache wired, both calls hit the repositories.
	assert.Equal(t, 2, complaints.statsCalls)

	svc.Invalidate(context.Background())
}

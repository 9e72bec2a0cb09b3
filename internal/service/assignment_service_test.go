package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
)

type assignmentRepoStub struct {
	assignments map[string]*models.Assignment
	history     map[string][]models.AssignmentHistoryEntry
}

func newAssignmentRepoStub() *assignmentRepoStub {
	return &assignmentRepoStub{
		assignments: map[string]*models.Assignment{},
		history:     map[string][]models.AssignmentHistoryEntry{},
	}
}

func (r *assignmentRepoStub) Create(ctx context.Context, a *models.Assignment, initial *models.AssignmentHistoryEntry) error {
	if a.ID == "" {
		a.ID = fmt.Sprintf("a-%d", len(r.assignments)+1)
	}
	r.assignments[a.ID] = a
	r.history[a.ID] = append(r.history[a.ID], *initial)
	return nil
}

func (r *assignmentRepoStub) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (r *assignmentRepoStub) ListByOfficer(ctx context.Context, officerID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range r.assignments {
		if a.OfficerID == officerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *assignmentRepoStub) ListByDM(ctx context.Context, dmID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range r.assignments {
		if a.DMID == dmID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *assignmentRepoStub) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus, entry *models.AssignmentHistoryEntry) error {
	a, ok := r.assignments[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	r.history[id] = append(r.history[id], *entry)
	return nil
}

func (r *assignmentRepoStub) RecordVisitReport(ctx context.Context, id string, report models.VisitReport, entry *models.AssignmentHistoryEntry) error {
	a, ok := r.assignments[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = models.AssignmentCompleted
	r.history[id] = append(r.history[id], *entry)
	return nil
}

func (r *assignmentRepoStub) LoadHistory(ctx context.Context, a *models.Assignment) error {
	a.History = r.history[a.ID]
	return nil
}

func newAssignmentServiceForTest(t *testing.T) (*AssignmentService, *assignmentRepoStub, *complaintUsersStub) {
	t.Helper()
	repo := newAssignmentRepoStub()
	users := newComplaintUsersStub()
	svc := NewAssignmentService(repo, users, NopNotifier{}, nil, zap.NewNop())
	return svc, repo, users
}

func dmActor() *models.User {
	return &models.User{ID: "dm-1", Role: models.RoleDM, FirstName: "District", LastName: "Magistrate"}
}

func createRequest() models.CreateAssignmentRequest {
	return models.CreateAssignmentRequest{
		OfficerID: "officer-1",
		District:  "Raipur",
		VisitDate: time.Now().Add(48 * time.Hour),
		Notes:     "Inspect the hand pumps in ward 4",
	}
}

func TestAssignmentServiceCreate(t *testing.T) {
	svc, repo, users := newAssignmentServiceForTest(t)
	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleOfficer, District: "Raipur"}

	a, err := svc.Create(context.Background(), dmActor(), createRequest())
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentAssigned, a.Status)
	assert.Equal(t, models.PriorityMedium, a.Priority)
	assert.Equal(t, "dm-1", a.DMID)
	require.Len(t, a.History, 1)
	assert.Equal(t, "Assigned", a.History[0].Action)
	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionAssignmentCreated, users.audits[0].Action)
	assert.Contains(t, repo.assignments, a.ID)
}

func TestAssignmentServiceCreateRejectsNonOfficer(t *testing.T) {
	svc, _, users := newAssignmentServiceForTest(t)
	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleDepartment}

	_, err := svc.Create(context.Background(), dmActor(), createRequest())
	require.Error(t, err)

	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleOfficer, IsDeleted: true}
	_, err = svc.Create(context.Background(), dmActor(), createRequest())
	require.Error(t, err)

	req := createRequest()
	req.OfficerID = "missing"
	_, err = svc.Create(context.Background(), dmActor(), req)
	require.Error(t, err)
}

func TestAssignmentServiceCreateUnknownPriority(t *testing.T) {
	svc, _, users := newAssignmentServiceForTest(t)
	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleOfficer}

	req := createRequest()
	req.Priority = models.AssignmentPriority("Urgent")
	_, err := svc.Create(context.Background(), dmActor(), req)
	require.Error(t, err)
}

func TestAssignmentServiceUpdateStatusAnyOrder(t *testing.T) {
	svc, repo, users := newAssignmentServiceForTest(t)
	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleOfficer}
	a, err := svc.Create(context.Background(), dmActor(), createRequest())
	require.NoError(t, err)

	officer := &models.User{ID: "officer-1", Role: models.RoleOfficer}

	// History records moves as stated; Completed straight from Assigned is fine.
	updated, err := svc.UpdateStatus(context.Background(), officer, a.ID, models.UpdateAssignmentStatusRequest{
		Status: models.AssignmentCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, updated.Status)

	updated, err = svc.UpdateStatus(context.Background(), officer, a.ID, models.UpdateAssignmentStatusRequest{
		Status:  models.AssignmentAccepted,
		Remarks: "Reopening to schedule the visit",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentAccepted, updated.Status)
	require.Len(t, repo.history[a.ID], 3)
	assert.NotEmpty(t, repo.history[a.ID][2].Meta)
}

func TestAssignmentServiceUpdateStatusValidation(t *testing.T) {
	svc, _, users := newAssignmentServiceForTest(t)
	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleOfficer}
	a, err := svc.Create(context.Background(), dmActor(), createRequest())
	require.NoError(t, err)

	officer := &models.User{ID: "officer-1", Role: models.RoleOfficer}
	_, err = svc.UpdateStatus(context.Background(), officer, a.ID, models.UpdateAssignmentStatusRequest{Status: "Paused"})
	require.Error(t, err)

	_, err = svc.UpdateStatus(context.Background(), officer, "missing", models.UpdateAssignmentStatusRequest{Status: models.AssignmentAccepted})
	require.Error(t, err)
}

func TestAssignmentServiceVisibility(t *testing.T) {
	svc, _, users := newAssignmentServiceForTest(t)
	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleOfficer}
	a, err := svc.Create(context.Background(), dmActor(), createRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), &models.User{ID: "officer-1", Role: models.RoleOfficer}, a.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), &models.User{ID: "officer-2", Role: models.RoleOfficer}, a.ID)
	require.Error(t, err)

	_, err = svc.Get(context.Background(), &models.User{ID: "dm-2", Role: models.RoleDM}, a.ID)
	require.Error(t, err)

	_, err = svc.Get(context.Background(), &models.User{ID: "admin-1", Role: models.RoleAdmin}, a.ID)
	require.NoError(t, err)
}

func TestAssignmentServiceVisitReportCompletes(t *testing.T) {
	svc, _, users := newAssignmentServiceForTest(t)
	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleOfficer}
	a, err := svc.Create(context.Background(), dmActor(), createRequest())
	require.NoError(t, err)

	report := models.VisitReport{
		ActualVisitDate:      time.Now(),
		ComplaintsFound:      5,
		ComplaintsRegistered: 3,
		ComplaintsSolved:     2,
		Remarks:              "Two pumps repaired on the spot",
	}
	done, err := svc.RecordVisitReport(context.Background(), &models.User{ID: "officer-1", Role: models.RoleOfficer}, a.ID, report)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, done.Status)
	assert.Equal(t, 2, done.ComplaintsSolved)
	require.NotNil(t, done.ActualVisitDate)

	_, err = svc.RecordVisitReport(context.Background(), &models.User{ID: "officer-2", Role: models.RoleOfficer}, a.ID, report)
	require.Error(t, err)
}

func TestAssignmentServiceLists(t *testing.T) {
	svc, _, users := newAssignmentServiceForTest(t)
	users.users["officer-1"] = &models.User{ID: "officer-1", Role: models.RoleOfficer}
	_, err := svc.Create(context.Background(), dmActor(), createRequest())
	require.NoError(t, err)

	mine, err := svc.ListForOfficer(context.Background(), "officer-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	issued, err := svc.ListForDM(context.Background(), "dm-1")
	require.NoError(t, err)
	require.Len(t, issued, 1)

	none, err := svc.ListForOfficer(context.Background(), "officer-9")
	require.NoError(t, err)
	require.Empty(t, none)
}

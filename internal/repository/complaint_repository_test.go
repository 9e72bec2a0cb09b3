package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjd-portal/grievance-api/internal/models"
)

func complaintRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tracking_id", "serial_number", "source_type", "citizen_id", "citizen_name", "citizen_mobile",
		"filed_by", "title", "description", "category", "location", "village", "block", "tehsil", "district",
		"state", "pincode", "landmark", "attachments", "status", "managed_by", "assigned_to",
		"forwarded_to_officer", "forwarded_to_department", "forwarded_to_dm", "created_at", "updated_at",
	}).AddRow("c1", "SJD/2026/CMP000042", int64(42), string(models.SourcePublic), "u1", "Asha Verma", "9999900000",
		nil, "Water supply outage", "No supply for three days", "Water", "", "Amdi", "Dharsiwa", "Raipur", "Raipur",
		"Chhattisgarh", "492001", "", "{}", string(models.StatusPending), nil, nil, nil, nil, nil, now, now)
}

func TestCreateComplaintUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	pqErr := &pq.Error{Code: "23505", Constraint: "complaints_serial_number_key"}
	mock.ExpectExec("INSERT INTO complaints").WillReturnError(pqErr)

	err := repo.Create(context.Background(), &models.Complaint{
		TrackingID:   "SJD/2026/CMP000042",
		SerialNumber: 42,
		SourceType:   models.SourcePublic,
		Title:        "Water supply outage",
		Status:       models.StatusPending,
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByTrackingID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM complaints WHERE tracking_id = \$1 LIMIT 1`).
		WithArgs("SJD/2026/CMP000042").
		WillReturnRows(complaintRows(time.Now()))

	c, err := repo.GetByTrackingID(context.Background(), "SJD/2026/CMP000042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.SerialNumber)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListComplaintsScoped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM complaints WHERE district = \$1 ORDER BY created_at DESC LIMIT 50 OFFSET 0`).
		WithArgs("Raipur").
		WillReturnRows(complaintRows(time.Now()))

	complaints, err := repo.List(context.Background(), models.ComplaintFilter{District: "Raipur"})
	require.NoError(t, err)
	assert.Len(t, complaints, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListComplaintsByMobile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tracking_id", "serial_number", "source_type", "citizen_id", "citizen_name", "citizen_mobile",
		"filed_by", "title", "description", "category", "location", "village", "block", "tehsil", "district",
		"state", "pincode", "landmark", "attachments", "status", "managed_by", "assigned_to",
		"forwarded_to_officer", "forwarded_to_department", "forwarded_to_dm", "created_at", "updated_at",
	}).AddRow("c2", "SJD/2026/CMP000043", int64(43), string(models.SourcePublic), nil, "Ram Sahu", "9888800000",
		nil, "Street light out", "Pole 14 dark for a week", "Electricity", "", "", "", "", "Raipur",
		"Chhattisgarh", "", "", "{}", string(models.StatusPending), nil, nil, nil, nil, nil, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM complaints\s+WHERE citizen_mobile = \$1 AND source_type = \$2 AND citizen_id IS NULL`).
		WithArgs("9888800000", string(models.SourcePublic)).
		WillReturnRows(rows)

	complaints, err := repo.ListByMobile(context.Background(), "9888800000")
	require.NoError(t, err)
	require.Len(t, complaints, 1)
	assert.Nil(t, complaints[0].CitizenID)
	assert.Equal(t, "Ram Sahu", complaints[0].CitizenName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendUpdateMovesHead(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO complaint_updates").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE complaints SET status = \$2, managed_by = \$3, updated_at = \$4 WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.ComplaintUpdate{
		ComplaintID: "c1",
		Category:    models.UpdateCategoryOfficer,
		UpdatedBy:   "officer-1",
		Role:        models.RoleOfficer,
		Status:      models.StatusInProgress,
		Remarks:     "Crew dispatched",
	}
	require.NoError(t, repo.AppendUpdate(context.Background(), entry, "officer-1"))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendForwardDepartmentSlot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO complaint_forwards").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE complaints SET status = \$2, managed_by = \$3, forwarded_to_department = \$4, updated_at = \$5 WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fwd := &models.ComplaintForward{
		ComplaintID: "c1",
		TargetType:  models.ForwardToDepartment,
		TargetID:    "dept-1",
		ForwardedBy: "officer-1",
	}
	require.NoError(t, repo.AppendForward(context.Background(), fwd, "officer-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendForwardRejectsUnknownTarget(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	fwd := &models.ComplaintForward{ComplaintID: "c1", TargetType: "collector", TargetID: "x"}
	err := repo.AppendForward(context.Background(), fwd, "officer-1")
	assert.Error(t, err)
}

func TestLoadTimelinesSplitsUpdates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM complaint_forwards WHERE complaint_id = \$1 ORDER BY created_at ASC`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "complaint_id", "target_type", "target_id", "remarks", "attachment", "forwarded_by", "created_at"}).
			AddRow("f1", "c1", string(models.ForwardToDepartment), "dept-1", "", "", "officer-1", now))

	mock.ExpectQuery(`SELECT (.+) FROM complaint_updates WHERE complaint_id = \$1 ORDER BY created_at ASC`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "complaint_id", "category", "updated_by", "role", "status", "remarks", "attachment", "created_at"}).
			AddRow("up1", "c1", string(models.UpdateCategoryOfficer), "officer-1", string(models.RoleOfficer), string(models.StatusInProgress), "", "", now).
			AddRow("up2", "c1", string(models.UpdateCategoryDepartment), "dept-1", string(models.RoleDepartment), string(models.StatusResolved), "", "", now))

	mock.ExpectQuery(`SELECT (.+) FROM citizen_remarks WHERE complaint_id = \$1 ORDER BY created_at ASC`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "complaint_id", "remark", "attachment", "created_at"}).
			AddRow("r1", "c1", "Thanks, resolved", "", now))

	c := &models.Complaint{ID: "c1"}
	require.NoError(t, repo.LoadTimelines(context.Background(), c))
	assert.Len(t, c.Forwards, 1)
	assert.Len(t, c.OfficerUpdates, 1)
	assert.Len(t, c.DepartmentUpdates, 1)
	assert.Len(t, c.CitizenRemarks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	rows := sqlmock.NewRows([]string{"total", "pending", "in_progress", "resolved", "forwarded", "rejected"}).
		AddRow(10, 4, 2, 3, 1, 0)
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total`).
		WithArgs("Raipur").
		WillReturnRows(rows)

	stats, err := repo.Stats(context.Background(), models.ComplaintFilter{District: "Raipur"})
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 4, stats.Pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

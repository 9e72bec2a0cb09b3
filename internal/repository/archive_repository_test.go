package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjd-portal/grievance-api/internal/models"
)

func TestCreateDeletedUserSnapshot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	mock.ExpectExec("INSERT INTO deleted_users").WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot := &models.DeletedUser{
		OriginalUserID: "u1",
		Role:           models.RoleOfficer,
		Email:          "officer@example.com",
		UniqueCode:     "SJD/2026/0001",
		FullData:       []byte(`{"id":"u1"}`),
		RelatedData:    []byte(`{"complaints":[]}`),
		DeletedBy:      "sa-1",
	}
	require.NoError(t, repo.Create(context.Background(), snapshot))
	assert.NotEmpty(t, snapshot.ID)
	assert.False(t, snapshot.DeletedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDeletedUsersByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "original_user_id", "role", "email", "unique_code", "full_data", "related_data",
		"deleted_by", "reason", "deleted_at",
	}).AddRow("d1", "u1", string(models.RoleOfficer), "officer@example.com", "SJD/2026/0001",
		[]byte(`{}`), []byte(`{}`), "sa-1", "left service", now)

	mock.ExpectQuery(`SELECT (.+) FROM deleted_users WHERE role = \$1 ORDER BY deleted_at DESC LIMIT 50 OFFSET 0`).
		WithArgs(models.RoleOfficer).
		WillReturnRows(rows)

	role := models.RoleOfficer
	records, err := repo.List(context.Background(), models.ArchiveFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u1", records[0].OriginalUserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByOriginalUserID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewArchiveRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "original_user_id", "role", "email", "unique_code", "full_data", "related_data",
		"deleted_by", "reason", "deleted_at",
	}).AddRow("d1", "u1", string(models.RolePublic), "citizen@example.com", "", []byte(`{}`), []byte(`{}`), "sa-1", "", now)

	mock.ExpectQuery(`SELECT (.+) FROM deleted_users WHERE original_user_id = \$1 ORDER BY deleted_at DESC LIMIT 1`).
		WithArgs("u1").
		WillReturnRows(rows)

	snapshot, err := repo.GetByOriginalUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "d1", snapshot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

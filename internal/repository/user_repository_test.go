package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjd-portal/grievance-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "unique_code", "email", "password_hash", "first_name", "last_name", "phone", "role",
		"district", "state", "pincode", "department_name", "designation", "photo", "is_deleted",
		"deleted_at", "last_login", "created_at", "updated_at",
	}).AddRow("u1", "SJD/2026/0001", "user@example.com", "hash", "Asha", "Verma", "9999900000",
		string(models.RoleOfficer), "Raipur", "Chhattisgarh", "492001", "", "", "", false, nil, now, now, now)
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("user@example.com").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, "SJD/2026/0001", user.UniqueCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUniqueCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE unique_code = \$1 LIMIT 1`).
		WithArgs("SJD/2026/0001").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindByUniqueCode(context.Background(), "SJD/2026/0001")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOfficerByDistrict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE role = \$1 AND district = \$2 AND is_deleted = FALSE`).
		WithArgs(models.RoleOfficer, "Raipur").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindOfficerByDistrict(context.Background(), "Raipur")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOfficer, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE 1=1 AND is_deleted = FALSE ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WillReturnRows(userRows(time.Now()))

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE 1=1 AND is_deleted = FALSE`).WillReturnRows(countRows)

	users, total, err := repo.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE users SET is_deleted = TRUE, deleted_at = \$2, updated_at = \$2 WHERE id = \$1`).
		WithArgs("u1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "u1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteUserMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE users SET is_deleted = TRUE`).
		WithArgs("missing", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), "missing", now)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

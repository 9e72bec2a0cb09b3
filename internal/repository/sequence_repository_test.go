package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjd-portal/grievance-api/internal/models"
)

func TestSequenceNext(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(`INSERT INTO sequences \(name, value\) VALUES \(\$1, 1\)`).
		WithArgs(models.SeqComplaintSerial).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(42))

	value, err := repo.Next(context.Background(), models.SeqComplaintSerial)
	require.NoError(t, err)
	assert.Equal(t, int64(42), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceNextIsMonotonic(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	for i := int64(1); i <= 3; i++ {
		mock.ExpectQuery(`INSERT INTO sequences`).
			WithArgs(models.UserCodeSequence(2026)).
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(i))
	}

	for i := int64(1); i <= 3; i++ {
		value, err := repo.Next(context.Background(), models.UserCodeSequence(2026))
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceCurrentEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(value\), 0\) FROM sequences WHERE name = \$1`).
		WithArgs(models.SeqComplaintSerial).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	value, err := repo.Current(context.Background(), models.SeqComplaintSerial)
	require.NoError(t, err)
	assert.Equal(t, int64(0), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

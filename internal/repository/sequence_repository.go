package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SequenceRepository allocates monotonically increasing serials from named
// counter rows. The increment-and-fetch runs as a single statement so
// concurrent allocations serialize at the database; callers never observe a
// duplicate or a gap.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next returns the next serial for the named sequence, starting at 1.
func (r *SequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	const query = `INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`
	var value int64
	if err := r.db.GetContext(ctx, &value, query, name); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return value, nil
}

// Current returns the last issued serial, or 0 when none was issued yet.
func (r *SequenceRepository) Current(ctx context.Context, name string) (int64, error) {
	const query = `SELECT COALESCE(MAX(value), 0) FROM sequences WHERE name = $1`
	var value int64
	if err := r.db.GetContext(ctx, &value, query, name); err != nil {
		return 0, fmt.Errorf("current sequence %s: %w", name, err)
	}
	return value, nil
}

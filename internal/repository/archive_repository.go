package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sjd-portal/grievance-api/internal/models"
)

// ArchiveRepository persists point-in-time snapshots of soft-deleted
// accounts. Snapshots are write-once.
type ArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Create stores the snapshot taken at deletion time.
func (r *ArchiveRepository) Create(ctx context.Context, snapshot *models.DeletedUser) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.DeletedAt.IsZero() {
		snapshot.DeletedAt = time.Now().UTC()
	}
	const query = `INSERT INTO deleted_users
	(id, original_user_id, role, email, unique_code, full_data, related_data, deleted_by, reason, deleted_at)
	VALUES (:id, :original_user_id, :role, :email, :unique_code, :full_data, :related_data, :deleted_by, :reason, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("create deleted user snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves one snapshot.
func (r *ArchiveRepository) GetByID(ctx context.Context, id string) (*models.DeletedUser, error) {
	const query = `SELECT id, original_user_id, role, email, unique_code, full_data, related_data,
		deleted_by, reason, deleted_at
	FROM deleted_users WHERE id = $1`
	var snapshot models.DeletedUser
	if err := r.db.GetContext(ctx, &snapshot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find deleted user snapshot: %w", err)
	}
	return &snapshot, nil
}

// GetByOriginalUserID retrieves the snapshot for a given source account.
func (r *ArchiveRepository) GetByOriginalUserID(ctx context.Context, userID string) (*models.DeletedUser, error) {
	const query = `SELECT id, original_user_id, role, email, unique_code, full_data, related_data,
		deleted_by, reason, deleted_at
	FROM deleted_users WHERE original_user_id = $1 ORDER BY deleted_at DESC LIMIT 1`
	var snapshot models.DeletedUser
	if err := r.db.GetContext(ctx, &snapshot, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find deleted user snapshot by user: %w", err)
	}
	return &snapshot, nil
}

// List returns snapshots applying filters, newest deletions first.
func (r *ArchiveRepository) List(ctx context.Context, filter models.ArchiveFilter) ([]models.DeletedUser, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT id, original_user_id, role, email, unique_code, full_data, related_data,
		deleted_by, reason, deleted_at FROM deleted_users`)
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)

	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(unique_code) LIKE $%d)", n, n))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY deleted_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var records []models.DeletedUser
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list deleted user snapshots: %w", err)
	}
	return records, nil
}

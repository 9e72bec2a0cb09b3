package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sjd-portal/grievance-api/internal/models"
)

const assignmentColumns = `id, dm_id, officer_id, complaint_ids, district, gram_panchayat, block, tahsil, village,
	visit_date, priority, notes, status, assigned_at, actual_visit_date, complaints_found, complaints_registered,
	complaints_solved, report_remarks, proof_file, created_at, updated_at`

// AssignmentRepository persists DM field-visit assignments and their
// append-only action history.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts the assignment together with its initial history entry.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment, initial *models.AssignmentHistoryEntry) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.AssignedAt.IsZero() {
		a.AssignedAt = now
	}
	if a.ComplaintIDs == nil {
		a.ComplaintIDs = pq.StringArray{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create assignment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO assignments
	(id, dm_id, officer_id, complaint_ids, district, gram_panchayat, block, tahsil, village,
	 visit_date, priority, notes, status, assigned_at, complaints_found, complaints_registered, complaints_solved,
	 report_remarks, proof_file, created_at, updated_at)
	VALUES (:id, :dm_id, :officer_id, :complaint_ids, :district, :gram_panchayat, :block, :tahsil, :village,
	 :visit_date, :priority, :notes, :status, :assigned_at, :complaints_found, :complaints_registered, :complaints_solved,
	 :report_remarks, :proof_file, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, a); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}

	if initial != nil {
		initial.AssignmentID = a.ID
		if err := appendHistoryTx(ctx, tx, initial); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID fetches an assignment without its history.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1 LIMIT 1`, assignmentColumns)
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &a, nil
}

// ListByOfficer returns assignments delegated to the officer, newest first.
func (r *AssignmentRepository) ListByOfficer(ctx context.Context, officerID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE officer_id = $1 ORDER BY created_at DESC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, officerID); err != nil {
		return nil, fmt.Errorf("list assignments by officer: %w", err)
	}
	return assignments, nil
}

// ListByDM returns assignments created by the DM, newest first.
func (r *AssignmentRepository) ListByDM(ctx context.Context, dmID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE dm_id = $1 ORDER BY created_at DESC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, dmID); err != nil {
		return nil, fmt.Errorf("list assignments by dm: %w", err)
	}
	return assignments, nil
}

// UpdateStatus moves the head status and appends the describing history
// entry in one transaction.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus, entry *models.AssignmentHistoryEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update assignment status: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const head = `UPDATE assignments SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := tx.ExecContext(ctx, head, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if entry != nil {
		entry.AssignmentID = id
		if err := appendHistoryTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecordVisitReport stores the close-out payload, forces completion, and
// appends the describing history entry.
func (r *AssignmentRepository) RecordVisitReport(ctx context.Context, id string, report models.VisitReport, entry *models.AssignmentHistoryEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record visit report: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const head = `UPDATE assignments SET
		status = $2, actual_visit_date = $3, complaints_found = $4, complaints_registered = $5,
		complaints_solved = $6, report_remarks = $7, proof_file = $8, updated_at = $9
	WHERE id = $1`
	res, err := tx.ExecContext(ctx, head, id, models.AssignmentCompleted, report.ActualVisitDate,
		report.ComplaintsFound, report.ComplaintsRegistered, report.ComplaintsSolved,
		report.Remarks, report.ProofFile, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record visit report: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if entry != nil {
		entry.AssignmentID = id
		if err := appendHistoryTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadHistory populates the assignment's action history, oldest first.
func (r *AssignmentRepository) LoadHistory(ctx context.Context, a *models.Assignment) error {
	const query = `SELECT id, assignment_id, action_by, action, meta, created_at
		FROM assignment_history WHERE assignment_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &a.History, query, a.ID); err != nil {
		return fmt.Errorf("load assignment history: %w", err)
	}
	return nil
}

// Count returns the number of assignments.
func (r *AssignmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM assignments`); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return total, nil
}

func appendHistoryTx(ctx context.Context, tx *sqlx.Tx, entry *models.AssignmentHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const insert = `INSERT INTO assignment_history (id, assignment_id, action_by, action, meta, created_at)
		VALUES (:id, :assignment_id, :action_by, :action, :meta, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, entry); err != nil {
		return fmt.Errorf("append assignment history: %w", err)
	}
	return nil
}

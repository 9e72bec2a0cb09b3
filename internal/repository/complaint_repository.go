package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sjd-portal/grievance-api/internal/models"
)

// pqUniqueViolation is the PostgreSQL error code for unique-constraint
// conflicts, raised when two filers race on the same serial or tracking id.
const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether the error is a unique-constraint
// conflict from the driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

const complaintColumns = `id, tracking_id, serial_number, source_type, citizen_id, citizen_name, citizen_mobile,
	filed_by, title, description, category, location, village, block, tehsil, district, state, pincode, landmark,
	attachments, status, managed_by, assigned_to, forwarded_to_officer, forwarded_to_department, forwarded_to_dm,
	created_at, updated_at`

// ComplaintRepository provides database access for the complaint ledger.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates a new instance of ComplaintRepository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts a new complaint row. Tracking id and serial number must
// already be allocated; a racing allocation surfaces as a unique violation
// the caller retries.
func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Attachments == nil {
		c.Attachments = pq.StringArray{}
	}

	const query = `INSERT INTO complaints
	(id, tracking_id, serial_number, source_type, citizen_id, citizen_name, citizen_mobile, filed_by,
	 title, description, category, location, village, block, tehsil, district, state, pincode, landmark,
	 attachments, status, managed_by, assigned_to, forwarded_to_officer, forwarded_to_department, forwarded_to_dm,
	 created_at, updated_at)
	VALUES (:id, :tracking_id, :serial_number, :source_type, :citizen_id, :citizen_name, :citizen_mobile, :filed_by,
	 :title, :description, :category, :location, :village, :block, :tehsil, :district, :state, :pincode, :landmark,
	 :attachments, :status, :managed_by, :assigned_to, :forwarded_to_officer, :forwarded_to_department, :forwarded_to_dm,
	 :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// GetByID fetches a complaint without its timelines.
func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id = $1 LIMIT 1`, complaintColumns)
	var c models.Complaint
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint by id: %w", err)
	}
	return &c, nil
}

// GetByTrackingID fetches a complaint by its public tracking code,
// case-sensitive exact match.
func (r *ComplaintRepository) GetByTrackingID(ctx context.Context, trackingID string) (*models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE tracking_id = $1 LIMIT 1`, complaintColumns)
	var c models.Complaint
	if err := r.db.GetContext(ctx, &c, query, trackingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint by tracking id: %w", err)
	}
	return &c, nil
}

// List returns complaints matching the filter, newest first.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM complaints", complaintColumns))

	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	if filter.CitizenID != "" {
		args = append(args, filter.CitizenID)
		conditions = append(conditions, fmt.Sprintf("citizen_id = $%d", len(args)))
	}
	if filter.District != "" {
		args = append(args, filter.District)
		conditions = append(conditions, fmt.Sprintf("district = $%d", len(args)))
	}
	if filter.ForwardedToDepartment != "" {
		args = append(args, filter.ForwardedToDepartment)
		conditions = append(conditions, fmt.Sprintf("forwarded_to_department = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.FiledBy != "" {
		args = append(args, filter.FiledBy)
		conditions = append(conditions, fmt.Sprintf("filed_by = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return complaints, nil
}

// ListByMobile returns anonymous public filings carrying the mobile number,
// newest first. Account-linked complaints are excluded so the open lookup
// route never exposes them.
func (r *ComplaintRepository) ListByMobile(ctx context.Context, mobile string) ([]models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints
		WHERE citizen_mobile = $1 AND source_type = $2 AND citizen_id IS NULL
		ORDER BY created_at DESC`, complaintColumns)
	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, mobile, models.SourcePublic); err != nil {
		return nil, fmt.Errorf("list complaints by mobile: %w", err)
	}
	return complaints, nil
}

// ListByCitizenRef returns complaints referencing the actor as citizen,
// filer, or manager. Used when building archival snapshots.
func (r *ComplaintRepository) ListByCitizenRef(ctx context.Context, actorID string) ([]models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints
		WHERE citizen_id = $1 OR filed_by = $1 OR managed_by = $1
		ORDER BY created_at DESC`, complaintColumns)
	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, actorID); err != nil {
		return nil, fmt.Errorf("list complaints by actor ref: %w", err)
	}
	return complaints, nil
}

// AppendUpdate inserts one timeline entry and moves the complaint head
// status and manager in a single transaction, keeping the top-level status
// equal to the latest append.
func (r *ComplaintRepository) AppendUpdate(ctx context.Context, entry *models.ComplaintUpdate, managedBy string) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO complaint_updates (id, complaint_id, category, updated_by, role, status, remarks, attachment, created_at)
		VALUES (:id, :complaint_id, :category, :updated_by, :role, :status, :remarks, :attachment, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, entry); err != nil {
		return fmt.Errorf("append complaint update: %w", err)
	}

	const head = `UPDATE complaints SET status = $2, managed_by = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, head, entry.ComplaintID, entry.Status, managedBy, entry.CreatedAt); err != nil {
		return fmt.Errorf("update complaint head: %w", err)
	}

	return tx.Commit()
}

// AppendForward inserts one forward record, overwrites the single slot for
// its channel, and marks the complaint forwarded, atomically.
func (r *ComplaintRepository) AppendForward(ctx context.Context, fwd *models.ComplaintForward, managedBy string) error {
	if fwd.ID == "" {
		fwd.ID = uuid.NewString()
	}
	if fwd.CreatedAt.IsZero() {
		fwd.CreatedAt = time.Now().UTC()
	}

	var slot string
	switch fwd.TargetType {
	case models.ForwardToOfficer:
		slot = "forwarded_to_officer"
	case models.ForwardToDepartment:
		slot = "forwarded_to_department"
	case models.ForwardToDM:
		slot = "forwarded_to_dm"
	default:
		return fmt.Errorf("invalid forward target type %q", fwd.TargetType)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append forward: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO complaint_forwards (id, complaint_id, target_type, target_id, remarks, attachment, forwarded_by, created_at)
		VALUES (:id, :complaint_id, :target_type, :target_id, :remarks, :attachment, :forwarded_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, fwd); err != nil {
		return fmt.Errorf("append complaint forward: %w", err)
	}

	head := fmt.Sprintf(`UPDATE complaints SET status = $2, managed_by = $3, %s = $4, updated_at = $5 WHERE id = $1`, slot)
	if _, err := tx.ExecContext(ctx, head, fwd.ComplaintID, models.StatusForwarded, managedBy, fwd.TargetID, fwd.CreatedAt); err != nil {
		return fmt.Errorf("update complaint forward slot: %w", err)
	}

	return tx.Commit()
}

// AppendCitizenRemark inserts one citizen feedback entry.
func (r *ComplaintRepository) AppendCitizenRemark(ctx context.Context, remark *models.CitizenRemark) error {
	if remark.ID == "" {
		remark.ID = uuid.NewString()
	}
	if remark.CreatedAt.IsZero() {
		remark.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO citizen_remarks (id, complaint_id, remark, attachment, created_at)
		VALUES (:id, :complaint_id, :remark, :attachment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, remark); err != nil {
		return fmt.Errorf("append citizen remark: %w", err)
	}
	return nil
}

// LoadTimelines populates the forwards, update, and remark histories of a
// complaint, oldest first.
func (r *ComplaintRepository) LoadTimelines(ctx context.Context, c *models.Complaint) error {
	const forwards = `SELECT id, complaint_id, target_type, target_id, remarks, attachment, forwarded_by, created_at
		FROM complaint_forwards WHERE complaint_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &c.Forwards, forwards, c.ID); err != nil {
		return fmt.Errorf("load complaint forwards: %w", err)
	}

	const updates = `SELECT id, complaint_id, category, updated_by, role, status, remarks, attachment, created_at
		FROM complaint_updates WHERE complaint_id = $1 ORDER BY created_at ASC`
	var all []models.ComplaintUpdate
	if err := r.db.SelectContext(ctx, &all, updates, c.ID); err != nil {
		return fmt.Errorf("load complaint updates: %w", err)
	}
	c.OfficerUpdates = c.OfficerUpdates[:0]
	c.DepartmentUpdates = c.DepartmentUpdates[:0]
	for _, u := range all {
		if u.Category == models.UpdateCategoryDepartment {
			c.DepartmentUpdates = append(c.DepartmentUpdates, u)
		} else {
			c.OfficerUpdates = append(c.OfficerUpdates, u)
		}
	}

	const remarks = `SELECT id, complaint_id, remark, attachment, created_at
		FROM citizen_remarks WHERE complaint_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &c.CitizenRemarks, remarks, c.ID); err != nil {
		return fmt.Errorf("load citizen remarks: %w", err)
	}
	return nil
}

// Stats aggregates status counts for the optionally scoped ledger view.
func (r *ComplaintRepository) Stats(ctx context.Context, filter models.ComplaintFilter) (*models.ComplaintStats, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'Pending') AS pending,
		COUNT(*) FILTER (WHERE status = 'In Progress') AS in_progress,
		COUNT(*) FILTER (WHERE status = 'Resolved') AS resolved,
		COUNT(*) FILTER (WHERE status = 'Forwarded') AS forwarded,
		COUNT(*) FILTER (WHERE status = 'Rejected') AS rejected
	FROM complaints`)

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.CitizenID != "" {
		args = append(args, filter.CitizenID)
		conditions = append(conditions, fmt.Sprintf("citizen_id = $%d", len(args)))
	}
	if filter.District != "" {
		args = append(args, filter.District)
		conditions = append(conditions, fmt.Sprintf("district = $%d", len(args)))
	}
	if filter.ForwardedToDepartment != "" {
		args = append(args, filter.ForwardedToDepartment)
		conditions = append(conditions, fmt.Sprintf("forwarded_to_department = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	var stats models.ComplaintStats
	if err := r.db.GetContext(ctx, &stats, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("complaint stats: %w", err)
	}
	return &stats, nil
}

// Count returns the number of complaints in the ledger.
func (r *ComplaintRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM complaints`); err != nil {
		return 0, fmt.Errorf("count complaints: %w", err)
	}
	return total, nil
}

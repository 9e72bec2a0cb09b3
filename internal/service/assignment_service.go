package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, a *models.Assignment, initial *models.AssignmentHistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByOfficer(ctx context.Context, officerID string) ([]models.Assignment, error)
	ListByDM(ctx context.Context, dmID string) ([]models.Assignment, error)
	UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus, entry *models.AssignmentHistoryEntry) error
	RecordVisitReport(ctx context.Context, id string, report models.VisitReport, entry *models.AssignmentHistoryEntry) error
	LoadHistory(ctx context.Context, a *models.Assignment) error
}

type assignmentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AssignmentService tracks DM-issued field-visit tasks through their
// status history. Status moves are recorded as stated; there is no
// transition legality check, matching how the portal has always behaved.
type AssignmentService struct {
	repo      assignmentRepository
	users     assignmentUserRepository
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(repo assignmentRepository, users assignmentUserRepository, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AssignmentService{repo: repo, users: users, notifier: notifier, validator: validate, logger: logger}
}

// Create issues a new assignment from the DM to an officer, seeding the
// history with the creation entry.
func (s *AssignmentService) Create(ctx context.Context, dm *models.User, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", req.Priority))
	}

	officer, err := s.users.FindByID(ctx, req.OfficerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve officer")
	}
	if officer.Role != models.RoleOfficer {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignments can only target officer accounts")
	}
	if officer.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "officer account is deactivated")
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	a := &models.Assignment{
		DMID:          dm.ID,
		OfficerID:     officer.ID,
		ComplaintIDs:  pq.StringArray(req.ComplaintIDs),
		District:      req.District,
		GramPanchayat: req.GramPanchayat,
		Block:         req.Block,
		Tahsil:        req.Tahsil,
		Village:       req.Village,
		VisitDate:     req.VisitDate,
		Priority:      priority,
		Notes:         req.Notes,
		Status:        models.AssignmentAssigned,
	}
	initial := &models.AssignmentHistoryEntry{
		ActionBy: dm.ID,
		Action:   "Assigned",
	}
	if err := s.repo.Create(ctx, a, initial); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	a.History = append(a.History, *initial)

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &dm.ID,
		Action:     models.AuditActionAssignmentCreated,
		Resource:   "assignments",
		ResourceID: &a.ID,
		NewValues:  []byte(fmt.Sprintf(`{"officer_id":%q}`, officer.ID)),
	}); err != nil {
		s.logger.Warn("failed to record assignment audit log", zap.Error(err))
	}

	s.notifier.AssignmentCreated(a, officer, dm)

	return a, nil
}

// Get returns one assignment with its history, restricted to its two
// parties and admin roles.
func (s *AssignmentService) Get(ctx context.Context, actor *models.User, id string) (*models.Assignment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if !assignmentVisibleTo(actor, a) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment outside your scope")
	}
	if err := s.repo.LoadHistory(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment history")
	}
	return a, nil
}

// ListForOfficer returns the officer's own task queue.
func (s *AssignmentService) ListForOfficer(ctx context.Context, officerID string) ([]models.Assignment, error) {
	assignments, err := s.repo.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// ListForDM returns tasks issued by the DM.
func (s *AssignmentService) ListForDM(ctx context.Context, dmID string) ([]models.Assignment, error) {
	assignments, err := s.repo.ListByDM(ctx, dmID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// UpdateStatus records a status move with its history entry. Any valid
// status is accepted from any current status.
func (s *AssignmentService) UpdateStatus(ctx context.Context, actor *models.User, id string, req models.UpdateAssignmentStatusRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if !assignmentVisibleTo(actor, a) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment outside your scope")
	}

	entry := &models.AssignmentHistoryEntry{
		ActionBy: actor.ID,
		Action:   fmt.Sprintf("Status changed to %s", req.Status),
	}
	if req.Remarks != "" {
		meta, _ := json.Marshal(map[string]string{"remarks": req.Remarks})
		entry.Meta = meta
	}
	if err := s.repo.UpdateStatus(ctx, a.ID, req.Status, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	a.Status = req.Status

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionAssignmentUpdated,
		Resource:   "assignments",
		ResourceID: &a.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, req.Status)),
	}); err != nil {
		s.logger.Warn("failed to record assignment audit log", zap.Error(err))
	}

	s.notifier.AssignmentUpdated(a)

	return a, nil
}

// RecordVisitReport stores the close-out report. Submitting a report always
// completes the assignment regardless of the status the officer last set.
func (s *AssignmentService) RecordVisitReport(ctx context.Context, actor *models.User, id string, report models.VisitReport) (*models.Assignment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if a.OfficerID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned officer can submit the visit report")
	}

	entry := &models.AssignmentHistoryEntry{
		ActionBy: actor.ID,
		Action:   "Visit report submitted",
	}
	if err := s.repo.RecordVisitReport(ctx, a.ID, report, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record visit report")
	}

	a.Status = models.AssignmentCompleted
	a.ActualVisitDate = &report.ActualVisitDate
	a.ComplaintsFound = report.ComplaintsFound
	a.ComplaintsRegistered = report.ComplaintsRegistered
	a.ComplaintsSolved = report.ComplaintsSolved
	a.ReportRemarks = report.Remarks
	a.ProofFile = report.ProofFile

	s.notifier.AssignmentUpdated(a)

	return a, nil
}

func assignmentVisibleTo(actor *models.User, a *models.Assignment) bool {
	switch actor.Role {
	case models.RoleOfficer:
		return a.OfficerID == actor.ID
	case models.RoleDM:
		return a.DMID == actor.ID
	case models.RoleAdmin, models.RoleSuperAdmin:
		return true
	}
	return false
}

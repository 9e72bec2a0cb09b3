package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
	"github.com/sjd-portal/grievance-api/internal/repository"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
)

type complaintRepository interface {
	Create(ctx context.Context, c *models.Complaint) error
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*models.Complaint, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
	ListByMobile(ctx context.Context, mobile string) ([]models.Complaint, error)
	AppendUpdate(ctx context.Context, entry *models.ComplaintUpdate, managedBy string) error
	AppendForward(ctx context.Context, fwd *models.ComplaintForward, managedBy string) error
	AppendCitizenRemark(ctx context.Context, remark *models.CitizenRemark) error
	LoadTimelines(ctx context.Context, c *models.Complaint) error
	Stats(ctx context.Context, filter models.ComplaintFilter) (*models.ComplaintStats, error)
}

type complaintUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindOfficerByDistrict(ctx context.Context, district string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ComplaintService implements the complaint ledger: filing, timeline
// appends, forwarding, public tracking, and role-scoped listing.
type ComplaintService struct {
	repo      complaintRepository
	sequences authSequenceRepository
	users     complaintUserRepository
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
	retries   int
}

// NewComplaintService constructs the service. retries bounds serial
// allocation attempts when concurrent filings collide.
func NewComplaintService(repo complaintRepository, sequences authSequenceRepository, users complaintUserRepository, notifier Notifier, validate *validator.Validate, logger *zap.Logger, retries int) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if retries <= 0 {
		retries = 3
	}
	return &ComplaintService{repo: repo, sequences: sequences, users: users, notifier: notifier, validator: validate, logger: logger, retries: retries}
}

// File registers a complaint. The tracking code embeds the filing year and
// a globally monotonic serial; allocation and insert retry together so a
// lost race never burns a citizen-visible code. A nil actor is an anonymous
// web filing and must carry the citizen's name and mobile number.
func (s *ComplaintService) File(ctx context.Context, actor *models.User, req models.FileComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}

	c := &models.Complaint{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Village:     req.Village,
		Block:       req.Block,
		Tehsil:      req.Tehsil,
		District:    req.District,
		State:       req.State,
		Pincode:     req.Pincode,
		Landmark:    req.Landmark,
		CitizenName: req.CitizenName,
		Attachments: pq.StringArray(req.Attachments),
		Status:      models.StatusPending,
	}
	c.CitizenMobile = req.CitizenMob

	switch {
	case actor == nil:
		// Anonymous web filing. The supplied name and mobile are the only
		// identity; the tracking code is the only handle returned.
		if req.CitizenName == "" || req.CitizenMob == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "citizen name and mobile are required for anonymous filing")
		}
		c.SourceType = models.SourcePublic
	case actor.Role == models.RolePublic:
		c.SourceType = models.SourcePublic
		c.CitizenID = &actor.ID
		if c.CitizenName == "" {
			c.CitizenName = actor.FullName()
		}
	default:
		// Walk-in complaint captured at the desk by an official.
		c.SourceType = models.SourceOfficer
		c.FiledBy = &actor.ID
	}

	// Auto-route to the district officer when one is on record.
	if officer, err := s.users.FindOfficerByDistrict(ctx, c.District); err == nil {
		c.AssignedTo = &officer.ID
		c.ManagedBy = &officer.ID
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("failed to resolve district officer", zap.String("district", c.District), zap.Error(err))
	}

	if err := s.persistWithSerial(ctx, c); err != nil {
		return nil, err
	}

	audit := &models.AuditLog{
		Action:     models.AuditActionComplaintFiled,
		Resource:   "complaints",
		ResourceID: &c.ID,
		NewValues:  []byte(fmt.Sprintf(`{"tracking_id":%q}`, c.TrackingID)),
	}
	if actor != nil {
		audit.UserID = &actor.ID
	}
	if err := s.users.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("failed to record complaint audit log", zap.Error(err))
	}

	s.notifier.ComplaintFiled(c)

	return c, nil
}

// persistWithSerial allocates serial and tracking code, then inserts. A
// unique violation means a concurrent filing won the same serial; allocate
// a fresh one and try again, up to the retry bound.
func (s *ComplaintService) persistWithSerial(ctx context.Context, c *models.Complaint) error {
	year := time.Now().UTC().Year()
	for attempt := 1; attempt <= s.retries; attempt++ {
		serial, err := s.sequences.Next(ctx, models.SeqComplaintSerial)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate complaint serial")
		}
		c.SerialNumber = serial
		c.TrackingID = models.TrackingID(year, serial)

		err = s.repo.Create(ctx, c)
		if err == nil {
			return nil
		}
		if repository.IsUniqueViolation(err) {
			s.logger.Warn("complaint serial collision, retrying",
				zap.Int64("serial", serial), zap.Int("attempt", attempt))
			c.ID = ""
			continue
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create complaint")
	}
	return appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique tracking id")
}

// Get returns one complaint with its full timelines, enforcing the
// caller's visibility scope.
func (s *ComplaintService) Get(ctx context.Context, actor *models.User, id string) (*models.Complaint, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if !s.visibleTo(actor, c) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "complaint outside your scope")
	}
	if err := s.repo.LoadTimelines(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint history")
	}
	return c, nil
}

// Track looks a complaint up by its public tracking code. Unauthenticated;
// exposes the full timeline so citizens can follow progress.
func (s *ComplaintService) Track(ctx context.Context, trackingID string) (*models.Complaint, error) {
	if trackingID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tracking id required")
	}
	c, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no complaint with that tracking id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up complaint")
	}
	if err := s.repo.LoadTimelines(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint history")
	}
	return c, nil
}

// ListPublicByMobile returns anonymously filed complaints carrying the
// mobile number. Unauthenticated; only anonymous filings are matched, so
// account-linked complaints never surface here.
func (s *ComplaintService) ListPublicByMobile(ctx context.Context, mobile string) ([]models.Complaint, error) {
	if mobile == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mobile number required")
	}
	complaints, err := s.repo.ListByMobile(ctx, mobile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up complaints")
	}
	return complaints, nil
}

// List returns complaints visible to the actor, newest first.
func (s *ComplaintService) List(ctx context.Context, actor *models.User, query models.ComplaintListQuery) ([]models.Complaint, error) {
	filter := models.ScopeFor(actor.Role, actor)
	filter.Status = query.Status
	filter.From = query.From
	filter.To = query.To
	filter.Limit = query.Limit
	filter.Offset = query.Offset

	complaints, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	return complaints, nil
}

// AppendUpdate adds a status update to the timeline matching the actor's
// role and moves the head status. Updates are append-only; nothing in the
// history is ever rewritten.
func (s *ComplaintService) AppendUpdate(ctx context.Context, actor *models.User, complaintID string, req models.UpdateComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	c, err := s.repo.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if !s.visibleTo(actor, c) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "complaint outside your scope")
	}

	entry := &models.ComplaintUpdate{
		ComplaintID: c.ID,
		Category:    actor.Role.UpdateCategory(),
		UpdatedBy:   actor.ID,
		Role:        actor.Role,
		Status:      req.Status,
		Remarks:     req.Remarks,
		Attachment:  req.Attachment,
	}
	if err := s.repo.AppendUpdate(ctx, entry, actor.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append update")
	}

	c.Status = req.Status
	c.ManagedBy = &actor.ID

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionComplaintUpdated,
		Resource:   "complaints",
		ResourceID: &c.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, req.Status)),
	}); err != nil {
		s.logger.Warn("failed to record update audit log", zap.Error(err))
	}

	s.notifier.ComplaintUpdated(c)

	return c, nil
}

// Forward hands the complaint to another handler. The forward history is
// append-only while the per-channel slot always reflects the latest target.
func (s *ComplaintService) Forward(ctx context.Context, actor *models.User, complaintID string, req models.ForwardComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forward payload")
	}

	targetType, targetID, err := models.ParseForwardTarget(req.ForwardTo)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "forward target not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve forward target")
	}
	if target.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "forward target account is deactivated")
	}
	if !forwardTargetMatchesRole(targetType, target.Role) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("target account is %s, not %s", target.Role, targetType))
	}

	c, err := s.repo.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if !s.visibleTo(actor, c) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "complaint outside your scope")
	}

	fwd := &models.ComplaintForward{
		ComplaintID: c.ID,
		TargetType:  targetType,
		TargetID:    targetID,
		Remarks:     req.Remarks,
		Attachment:  req.Attachment,
		ForwardedBy: actor.ID,
	}
	if err := s.repo.AppendForward(ctx, fwd, actor.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to forward complaint")
	}

	c.Status = models.StatusForwarded
	c.ManagedBy = &actor.ID
	switch targetType {
	case models.ForwardToOfficer:
		c.ForwardedToOfficer = &targetID
	case models.ForwardToDepartment:
		c.ForwardedToDepartment = &targetID
	case models.ForwardToDM:
		c.ForwardedToDM = &targetID
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionComplaintForward,
		Resource:   "complaints",
		ResourceID: &c.ID,
		NewValues:  []byte(fmt.Sprintf(`{"target_type":%q,"target_id":%q}`, targetType, targetID)),
	}); err != nil {
		s.logger.Warn("failed to record forward audit log", zap.Error(err))
	}

	s.notifier.ComplaintForwarded(c, fwd)

	return c, nil
}

// AddCitizenRemark appends citizen feedback. Only the filing citizen may
// remark on their complaint.
func (s *ComplaintService) AddCitizenRemark(ctx context.Context, actor *models.User, complaintID string, req models.CitizenRemarkRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remark payload")
	}

	c, err := s.repo.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if c.CitizenID == nil || *c.CitizenID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the filing citizen can add remarks")
	}

	remark := &models.CitizenRemark{
		ComplaintID: c.ID,
		Remark:      req.Remark,
		Attachment:  req.Attachment,
	}
	if err := s.repo.AppendCitizenRemark(ctx, remark); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append remark")
	}

	s.notifier.ComplaintUpdated(c)
	return nil
}

// Stats aggregates status counts within the actor's scope.
func (s *ComplaintService) Stats(ctx context.Context, actor *models.User) (*models.ComplaintStats, error) {
	filter := models.ScopeFor(actor.Role, actor)
	stats, err := s.repo.Stats(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate complaint stats")
	}
	return stats, nil
}

// visibleTo applies the role scope to a single complaint.
func (s *ComplaintService) visibleTo(actor *models.User, c *models.Complaint) bool {
	switch actor.Role {
	case models.RolePublic:
		return c.CitizenID != nil && *c.CitizenID == actor.ID
	case models.RoleOfficer:
		return c.District == actor.District
	case models.RoleDepartment:
		return c.ForwardedToDepartment != nil && *c.ForwardedToDepartment == actor.ID
	case models.RoleDM, models.RoleAdmin, models.RoleSuperAdmin:
		return true
	}
	return false
}

func forwardTargetMatchesRole(targetType models.ForwardTargetType, role models.UserRole) bool {
	switch targetType {
	case models.ForwardToOfficer:
		return role == models.RoleOfficer
	case models.ForwardToDepartment:
		return role == models.RoleDepartment
	case models.ForwardToDM:
		return role == models.RoleDM
	}
	return false
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type archiveRepository interface {
	Create(ctx context.Context, snapshot *models.DeletedUser) error
	GetByID(ctx context.Context, id string) (*models.DeletedUser, error)
	List(ctx context.Context, filter models.ArchiveFilter) ([]models.DeletedUser, error)
}

type userComplaintRepository interface {
	ListByCitizenRef(ctx context.Context, actorID string) ([]models.Complaint, error)
}

// CreateUserRequest provisions an official account. Citizens self-register
// through the auth flow instead.
type CreateUserRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	FirstName      string          `json:"first_name" validate:"required"`
	LastName       string          `json:"last_name"`
	Phone          string          `json:"phone"`
	Role           models.UserRole `json:"role" validate:"required,oneof=officer department dm admin superadmin"`
	District       string          `json:"district"`
	State          string          `json:"state"`
	Pincode        string          `json:"pincode"`
	DepartmentName string          `json:"department_name"`
	Designation    string          `json:"designation"`
	Password       string          `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest modifies profile fields. Role and unique code are fixed
// at provisioning time.
type UpdateUserRequest struct {
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name"`
	Phone          string `json:"phone"`
	District       string `json:"district"`
	State          string `json:"state"`
	Pincode        string `json:"pincode"`
	DepartmentName string `json:"department_name"`
	Designation    string `json:"designation"`
	Photo          string `json:"photo"`
}

// DeleteUserRequest carries the archival reason.
type DeleteUserRequest struct {
	Reason string `json:"reason"`
}

// UserService handles account provisioning and archival for the
// superadmin console.
type UserService struct {
	repo       userRepository
	archive    archiveRepository
	complaints userComplaintRepository
	sequences  authSequenceRepository
	notifier   Notifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, archive archiveRepository, complaints userComplaintRepository, sequences authSequenceRepository, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &UserService{repo: repo, archive: archive, complaints: complaints, sequences: sequences, notifier: notifier, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}

	return users, pagination, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create provisions an official account and issues its identity code from
// the current year's sequence.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	year := time.Now().UTC().Year()
	serial, err := s.sequences.Next(ctx, models.UserCodeSequence(year))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate user code")
	}

	user := &models.User{
		UniqueCode:     models.UserCode(year, serial),
		Email:          strings.ToLower(req.Email),
		PasswordHash:   string(passwordHash),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		Role:           req.Role,
		District:       req.District,
		State:          req.State,
		Pincode:        req.Pincode,
		DepartmentName: req.DepartmentName,
		Designation:    req.Designation,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role, "unique_code": user.UniqueCode})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user create audit log", zap.Error(err))
	}

	s.notifier.UserRegistered(user)

	return user, nil
}

// Update modifies the user's profile attributes.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account has been deleted")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"district": user.District, "phone": user.Phone})

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Phone = req.Phone
	user.District = req.District
	user.State = req.State
	user.Pincode = req.Pincode
	user.DepartmentName = req.DepartmentName
	user.Designation = req.Designation
	if req.Photo != "" {
		user.Photo = req.Photo
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"district": user.District, "phone": user.Phone})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user update audit log", zap.Error(err))
	}

	return user, nil
}

// Delete soft-deletes the account after snapshotting it, with the
// complaints it touched, into the archive. The snapshot is taken before
// the account is marked so a failed archive never loses data.
func (s *UserService) Delete(ctx context.Context, id string, req DeleteUserRequest, actorID string, meta models.LoginRequest) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.IsDeleted {
		return appErrors.Clone(appErrors.ErrConflict, "account already deleted")
	}
	if user.ID == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete your own account")
	}

	fullData, err := json.Marshal(user)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot account")
	}

	related := map[string]interface{}{}
	if complaints, err := s.complaints.ListByCitizenRef(ctx, user.ID); err != nil {
		s.logger.Warn("failed to collect related complaints for archive", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		related["complaints"] = complaints
	}
	relatedData, err := json.Marshal(related)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot related records")
	}

	deletedAt := time.Now().UTC()
	snapshot := &models.DeletedUser{
		OriginalUserID: user.ID,
		Role:           user.Role,
		Email:          user.Email,
		UniqueCode:     user.UniqueCode,
		FullData:       fullData,
		RelatedData:    relatedData,
		DeletedBy:      actorID,
		Reason:         req.Reason,
		DeletedAt:      deletedAt,
	}
	if err := s.archive.Create(ctx, snapshot); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive account")
	}

	if err := s.repo.SoftDelete(ctx, id, deletedAt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions of deleted user", zap.Error(err))
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"is_deleted": false})
	newPayload, _ := json.Marshal(map[string]interface{}{"is_deleted": true, "snapshot_id": snapshot.ID})

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user delete audit log", zap.Error(err))
	}

	return nil
}

// ListArchived browses the deleted-account snapshots.
func (s *UserService) ListArchived(ctx context.Context, filter models.ArchiveFilter) ([]models.DeletedUser, error) {
	records, err := s.archive.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archived accounts")
	}
	return records, nil
}

// GetArchived returns one archived snapshot with its related records.
func (s *UserService) GetArchived(ctx context.Context, id string) (*models.DeletedUser, error) {
	snapshot, err := s.archive.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archived account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load archived account")
	}
	return snapshot, nil
}

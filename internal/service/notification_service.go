package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
	"github.com/sjd-portal/grievance-api/pkg/jobs"
	"github.com/sjd-portal/grievance-api/pkg/mailer"
)

// Notifier dispatches best-effort notifications. Every method is
// fire-and-forget: failures are logged and never surface to the caller.
type Notifier interface {
	UserRegistered(user *models.User)
	ComplaintFiled(c *models.Complaint)
	ComplaintUpdated(c *models.Complaint)
	ComplaintForwarded(c *models.Complaint, fwd *models.ComplaintForward)
	AssignmentCreated(a *models.Assignment, officer *models.User, dm *models.User)
	AssignmentUpdated(a *models.Assignment)
}

// NopNotifier drops every notification. Used when dispatch is disabled and
// in tests.
type NopNotifier struct{}

func (NopNotifier) UserRegistered(*models.User)                                      {}
func (NopNotifier) ComplaintFiled(*models.Complaint)                                 {}
func (NopNotifier) ComplaintUpdated(*models.Complaint)                               {}
func (NopNotifier) ComplaintForwarded(*models.Complaint, *models.ComplaintForward)   {}
func (NopNotifier) AssignmentCreated(*models.Assignment, *models.User, *models.User) {}
func (NopNotifier) AssignmentUpdated(*models.Assignment)                             {}

type mailSender interface {
	Send(to, subject, body string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

type notificationUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

const (
	jobTypeEmail    = "email"
	jobTypeRealtime = "realtime"
	jobTypePush     = "push"
)

// emailJob carries either a resolved address or a user ID looked up at
// dispatch time, keeping directory reads off the request path.
type emailJob struct {
	To       string
	ToUserID string
	Subject  string
	Body     string
}

type realtimeJob struct {
	Event models.Event
}

type pushJob struct {
	UserID string
	Title  string
	Body   string
}

// NotificationService queues notification work onto a background worker
// pool so request handlers never wait on SMTP or Redis.
type NotificationService struct {
	queue  *jobs.Queue
	mail   mailSender
	events eventPublisher
	users  notificationUserRepository
	logger *zap.Logger
}

// NewNotificationService wires the dispatcher. Pass nil mail or events to
// disable that channel.
func NewNotificationService(mail mailSender, events eventPublisher, users notificationUserRepository, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{mail: mail, events: events, users: users, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start launches the background workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// UserRegistered sends the welcome mail carrying the issued identity code.
func (s *NotificationService) UserRegistered(user *models.User) {
	body, err := mailer.RenderWelcome(mailer.WelcomeMailData{
		Name:       user.FullName(),
		UniqueCode: user.UniqueCode,
		Role:       string(user.Role),
	})
	if err != nil {
		s.logger.Warn("failed to render welcome mail", zap.Error(err))
		return
	}
	s.enqueueEmail(user.Email, "Welcome to the SJD Grievance Portal", body)
}

// ComplaintFiled announces a fresh complaint to the district dashboards.
func (s *NotificationService) ComplaintFiled(c *models.Complaint) {
	s.enqueueEvent(models.Event{
		Name: models.EventComplaintNew,
		Payload: map[string]interface{}{
			"complaint_id": c.ID,
			"tracking_id":  c.TrackingID,
			"district":     c.District,
			"status":       c.Status,
		},
	})
}

// ComplaintUpdated signals watchers to refresh the complaint view.
func (s *NotificationService) ComplaintUpdated(c *models.Complaint) {
	s.enqueueEvent(models.Event{
		Name: models.EventComplaintRefresh,
		Payload: map[string]interface{}{
			"complaint_id": c.ID,
			"tracking_id":  c.TrackingID,
			"status":       c.Status,
		},
	})
	if c.CitizenID != nil {
		s.enqueuePush(*c.CitizenID, "Complaint "+c.TrackingID,
			fmt.Sprintf("Status changed to %s", c.Status))
	}
}

// ComplaintForwarded refreshes watchers and mails the forward target.
func (s *NotificationService) ComplaintForwarded(c *models.Complaint, fwd *models.ComplaintForward) {
	s.enqueueEvent(models.Event{
		Name:   models.EventComplaintRefresh,
		UserID: fwd.TargetID,
		Payload: map[string]interface{}{
			"complaint_id": c.ID,
			"tracking_id":  c.TrackingID,
			"status":       models.StatusForwarded,
			"target_type":  fwd.TargetType,
		},
	})

	body, err := mailer.RenderForward(mailer.ForwardMailData{
		TrackingID: c.TrackingID,
		Title:      c.Title,
		Remarks:    fwd.Remarks,
	})
	if err != nil {
		s.logger.Warn("failed to render forward mail", zap.Error(err))
		return
	}
	s.enqueueEmailTo(fwd.TargetID, fmt.Sprintf("Complaint %s forwarded to you", c.TrackingID), body)
}

// AssignmentCreated mails the officer and emits the realtime ping.
func (s *NotificationService) AssignmentCreated(a *models.Assignment, officer *models.User, dm *models.User) {
	if officer != nil {
		dmName := ""
		if dm != nil {
			dmName = dm.FullName()
		}
		body, err := mailer.RenderAssignment(mailer.AssignmentMailData{
			OfficerName: officer.FullName(),
			DMName:      dmName,
			VisitDate:   a.VisitDate.Format("02 Jan 2006"),
			District:    a.District,
			Priority:    string(a.Priority),
			Notes:       a.Notes,
		})
		if err != nil {
			s.logger.Warn("failed to render assignment mail", zap.Error(err))
		} else {
			s.enqueueEmail(officer.Email, "New field visit assignment", body)
		}
	}

	s.enqueueEvent(models.Event{
		Name:   models.EventAssignmentNew,
		UserID: a.OfficerID,
		Payload: map[string]interface{}{
			"assignment_id": a.ID,
			"district":      a.District,
			"visit_date":    a.VisitDate,
			"priority":      a.Priority,
		},
	})
}

// AssignmentUpdated tells the issuing DM the task moved.
func (s *NotificationService) AssignmentUpdated(a *models.Assignment) {
	s.enqueueEvent(models.Event{
		Name:   models.EventAssignmentUpdated,
		UserID: a.DMID,
		Payload: map[string]interface{}{
			"assignment_id": a.ID,
			"status":        a.Status,
		},
	})
}

func (s *NotificationService) enqueueEmail(to, subject, body string) {
	if s.mail == nil || to == "" {
		return
	}
	s.enqueue(jobTypeEmail, emailJob{To: to, Subject: subject, Body: body})
}

func (s *NotificationService) enqueueEmailTo(userID, subject, body string) {
	if s.mail == nil || userID == "" {
		return
	}
	s.enqueue(jobTypeEmail, emailJob{ToUserID: userID, Subject: subject, Body: body})
}

func (s *NotificationService) enqueueEvent(event models.Event) {
	if s.events == nil {
		return
	}
	s.enqueue(jobTypeRealtime, realtimeJob{Event: event})
}

func (s *NotificationService) enqueuePush(userID, title, body string) {
	s.enqueue(jobTypePush, pushJob{UserID: userID, Title: title, Body: body})
}

func (s *NotificationService) enqueue(jobType string, payload interface{}) {
	err := s.queue.Enqueue(jobs.Job{
		ID:       uuid.NewString(),
		Type:     jobType,
		Payload:  payload,
		Enqueued: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("type", jobType), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeEmail:
		payload, ok := job.Payload.(emailJob)
		if !ok {
			return fmt.Errorf("unexpected email payload %T", job.Payload)
		}
		to := payload.To
		if to == "" {
			recipient := s.ResolveRecipient(ctx, payload.ToUserID)
			if recipient == nil {
				return nil
			}
			to = recipient.Email
		}
		if to == "" {
			return nil
		}
		return s.mail.Send(to, payload.Subject, payload.Body)
	case jobTypeRealtime:
		payload, ok := job.Payload.(realtimeJob)
		if !ok {
			return fmt.Errorf("unexpected realtime payload %T", job.Payload)
		}
		return s.events.Publish(ctx, payload.Event)
	case jobTypePush:
		payload, ok := job.Payload.(pushJob)
		if !ok {
			return fmt.Errorf("unexpected push payload %T", job.Payload)
		}
		// Device push is not wired to a provider yet; log the intent so
		// delivery can be traced end to end.
		s.logger.Info("push notification",
			zap.String("user_id", payload.UserID),
			zap.String("title", payload.Title))
		return nil
	default:
		return fmt.Errorf("unknown notification job type %q", job.Type)
	}
}

// ResolveRecipient loads the recipient account, swallowing missing users.
func (s *NotificationService) ResolveRecipient(ctx context.Context, userID string) *models.User {
	if s.users == nil || userID == "" {
		return nil
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to resolve notification recipient", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return user
}

package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
	"github.com/sjd-portal/grievance-api/pkg/jobs"
)

type mailRecorder struct {
	mu    sync.Mutex
	sent  []string
	ready chan struct{}
}

func newMailRecorder() *mailRecorder {
	return &mailRecorder{ready: make(chan struct{}, 8)}
}

func (m *mailRecorder) Send(to, subject, body string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
	m.ready <- struct{}{}
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.Event
	ready  chan struct{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{ready: make(chan struct{}, 8)}
}

func (e *eventRecorder) Publish(ctx context.Context, event models.Event) error {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()
	e.ready <- struct{}{}
	return nil
}

func awaitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not dispatched in time")
	}
}

func newNotificationServiceForTest(t *testing.T) (*NotificationService, *mailRecorder, *eventRecorder) {
	t.Helper()
	mail := newMailRecorder()
	events := newEventRecorder()
	svc := NewNotificationService(mail, events, nil, zap.NewNop(), jobs.QueueConfig{Workers: 1})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc, mail, events
}

func TestNotificationServiceUserRegisteredSendsWelcomeMail(t *testing.T) {
	svc, mail, _ := newNotificationServiceForTest(t)

	svc.UserRegistered(&models.User{
		Email:      "asha@example.com",
		FirstName:  "Asha",
		UniqueCode: "SJD/2026/0001",
		Role:       models.RolePublic,
	})
	awaitSignal(t, mail.ready)

	mail.mu.Lock()
	defer mail.mu.Unlock()
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "asha@example.com", mail.sent[0])
}

func TestNotificationServiceComplaintFiledPublishesEvent(t *testing.T) {
	svc, _, events := newNotificationServiceForTest(t)

	svc.ComplaintFiled(&models.Complaint{
		ID:         "c-1",
		TrackingID: "SJD/2026/CMP000001",
		District:   "Raipur",
		Status:     models.StatusPending,
	})
	awaitSignal(t, events.ready)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventComplaintNew, events.events[0].Name)
	assert.Equal(t, "SJD/2026/CMP000001", events.events[0].Payload["tracking_id"])
}

type notifyUsersStub struct {
	users map[string]*models.User
}

func (u *notifyUsersStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func TestNotificationServiceForwardMailsResolvedTarget(t *testing.T) {
	mail := newMailRecorder()
	events := newEventRecorder()
	users := &notifyUsersStub{users: map[string]*models.User{
		"dept-1": {ID: "dept-1", Email: "phe@sjd.gov.in", Role: models.RoleDepartment},
	}}
	svc := NewNotificationService(mail, events, users, zap.NewNop(), jobs.QueueConfig{Workers: 1})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)

	svc.ComplaintForwarded(
		&models.Complaint{ID: "c-1", TrackingID: "SJD/2026/CMP000001", Title: "Water supply outage"},
		&models.ComplaintForward{TargetType: models.ForwardToDepartment, TargetID: "dept-1", Remarks: "PHE to act"},
	)
	awaitSignal(t, mail.ready)

	mail.mu.Lock()
	defer mail.mu.Unlock()
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "phe@sjd.gov.in", mail.sent[0])
}

func TestNotificationServiceForwardTargetsRecipient(t *testing.T) {
	svc, _, events := newNotificationServiceForTest(t)

	svc.ComplaintForwarded(
		&models.Complaint{ID: "c-1", TrackingID: "SJD/2026/CMP000001"},
		&models.ComplaintForward{TargetType: models.ForwardToDepartment, TargetID: "dept-1"},
	)
	awaitSignal(t, events.ready)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.events, 1)
	assert.Equal(t, "dept-1", events.events[0].UserID)
}

func TestNotificationServiceAssignmentCreated(t *testing.T) {
	svc, mail, events := newNotificationServiceForTest(t)

	officer := &models.User{ID: "officer-1", Email: "officer@sjd.gov.in", FirstName: "Vikas", Role: models.RoleOfficer}
	dm := &models.User{ID: "dm-1", FirstName: "District", LastName: "Magistrate", Role: models.RoleDM}
	svc.AssignmentCreated(&models.Assignment{
		ID:        "a-1",
		OfficerID: "officer-1",
		District:  "Raipur",
		VisitDate: time.Now().Add(24 * time.Hour),
		Priority:  models.PriorityHigh,
	}, officer, dm)

	awaitSignal(t, mail.ready)
	awaitSignal(t, events.ready)

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, models.EventAssignmentNew, events.events[0].Name)
	assert.Equal(t, "officer-1", events.events[0].UserID)
}

func TestNopNotifierIsSafe(t *testing.T) {
	var n Notifier = NopNotifier{}
	n.UserRegistered(nil)
	n.ComplaintFiled(nil)
	n.ComplaintUpdated(nil)
	n.ComplaintForwarded(nil, nil)
	n.AssignmentCreated(nil, nil, nil)
	n.AssignmentUpdated(nil)
}

package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
)

type fakeTracker struct {
	complaint  *models.Complaint
	complaints []models.Complaint
	err        error
	lastID     string
	lastMobile string
	lastActor  *models.User
	lastFile   models.FileComplaintRequest
}

func (f *fakeTracker) Track(_ context.Context, trackingID string) (*models.Complaint, error) {
	f.lastID = trackingID
	return f.complaint, f.err
}

func (f *fakeTracker) File(_ context.Context, actor *models.User, req models.FileComplaintRequest) (*models.Complaint, error) {
	f.lastActor = actor
	f.lastFile = req
	return f.complaint, f.err
}

func (f *fakeTracker) ListPublicByMobile(_ context.Context, mobile string) ([]models.Complaint, error) {
	f.lastMobile = mobile
	return f.complaints, f.err
}

func TestPublicHandlerFile(t *testing.T) {
	tracker := &fakeTracker{
		complaint: &models.Complaint{TrackingID: "SJD/2026/CMP000051", Status: models.StatusPending},
	}
	handler := NewPublicHandler(tracker)

	c, rec := jsonContext(t, http.MethodPost, "/public/complaints", models.FileComplaintRequest{
		Title:       "Water leak",
		Description: "Main line leaking near the bus stand",
		District:    "Raipur",
		CitizenName: "Ram Sahu",
		CitizenMob:  "9888800000",
	}, nil)
	handler.File(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, tracker.lastActor)
	assert.Equal(t, "9888800000", tracker.lastFile.CitizenMob)
	assert.Contains(t, rec.Body.String(), "SJD/2026/CMP000051")
}

func TestPublicHandlerFileInvalidBody(t *testing.T) {
	handler := NewPublicHandler(&fakeTracker{})

	c, rec := authedContext(t, http.MethodPost, "/public/complaints", nil)
	handler.File(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicHandlerFilePropagatesError(t *testing.T) {
	handler := NewPublicHandler(&fakeTracker{err: appErrors.ErrValidation})

	c, rec := jsonContext(t, http.MethodPost, "/public/complaints", models.FileComplaintRequest{
		Title:       "Water leak",
		Description: "Main line leaking near the bus stand",
		District:    "Raipur",
	}, nil)
	handler.File(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicHandlerListByMobile(t *testing.T) {
	tracker := &fakeTracker{
		complaints: []models.Complaint{{TrackingID: "SJD/2026/CMP000051", CitizenMobile: "9888800000"}},
	}
	handler := NewPublicHandler(tracker)

	c, rec := authedContext(t, http.MethodGet, "/public/complaints/9888800000", nil)
	c.Params = gin.Params{{Key: "mobile", Value: "9888800000"}}
	handler.ListByMobile(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9888800000", tracker.lastMobile)
	assert.Contains(t, rec.Body.String(), "SJD/2026/CMP000051")
}

func TestPublicHandlerListByMobileMissing(t *testing.T) {
	handler := NewPublicHandler(&fakeTracker{})

	c, rec := authedContext(t, http.MethodGet, "/public/complaints/", nil)
	c.Params = gin.Params{{Key: "mobile", Value: " "}}
	handler.ListByMobile(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicHandlerTrack(t *testing.T) {
	tracker := &fakeTracker{
		complaint: &models.Complaint{TrackingID: "SJD/2026/CMP000042", Status: models.StatusInProgress},
	}
	handler := NewPublicHandler(tracker)

	c, rec := authedContext(t, http.MethodGet, "/public/track/SJD%2F2026%2FCMP000042", nil)
	c.Params = gin.Params{{Key: "trackingId", Value: "SJD/2026/CMP000042"}}
	handler.Track(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SJD/2026/CMP000042", tracker.lastID)
	assert.Contains(t, rec.Body.String(), "In Progress")
}

func TestPublicHandlerTrackNotFound(t *testing.T) {
	handler := NewPublicHandler(&fakeTracker{err: appErrors.ErrNotFound})

	c, rec := authedContext(t, http.MethodGet, "/public/track/bogus", nil)
	c.Params = gin.Params{{Key: "trackingId", Value: "bogus"}}
	handler.Track(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicHandlerTrackMissingID(t *testing.T) {
	handler := NewPublicHandler(&fakeTracker{})

	c, rec := authedContext(t, http.MethodGet, "/public/track/", nil)
	c.Params = gin.Params{{Key: "trackingId", Value: "  "}}
	handler.Track(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

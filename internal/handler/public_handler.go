package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
	"github.com/sjd-portal/grievance-api/pkg/response"
)

type complaintTracker interface {
	Track(ctx context.Context, trackingID string) (*models.Complaint, error)
	File(ctx context.Context, actor *models.User, req models.FileComplaintRequest) (*models.Complaint, error)
	ListPublicByMobile(ctx context.Context, mobile string) ([]models.Complaint, error)
}

// PublicHandler serves the unauthenticated citizen surface: anonymous
// filing, tracking-ID lookup, and mobile-number lookup. No account data
// leaks through these routes.
type PublicHandler struct {
	complaints complaintTracker
}

// NewPublicHandler constructs the handler.
func NewPublicHandler(complaints complaintTracker) *PublicHandler {
	return &PublicHandler{complaints: complaints}
}

// File godoc
// @Summary File a complaint without an account
// @Description Anonymous submission; citizen name and mobile number stand in for a session
// @Tags Public
// @Accept json
// @Produce json
// @Param request body models.FileComplaintRequest true "Complaint"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /public/complaints [post]
func (h *PublicHandler) File(c *gin.Context) {
	var req models.FileComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	complaint, err := h.complaints.File(c.Request.Context(), nil, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, complaint)
}

// ListByMobile godoc
// @Summary List anonymously filed complaints by mobile number
// @Description Public lookup of anonymous submissions; account-linked complaints are never returned
// @Tags Public
// @Produce json
// @Param mobile path string true "Mobile number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /public/complaints/{mobile} [get]
func (h *PublicHandler) ListByMobile(c *gin.Context) {
	mobile := strings.TrimSpace(c.Param("mobile"))
	if mobile == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "mobile number is required"))
		return
	}

	complaints, err := h.complaints.ListPublicByMobile(c.Request.Context(), mobile)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaints, nil)
}

// Track godoc
// @Summary Track a complaint by its tracking ID
// @Description Public status lookup; no authentication required
// @Tags Public
// @Produce json
// @Param trackingId path string true "Tracking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/track/{trackingId} [get]
func (h *PublicHandler) Track(c *gin.Context) {
	trackingID := strings.TrimSpace(c.Param("trackingId"))
	if trackingID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tracking id is required"))
		return
	}

	complaint, err := h.complaints.Track(c.Request.Context(), trackingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaint, nil)
}

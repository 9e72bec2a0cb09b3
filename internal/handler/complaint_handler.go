package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
	"github.com/sjd-portal/grievance-api/pkg/response"
	"github.com/sjd-portal/grievance-api/pkg/storage"
)

const maxAttachmentBytes = 10 << 20

type complaintService interface {
	File(ctx context.Context, actor *models.User, req models.FileComplaintRequest) (*models.Complaint, error)
	List(ctx context.Context, actor *models.User, query models.ComplaintListQuery) ([]models.Complaint, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Complaint, error)
	AppendUpdate(ctx context.Context, actor *models.User, complaintID string, req models.UpdateComplaintRequest) (*models.Complaint, error)
	Forward(ctx context.Context, actor *models.User, complaintID string, req models.ForwardComplaintRequest) (*models.Complaint, error)
	AddCitizenRemark(ctx context.Context, actor *models.User, complaintID string, req models.CitizenRemarkRequest) error
	Stats(ctx context.Context, actor *models.User) (*models.ComplaintStats, error)
}

// ComplaintHandler exposes the complaint ledger endpoints.
type ComplaintHandler struct {
	service complaintService
	users   userLoader
	uploads *storage.LocalStorage
}

// NewComplaintHandler constructs the handler.
func NewComplaintHandler(svc complaintService, users userLoader, uploads *storage.LocalStorage) *ComplaintHandler {
	return &ComplaintHandler{service: svc, users: users, uploads: uploads}
}

// File godoc
// @Summary File a complaint
// @Description File a grievance; citizens file for themselves, officers on behalf of walk-ins
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body models.FileComplaintRequest true "Complaint payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) File(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.FileComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	complaint, err := h.service.File(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, complaint)
}

// List godoc
// @Summary List complaints
// @Description List complaints visible to the caller's role
// @Tags Complaints
// @Produce json
// @Param status query string false "Status filter"
// @Param from query string false "Filed after (RFC 3339)"
// @Param to query string false "Filed before (RFC 3339)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var query models.ComplaintListQuery
	if status := c.Query("status"); status != "" {
		query.Status = models.ComplaintStatus(status)
	}
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected RFC 3339"))
			return
		}
		query.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected RFC 3339"))
			return
		}
		query.To = &parsed
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		query.Offset = offset
	}

	complaints, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaints, nil)
}

// Get godoc
// @Summary Get complaint
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	complaint, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaint, nil)
}

// AppendUpdate godoc
// @Summary Append a status update
// @Description Record a status move on the complaint timeline
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body models.UpdateComplaintRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /complaints/{id}/updates [post]
func (h *ComplaintHandler) AppendUpdate(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.UpdateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	complaint, err := h.service.AppendUpdate(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaint, nil)
}

// Forward godoc
// @Summary Forward a complaint
// @Description Hand the complaint to another officer, department or DM
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body models.ForwardComplaintRequest true "Forward payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /complaints/{id}/forward [post]
func (h *ComplaintHandler) Forward(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.ForwardComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	complaint, err := h.service.Forward(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaint, nil)
}

// Remark godoc
// @Summary Add a citizen remark
// @Description Citizens may comment on their own complaints
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body models.CitizenRemarkRequest true "Remark payload"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /complaints/{id}/remarks [post]
func (h *ComplaintHandler) Remark(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.CitizenRemarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.AddCitizenRemark(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Stats godoc
// @Summary Complaint counts by status
// @Tags Complaints
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /complaints/stats [get]
func (h *ComplaintHandler) Stats(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// UploadAttachment godoc
// @Summary Upload a complaint attachment
// @Description Store a supporting document and return its reference path
// @Tags Complaints
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /complaints/attachments [post]
func (h *ComplaintHandler) UploadAttachment(c *gin.Context) {
	if _, err := actorFromContext(c, h.users); err != nil {
		response.Error(c, err)
		return
	}
	if h.uploads == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "attachment storage not configured"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if fileHeader.Size > maxAttachmentBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "attachment exceeds the 10 MB limit"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	name := storage.GenerateName(fileHeader.Filename)
	relPath, err := h.uploads.SaveStream(name, src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment"))
		return
	}

	response.Created(c, gin.H{
		"path":     relPath,
		"filename": strings.TrimSpace(fileHeader.Filename),
		"size":     fileHeader.Size,
	})
}

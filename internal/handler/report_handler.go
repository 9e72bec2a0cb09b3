package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sjd-portal/grievance-api/internal/dto"
	"github.com/sjd-portal/grievance-api/internal/models"
	"github.com/sjd-portal/grievance-api/internal/service"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
	"github.com/sjd-portal/grievance-api/pkg/response"
)

type reportService interface {
	CreateJob(ctx context.Context, req dto.ReportRequest, actor *models.User) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, id string, actor *models.User) (*dto.ReportStatusResponse, error)
	ListMine(ctx context.Context, actor *models.User, limit int) ([]dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes the asynchronous register export pipeline.
type ReportHandler struct {
	service reportService
	users   userLoader
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService, users userLoader) *ReportHandler {
	return &ReportHandler{service: svc, users: users}
}

// Generate godoc
// @Summary Enqueue a register export
// @Description Queue a complaints, assignments or summary register in CSV or PDF
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/generate [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	job, err := h.service.CreateJob(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/status [get]
func (h *ReportHandler) Status(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status, nil)
}

// ListMine godoc
// @Summary List own report jobs
// @Tags Reports
// @Produce json
// @Param limit query int false "Max jobs returned"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) ListMine(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.service.ListMine(c.Request.Context(), actor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, jobs, nil)
}

// Download godoc
// @Summary Download a finished register via signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	result, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	contentType := "text/csv"
	if result.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, result.File, nil)
}

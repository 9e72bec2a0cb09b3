package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
	"github.com/sjd-portal/grievance-api/pkg/response"
)

type assignmentService interface {
	Create(ctx context.Context, dm *models.User, req models.CreateAssignmentRequest) (*models.Assignment, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Assignment, error)
	ListForOfficer(ctx context.Context, officerID string) ([]models.Assignment, error)
	ListForDM(ctx context.Context, dmID string) ([]models.Assignment, error)
	UpdateStatus(ctx context.Context, actor *models.User, id string, req models.UpdateAssignmentStatusRequest) (*models.Assignment, error)
	RecordVisitReport(ctx context.Context, actor *models.User, id string, report models.VisitReport) (*models.Assignment, error)
}

// AssignmentHandler exposes field visit assignment endpoints.
type AssignmentHandler struct {
	service assignmentService
	users   userLoader
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService, users userLoader) *AssignmentHandler {
	return &AssignmentHandler{service: svc, users: users}
}

// Create godoc
// @Summary Issue a field visit assignment
// @Description DM assigns an officer to visit a location, optionally bundling complaints
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignment)
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	assignment, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

// ListMine godoc
// @Summary List own assignments
// @Description Officers see assignments issued to them; DMs see assignments they issued
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) ListMine(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var assignments []models.Assignment
	switch actor.Role {
	case models.RoleOfficer:
		assignments, err = h.service.ListForOfficer(c.Request.Context(), actor.ID)
	case models.RoleDM:
		assignments, err = h.service.ListForDM(c.Request.Context(), actor.ID)
	default:
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, nil)
}

// UpdateStatus godoc
// @Summary Move assignment status
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.UpdateAssignmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments/{id}/status [put]
func (h *AssignmentHandler) UpdateStatus(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.UpdateAssignmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

// VisitReport godoc
// @Summary Submit the field visit report
// @Description Records the close-out numbers and completes the assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.VisitReport true "Visit report payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments/{id}/report [post]
func (h *AssignmentHandler) VisitReport(c *gin.Context) {
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var report models.VisitReport
	if err := c.ShouldBindJSON(&report); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.service.RecordVisitReport(c.Request.Context(), actor, c.Param("id"), report)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

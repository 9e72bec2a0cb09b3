package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sjd-portal/grievance-api/internal/models"
	"github.com/sjd-portal/grievance-api/internal/service"
	"github.com/sjd-portal/grievance-api/pkg/response"
)

// ArchiveHandler exposes read access to archived account snapshots.
// Snapshots are written during account deletion and are immutable.
type ArchiveHandler struct {
	service *service.UserService
}

// NewArchiveHandler constructs the handler.
func NewArchiveHandler(svc *service.UserService) *ArchiveHandler {
	return &ArchiveHandler{service: svc}
}

// List godoc
// @Summary List archived accounts
// @Description List deletion snapshots with optional role and search filters
// @Tags Archives
// @Produce json
// @Param role query string false "Role filter"
// @Param search query string false "Search term"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /archives/users [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	filter := models.ArchiveFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}

	items, err := h.service.ListArchived(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get archived account
// @Description Fetch a single deletion snapshot with its full account data
// @Tags Archives
// @Produce json
// @Param id path string true "Archive ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archives/users/{id} [get]
func (h *ArchiveHandler) Get(c *gin.Context) {
	item, err := h.service.GetArchived(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

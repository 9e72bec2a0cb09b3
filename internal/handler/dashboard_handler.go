package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjd-portal/grievance-api/internal/dto"
	"github.com/sjd-portal/grievance-api/internal/middleware"
	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
	"github.com/sjd-portal/grievance-api/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context) (*dto.OverviewDashboardResponse, bool, error)
	DM(ctx context.Context, dm *models.User) (*dto.DMDashboardResponse, bool, error)
	Department(ctx context.Context, dept *models.User) (*dto.DepartmentDashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	users   userLoader
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService, users userLoader) *DashboardHandler {
	return &DashboardHandler{service: svc, users: users}
}

// Overview godoc
// @Summary Portal-wide dashboard summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

// DM godoc
// @Summary District magistrate dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/dm [get]
func (h *DashboardHandler) DM(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.DM(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

// Department godoc
// @Summary Department workload dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/department [get]
func (h *DashboardHandler) Department(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, err := actorFromContext(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Department(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

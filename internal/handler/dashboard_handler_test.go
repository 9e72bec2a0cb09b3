package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sjd-portal/grievance-api/internal/dto"
	"github.com/sjd-portal/grievance-api/internal/middleware"
	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
)

// userLoaderStub backs actorFromContext in handler tests.
type userLoaderStub struct {
	users map[string]*models.User
}

func (u *userLoaderStub) Get(_ context.Context, id string) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return user, nil
}

func loaderWith(users ...*models.User) *userLoaderStub {
	stub := &userLoaderStub{users: make(map[string]*models.User)}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func testDM() *models.User {
	return &models.User{ID: "dm-1", Role: models.RoleDM, District: "Raipur"}
}

func authedContext(t *testing.T, method, target string, user *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, nil)
	if user != nil {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: user.ID, Role: user.Role, District: user.District})
	}
	return c, rec
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

type fakeDashboardSrv struct {
	overview *dto.OverviewDashboardResponse
	dm       *dto.DMDashboardResponse
	dept     *dto.DepartmentDashboardResponse
	hit      bool
	err      error
	lastDM   string
}

func (f *fakeDashboardSrv) Overview(context.Context) (*dto.OverviewDashboardResponse, bool, error) {
	return f.overview, f.hit, f.err
}

func (f *fakeDashboardSrv) DM(_ context.Context, dm *models.User) (*dto.DMDashboardResponse, bool, error) {
	f.lastDM = dm.ID
	return f.dm, f.hit, f.err
}

func (f *fakeDashboardSrv) Department(_ context.Context, dept *models.User) (*dto.DepartmentDashboardResponse, bool, error) {
	return f.dept, f.hit, f.err
}

func TestDashboardHandlerOverview(t *testing.T) {
	service := &fakeDashboardSrv{
		overview: &dto.OverviewDashboardResponse{TotalAccounts: 42},
		hit:      true,
	}
	handler := NewDashboardHandler(service, loaderWith())

	c, rec := authedContext(t, http.MethodGet, "/dashboard/overview", nil)
	handler.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, float64(42), envelope.Data["total_accounts"])
}

func TestDashboardHandlerDM(t *testing.T) {
	dm := testDM()
	service := &fakeDashboardSrv{
		dm: &dto.DMDashboardResponse{Assignments: dto.AssignmentSummary{Total: 3}},
	}
	handler := NewDashboardHandler(service, loaderWith(dm))

	c, rec := authedContext(t, http.MethodGet, "/dashboard/dm", dm)
	handler.DM(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dm-1", service.lastDM)
}

func TestDashboardHandlerDMRequiresAuth(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{}, loaderWith())

	c, rec := authedContext(t, http.MethodGet, "/dashboard/dm", nil)
	handler.DM(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerDepartment(t *testing.T) {
	dept := &models.User{ID: "dept-1", Role: models.RoleDepartment}
	service := &fakeDashboardSrv{
		dept: &dto.DepartmentDashboardResponse{},
	}
	handler := NewDashboardHandler(service, loaderWith(dept))

	c, rec := authedContext(t, http.MethodGet, "/dashboard/department", dept)
	handler.Department(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardHandlerDeactivatedActor(t *testing.T) {
	dm := testDM()
	dm.IsDeleted = true
	handler := NewDashboardHandler(&fakeDashboardSrv{}, loaderWith(dm))

	c, rec := authedContext(t, http.MethodGet, "/dashboard/dm", dm)
	handler.DM(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/dto"
	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
)

type dashboardComplaintRepository interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
	Stats(ctx context.Context, filter models.ComplaintFilter) (*models.ComplaintStats, error)
}

type dashboardAssignmentRepository interface {
	ListByDM(ctx context.Context, dmID string) ([]models.Assignment, error)
}

type dashboardUserRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	RecentLimit int
}

// DashboardService composes the role-specific console summaries over the
// complaint ledger and assignment tracker, with Redis-backed caching.
type DashboardService struct {
	complaints  dashboardComplaintRepository
	assignments dashboardAssignmentRepository
	users       dashboardUserRepository
	cache       *CacheService
	logger      *zap.Logger
	cfg         DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(complaints dashboardComplaintRepository, assignments dashboardAssignmentRepository, users dashboardUserRepository, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		complaints:  complaints,
		assignments: assignments,
		users:       users,
		cache:       cache,
		logger:      logger,
		cfg:         cfg,
	}
}

// Overview returns the admin console summary and indicates cache
// utilisation.
func (s *DashboardService) Overview(ctx context.Context) (*dto.OverviewDashboardResponse, bool, error) {
	const cacheKey = "dash:overview"
	if s.cache != nil {
		var cached dto.OverviewDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, err
		} else if hit {
			return &cached, true, nil
		}
	}

	stats, err := s.complaints.Stats(ctx, models.ComplaintFilter{})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate complaints")
	}

	recent, err := s.recentComplaints(ctx, models.ComplaintFilter{})
	if err != nil {
		return nil, false, err
	}

	districts, err := s.districtLoads(ctx)
	if err != nil {
		return nil, false, err
	}

	total := 0
	if s.users != nil {
		if _, count, err := s.users.List(ctx, models.UserFilter{PageSize: 1}); err != nil {
			s.logger.Warn("failed to count accounts for dashboard", zap.Error(err))
		} else {
			total = count
		}
	}

	summary := &dto.OverviewDashboardResponse{
		Complaints:    *stats,
		Districts:     districts,
		TotalAccounts: total,
		Recent:        recent,
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// DM returns the district magistrate view: district-wide complaint stats
// plus the state of the visits they have issued.
func (s *DashboardService) DM(ctx context.Context, dm *models.User) (*dto.DMDashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dash:dm:%s", dm.ID)
	if s.cache != nil {
		var cached dto.DMDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, err
		} else if hit {
			return &cached, true, nil
		}
	}

	stats, err := s.complaints.Stats(ctx, models.ComplaintFilter{})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate complaints")
	}

	recent, err := s.recentComplaints(ctx, models.ComplaintFilter{})
	if err != nil {
		return nil, false, err
	}

	assignmentSummary := dto.AssignmentSummary{}
	if s.assignments != nil {
		assignments, err := s.assignments.ListByDM(ctx, dm.ID)
		if err != nil {
			s.logger.Warn("failed to load assignments for dashboard", zap.Error(err))
		} else {
			assignmentSummary.Total = len(assignments)
			for _, a := range assignments {
				switch a.Status {
				case models.AssignmentAssigned:
					assignmentSummary.Assigned++
				case models.AssignmentAccepted:
					assignmentSummary.Accepted++
				case models.AssignmentCompleted:
					assignmentSummary.Completed++
				}
			}
		}
	}

	summary := &dto.DMDashboardResponse{
		Complaints:  *stats,
		Assignments: assignmentSummary,
		Recent:      recent,
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Department returns the forwarded-queue view for a department account.
func (s *DashboardService) Department(ctx context.Context, dept *models.User) (*dto.DepartmentDashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dash:dept:%s", dept.ID)
	if s.cache != nil {
		var cached dto.DepartmentDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, err
		} else if hit {
			return &cached, true, nil
		}
	}

	filter := models.ComplaintFilter{ForwardedToDepartment: dept.ID}
	stats, err := s.complaints.Stats(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate complaints")
	}

	recent, err := s.recentComplaints(ctx, filter)
	if err != nil {
		return nil, false, err
	}

	summary := &dto.DepartmentDashboardResponse{
		Complaints: *stats,
		Recent:     recent,
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Invalidate drops every cached dashboard. Called after writes that move
// the aggregates.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) recentComplaints(ctx context.Context, filter models.ComplaintFilter) ([]dto.ComplaintCard, error) {
	filter.Limit = s.cfg.RecentLimit
	complaints, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent complaints")
	}
	cards := make([]dto.ComplaintCard, 0, len(complaints))
	for _, c := range complaints {
		cards = append(cards, dto.ComplaintCard{
			ID:         c.ID,
			TrackingID: c.TrackingID,
			Title:      c.Title,
			District:   c.District,
			Status:     c.Status,
			CreatedAt:  c.CreatedAt.Format("2006-01-02"),
		})
	}
	return cards, nil
}

func (s *DashboardService) districtLoads(ctx context.Context) ([]dto.DistrictLoad, error) {
	// Small deployments carry a handful of districts; fold the recent open
	// ledger in memory rather than adding a dedicated aggregate query.
	complaints, err := s.complaints.List(ctx, models.ComplaintFilter{Limit: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints for district loads")
	}
	counts := map[string]int{}
	for _, c := range complaints {
		if c.Status.Terminal() {
			continue
		}
		counts[c.District]++
	}
	loads := make([]dto.DistrictLoad, 0, len(counts))
	for district, open := range counts {
		loads = append(loads, dto.DistrictLoad{District: district, Open: open})
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].Open > loads[j].Open })
	return loads, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

package dto

import "github.com/sjd-portal/grievance-api/internal/models"

// OverviewDashboardResponse is the admin and superadmin console summary.
type OverviewDashboardResponse struct {
	Complaints    models.ComplaintStats `json:"complaints"`
	Districts     []DistrictLoad        `json:"districts"`
	TotalAccounts int                   `json:"total_accounts"`
	Recent        []ComplaintCard       `json:"recent_complaints"`
}

// DistrictLoad counts open complaints per district.
type DistrictLoad struct {
	District string `json:"district"`
	Open     int    `json:"open"`
}

// DMDashboardResponse summarises the district view for a DM.
type DMDashboardResponse struct {
	Complaints  models.ComplaintStats `json:"complaints"`
	Assignments AssignmentSummary     `json:"assignments"`
	Recent      []ComplaintCard       `json:"recent_complaints"`
}

// DepartmentDashboardResponse summarises the forwarded queue for a
// department account.
type DepartmentDashboardResponse struct {
	Complaints models.ComplaintStats `json:"complaints"`
	Recent     []ComplaintCard       `json:"recent_complaints"`
}

// AssignmentSummary counts field-visit tasks by status.
type AssignmentSummary struct {
	Total     int `json:"total"`
	Assigned  int `json:"assigned"`
	Accepted  int `json:"accepted"`
	Completed int `json:"completed"`
}

// ComplaintCard is the compact listing row used on dashboards.
type ComplaintCard struct {
	ID         string                 `json:"id"`
	TrackingID string                 `json:"tracking_id"`
	Title      string                 `json:"title"`
	District   string                 `json:"district"`
	Status     models.ComplaintStatus `json:"status"`
	CreatedAt  string                 `json:"created_at"`
}

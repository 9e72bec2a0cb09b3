package dto

import (
	"time"

	"github.com/sjd-portal/grievance-api/internal/models"
)

// ReportRequest captures POST /reports/generate payload.
type ReportRequest struct {
	Type     models.ReportType      `json:"type"`
	District string                 `json:"district,omitempty"`
	Status   models.ComplaintStatus `json:"status,omitempty"`
	From     *time.Time             `json:"from,omitempty"`
	To       *time.Time             `json:"to,omitempty"`
	Format   models.ReportFormat    `json:"format"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
	"github.com/sjd-portal/grievance-api/pkg/export"
	"github.com/sjd-portal/grievance-api/pkg/storage"
)

type exportComplaintStub struct{}

func (exportComplaintStub) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	return []models.Complaint{
		{
			ID:         "c-1",
			TrackingID: "SJD/2026/CMP000042",
			Title:      "Street light outage",
			Category:   "Infrastructure",
			District:   filter.District,
			Status:     models.StatusPending,
			SourceType: models.SourcePublic,
			CreatedAt:  time.Now(),
		},
	}, nil
}

func (exportComplaintStub) Stats(ctx context.Context, filter models.ComplaintFilter) (*models.ComplaintStats, error) {
	return &models.ComplaintStats{Total: 12, Pending: 4, InProgress: 3, Resolved: 3, Forwarded: 1, Rejected: 1}, nil
}

type exportAssignmentStub struct{}

func (exportAssignmentStub) ListByDM(ctx context.Context, dmID string) ([]models.Assignment, error) {
	return []models.Assignment{
		{
			ID:               "a-1",
			OfficerID:        "officer-1",
			DMID:             dmID,
			District:         "Raipur",
			VisitDate:        time.Now().Add(24 * time.Hour),
			Priority:         models.PriorityHigh,
			Status:           models.AssignmentAssigned,
			ComplaintsSolved: 0,
		},
	}, nil
}

func (exportAssignmentStub) ListByOfficer(ctx context.Context, officerID string) ([]models.Assignment, error) {
	return nil, nil
}

func (exportAssignmentStub) Count(ctx context.Context) (int, error) {
	return 7, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(exportComplaintStub{}, exportAssignmentStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateComplaintRegisterCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeComplaints,
		Params:    models.ReportJobParams{District: "Raipur", Format: models.ReportFormatCSV},
		CreatedBy: "dm-1",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/reports/download/")
	require.Contains(t, result.RelativePath, "Raipur")

	path := store.Path(result.RelativePath)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateSummaryPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeSummary,
		Params:    models.ReportJobParams{Format: models.ReportFormatPDF},
		CreatedBy: "admin-1",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateAssignmentRegister(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-3",
		Type:      models.ReportTypeAssignments,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		CreatedBy: "dm-1",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-4",
		Type:      models.ReportTypeComplaints,
		Params:    models.ReportJobParams{Format: models.ReportFormat("xlsx")},
		CreatedBy: "dm-1",
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

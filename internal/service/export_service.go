package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
	"github.com/sjd-portal/grievance-api/pkg/export"
	"github.com/sjd-portal/grievance-api/pkg/storage"
)

type exportComplaintRepository interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
	Stats(ctx context.Context, filter models.ComplaintFilter) (*models.ComplaintStats, error)
}

type exportAssignmentRepository interface {
	ListByDM(ctx context.Context, dmID string) ([]models.Assignment, error)
	ListByOfficer(ctx context.Context, officerID string) ([]models.Assignment, error)
	Count(ctx context.Context) (int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	MaxRows   int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds register datasets and persists rendered files.
type ExportService struct {
	complaints  exportComplaintRepository
	assignments exportAssignmentRepository
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(complaints exportComplaintRepository, assignments exportAssignmentRepository, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 200
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		complaints:  complaints,
		assignments: assignments,
		storage:     storage,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the register dataset for the job and stores the rendered
// export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	districtPart := sanitizeFilename(job.Params.District)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), districtPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeComplaints:
		return s.buildComplaintRegister(ctx, job.Params)
	case models.ReportTypeAssignments:
		return s.buildAssignmentRegister(ctx, job)
	case models.ReportTypeSummary:
		return s.buildSummaryDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildComplaintRegister(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.ComplaintFilter{
		District: params.District,
		Status:   params.Status,
		From:     params.From,
		To:       params.To,
		Limit:    s.cfg.MaxRows,
	}
	complaints, err := s.complaints.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(complaints))
	for _, c := range complaints {
		rows = append(rows, map[string]string{
			"Tracking ID": c.TrackingID,
			"Title":       c.Title,
			"Category":    c.Category,
			"District":    c.District,
			"Status":      string(c.Status),
			"Source":      string(c.SourceType),
			"Filed On":    c.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Tracking ID", "Title", "Category", "District", "Status", "Source", "Filed On"},
		Rows:    rows,
	}
	title := "Complaint Register"
	if params.District != "" {
		title = fmt.Sprintf("Complaint Register %s", params.District)
	}
	return dataset, title, nil
}

func (s *ExportService) buildAssignmentRegister(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	// The register covers the requesting DM's own issued visits.
	assignments, err := s.assignments.ListByDM(ctx, job.CreatedBy)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, map[string]string{
			"Assignment": a.ID,
			"Officer":    a.OfficerID,
			"District":   a.District,
			"Visit Date": a.VisitDate.UTC().Format("2006-01-02"),
			"Priority":   string(a.Priority),
			"Status":     string(a.Status),
			"Solved":     fmt.Sprintf("%d", a.ComplaintsSolved),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Assignment", "Officer", "District", "Visit Date", "Priority", "Status", "Solved"},
		Rows:    rows,
	}
	return dataset, "Field Visit Register", nil
}

func (s *ExportService) buildSummaryDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	stats, err := s.complaints.Stats(ctx, models.ComplaintFilter{District: params.District})
	if err != nil {
		return export.Dataset{}, "", err
	}
	totalAssignments := 0
	if s.assignments != nil {
		if count, err := s.assignments.Count(ctx); err != nil {
			s.logger.Warn("failed to count assignments for summary export", zap.Error(err))
		} else {
			totalAssignments = count
		}
	}

	scope := params.District
	if scope == "" {
		scope = "All districts"
	}
	rows := []map[string]string{
		{"Metric": "Total Complaints", "Scope": scope, "Value": fmt.Sprintf("%d", stats.Total)},
		{"Metric": "Pending", "Scope": scope, "Value": fmt.Sprintf("%d", stats.Pending)},
		{"Metric": "In Progress", "Scope": scope, "Value": fmt.Sprintf("%d", stats.InProgress)},
		{"Metric": "Resolved", "Scope": scope, "Value": fmt.Sprintf("%d", stats.Resolved)},
		{"Metric": "Forwarded", "Scope": scope, "Value": fmt.Sprintf("%d", stats.Forwarded)},
		{"Metric": "Rejected", "Scope": scope, "Value": fmt.Sprintf("%d", stats.Rejected)},
		{"Metric": "Field Visits Issued", "Scope": scope, "Value": fmt.Sprintf("%d", totalAssignments)},
	}

	dataset := export.Dataset{
		Headers: []string{"Metric", "Scope", "Value"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Grievance Summary (%s)", scope), nil
}

package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Path         string
	Format       ExportFormat
	Rows         int
}

// ExportService renders loaded assignment collections to files.
type ExportService struct {
	storage fileStorage
	csv     renderer
	pdf     renderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(storage fileStorage, logger *zap.Logger, csv, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{storage: storage, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

var assignmentColumns = []export.Column{
	{Header: "ID", Weight: 2.2},
	{Header: "Location", Weight: 1.6},
	{Header: "Period", Weight: 1.2},
	{Header: "Staff", Weight: 1.3},
	{Header: "Supervisor", Weight: 1.3},
	{Header: "Status", Weight: 0.8},
	{Header: "Rating", Weight: 0.5},
	{Header: "Completed At", Weight: 1.4},
	{Header: "Reviewed At", Weight: 1.4},
	{Header: "Notes", Weight: 2},
}

// Assignments writes items as a CSV or PDF file named after title.
func (s *ExportService) Assignments(title string, format ExportFormat, items []models.Assignment) (*ExportResult, error) {
	now := s.now().UTC()
	dataset := assignmentDataset(items)
	dataset.Title = title
	dataset.Subtitle = fmt.Sprintf("%d assignments, generated %s", len(items), now.Format(time.RFC1123))

	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s.%s", sanitizeFilename(strings.ToLower(title)), now.Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export written", zap.String("file", relPath), zap.Int("rows", len(items)))

	return &ExportResult{
		RelativePath: relPath,
		Path:         s.storage.Path(relPath),
		Format:       format,
		Rows:         len(items),
	}, nil
}

// Cleanup removes exports older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		return nil, nil
	}
	return s.storage.CleanupOlderThan(ttl)
}

func assignmentDataset(items []models.Assignment) export.Dataset {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		location, period := item.LocationID, item.PeriodID
		staff, supervisor := item.StaffUserID, item.SupervisorUserID
		if item.Location != nil {
			location = item.Location.Name
		}
		if item.Period != nil {
			period = item.Period.Name
		}
		if item.StaffUser != nil {
			staff = item.StaffUser.FullName
		}
		if item.SupervisorUser != nil {
			supervisor = item.SupervisorUser.FullName
		}
		rating := ""
		if item.Rating != nil {
			rating = strconv.Itoa(*item.Rating)
		}
		notes := deref(item.StaffNotes)
		if item.Status == models.StatusRejected {
			notes = deref(item.RejectionReason)
		}
		rows = append(rows, []string{
			item.ID,
			location,
			period,
			staff,
			supervisor,
			string(item.Status),
			rating,
			formatTime(item.StaffCompletedAt),
			formatTime(item.SupervisorReviewedAt),
			notes,
		})
	}
	return export.Dataset{Columns: assignmentColumns, Rows: rows}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "export"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

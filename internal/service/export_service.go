package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-transfer-api/internal/models"
	appErrors "github.com/noah-isme/sma-transfer-api/pkg/errors"
	"github.com/noah-isme/sma-transfer-api/pkg/export"
)

type exportHistoryReader interface {
	ListByTransferID(ctx context.Context, transferID string) ([]models.EnrollmentHistoryRecord, error)
}

type studentNameResolver interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// ExportService renders the ledger records of one transfer into a
// downloadable document for the admin console.
type ExportService struct {
	history exportHistoryReader
	names   studentNameResolver
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(history exportHistoryReader, names studentNameResolver, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		history: history,
		names:   names,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ExportResult carries the rendered document and its HTTP metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportTransfer renders the transfer's ledger as CSV (default) or PDF.
func (s *ExportService) ExportTransfer(ctx context.Context, transferID, format string) (*ExportResult, error) {
	records, err := s.history.ListByTransferID(ctx, transferID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer history")
	}
	if len(records) == 0 {
		return nil, appErrors.ErrTransferNotFound
	}
	names := s.resolveNames(ctx, records)

	dataset := historyDataset(records, names)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("transfer-%s.csv", transferID),
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Transfer %s", transferID))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("transfer-%s.pdf", transferID),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "unsupported export format")
	}
}

// resolveNames best-effort resolves student display names. A lookup
// failure degrades the export, it does not fail it.
func (s *ExportService) resolveNames(ctx context.Context, records []models.EnrollmentHistoryRecord) map[string]string {
	if s.names == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.StudentID]; ok {
			continue
		}
		seen[rec.StudentID] = struct{}{}
		ids = append(ids, rec.StudentID)
	}
	names, err := s.names.NamesByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve student names for export", zap.Error(err))
		return nil
	}
	return names
}

func historyDataset(records []models.EnrollmentHistoryRecord, names map[string]string) export.Dataset {
	headers := []string{"Student ID", "Student Name", "Action", "From Class", "To Class", "Performed By", "Occurred At"}
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, map[string]string{
			"Student ID":   rec.StudentID,
			"Student Name": names[rec.StudentID],
			"Action":       string(rec.Action),
			"From Class":   deref(rec.SourceClassID),
			"To Class":     deref(rec.DestinationClassID),
			"Performed By": rec.PerformedBy,
			"Occurred At":  rec.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-transfer-api/internal/models"
	appErrors "github.com/noah-isme/sma-transfer-api/pkg/errors"
)

type stubExportHistory struct {
	records []models.EnrollmentHistoryRecord
}

func (s *stubExportHistory) ListByTransferID(ctx context.Context, transferID string) ([]models.EnrollmentHistoryRecord, error) {
	return s.records, nil
}

type stubNameResolver struct {
	names map[string]string
}

func (s *stubNameResolver) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	return s.names, nil
}

func exportFixtureRecords() []models.EnrollmentHistoryRecord {
	source := "class-a"
	dest := "class-b"
	transferID := "transfer-1"
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return []models.EnrollmentHistoryRecord{
		{
			ID: "h1", StudentID: "s1", ClassID: dest, Action: models.HistoryActionTransferred,
			SourceClassID: &source, DestinationClassID: &dest, TransferID: &transferID,
			PerformedBy: "admin-1", OccurredAt: at,
		},
		{
			ID: "h2", StudentID: "s2", ClassID: dest, Action: models.HistoryActionTransferred,
			SourceClassID: &source, DestinationClassID: &dest, TransferID: &transferID,
			PerformedBy: "admin-1", OccurredAt: at,
		},
	}
}

func TestExportTransferCSV(t *testing.T) {
	svc := NewExportService(
		&stubExportHistory{records: exportFixtureRecords()},
		&stubNameResolver{names: map[string]string{"s1": "Budi Santoso", "s2": "Siti Rahma"}},
		zap.NewNop())

	result, err := svc.ExportTransfer(context.Background(), "transfer-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "transfer-transfer-1.csv", result.Filename)

	content := string(result.Content)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Student ID")
	assert.Contains(t, lines[0], "Student Name")
	assert.Contains(t, content, "Budi Santoso")
	assert.Contains(t, content, "class-a")
	assert.Contains(t, content, "TRANSFERRED")
}

func TestExportTransferDefaultsToCSV(t *testing.T) {
	svc := NewExportService(&stubExportHistory{records: exportFixtureRecords()}, nil, zap.NewNop())
	result, err := svc.ExportTransfer(context.Background(), "transfer-1", "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
}

func TestExportTransferPDF(t *testing.T) {
	svc := NewExportService(&stubExportHistory{records: exportFixtureRecords()}, nil, zap.NewNop())
	result, err := svc.ExportTransfer(context.Background(), "transfer-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportTransferUnknownTransfer(t *testing.T) {
	svc := NewExportService(&stubExportHistory{}, nil, zap.NewNop())
	_, err := svc.ExportTransfer(context.Background(), "missing", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransferNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportTransferUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&stubExportHistory{records: exportFixtureRecords()}, nil, zap.NewNop())
	_, err := svc.ExportTransfer(context.Background(), "transfer-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRequest.Code, appErrors.FromError(err).Code)
}

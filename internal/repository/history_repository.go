package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-transfer-api/internal/models"
)

const historyColumns = `id, student_id, class_id, action, source_class_id, destination_class_id,
       transfer_id, undo_of_transfer_id, performed_by, occurred_at`

// HistoryRepository reads the append-only enrollment ledger. Appends happen
// through the transfer store only, inside the operation's transaction.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// ListByTransferID returns every ledger record tagged with the transfer id,
// oldest first.
func (r *HistoryRepository) ListByTransferID(ctx context.Context, transferID string) ([]models.EnrollmentHistoryRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollment_history WHERE transfer_id = $1 ORDER BY occurred_at ASC, id ASC`, historyColumns)
	var records []models.EnrollmentHistoryRecord
	if err := r.db.SelectContext(ctx, &records, query, transferID); err != nil {
		return nil, fmt.Errorf("list transfer history: %w", err)
	}
	return records, nil
}

// ListByStudent returns a student's ledger records, newest first.
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]models.EnrollmentHistoryRecord, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM enrollment_history WHERE student_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT %d OFFSET %d`,
		historyColumns, limit, offset)
	var records []models.EnrollmentHistoryRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, 0, fmt.Errorf("list student history: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM enrollment_history WHERE student_id = $1`, studentID); err != nil {
		return nil, 0, fmt.Errorf("count student history: %w", err)
	}
	return records, total, nil
}

// HasUndo reports whether any ledger record reverses the given transfer.
func (r *HistoryRepository) HasUndo(ctx context.Context, transferID string) (bool, error) {
	const query = `SELECT 1 FROM enrollment_history WHERE undo_of_transfer_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, transferID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check undo records: %w", err)
	}
	return true, nil
}

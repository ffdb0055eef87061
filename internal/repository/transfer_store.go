package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-transfer-api/internal/models"
)

// TransferTx is the transactional surface the transfer and undo
// coordinators operate on. Every method runs on the same database
// transaction, so enrollment writes, counter updates and ledger appends
// for one logical operation commit or roll back together. Per-student
// work is bracketed with savepoints so one student's failed statement
// does not poison the transaction for the rest of the batch.
type TransferTx interface {
	// LockClass loads the class row under FOR UPDATE. Callers must lock
	// classes in ascending id order to avoid deadlocks between concurrent
	// batches. Returns sql.ErrNoRows when the class does not exist.
	LockClass(ctx context.Context, id string) (*models.Class, error)

	// FindStudent returns nil when the student does not exist.
	FindStudent(ctx context.Context, id string) (*models.Student, error)

	// FindActiveEnrollment returns the student's ACTIVE enrollment in the
	// given class, or nil when there is none.
	FindActiveEnrollment(ctx context.Context, studentID, classID string) (*models.Enrollment, error)

	// FindTransferredEnrollment returns the most recent TRANSFERRED
	// enrollment binding the student to the given class, or nil.
	FindTransferredEnrollment(ctx context.Context, studentID, classID string) (*models.Enrollment, error)

	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus, leftAt *time.Time) error
	DeleteEnrollment(ctx context.Context, id string) error

	AppendHistory(ctx context.Context, record *models.EnrollmentHistoryRecord) error

	IncrementEnrollment(ctx context.Context, classID string) error
	// DecrementEnrollment is floor-clamped at zero so double-application
	// bugs can never drive a counter negative.
	DecrementEnrollment(ctx context.Context, classID string) error

	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
}

// TransferStore owns the transaction boundary for transfer and undo
// operations.
type TransferStore struct {
	db *sqlx.DB
}

// NewTransferStore constructs the store.
func NewTransferStore(db *sqlx.DB) *TransferStore {
	return &TransferStore{db: db}
}

// Run executes fn inside one database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *TransferStore) Run(ctx context.Context, fn func(tx TransferTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(&transferTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer tx: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. The transfer coordinator uses it to classify races the
// explicit pre-checks missed.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

type transferTx struct {
	tx *sqlx.Tx
}

func (t *transferTx) LockClass(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, grade, status, capacity, current_enrollment, created_at, updated_at
        FROM classes WHERE id = $1 FOR UPDATE`
	var class models.Class
	if err := t.tx.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

func (t *transferTx) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, nis, full_name, active, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := t.tx.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

func (t *transferTx) FindActiveEnrollment(ctx context.Context, studentID, classID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, status, reason, joined_at, left_at
        FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, studentID, classID, models.EnrollmentStatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}
	return &enrollment, nil
}

func (t *transferTx) FindTransferredEnrollment(ctx context.Context, studentID, classID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, status, reason, joined_at, left_at
        FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3
        ORDER BY left_at DESC NULLS LAST LIMIT 1`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, studentID, classID, models.EnrollmentStatusTransferred); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transferred enrollment: %w", err)
	}
	return &enrollment, nil
}

func (t *transferTx) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, student_id, class_id, status, reason, joined_at, left_at)
        VALUES (:id, :student_id, :class_id, :status, :reason, :joined_at, :left_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func (t *transferTx) UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus, leftAt *time.Time) error {
	const query = `UPDATE enrollments SET status = $2, left_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id, status, leftAt); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

func (t *transferTx) DeleteEnrollment(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

func (t *transferTx) AppendHistory(ctx context.Context, record *models.EnrollmentHistoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollment_history
        (id, student_id, class_id, action, source_class_id, destination_class_id, transfer_id, undo_of_transfer_id, performed_by, occurred_at)
        VALUES (:id, :student_id, :class_id, :action, :source_class_id, :destination_class_id, :transfer_id, :undo_of_transfer_id, :performed_by, :occurred_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

func (t *transferTx) IncrementEnrollment(ctx context.Context, classID string) error {
	const query = `UPDATE classes SET current_enrollment = current_enrollment + 1, updated_at = NOW() WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, classID); err != nil {
		return fmt.Errorf("increment enrollment count: %w", err)
	}
	return nil
}

func (t *transferTx) DecrementEnrollment(ctx context.Context, classID string) error {
	const query = `UPDATE classes SET current_enrollment = GREATEST(current_enrollment - 1, 0), updated_at = NOW() WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, classID); err != nil {
		return fmt.Errorf("decrement enrollment count: %w", err)
	}
	return nil
}

var savepointName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func (t *transferTx) Savepoint(ctx context.Context, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	return nil
}

func (t *transferTx) RollbackToSavepoint(ctx context.Context, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", name, err)
	}
	return nil
}

func (t *transferTx) ReleaseSavepoint(ctx context.Context, name string) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

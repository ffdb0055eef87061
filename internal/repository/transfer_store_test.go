package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-transfer-api/internal/models"
)

func newStoreMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func classRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "grade", "status", "capacity", "current_enrollment", "created_at", "updated_at"}).
		AddRow("class-a", "X IPA 1", "10", "ACTIVE", 30, 3, time.Now(), time.Now())
}

func TestTransferStoreRunCommitsOnSuccess(t *testing.T) {
	db, mock, cleanup := newStoreMock(t)
	defer cleanup()
	store := NewTransferStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, name, grade, status, capacity, current_enrollment, created_at, updated_at\s+FROM classes WHERE id = \$1 FOR UPDATE`).
		WithArgs("class-a").
		WillReturnRows(classRows())
	mock.ExpectCommit()

	err := store.Run(context.Background(), func(tx TransferTx) error {
		class, err := tx.LockClass(context.Background(), "class-a")
		require.NoError(t, err)
		assert.Equal(t, "class-a", class.ID)
		assert.Equal(t, models.ClassStatusActive, class.Status)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferStoreRunRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newStoreMock(t)
	defer cleanup()
	store := NewTransferStore(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("boom")
	err := store.Run(context.Background(), func(tx TransferTx) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxLockClassMissing(t *testing.T) {
	db, mock, cleanup := newStoreMock(t)
	defer cleanup()
	store := NewTransferStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM classes WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := store.Run(context.Background(), func(tx TransferTx) error {
		_, err := tx.LockClass(context.Background(), "missing")
		return err
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxFindStudentAbsentReturnsNil(t *testing.T) {
	db, mock, cleanup := newStoreMock(t)
	defer cleanup()
	store := NewTransferStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, nis, full_name, active, created_at, updated_at FROM students WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	err := store.Run(context.Background(), func(tx TransferTx) error {
		student, err := tx.FindStudent(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Nil(t, student)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxCounterUpdates(t *testing.T) {
	db, mock, cleanup := newStoreMock(t)
	defer cleanup()
	store := NewTransferStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE classes SET current_enrollment = current_enrollment \+ 1, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs("class-b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE classes SET current_enrollment = GREATEST\(current_enrollment - 1, 0\), updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs("class-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Run(context.Background(), func(tx TransferTx) error {
		require.NoError(t, tx.IncrementEnrollment(context.Background(), "class-b"))
		require.NoError(t, tx.DecrementEnrollment(context.Background(), "class-a"))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxSavepointLifecycle(t *testing.T) {
	db, mock, cleanup := newStoreMock(t)
	defer cleanup()
	store := NewTransferStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT student_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT student_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SAVEPOINT student_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`RELEASE SAVEPOINT student_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.Run(context.Background(), func(tx TransferTx) error {
		require.NoError(t, tx.Savepoint(context.Background(), "student_0"))
		require.NoError(t, tx.RollbackToSavepoint(context.Background(), "student_0"))
		require.NoError(t, tx.Savepoint(context.Background(), "student_1"))
		require.NoError(t, tx.ReleaseSavepoint(context.Background(), "student_1"))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxRejectsBadSavepointName(t *testing.T) {
	db, mock, cleanup := newStoreMock(t)
	defer cleanup()
	store := NewTransferStore(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.Run(context.Background(), func(tx TransferTx) error {
		return tx.Savepoint(context.Background(), "bad name; DROP TABLE")
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferTxUpdateEnrollmentStatus(t *testing.T) {
	db, mock, cleanup := newStoreMock(t)
	defer cleanup()
	store := NewTransferStore(db)

	leftAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE enrollments SET status = \$2, left_at = \$3 WHERE id = \$1`).
		WithArgs("enroll-1", models.EnrollmentStatusTransferred, &leftAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Run(context.Background(), func(tx TransferTx) error {
		return tx.UpdateEnrollmentStatus(context.Background(), "enroll-1", models.EnrollmentStatusTransferred, &leftAt)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}

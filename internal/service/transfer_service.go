package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-transfer-api/internal/dto"
	"github.com/noah-isme/sma-transfer-api/internal/models"
	"github.com/noah-isme/sma-transfer-api/internal/repository"
	appErrors "github.com/noah-isme/sma-transfer-api/pkg/errors"
)

type transferStore interface {
	Run(ctx context.Context, fn func(tx repository.TransferTx) error) error
}

type historyReader interface {
	ListByTransferID(ctx context.Context, transferID string) ([]models.EnrollmentHistoryRecord, error)
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]models.EnrollmentHistoryRecord, int, error)
	HasUndo(ctx context.Context, transferID string) (bool, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListEligibleDestinations(ctx context.Context, sourceClassID, grade string) ([]models.EligibleClass, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentReader interface {
	FindActiveByStudent(ctx context.Context, studentID string) (*models.Enrollment, error)
	CountActiveByClass(ctx context.Context, classID string) (int, error)
}

// TransferService orchestrates batch transfers, their time-windowed undo,
// and the read-only queries built on the enrollment ledger.
type TransferService struct {
	store       transferStore
	history     historyReader
	classes     classReader
	students    studentReader
	enrollments enrollmentReader
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger

	undoWindow   time.Duration
	maxBatchSize int
	now          func() time.Time
}

// TransferServiceOption configures the service.
type TransferServiceOption func(*TransferService)

// WithTransferClock overrides the time source, mainly for tests of the
// undo window.
func WithTransferClock(now func() time.Time) TransferServiceOption {
	return func(s *TransferService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTransferCache attaches the eligible-destination cache.
func WithTransferCache(cache *CacheService) TransferServiceOption {
	return func(s *TransferService) {
		s.cache = cache
	}
}

// WithTransferMetrics attaches transfer instrumentation.
func WithTransferMetrics(metrics *MetricsService) TransferServiceOption {
	return func(s *TransferService) {
		s.metrics = metrics
	}
}

// NewTransferService constructs the service.
func NewTransferService(store transferStore, history historyReader, classes classReader, students studentReader,
	enrollments enrollmentReader, undoWindow time.Duration, maxBatchSize int, validate *validator.Validate,
	logger *zap.Logger, opts ...TransferServiceOption) *TransferService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if undoWindow <= 0 {
		undoWindow = 5 * time.Minute
	}
	if maxBatchSize <= 0 || maxBatchSize > 100 {
		maxBatchSize = 100
	}
	svc := &TransferService{
		store:        store,
		history:      history,
		classes:      classes,
		students:     students,
		enrollments:  enrollments,
		validator:    validate,
		logger:       logger,
		undoWindow:   undoWindow,
		maxBatchSize: maxBatchSize,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// BatchTransfer moves the requested students from the source class to the
// destination class under one transaction. Batch-level validation is
// fast-fail; per-student validation is best-effort, so some students can
// transfer while others land in the failure list.
func (s *TransferService) BatchTransfer(ctx context.Context, req dto.BatchTransferRequest, actorID string) (*models.TransferResult, error) {
	if actorID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "acting user is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, appErrors.ErrInvalidRequest.Status, "invalid transfer payload")
	}
	if req.SourceClassID == req.DestinationClassID {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "source and destination class must differ")
	}
	if len(req.StudentIDs) > s.maxBatchSize {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("batch exceeds %d students", s.maxBatchSize))
	}
	seen := make(map[string]struct{}, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		if id == "" {
			return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "student ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "student ids must not contain duplicates")
		}
		seen[id] = struct{}{}
	}

	var result *models.TransferResult
	var grade string
	err := s.store.Run(ctx, func(tx repository.TransferTx) error {
		source, dest, err := s.lockClassPair(ctx, tx, req.SourceClassID, req.DestinationClassID)
		if err != nil {
			return err
		}
		if source.Status != models.ClassStatusActive {
			return appErrors.ErrSourceClassInactive
		}
		if dest.Status != models.ClassStatusActive {
			return appErrors.ErrDestinationClassInactive
		}
		if source.Grade != dest.Grade {
			return appErrors.ErrGradeMismatch
		}
		// Capacity is validated once against the whole batch; students that
		// later fail per-student checks only leave slack, never overflow.
		if !dest.HasCapacityFor(len(req.StudentIDs)) {
			return appErrors.ErrCapacityExceeded
		}
		grade = source.Grade

		transferID := uuid.NewString()
		transferredAt := s.now().UTC()
		outcome := &models.TransferResult{
			TransferID:         transferID,
			SourceClassID:      source.ID,
			DestinationClassID: dest.ID,
			FailedTransfers:    []models.FailedTransfer{},
			TransferredAt:      transferredAt,
		}

		for i, studentID := range req.StudentIDs {
			sp := fmt.Sprintf("student_%d", i)
			if err := tx.Savepoint(ctx, sp); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create savepoint")
			}
			failure, err := s.transferOne(ctx, tx, studentID, source.ID, dest.ID, transferID, actorID, transferredAt)
			if err != nil {
				if rbErr := tx.RollbackToSavepoint(ctx, sp); rbErr != nil {
					return appErrors.Wrap(rbErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to roll back student savepoint")
				}
				if repository.IsUniqueViolation(err) {
					// A concurrent writer beat the pre-check; report it the
					// same way the explicit check would have.
					outcome.FailedTransfers = append(outcome.FailedTransfers, models.FailedTransfer{
						StudentID: studentID,
						Reason:    models.TransferFailAlreadyEnrolled,
					})
					continue
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer student")
			}
			if failure != nil {
				if rbErr := tx.RollbackToSavepoint(ctx, sp); rbErr != nil {
					return appErrors.Wrap(rbErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to roll back student savepoint")
				}
				outcome.FailedTransfers = append(outcome.FailedTransfers, *failure)
				continue
			}
			if err := tx.ReleaseSavepoint(ctx, sp); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release savepoint")
			}
			outcome.SuccessfulTransfers++
		}

		result = outcome
		return nil
	})
	if err != nil {
		s.observeBatch("rejected", 0, 0)
		return nil, err
	}

	batchOutcome := "success"
	if len(result.FailedTransfers) > 0 {
		batchOutcome = "partial"
	}
	s.observeBatch(batchOutcome, result.SuccessfulTransfers, len(result.FailedTransfers))
	s.invalidateDestinations(ctx, grade)

	s.logger.Info("batch transfer completed",
		zap.String("transfer_id", result.TransferID),
		zap.String("source_class_id", result.SourceClassID),
		zap.String("destination_class_id", result.DestinationClassID),
		zap.Int("transferred", result.SuccessfulTransfers),
		zap.Int("failed", len(result.FailedTransfers)))
	return result, nil
}

// transferOne applies the per-student state machine. It returns a failure
// entry for business-rule misses and an error only for infrastructure
// problems; the caller decides what survives the savepoint.
func (s *TransferService) transferOne(ctx context.Context, tx repository.TransferTx, studentID, sourceClassID, destClassID, transferID, actorID string, at time.Time) (*models.FailedTransfer, error) {
	student, err := tx.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return &models.FailedTransfer{StudentID: studentID, Reason: models.TransferFailStudentNotFound}, nil
	}
	sourceEnrollment, err := tx.FindActiveEnrollment(ctx, studentID, sourceClassID)
	if err != nil {
		return nil, err
	}
	if sourceEnrollment == nil {
		return &models.FailedTransfer{StudentID: studentID, StudentName: student.FullName, Reason: models.TransferFailStudentNotEnrolled}, nil
	}
	existing, err := tx.FindActiveEnrollment(ctx, studentID, destClassID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &models.FailedTransfer{StudentID: studentID, StudentName: student.FullName, Reason: models.TransferFailAlreadyEnrolled}, nil
	}

	leftAt := at
	if err := tx.UpdateEnrollmentStatus(ctx, sourceEnrollment.ID, models.EnrollmentStatusTransferred, &leftAt); err != nil {
		return nil, err
	}
	if err := tx.CreateEnrollment(ctx, &models.Enrollment{
		StudentID: studentID,
		ClassID:   destClassID,
		Status:    models.EnrollmentStatusActive,
		Reason:    models.EnrollmentReasonTransfer,
		JoinedAt:  at,
	}); err != nil {
		return nil, err
	}
	if err := tx.AppendHistory(ctx, &models.EnrollmentHistoryRecord{
		StudentID:          studentID,
		ClassID:            destClassID,
		Action:             models.HistoryActionTransferred,
		SourceClassID:      &sourceClassID,
		DestinationClassID: &destClassID,
		TransferID:         &transferID,
		PerformedBy:        actorID,
		OccurredAt:         at,
	}); err != nil {
		return nil, err
	}
	if err := tx.IncrementEnrollment(ctx, destClassID); err != nil {
		return nil, err
	}
	if err := tx.DecrementEnrollment(ctx, sourceClassID); err != nil {
		return nil, err
	}
	return nil, nil
}

// UndoTransfer reverses a previously completed transfer. Conflicted
// students are skipped, not rolled back, so an undo can itself be partial.
func (s *TransferService) UndoTransfer(ctx context.Context, transferID, actorID string) (*models.UndoResult, error) {
	if actorID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "acting user is required")
	}
	if transferID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "transfer id is required")
	}

	records, err := s.history.ListByTransferID(ctx, transferID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer history")
	}
	if len(records) == 0 {
		return nil, appErrors.ErrTransferNotFound
	}
	if records[0].PerformedBy != actorID {
		return nil, appErrors.ErrUndoUnauthorized
	}
	undone, err := s.history.HasUndo(ctx, transferID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check undo history")
	}
	if undone {
		return nil, appErrors.ErrTransferAlreadyUndone
	}
	// The window runs from the transfer's shared timestamp, which is the
	// earliest record in the group. At exactly the window boundary the
	// undo is rejected.
	transferredAt := records[0].OccurredAt
	if s.now().UTC().Sub(transferredAt) >= s.undoWindow {
		return nil, appErrors.ErrUndoWindowExpired
	}

	sourceClassID, destClassID, studentIDs := summarizeTransfer(records)
	if sourceClassID == "" || destClassID == "" || len(studentIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrUndoConflict, "transfer history is incomplete")
	}

	var result *models.UndoResult
	var grade string
	err = s.store.Run(ctx, func(tx repository.TransferTx) error {
		source, _, err := s.lockUndoClasses(ctx, tx, sourceClassID, destClassID)
		if err != nil {
			return err
		}
		grade = source.Grade

		undoneAt := s.now().UTC()
		outcome := &models.UndoResult{
			TransferID:    transferID,
			SourceClassID: sourceClassID,
			UndoneAt:      undoneAt,
		}

		for i, studentID := range studentIDs {
			sp := fmt.Sprintf("undo_student_%d", i)
			if err := tx.Savepoint(ctx, sp); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create savepoint")
			}
			ok, err := s.undoOne(ctx, tx, studentID, sourceClassID, destClassID, transferID, actorID, undoneAt)
			if err != nil {
				if rbErr := tx.RollbackToSavepoint(ctx, sp); rbErr != nil {
					return appErrors.Wrap(rbErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to roll back student savepoint")
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to undo student transfer")
			}
			if !ok {
				if rbErr := tx.RollbackToSavepoint(ctx, sp); rbErr != nil {
					return appErrors.Wrap(rbErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to roll back student savepoint")
				}
				outcome.SkippedStudents = append(outcome.SkippedStudents, models.SkippedUndo{
					StudentID: studentID,
					Reason:    models.UndoSkipConflict,
				})
				continue
			}
			if err := tx.ReleaseSavepoint(ctx, sp); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release savepoint")
			}
			outcome.UndoneStudents++
		}

		result = outcome
		return nil
	})
	if err != nil {
		s.observeUndo("rejected")
		return nil, err
	}

	undoOutcome := "success"
	if len(result.SkippedStudents) > 0 {
		undoOutcome = "partial"
	}
	s.observeUndo(undoOutcome)
	s.invalidateDestinations(ctx, grade)

	s.logger.Info("transfer undone",
		zap.String("transfer_id", transferID),
		zap.Int("undone", result.UndoneStudents),
		zap.Int("skipped", len(result.SkippedStudents)))
	return result, nil
}

// undoOne reverses one student's move when their state still matches what
// the transfer produced. It reports false when a conflicting change makes
// the reversal unsafe.
func (s *TransferService) undoOne(ctx context.Context, tx repository.TransferTx, studentID, sourceClassID, destClassID, transferID, actorID string, at time.Time) (bool, error) {
	destEnrollment, err := tx.FindActiveEnrollment(ctx, studentID, destClassID)
	if err != nil {
		return false, err
	}
	if destEnrollment == nil {
		return false, nil
	}
	sourceEnrollment, err := tx.FindTransferredEnrollment(ctx, studentID, sourceClassID)
	if err != nil {
		return false, err
	}
	if sourceEnrollment == nil {
		return false, nil
	}

	if err := tx.DeleteEnrollment(ctx, destEnrollment.ID); err != nil {
		return false, err
	}
	if err := tx.UpdateEnrollmentStatus(ctx, sourceEnrollment.ID, models.EnrollmentStatusActive, nil); err != nil {
		return false, err
	}
	if err := tx.AppendHistory(ctx, &models.EnrollmentHistoryRecord{
		StudentID:          studentID,
		ClassID:            sourceClassID,
		Action:             models.HistoryActionUndo,
		SourceClassID:      &sourceClassID,
		DestinationClassID: &destClassID,
		UndoOfTransferID:   &transferID,
		PerformedBy:        actorID,
		OccurredAt:         at,
	}); err != nil {
		return false, err
	}
	if err := tx.IncrementEnrollment(ctx, sourceClassID); err != nil {
		return false, err
	}
	if err := tx.DecrementEnrollment(ctx, destClassID); err != nil {
		return false, err
	}
	return true, nil
}

// EligibleDestinations returns every other ACTIVE class in the source
// class's grade with free capacity, sorted by name.
func (s *TransferService) EligibleDestinations(ctx context.Context, sourceClassID string) ([]models.EligibleClass, error) {
	source, err := s.classes.FindByID(ctx, sourceClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSourceClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source class")
	}

	cacheKey := destinationCacheKey(source.Grade, source.ID)
	var cached []models.EligibleClass
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	classes, err := s.classes.ListEligibleDestinations(ctx, source.ID, source.Grade)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible destinations")
	}
	_ = s.cache.Set(ctx, cacheKey, classes, 0)
	return classes, nil
}

// CurrentEnrollment returns the student's single ACTIVE enrollment.
func (s *TransferService) CurrentEnrollment(ctx context.Context, studentID string) (*models.Enrollment, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollment, err := s.enrollments.FindActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no active enrollment")
	}
	return enrollment, nil
}

// ClassDetail loads a class together with the counted ACTIVE enrollment
// rows, exposing counter drift to operators.
func (s *TransferService) ClassDetail(ctx context.Context, classID string) (*models.ClassDetail, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	count, err := s.enrollments.CountActiveByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count != class.CurrentEnrollment {
		s.logger.Warn("enrollment counter drift detected",
			zap.String("class_id", classID),
			zap.Int("counter", class.CurrentEnrollment),
			zap.Int("counted", count))
	}
	return &models.ClassDetail{Class: *class, ActiveEnrollmentCount: count}, nil
}

// GetTransfer reconstructs the logical transfer from its ledger records.
func (s *TransferService) GetTransfer(ctx context.Context, transferID string) (*models.Transfer, error) {
	if transferID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "transfer id is required")
	}
	records, err := s.history.ListByTransferID(ctx, transferID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer history")
	}
	if len(records) == 0 {
		return nil, appErrors.ErrTransferNotFound
	}
	undone, err := s.history.HasUndo(ctx, transferID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check undo history")
	}

	sourceClassID, destClassID, studentIDs := summarizeTransfer(records)
	return &models.Transfer{
		TransferID:         transferID,
		SourceClassID:      sourceClassID,
		DestinationClassID: destClassID,
		StudentIDs:         studentIDs,
		PerformedBy:        records[0].PerformedBy,
		TransferredAt:      records[0].OccurredAt,
		Undone:             undone,
		Records:            records,
	}, nil
}

// StudentHistory lists a student's ledger records, newest first.
func (s *TransferService) StudentHistory(ctx context.Context, studentID string, page, pageSize int) ([]models.EnrollmentHistoryRecord, *models.Pagination, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrStudentNotFound
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	records, total, err := s.history.ListByStudent(ctx, studentID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student history")
	}
	return records, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// lockClassPair locks both class rows in ascending id order and maps
// missing rows to the directional not-found errors.
func (s *TransferService) lockClassPair(ctx context.Context, tx repository.TransferTx, sourceID, destID string) (*models.Class, *models.Class, error) {
	firstID, secondID := sourceID, destID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	locked := make(map[string]*models.Class, 2)
	for _, id := range []string{firstID, secondID} {
		class, err := tx.LockClass(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if id == sourceID {
					return nil, nil, appErrors.ErrSourceClassNotFound
				}
				return nil, nil, appErrors.ErrDestinationClassNotFound
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock class")
		}
		locked[id] = class
	}
	return locked[sourceID], locked[destID], nil
}

// lockUndoClasses locks the classes an undo touches. A class deleted since
// the transfer blocks the reversal entirely.
func (s *TransferService) lockUndoClasses(ctx context.Context, tx repository.TransferTx, sourceID, destID string) (*models.Class, *models.Class, error) {
	source, dest, err := s.lockClassPair(ctx, tx, sourceID, destID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && (appErr.Code == appErrors.ErrSourceClassNotFound.Code || appErr.Code == appErrors.ErrDestinationClassNotFound.Code) {
			return nil, nil, appErrors.Clone(appErrors.ErrUndoConflict, "a class involved in the transfer no longer exists")
		}
		return nil, nil, err
	}
	return source, dest, nil
}

// summarizeTransfer extracts source, destination and the moved students
// from the TRANSFERRED records of one batch.
func summarizeTransfer(records []models.EnrollmentHistoryRecord) (sourceClassID, destClassID string, studentIDs []string) {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.Action != models.HistoryActionTransferred {
			continue
		}
		if sourceClassID == "" && rec.SourceClassID != nil {
			sourceClassID = *rec.SourceClassID
		}
		if destClassID == "" && rec.DestinationClassID != nil {
			destClassID = *rec.DestinationClassID
		}
		if _, ok := seen[rec.StudentID]; !ok {
			seen[rec.StudentID] = struct{}{}
			studentIDs = append(studentIDs, rec.StudentID)
		}
	}
	return sourceClassID, destClassID, studentIDs
}

func destinationCacheKey(grade, classID string) string {
	return fmt.Sprintf("transfers:eligible:%s:%s", grade, classID)
}

func (s *TransferService) invalidateDestinations(ctx context.Context, grade string) {
	if grade == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("transfers:eligible:%s:*", grade)); err != nil {
		s.logger.Warn("failed to invalidate destination cache", zap.String("grade", grade), zap.Error(err))
	}
}

func (s *TransferService) observeBatch(outcome string, transferred, failed int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordTransferBatch(outcome)
	s.metrics.RecordTransferStudents(transferred, failed)
}

func (s *TransferService) observeUndo(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordUndo(outcome)
}

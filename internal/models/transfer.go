package models

import "time"

// Per-student failure reasons inside a batch. These are outcomes reported
// in the result list, not errors that abort the batch.
const (
	TransferFailStudentNotFound    = "STUDENT_NOT_FOUND"
	TransferFailStudentNotEnrolled = "STUDENT_NOT_ENROLLED"
	TransferFailAlreadyEnrolled    = "ALREADY_ENROLLED"
)

// UndoSkipConflict marks a student skipped during undo because their
// enrollment state changed after the transfer.
const UndoSkipConflict = "UNDO_CONFLICT"

// FailedTransfer describes one student the batch could not move.
type FailedTransfer struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	Reason      string `json:"reason"`
}

// TransferResult is the per-batch outcome. The batch is a success when
// FailedTransfers is empty and a partial success otherwise; it is never
// rolled back wholesale for individual student failures.
type TransferResult struct {
	TransferID          string           `json:"transfer_id"`
	SourceClassID       string           `json:"source_class_id"`
	DestinationClassID  string           `json:"destination_class_id"`
	SuccessfulTransfers int              `json:"successful_transfers"`
	FailedTransfers     []FailedTransfer `json:"failed_transfers"`
	TransferredAt       time.Time        `json:"transferred_at"`
}

// SkippedUndo describes one student the undo left untouched because of a
// conflicting state change.
type SkippedUndo struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// UndoResult is the outcome of reversing a transfer. An undo can itself be
// partial: conflicted students are skipped, not rolled back.
type UndoResult struct {
	TransferID      string        `json:"transfer_id"`
	SourceClassID   string        `json:"source_class_id"`
	UndoneStudents  int           `json:"undone_students"`
	SkippedStudents []SkippedUndo `json:"skipped_students,omitempty"`
	UndoneAt        time.Time     `json:"undone_at"`
}

// Transfer is the logical batch reconstructed from ledger records sharing
// a transfer id. It is not stored as a row of its own.
type Transfer struct {
	TransferID         string                    `json:"transfer_id"`
	SourceClassID      string                    `json:"source_class_id"`
	DestinationClassID string                    `json:"destination_class_id"`
	StudentIDs         []string                  `json:"student_ids"`
	PerformedBy        string                    `json:"performed_by"`
	TransferredAt      time.Time                 `json:"transferred_at"`
	Undone             bool                      `json:"undone"`
	Records            []EnrollmentHistoryRecord `json:"records,omitempty"`
}

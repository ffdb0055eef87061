package models

import "time"

// HistoryAction enumerates enrollment-affecting actions recorded in the
// ledger.
type HistoryAction string

const (
	HistoryActionEnrolled    HistoryAction = "ENROLLED"
	HistoryActionTransferred HistoryAction = "TRANSFERRED"
	HistoryActionWithdrawn   HistoryAction = "WITHDRAWN"
	HistoryActionUndo        HistoryAction = "UNDO"
)

// EnrollmentHistoryRecord is one immutable ledger entry. Records are never
// updated or deleted. TransferID groups every record belonging to one
// batch transfer; UndoOfTransferID is set only on UNDO records and names
// the transfer being reversed. Source and destination class ids are typed
// columns, not a free-form metadata blob.
type EnrollmentHistoryRecord struct {
	ID                 string        `db:"id" json:"id"`
	StudentID          string        `db:"student_id" json:"student_id"`
	ClassID            string        `db:"class_id" json:"class_id"`
	Action             HistoryAction `db:"action" json:"action"`
	SourceClassID      *string       `db:"source_class_id" json:"source_class_id,omitempty"`
	DestinationClassID *string       `db:"destination_class_id" json:"destination_class_id,omitempty"`
	TransferID         *string       `db:"transfer_id" json:"transfer_id,omitempty"`
	UndoOfTransferID   *string       `db:"undo_of_transfer_id" json:"undo_of_transfer_id,omitempty"`
	PerformedBy        string        `db:"performed_by" json:"performed_by"`
	OccurredAt         time.Time     `db:"occurred_at" json:"occurred_at"`
}

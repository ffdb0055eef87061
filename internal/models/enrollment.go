package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. A student holds at most one ACTIVE
// enrollment at any instant.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusWithdrawn   EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusCompleted   EnrollmentStatus = "COMPLETED"
)

// EnrollmentReason records how an enrollment came to exist.
type EnrollmentReason string

const (
	EnrollmentReasonInitial  EnrollmentReason = "INITIAL"
	EnrollmentReasonTransfer EnrollmentReason = "TRANSFER"
)

// Enrollment binds one student to one class for a period. A transfer never
// deletes the source row; it flips it to TRANSFERRED and creates a new
// ACTIVE row in the destination class.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	Reason    EnrollmentReason `db:"reason" json:"reason"`
	JoinedAt  time.Time        `db:"joined_at" json:"joined_at"`
	LeftAt    *time.Time       `db:"left_at" json:"left_at,omitempty"`
}

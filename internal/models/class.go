package models

import "time"

// ClassStatus marks whether a class can take part in transfers.
type ClassStatus string

const (
	ClassStatusActive   ClassStatus = "ACTIVE"
	ClassStatusInactive ClassStatus = "INACTIVE"
)

// Class represents an academic class with a denormalized count of active
// enrollments. Capacity nil means unlimited. CurrentEnrollment must equal
// the number of ACTIVE enrollment rows referencing the class; only the
// transfer store mutates it, in the same transaction as the enrollment
// writes.
type Class struct {
	ID                string      `db:"id" json:"id"`
	Name              string      `db:"name" json:"name"`
	Grade             string      `db:"grade" json:"grade"`
	Status            ClassStatus `db:"status" json:"status"`
	Capacity          *int        `db:"capacity" json:"capacity,omitempty"`
	CurrentEnrollment int         `db:"current_enrollment" json:"current_enrollment"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

// AvailableCapacity returns the number of free seats, or -1 when the class
// has no capacity limit.
func (c *Class) AvailableCapacity() int {
	if c.Capacity == nil {
		return -1
	}
	free := *c.Capacity - c.CurrentEnrollment
	if free < 0 {
		return 0
	}
	return free
}

// HasCapacityFor reports whether the class can absorb n more active
// enrollments.
func (c *Class) HasCapacityFor(n int) bool {
	if c.Capacity == nil {
		return true
	}
	return c.CurrentEnrollment+n <= *c.Capacity
}

// ClassDetail pairs a class with the counted number of ACTIVE enrollment
// rows, so callers can spot drift in the denormalized counter.
type ClassDetail struct {
	Class
	ActiveEnrollmentCount int `json:"active_enrollment_count"`
}

// EligibleClass is the read model returned by the eligible-destination
// query: an ACTIVE class of the same grade with at least one free seat.
type EligibleClass struct {
	ID                string `db:"id" json:"id"`
	Name              string `db:"name" json:"name"`
	Grade             string `db:"grade" json:"grade"`
	Capacity          *int   `db:"capacity" json:"capacity,omitempty"`
	CurrentEnrollment int    `db:"current_enrollment" json:"current_enrollment"`
}

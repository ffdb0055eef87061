package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors. Transfer and undo failures carry the symbolic codes
// the admin console matches on.
var (
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrInvalidRequest = New("INVALID_REQUEST", http.StatusBadRequest, "invalid request")

	ErrSourceClassNotFound      = New("SOURCE_CLASS_NOT_FOUND", http.StatusNotFound, "source class not found")
	ErrDestinationClassNotFound = New("DESTINATION_CLASS_NOT_FOUND", http.StatusNotFound, "destination class not found")
	ErrSourceClassInactive      = New("SOURCE_CLASS_INACTIVE", http.StatusPreconditionFailed, "source class is inactive")
	ErrDestinationClassInactive = New("DESTINATION_CLASS_INACTIVE", http.StatusPreconditionFailed, "destination class is inactive")
	ErrGradeMismatch            = New("GRADE_MISMATCH", http.StatusPreconditionFailed, "classes are not in the same grade")
	ErrCapacityExceeded         = New("CAPACITY_EXCEEDED", http.StatusConflict, "destination class cannot fit the batch")
	ErrStudentNotFound          = New("STUDENT_NOT_FOUND", http.StatusNotFound, "student not found")

	ErrTransferNotFound      = New("TRANSFER_NOT_FOUND", http.StatusNotFound, "transfer not found")
	ErrUndoUnauthorized      = New("UNDO_UNAUTHORIZED", http.StatusForbidden, "undo must be requested by the original actor")
	ErrUndoWindowExpired     = New("UNDO_WINDOW_EXPIRED", http.StatusGone, "undo window has expired")
	ErrTransferAlreadyUndone = New("TRANSFER_ALREADY_UNDONE", http.StatusConflict, "transfer has already been undone")
	ErrUndoConflict          = New("UNDO_CONFLICT", http.StatusConflict, "conflicting state change blocks the undo")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Package shared contains the error taxonomy and common value helpers used
// across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds for checking with errors.Is(). Every error that crosses the
// service boundary carries exactly one of these as its Kind.
var (
	// ErrNotFound - a referenced entity id (or unique key) does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict - a uniqueness or referential-dependency violation:
	// duplicate roll number / course code / enrollment pair, or a delete
	// blocked by dependent records.
	ErrConflict = errors.New("record conflict")

	// ErrValidation - a field-level invariant violation.
	ErrValidation = errors.New("validation failed")

	// ErrStorage - a storage-level failure (connectivity, unexpected
	// constraint) wrapped so driver errors never leak to callers.
	ErrStorage = errors.New("storage failure")
)

// Finer-grained validation sentinels. They all satisfy IsValidation so
// collaborators can treat them uniformly.
var (
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")
)

// ServiceError is the single user-facing error type of the service layer.
// Message is safe to surface verbatim; Kind tags the error for callers that
// want richer handling, but no caller needs to distinguish kinds to behave
// correctly.
type ServiceError struct {
	Domain  string // e.g. "student", "course", "enrollment"
	Op      string // operation that failed, e.g. "Create", "Enroll"
	Kind    error  // one of the base kinds above, for errors.Is() checks
	Message string // human-readable, presentation-safe message
	Err     error  // underlying cause (optional)
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *ServiceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against both Kind and cause.
func (e *ServiceError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewServiceError creates a service error without an underlying cause.
func NewServiceError(domain, op string, kind error, message string) *ServiceError {
	return &ServiceError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError attaches domain context and a kind to an existing error.
func WrapError(domain, op string, kind error, message string, err error) *ServiceError {
	return &ServiceError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound   = NewServiceError("student", "Find", ErrNotFound, "student not found")
	ErrRollNoTaken       = NewServiceError("student", "Create", ErrConflict, "roll number already registered")
	ErrStudentHasRecords = NewServiceError("student", "Delete", ErrConflict, "student has enrollments; delete them first or request cascade")
)

// Course domain errors
var (
	ErrCourseNotFound   = NewServiceError("course", "Find", ErrNotFound, "course not found")
	ErrCourseCodeTaken  = NewServiceError("course", "Create", ErrConflict, "course code already registered")
	ErrCourseHasRecords = NewServiceError("course", "Delete", ErrConflict, "course has enrollments; delete them first or request cascade")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound = NewServiceError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled    = NewServiceError("enrollment", "Enroll", ErrConflict, "student is already enrolled in this course")
	ErrAttendanceNotFound = NewServiceError("enrollment", "FindAttendance", ErrNotFound, "no attendance recorded for this enrollment")
	ErrMarkNotFound       = NewServiceError("enrollment", "FindMark", ErrNotFound, "mark not found")
)

// IsNotFound reports whether err is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a uniqueness or dependency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether err is a field-level validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsStorage reports whether err is a wrapped storage-level failure.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// AsServiceError extracts the *ServiceError from an error chain, if present.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

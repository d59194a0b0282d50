package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorMessage(t *testing.T) {
	err := NewServiceError("student", "Create", ErrConflict, "roll number already registered")
	assert.Equal(t, "student.Create: roll number already registered", err.Error())

	wrapped := WrapError("enrollment", "Enroll", ErrStorage, "insert failed", errors.New("connection reset"))
	assert.Equal(t, "enrollment.Enroll: insert failed: connection reset", wrapped.Error())
}

func TestServiceErrorKindMatching(t *testing.T) {
	err := NewServiceError("course", "Find", ErrNotFound, "course not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
	assert.False(t, IsValidation(err))
}

func TestServiceErrorMatchesThroughWrapping(t *testing.T) {
	inner := NewServiceError("enrollment", "Enroll", ErrConflict, "student is already enrolled in this course")
	outer := fmt.Errorf("seeding demo data: %w", inner)

	assert.True(t, IsConflict(outer))

	se, ok := AsServiceError(outer)
	assert.True(t, ok)
	assert.Equal(t, "enrollment", se.Domain)
	assert.Equal(t, "student is already enrolled in this course", se.Message)
}

func TestValidationFamily(t *testing.T) {
	cases := []error{
		NewServiceError("mark", "Add", ErrValidation, "score outside range"),
		NewServiceError("attendance", "Record", ErrNegativeValue, "total cannot be negative"),
		NewServiceError("student", "Create", ErrEmptyValue, "roll number is required"),
		NewServiceError("mark", "Add", ErrValueOutOfRange, "max score must be positive"),
		NewServiceError("student", "Create", ErrInvalidFormat, "email must contain @"),
	}

	for _, err := range cases {
		assert.True(t, IsValidation(err), "expected validation kind for %v", err)
		assert.False(t, IsNotFound(err))
		assert.False(t, IsStorage(err))
	}
}

func TestStorageKindWrapsDriverError(t *testing.T) {
	driverErr := errors.New("SQLSTATE 08006: connection failure")
	err := WrapError("gateway", "WithinTx", ErrStorage, "transaction aborted", driverErr)

	assert.True(t, IsStorage(err))
	assert.True(t, errors.Is(err, driverErr))

	se, ok := AsServiceError(err)
	assert.True(t, ok)
	assert.Equal(t, "transaction aborted", se.Message)
}

func TestUnwrapPrefersCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := WrapError("student", "Create", ErrConflict, "roll number already registered", cause)
	assert.Equal(t, cause, errors.Unwrap(err))

	bare := NewServiceError("student", "Find", ErrNotFound, "student not found")
	assert.Equal(t, ErrNotFound, errors.Unwrap(bare))
}

func TestSemesterValidation(t *testing.T) {
	assert.True(t, Semester(0).IsValid())
	assert.True(t, Semester(1).IsValid())
	assert.True(t, Semester(12).IsValid())
	assert.False(t, Semester(-1).IsValid())
	assert.False(t, Semester(13).IsValid())

	assert.False(t, Semester(0).IsSet())
	assert.True(t, Semester(3).IsSet())
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "CS301", NormalizeCode("  cs301 "))
	assert.Equal(t, "DEMO-001", NormalizeCode("demo-001"))
	assert.Equal(t, "CS301", NormalizeCode("cs 301"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestTrimName(t *testing.T) {
	assert.Equal(t, "Data Structures & Algorithms", TrimName("  Data  Structures   & Algorithms "))
	assert.Equal(t, "", TrimName("\t\n"))
}

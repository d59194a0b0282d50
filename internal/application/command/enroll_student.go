package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL STUDENT COMMAND
// Links a student to a course. The (student, course) pair is unique.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollStudentCommand contains the data needed to enroll a student.
type EnrollStudentCommand struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// CourseID is the internal ID of the course.
	CourseID string

	// EnrolledOn is the enrollment date; zero means today.
	EnrolledOn time.Time
}

// Validate validates the command.
func (c EnrollStudentCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("enroll_student: student_id must be provided")
	}
	if c.CourseID == "" {
		return errors.New("enroll_student: course_id must be provided")
	}
	return nil
}

// EnrollStudentHandler handles the EnrollStudentCommand.
type EnrollStudentHandler struct {
	store records.Store
}

// NewEnrollStudentHandler creates a new EnrollStudentHandler.
func NewEnrollStudentHandler(store records.Store) *EnrollStudentHandler {
	return &EnrollStudentHandler{store: store}
}

// Handle creates the enrollment and returns it.
func (h *EnrollStudentHandler) Handle(ctx context.Context, cmd EnrollStudentCommand) (*enrollment.Enrollment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("enrollment", "Enroll", shared.ErrValidation, err.Error(), err)
	}

	e, err := enrollment.NewEnrollment(uuid.NewString(), cmd.StudentID, cmd.CourseID, cmd.EnrolledOn)
	if err != nil {
		return nil, shared.WrapError("enrollment", "Enroll", shared.ErrValidation, err.Error(), err)
	}

	err = h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		exists, err := r.Students().Exists(ctx, cmd.StudentID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrStudentNotFound
		}

		exists, err = r.Courses().Exists(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrCourseNotFound
		}

		enrolled, err := r.Enrollments().ExistsPair(ctx, cmd.StudentID, cmd.CourseID)
		if err != nil {
			return err
		}
		if enrolled {
			return shared.ErrAlreadyEnrolled
		}

		return r.Enrollments().Create(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	return e, nil
}

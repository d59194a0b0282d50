// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system. Each handler
// wraps one logical action in a single storage transaction, so uniqueness
// checks and writes are never torn apart.
package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE STUDENT COMMAND
// Registers a new student with a unique roll number.
// ══════════════════════════════════════════════════════════════════════════════

// CreateStudentCommand contains the data needed to register a student.
type CreateStudentCommand struct {
	// RollNo is the external student identifier, unique system-wide.
	RollNo string

	// FullName is the student's full name.
	FullName string

	// Department is the department label (optional).
	Department string

	// Semester is the current semester, 0 means unspecified.
	Semester int

	// Email is the contact email (optional).
	Email string

	// Phone is the contact phone (optional).
	Phone string
}

// CreateStudentHandler handles the CreateStudentCommand.
type CreateStudentHandler struct {
	store records.Store
}

// NewCreateStudentHandler creates a new CreateStudentHandler.
func NewCreateStudentHandler(store records.Store) *CreateStudentHandler {
	return &CreateStudentHandler{store: store}
}

// Handle registers the student and returns the stored entity.
func (h *CreateStudentHandler) Handle(ctx context.Context, cmd CreateStudentCommand) (*student.Student, error) {
	s, err := student.NewStudent(student.NewStudentParams{
		ID:         uuid.NewString(),
		RollNo:     cmd.RollNo,
		FullName:   cmd.FullName,
		Department: cmd.Department,
		Semester:   shared.Semester(cmd.Semester),
		Email:      cmd.Email,
		Phone:      cmd.Phone,
	})
	if err != nil {
		return nil, shared.WrapError("student", "Create", shared.ErrValidation, err.Error(), err)
	}

	err = h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		taken, err := r.Students().ExistsByRollNo(ctx, s.RollNo)
		if err != nil {
			return err
		}
		if taken {
			return shared.ErrRollNoTaken
		}
		return r.Students().Create(ctx, s)
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

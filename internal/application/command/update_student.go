package command

import (
	"context"
	"errors"

	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE STUDENT COMMAND
// Partial update: nil fields keep their current values.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStudentCommand contains the fields to change on a student.
type UpdateStudentCommand struct {
	// StudentID is the internal ID of the student to update.
	StudentID string

	// RollNo changes the roll number when set (uniqueness re-checked).
	RollNo *string

	// FullName changes the full name when set.
	FullName *string

	// Department changes the department when set; empty string clears it.
	Department *string

	// Semester changes the semester when set; zero clears it.
	Semester *int

	// Email changes the contact email when set; empty string clears it.
	Email *string

	// Phone changes the contact phone when set; empty string clears it.
	Phone *string
}

// Validate validates the command.
func (c UpdateStudentCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("update_student: student_id must be provided")
	}
	return nil
}

// UpdateStudentHandler handles the UpdateStudentCommand.
type UpdateStudentHandler struct {
	store records.Store
}

// NewUpdateStudentHandler creates a new UpdateStudentHandler.
func NewUpdateStudentHandler(store records.Store) *UpdateStudentHandler {
	return &UpdateStudentHandler{store: store}
}

// Handle applies the changes and returns the updated student.
func (h *UpdateStudentHandler) Handle(ctx context.Context, cmd UpdateStudentCommand) (*student.Student, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("student", "Update", shared.ErrValidation, err.Error(), err)
	}

	var updated *student.Student

	err := h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		s, err := r.Students().GetByID(ctx, cmd.StudentID)
		if err != nil {
			return err
		}

		if err := applyStudentChanges(s, cmd); err != nil {
			return shared.WrapError("student", "Update", shared.ErrValidation, err.Error(), err)
		}

		if cmd.RollNo != nil {
			other, err := r.Students().GetByRollNo(ctx, s.RollNo)
			if err != nil && !shared.IsNotFound(err) {
				return err
			}
			if err == nil && other.ID != s.ID {
				return shared.ErrRollNoTaken
			}
		}

		if err := r.Students().Update(ctx, s); err != nil {
			return err
		}

		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// applyStudentChanges mutates the entity through its domain methods so every
// change passes the same validation as creation.
func applyStudentChanges(s *student.Student, cmd UpdateStudentCommand) error {
	if cmd.RollNo != nil {
		if err := s.ChangeRollNo(*cmd.RollNo); err != nil {
			return err
		}
	}
	if cmd.FullName != nil {
		if err := s.Rename(*cmd.FullName); err != nil {
			return err
		}
	}
	if cmd.Department != nil {
		if err := s.SetDepartment(*cmd.Department); err != nil {
			return err
		}
	}
	if cmd.Semester != nil {
		if err := s.SetSemester(shared.Semester(*cmd.Semester)); err != nil {
			return err
		}
	}
	if cmd.Email != nil || cmd.Phone != nil {
		email := s.Email.String()
		phone := s.Phone
		if cmd.Email != nil {
			email = *cmd.Email
		}
		if cmd.Phone != nil {
			phone = *cmd.Phone
		}
		if err := s.SetContact(email, phone); err != nil {
			return err
		}
	}
	return nil
}

package command

import (
	"context"
	"errors"

	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE STUDENT COMMAND
// Deleting a student with enrollments is a conflict unless the caller asks
// for a cascade: then the enrollments go first, with their attendance and
// marks, all in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentCommand contains the data needed to delete a student.
type DeleteStudentCommand struct {
	// StudentID is the internal ID of the student to delete.
	StudentID string

	// Cascade removes the student's enrollments (with attendance and
	// marks) instead of rejecting the delete.
	Cascade bool
}

// Validate validates the command.
func (c DeleteStudentCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("delete_student: student_id must be provided")
	}
	return nil
}

// DeleteStudentResult contains the result of the deletion.
type DeleteStudentResult struct {
	// RemovedEnrollments is how many enrollments the cascade removed.
	RemovedEnrollments int `json:"removed_enrollments"`
}

// DeleteStudentHandler handles the DeleteStudentCommand.
type DeleteStudentHandler struct {
	store records.Store
}

// NewDeleteStudentHandler creates a new DeleteStudentHandler.
func NewDeleteStudentHandler(store records.Store) *DeleteStudentHandler {
	return &DeleteStudentHandler{store: store}
}

// Handle deletes the student, cascading enrollments when requested.
func (h *DeleteStudentHandler) Handle(ctx context.Context, cmd DeleteStudentCommand) (*DeleteStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("student", "Delete", shared.ErrValidation, err.Error(), err)
	}

	result := &DeleteStudentResult{}

	err := h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		exists, err := r.Students().Exists(ctx, cmd.StudentID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrStudentNotFound
		}

		count, err := r.Enrollments().CountByStudent(ctx, cmd.StudentID)
		if err != nil {
			return err
		}
		if count > 0 && !cmd.Cascade {
			return shared.ErrStudentHasRecords
		}

		if count > 0 {
			removed, err := r.Enrollments().DeleteByStudent(ctx, cmd.StudentID)
			if err != nil {
				return err
			}
			result.RemovedEnrollments = removed
		}

		return r.Students().Delete(ctx, cmd.StudentID)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

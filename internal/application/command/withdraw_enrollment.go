package command

import (
	"context"
	"errors"

	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// WITHDRAW ENROLLMENT COMMAND
// Removes an enrollment together with its attendance and marks. Addressable
// either by enrollment ID or by the (student, course) pair.
// ══════════════════════════════════════════════════════════════════════════════

// WithdrawEnrollmentCommand contains the data needed to withdraw a student.
type WithdrawEnrollmentCommand struct {
	// EnrollmentID is the internal ID of the enrollment.
	// If empty, StudentID and CourseID must both be provided.
	EnrollmentID string

	// StudentID identifies the enrollment by pair when EnrollmentID is empty.
	StudentID string

	// CourseID identifies the enrollment by pair when EnrollmentID is empty.
	CourseID string
}

// Validate validates the command.
func (c WithdrawEnrollmentCommand) Validate() error {
	if c.EnrollmentID == "" && (c.StudentID == "" || c.CourseID == "") {
		return errors.New("withdraw_enrollment: either enrollment_id or the (student_id, course_id) pair must be provided")
	}
	return nil
}

// WithdrawEnrollmentHandler handles the WithdrawEnrollmentCommand.
type WithdrawEnrollmentHandler struct {
	store records.Store
}

// NewWithdrawEnrollmentHandler creates a new WithdrawEnrollmentHandler.
func NewWithdrawEnrollmentHandler(store records.Store) *WithdrawEnrollmentHandler {
	return &WithdrawEnrollmentHandler{store: store}
}

// Handle removes the enrollment. The storage engine cascades the delete to
// attendance and marks.
func (h *WithdrawEnrollmentHandler) Handle(ctx context.Context, cmd WithdrawEnrollmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("enrollment", "Withdraw", shared.ErrValidation, err.Error(), err)
	}

	return h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		id := cmd.EnrollmentID
		if id == "" {
			e, err := r.Enrollments().GetByPair(ctx, cmd.StudentID, cmd.CourseID)
			if err != nil {
				return err
			}
			id = e.ID
		}

		return r.Enrollments().Delete(ctx, id)
	})
}

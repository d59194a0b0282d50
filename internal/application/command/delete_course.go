package command

import (
	"context"
	"errors"

	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE COURSE COMMAND
// Mirrors student deletion: enrollments block the delete unless the caller
// asks for a cascade.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteCourseCommand contains the data needed to delete a course.
type DeleteCourseCommand struct {
	// CourseID is the internal ID of the course to delete.
	CourseID string

	// Cascade removes the course's enrollments (with attendance and
	// marks) instead of rejecting the delete.
	Cascade bool
}

// Validate validates the command.
func (c DeleteCourseCommand) Validate() error {
	if c.CourseID == "" {
		return errors.New("delete_course: course_id must be provided")
	}
	return nil
}

// DeleteCourseResult contains the result of the deletion.
type DeleteCourseResult struct {
	// RemovedEnrollments is how many enrollments the cascade removed.
	RemovedEnrollments int `json:"removed_enrollments"`
}

// DeleteCourseHandler handles the DeleteCourseCommand.
type DeleteCourseHandler struct {
	store records.Store
}

// NewDeleteCourseHandler creates a new DeleteCourseHandler.
func NewDeleteCourseHandler(store records.Store) *DeleteCourseHandler {
	return &DeleteCourseHandler{store: store}
}

// Handle deletes the course, cascading enrollments when requested.
func (h *DeleteCourseHandler) Handle(ctx context.Context, cmd DeleteCourseCommand) (*DeleteCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("course", "Delete", shared.ErrValidation, err.Error(), err)
	}

	result := &DeleteCourseResult{}

	err := h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		exists, err := r.Courses().Exists(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrCourseNotFound
		}

		count, err := r.Enrollments().CountByCourse(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		if count > 0 && !cmd.Cascade {
			return shared.ErrCourseHasRecords
		}

		if count > 0 {
			removed, err := r.Enrollments().DeleteByCourse(ctx, cmd.CourseID)
			if err != nil {
				return err
			}
			result.RemovedEnrollments = removed
		}

		return r.Courses().Delete(ctx, cmd.CourseID)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

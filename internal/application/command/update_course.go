package command

import (
	"context"
	"errors"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE COURSE COMMAND
// Partial update: nil fields keep their current values.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateCourseCommand contains the fields to change on a course.
type UpdateCourseCommand struct {
	// CourseID is the internal ID of the course to update.
	CourseID string

	// Code changes the course code when set (uniqueness re-checked).
	Code *string

	// Title changes the title when set.
	Title *string

	// Semester changes the semester when set.
	Semester *int

	// Credits changes the credit weight when set.
	Credits *int
}

// Validate validates the command.
func (c UpdateCourseCommand) Validate() error {
	if c.CourseID == "" {
		return errors.New("update_course: course_id must be provided")
	}
	return nil
}

// UpdateCourseHandler handles the UpdateCourseCommand.
type UpdateCourseHandler struct {
	store records.Store
}

// NewUpdateCourseHandler creates a new UpdateCourseHandler.
func NewUpdateCourseHandler(store records.Store) *UpdateCourseHandler {
	return &UpdateCourseHandler{store: store}
}

// Handle applies the changes and returns the updated course.
func (h *UpdateCourseHandler) Handle(ctx context.Context, cmd UpdateCourseCommand) (*course.Course, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("course", "Update", shared.ErrValidation, err.Error(), err)
	}

	var updated *course.Course

	err := h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		c, err := r.Courses().GetByID(ctx, cmd.CourseID)
		if err != nil {
			return err
		}

		if err := applyCourseChanges(c, cmd); err != nil {
			return shared.WrapError("course", "Update", shared.ErrValidation, err.Error(), err)
		}

		if cmd.Code != nil {
			other, err := r.Courses().GetByCode(ctx, c.Code)
			if err != nil && !shared.IsNotFound(err) {
				return err
			}
			if err == nil && other.ID != c.ID {
				return shared.ErrCourseCodeTaken
			}
		}

		if err := r.Courses().Update(ctx, c); err != nil {
			return err
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// applyCourseChanges mutates the entity through its domain methods.
func applyCourseChanges(c *course.Course, cmd UpdateCourseCommand) error {
	if cmd.Code != nil {
		if err := c.ChangeCode(*cmd.Code); err != nil {
			return err
		}
	}
	if cmd.Title != nil {
		if err := c.Retitle(*cmd.Title); err != nil {
			return err
		}
	}
	if cmd.Semester != nil {
		if err := c.SetSemester(shared.Semester(*cmd.Semester)); err != nil {
			return err
		}
	}
	if cmd.Credits != nil {
		if err := c.SetCredits(course.Credits(*cmd.Credits)); err != nil {
			return err
		}
	}
	return nil
}

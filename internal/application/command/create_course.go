package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE COMMAND
// Registers a new course with a unique code.
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand contains the data needed to register a course.
type CreateCourseCommand struct {
	// Code is the external course identifier, unique system-wide.
	Code string

	// Title is the course title.
	Title string

	// Semester is the semester the course belongs to.
	Semester int

	// Credits is the credit weight of the course.
	Credits int
}

// CreateCourseHandler handles the CreateCourseCommand.
type CreateCourseHandler struct {
	store records.Store
}

// NewCreateCourseHandler creates a new CreateCourseHandler.
func NewCreateCourseHandler(store records.Store) *CreateCourseHandler {
	return &CreateCourseHandler{store: store}
}

// Handle registers the course and returns the stored entity.
func (h *CreateCourseHandler) Handle(ctx context.Context, cmd CreateCourseCommand) (*course.Course, error) {
	c, err := course.NewCourse(course.NewCourseParams{
		ID:       uuid.NewString(),
		Code:     cmd.Code,
		Title:    cmd.Title,
		Semester: shared.Semester(cmd.Semester),
		Credits:  course.Credits(cmd.Credits),
	})
	if err != nil {
		return nil, shared.WrapError("course", "Create", shared.ErrValidation, err.Error(), err)
	}

	err = h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		taken, err := r.Courses().ExistsByCode(ctx, c.Code)
		if err != nil {
			return err
		}
		if taken {
			return shared.ErrCourseCodeTaken
		}
		return r.Courses().Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

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
// ADD MARK COMMAND
// Appends one assessment mark to an enrollment. Unlike attendance, marks
// accumulate: each command adds a new row.
// ══════════════════════════════════════════════════════════════════════════════

// AddMarkCommand contains the data needed to add a mark.
type AddMarkCommand struct {
	// EnrollmentID is the internal ID of the enrollment.
	EnrollmentID string

	// Assessment is the assessment label; empty defaults to "Exam".
	Assessment string

	// Obtained is the score the student received.
	Obtained float64

	// MaxScore is the maximum possible score; must be strictly positive.
	MaxScore float64

	// RecordedOn is the assessment date; zero means today.
	RecordedOn time.Time
}

// Validate validates the command.
func (c AddMarkCommand) Validate() error {
	if c.EnrollmentID == "" {
		return errors.New("add_mark: enrollment_id must be provided")
	}
	return nil
}

// AddMarkHandler handles the AddMarkCommand.
type AddMarkHandler struct {
	store records.Store
}

// NewAddMarkHandler creates a new AddMarkHandler.
func NewAddMarkHandler(store records.Store) *AddMarkHandler {
	return &AddMarkHandler{store: store}
}

// Handle stores the mark and returns it.
func (h *AddMarkHandler) Handle(ctx context.Context, cmd AddMarkCommand) (*enrollment.Mark, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("enrollment", "AddMark", shared.ErrValidation, err.Error(), err)
	}

	m, err := enrollment.NewMark(
		uuid.NewString(),
		cmd.EnrollmentID,
		cmd.Assessment,
		cmd.Obtained,
		cmd.MaxScore,
		cmd.RecordedOn,
	)
	if err != nil {
		return nil, shared.WrapError("enrollment", "AddMark", shared.ErrValidation, err.Error(), err)
	}

	err = h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		if _, err := r.Enrollments().GetByID(ctx, cmd.EnrollmentID); err != nil {
			return err
		}
		return r.Enrollments().AddMark(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REMOVE MARK COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RemoveMarkCommand contains the data needed to remove a single mark.
type RemoveMarkCommand struct {
	// MarkID is the internal ID of the mark to remove.
	MarkID string
}

// Validate validates the command.
func (c RemoveMarkCommand) Validate() error {
	if c.MarkID == "" {
		return errors.New("remove_mark: mark_id must be provided")
	}
	return nil
}

// RemoveMarkHandler handles the RemoveMarkCommand.
type RemoveMarkHandler struct {
	store records.Store
}

// NewRemoveMarkHandler creates a new RemoveMarkHandler.
func NewRemoveMarkHandler(store records.Store) *RemoveMarkHandler {
	return &RemoveMarkHandler{store: store}
}

// Handle removes the mark.
func (h *RemoveMarkHandler) Handle(ctx context.Context, cmd RemoveMarkCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("enrollment", "RemoveMark", shared.ErrValidation, err.Error(), err)
	}

	return h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		return r.Enrollments().DeleteMark(ctx, cmd.MarkID)
	})
}

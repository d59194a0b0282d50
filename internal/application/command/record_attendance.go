package command

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ATTENDANCE COMMAND
// Sets the attendance counters for an enrollment. The counters are absolute
// values, not increments: recording replaces whatever was there before.
// ══════════════════════════════════════════════════════════════════════════════

// RecordAttendanceCommand contains the data needed to record attendance.
type RecordAttendanceCommand struct {
	// EnrollmentID is the internal ID of the enrollment.
	EnrollmentID string

	// TotalClasses is the number of classes held so far.
	TotalClasses int

	// AttendedClasses is how many of them the student attended.
	AttendedClasses int
}

// Validate validates the command.
func (c RecordAttendanceCommand) Validate() error {
	if c.EnrollmentID == "" {
		return errors.New("record_attendance: enrollment_id must be provided")
	}
	return nil
}

// RecordAttendanceHandler handles the RecordAttendanceCommand.
type RecordAttendanceHandler struct {
	store records.Store
}

// NewRecordAttendanceHandler creates a new RecordAttendanceHandler.
func NewRecordAttendanceHandler(store records.Store) *RecordAttendanceHandler {
	return &RecordAttendanceHandler{store: store}
}

// Handle upserts the single attendance record of the enrollment.
func (h *RecordAttendanceHandler) Handle(ctx context.Context, cmd RecordAttendanceCommand) (*enrollment.Attendance, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("enrollment", "RecordAttendance", shared.ErrValidation, err.Error(), err)
	}

	a, err := enrollment.NewAttendance(uuid.NewString(), cmd.EnrollmentID, cmd.TotalClasses, cmd.AttendedClasses)
	if err != nil {
		return nil, shared.WrapError("enrollment", "RecordAttendance", shared.ErrValidation, err.Error(), err)
	}

	// A replace keeps the ID of the row it overwrote, so re-read the stored
	// row instead of returning the candidate built above.
	var stored *enrollment.Attendance
	err = h.store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		if _, err := r.Enrollments().GetByID(ctx, cmd.EnrollmentID); err != nil {
			return err
		}
		if err := r.Enrollments().UpsertAttendance(ctx, a); err != nil {
			return err
		}
		stored, err = r.Enrollments().GetAttendance(ctx, cmd.EnrollmentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

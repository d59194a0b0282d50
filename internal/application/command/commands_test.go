package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/internal/domain/student"
	"github.com/carpas-edu/carpas/internal/infrastructure/persistence/memory"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

type fixture struct {
	store *memory.Store

	createStudent *CreateStudentHandler
	updateStudent *UpdateStudentHandler
	deleteStudent *DeleteStudentHandler
	createCourse  *CreateCourseHandler
	updateCourse  *UpdateCourseHandler
	deleteCourse  *DeleteCourseHandler
	enroll        *EnrollStudentHandler
	withdraw      *WithdrawEnrollmentHandler
	attendance    *RecordAttendanceHandler
	addMark       *AddMarkHandler
	removeMark    *RemoveMarkHandler
}

func newFixture() *fixture {
	store := memory.NewStore()
	return &fixture{
		store:         store,
		createStudent: NewCreateStudentHandler(store),
		updateStudent: NewUpdateStudentHandler(store),
		deleteStudent: NewDeleteStudentHandler(store),
		createCourse:  NewCreateCourseHandler(store),
		updateCourse:  NewUpdateCourseHandler(store),
		deleteCourse:  NewDeleteCourseHandler(store),
		enroll:        NewEnrollStudentHandler(store),
		withdraw:      NewWithdrawEnrollmentHandler(store),
		attendance:    NewRecordAttendanceHandler(store),
		addMark:       NewAddMarkHandler(store),
		removeMark:    NewRemoveMarkHandler(store),
	}
}

func (f *fixture) mustStudent(t *testing.T, rollNo, name string) *student.Student {
	t.Helper()
	s, err := f.createStudent.Handle(context.Background(), CreateStudentCommand{
		RollNo:   rollNo,
		FullName: name,
		Semester: 3,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) mustCourse(t *testing.T, code, title string) *course.Course {
	t.Helper()
	c, err := f.createCourse.Handle(context.Background(), CreateCourseCommand{
		Code:     code,
		Title:    title,
		Semester: 3,
		Credits:  4,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) mustEnroll(t *testing.T, studentID, courseID string) *enrollment.Enrollment {
	t.Helper()
	e, err := f.enroll.Handle(context.Background(), EnrollStudentCommand{
		StudentID: studentID,
		CourseID:  courseID,
	})
	require.NoError(t, err)
	return e
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateStudent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	s, err := f.createStudent.Handle(ctx, CreateStudentCommand{
		RollNo:   "  cs2021001 ",
		FullName: "Alice Johnson",
		Semester: 3,
		Email:    "alice@example.edu",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	// Roll numbers are normalized to canonical uppercase form.
	assert.Equal(t, "CS2021001", s.RollNo.String())

	_, err = f.createStudent.Handle(ctx, CreateStudentCommand{
		RollNo:   "CS2021001",
		FullName: "Impostor",
		Semester: 3,
	})
	assert.ErrorIs(t, err, shared.ErrRollNoTaken)

	_, err = f.createStudent.Handle(ctx, CreateStudentCommand{
		RollNo:   "CS2021002",
		FullName: "",
		Semester: 3,
	})
	assert.True(t, shared.IsValidation(err), "empty name must be a validation error")
}

func TestUpdateStudent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.mustStudent(t, "CS2021001", "Alice Johnson")
	f.mustStudent(t, "CS2021002", "Bob Smith")

	updated, err := f.updateStudent.Handle(ctx, UpdateStudentCommand{
		StudentID: alice.ID,
		FullName:  strPtr("Alice J. Johnson"),
		Semester:  intPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice J. Johnson", updated.FullName)
	assert.Equal(t, 4, int(updated.Semester))
	// Untouched fields keep their values.
	assert.Equal(t, "CS2021001", updated.RollNo.String())

	// Taking another student's roll number is a conflict.
	_, err = f.updateStudent.Handle(ctx, UpdateStudentCommand{
		StudentID: alice.ID,
		RollNo:    strPtr("CS2021002"),
	})
	assert.ErrorIs(t, err, shared.ErrRollNoTaken)

	// Re-setting your own roll number is not.
	_, err = f.updateStudent.Handle(ctx, UpdateStudentCommand{
		StudentID: alice.ID,
		RollNo:    strPtr("cs2021001"),
	})
	assert.NoError(t, err)

	_, err = f.updateStudent.Handle(ctx, UpdateStudentCommand{
		StudentID: "missing",
		FullName:  strPtr("Nobody"),
	})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestDeleteStudent_CascadePolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.mustStudent(t, "CS2021001", "Alice Johnson")
	os := f.mustCourse(t, "CS301", "Operating Systems")
	db := f.mustCourse(t, "CS302", "Database Systems")
	e1 := f.mustEnroll(t, alice.ID, os.ID)
	f.mustEnroll(t, alice.ID, db.ID)

	_, err := f.attendance.Handle(ctx, RecordAttendanceCommand{
		EnrollmentID: e1.ID, TotalClasses: 10, AttendedClasses: 9,
	})
	require.NoError(t, err)

	// Without cascade the delete is rejected.
	_, err = f.deleteStudent.Handle(ctx, DeleteStudentCommand{StudentID: alice.ID})
	assert.ErrorIs(t, err, shared.ErrStudentHasRecords)

	// With cascade the student goes along with both enrollments.
	res, err := f.deleteStudent.Handle(ctx, DeleteStudentCommand{StudentID: alice.ID, Cascade: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RemovedEnrollments)

	exists, err := f.store.Students().Exists(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.store.Enrollments().GetAttendance(ctx, e1.ID)
	assert.ErrorIs(t, err, shared.ErrAttendanceNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateAndUpdateCourse(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	c := f.mustCourse(t, "cs301", "Operating Systems")
	assert.Equal(t, "CS301", c.Code.String())

	_, err := f.createCourse.Handle(ctx, CreateCourseCommand{
		Code: "CS301", Title: "Shadow Course", Semester: 3, Credits: 4,
	})
	assert.ErrorIs(t, err, shared.ErrCourseCodeTaken)

	_, err = f.createCourse.Handle(ctx, CreateCourseCommand{
		Code: "CS999", Title: "Overweight", Semester: 3, Credits: 99,
	})
	assert.True(t, shared.IsValidation(err), "credits out of range must be a validation error")

	updated, err := f.updateCourse.Handle(ctx, UpdateCourseCommand{
		CourseID: c.ID,
		Title:    strPtr("Advanced Operating Systems"),
		Credits:  intPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Operating Systems", updated.Title)
	assert.Equal(t, 5, updated.Credits.Int())
}

func TestDeleteCourse_CascadePolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.mustStudent(t, "CS2021001", "Alice Johnson")
	c := f.mustCourse(t, "CS301", "Operating Systems")
	f.mustEnroll(t, alice.ID, c.ID)

	_, err := f.deleteCourse.Handle(ctx, DeleteCourseCommand{CourseID: c.ID})
	assert.ErrorIs(t, err, shared.ErrCourseHasRecords)

	res, err := f.deleteCourse.Handle(ctx, DeleteCourseCommand{CourseID: c.ID, Cascade: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemovedEnrollments)

	// The student survives a course cascade.
	exists, err := f.store.Students().Exists(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func TestEnrollStudent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.mustStudent(t, "CS2021001", "Alice Johnson")
	c := f.mustCourse(t, "CS301", "Operating Systems")

	e := f.mustEnroll(t, alice.ID, c.ID)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.EnrolledOn.IsZero())

	_, err := f.enroll.Handle(ctx, EnrollStudentCommand{StudentID: alice.ID, CourseID: c.ID})
	assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)

	_, err = f.enroll.Handle(ctx, EnrollStudentCommand{StudentID: "missing", CourseID: c.ID})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)

	_, err = f.enroll.Handle(ctx, EnrollStudentCommand{StudentID: alice.ID, CourseID: "missing"})
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
}

func TestWithdrawEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.mustStudent(t, "CS2021001", "Alice Johnson")
	c := f.mustCourse(t, "CS301", "Operating Systems")
	e := f.mustEnroll(t, alice.ID, c.ID)

	_, err := f.addMark.Handle(ctx, AddMarkCommand{EnrollmentID: e.ID, Obtained: 80})
	require.NoError(t, err)

	// Withdraw by pair instead of ID.
	err = f.withdraw.Handle(ctx, WithdrawEnrollmentCommand{StudentID: alice.ID, CourseID: c.ID})
	require.NoError(t, err)

	count, err := f.store.Enrollments().CountMarks(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "marks must be removed with the enrollment")

	err = f.withdraw.Handle(ctx, WithdrawEnrollmentCommand{EnrollmentID: e.ID})
	assert.ErrorIs(t, err, shared.ErrEnrollmentNotFound)

	err = f.withdraw.Handle(ctx, WithdrawEnrollmentCommand{StudentID: alice.ID})
	assert.True(t, shared.IsValidation(err), "half a pair is not addressable")
}

func TestRecordAttendance(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.mustStudent(t, "CS2021001", "Alice Johnson")
	c := f.mustCourse(t, "CS301", "Operating Systems")
	e := f.mustEnroll(t, alice.ID, c.ID)

	a, err := f.attendance.Handle(ctx, RecordAttendanceCommand{
		EnrollmentID: e.ID, TotalClasses: 10, AttendedClasses: 8,
	})
	require.NoError(t, err)
	pct, ok := a.Percent()
	require.True(t, ok)
	assert.InDelta(t, 80.0, pct, 1e-9)

	// Recording again replaces the counters but keeps the row ID, and the
	// handler reports the ID the store actually kept.
	replaced, err := f.attendance.Handle(ctx, RecordAttendanceCommand{
		EnrollmentID: e.ID, TotalClasses: 20, AttendedClasses: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, replaced.ID)

	stored, err := f.store.Enrollments().GetAttendance(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, replaced.ID, stored.ID)
	assert.Equal(t, 20, stored.TotalClasses)
	assert.Equal(t, 10, stored.AttendedClasses)

	// Invariant violations never reach the store.
	_, err = f.attendance.Handle(ctx, RecordAttendanceCommand{
		EnrollmentID: e.ID, TotalClasses: 5, AttendedClasses: 9,
	})
	assert.True(t, shared.IsValidation(err))
	assert.ErrorIs(t, err, enrollment.ErrAttendedExceedsTotal)

	_, err = f.attendance.Handle(ctx, RecordAttendanceCommand{
		EnrollmentID: "missing", TotalClasses: 5, AttendedClasses: 3,
	})
	assert.ErrorIs(t, err, shared.ErrEnrollmentNotFound)
}

func TestAddAndRemoveMark(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	alice := f.mustStudent(t, "CS2021001", "Alice Johnson")
	c := f.mustCourse(t, "CS301", "Operating Systems")
	e := f.mustEnroll(t, alice.ID, c.ID)

	// Defaults: assessment "Exam", recorded today. Max score is never
	// defaulted here - an explicit zero is a validation error.
	m, err := f.addMark.Handle(ctx, AddMarkCommand{
		EnrollmentID: e.ID, Obtained: 72.5, MaxScore: enrollment.DefaultMaxScore,
	})
	require.NoError(t, err)
	assert.Equal(t, enrollment.DefaultAssessment, m.Assessment)
	assert.Equal(t, enrollment.DefaultMaxScore, m.MaxScore)
	assert.Equal(t, enrollment.TruncateToDate(time.Now().UTC()), m.RecordedOn)

	_, err = f.addMark.Handle(ctx, AddMarkCommand{EnrollmentID: e.ID, Obtained: 10})
	assert.ErrorIs(t, err, enrollment.ErrNonPositiveMaxScore)

	_, err = f.addMark.Handle(ctx, AddMarkCommand{
		EnrollmentID: e.ID, Assessment: "Mid Sem", Obtained: 45, MaxScore: 50,
	})
	require.NoError(t, err)

	marks, err := f.store.Enrollments().ListMarks(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, marks, 2)

	// Obtained above max is a validation error.
	_, err = f.addMark.Handle(ctx, AddMarkCommand{
		EnrollmentID: e.ID, Obtained: 60, MaxScore: 50,
	})
	assert.ErrorIs(t, err, enrollment.ErrScoreOutOfRange)

	require.NoError(t, f.removeMark.Handle(ctx, RemoveMarkCommand{MarkID: m.ID}))
	assert.ErrorIs(t, f.removeMark.Handle(ctx, RemoveMarkCommand{MarkID: m.ID}), shared.ErrMarkNotFound)
}

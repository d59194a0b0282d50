package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
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
}

func newFixture() *fixture {
	return &fixture{store: memory.NewStore()}
}

func (f *fixture) addStudent(t *testing.T, rollNo, name string) *student.Student {
	t.Helper()
	s, err := student.NewStudent(student.NewStudentParams{
		ID:       uuid.NewString(),
		RollNo:   rollNo,
		FullName: name,
		Semester: shared.Semester(3),
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Students().Create(context.Background(), s))
	return s
}

func (f *fixture) addCourse(t *testing.T, code, title string) *course.Course {
	t.Helper()
	c, err := course.NewCourse(course.NewCourseParams{
		ID:       uuid.NewString(),
		Code:     code,
		Title:    title,
		Semester: shared.Semester(3),
		Credits:  course.Credits(4),
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Courses().Create(context.Background(), c))
	return c
}

func (f *fixture) addEnrollment(t *testing.T, studentID, courseID string) *enrollment.Enrollment {
	t.Helper()
	e, err := enrollment.NewEnrollment(uuid.NewString(), studentID, courseID, time.Time{})
	require.NoError(t, err)
	require.NoError(t, f.store.Enrollments().Create(context.Background(), e))
	return e
}

func (f *fixture) setAttendance(t *testing.T, enrollmentID string, total, attended int) {
	t.Helper()
	a, err := enrollment.NewAttendance(uuid.NewString(), enrollmentID, total, attended)
	require.NoError(t, err)
	require.NoError(t, f.store.Enrollments().UpsertAttendance(context.Background(), a))
}

func (f *fixture) addMark(t *testing.T, enrollmentID string, obtained, max float64) {
	t.Helper()
	m, err := enrollment.NewMark(uuid.NewString(), enrollmentID, "Exam", obtained, max, time.Time{})
	require.NoError(t, err)
	require.NoError(t, f.store.Enrollments().AddMark(context.Background(), m))
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST QUERIES
// ══════════════════════════════════════════════════════════════════════════════

func TestListStudents(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.addStudent(t, "CS2021002", "Bob Smith")
	f.addStudent(t, "CS2021001", "Alice Johnson")
	f.addStudent(t, "EE2021001", "Carol White")

	h := NewListStudentsHandler(f.store)

	res, err := h.Handle(ctx, ListStudentsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	require.Len(t, res.Students, 3)
	assert.Equal(t, "CS2021001", res.Students[0].RollNo)

	// TotalCount ignores pagination.
	res, err = h.Handle(ctx, ListStudentsQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Len(t, res.Students, 2)

	res, err = h.Handle(ctx, ListStudentsQuery{Search: "smith"})
	require.NoError(t, err)
	require.Len(t, res.Students, 1)
	assert.Equal(t, "Bob Smith", res.Students[0].FullName)

	_, err = h.Handle(ctx, ListStudentsQuery{Limit: -1})
	assert.Error(t, err)
}

func TestListCourses(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.addCourse(t, "MA301", "Linear Algebra")
	f.addCourse(t, "CS301", "Operating Systems")

	h := NewListCoursesHandler(f.store)

	res, err := h.Handle(ctx, ListCoursesQuery{})
	require.NoError(t, err)
	require.Len(t, res.Courses, 2)
	assert.Equal(t, "CS301", res.Courses[0].Code)
	assert.Equal(t, 2, res.TotalCount)

	res, err = h.Handle(ctx, ListCoursesQuery{Search: "algebra"})
	require.NoError(t, err)
	require.Len(t, res.Courses, 1)
	assert.Equal(t, "MA301", res.Courses[0].Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS & SUMMARY QUERIES
// ══════════════════════════════════════════════════════════════════════════════

func TestGetEnrollmentProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	s := f.addStudent(t, "CS2021001", "Alice Johnson")
	c := f.addCourse(t, "CS301", "Operating Systems")
	e := f.addEnrollment(t, s.ID, c.ID)

	h := NewGetEnrollmentProgressHandler(f.store)

	// No data yet: percentages are nil, not zero.
	res, err := h.Handle(ctx, GetEnrollmentProgressQuery{EnrollmentID: e.ID})
	require.NoError(t, err)
	assert.Nil(t, res.Progress.AttendancePercent)
	assert.Nil(t, res.Progress.MarksPercent)
	assert.Empty(t, res.Marks)

	f.setAttendance(t, e.ID, 20, 15)
	f.addMark(t, e.ID, 40, 50)

	// Addressable by pair as well.
	res, err = h.Handle(ctx, GetEnrollmentProgressQuery{StudentID: s.ID, CourseID: c.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Progress.AttendancePercent)
	assert.InDelta(t, 75.0, *res.Progress.AttendancePercent, 1e-9)
	require.NotNil(t, res.Progress.MarksPercent)
	assert.InDelta(t, 80.0, *res.Progress.MarksPercent, 1e-9)
	require.Len(t, res.Marks, 1)
	assert.InDelta(t, 80.0, res.Marks[0].Percent, 1e-9)

	_, err = h.Handle(ctx, GetEnrollmentProgressQuery{EnrollmentID: "missing"})
	assert.ErrorIs(t, err, shared.ErrEnrollmentNotFound)

	_, err = h.Handle(ctx, GetEnrollmentProgressQuery{StudentID: s.ID})
	assert.True(t, shared.IsValidation(err))
}

func TestGetStudentSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	s := f.addStudent(t, "CS2021001", "Alice Johnson")
	os := f.addCourse(t, "CS301", "Operating Systems")
	db := f.addCourse(t, "CS302", "Database Systems")

	e1 := f.addEnrollment(t, s.ID, os.ID)
	f.addEnrollment(t, s.ID, db.ID)

	// Only the first course has any data.
	f.setAttendance(t, e1.ID, 10, 6)
	f.addMark(t, e1.ID, 90, 100)

	h := NewGetStudentSummaryHandler(f.store)

	res, err := h.Handle(ctx, GetStudentSummaryQuery{StudentID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, "CS2021001", res.Student.RollNo)
	assert.Equal(t, 2, res.EnrollmentCount)
	require.Len(t, res.Courses, 2)
	assert.Equal(t, "CS301", res.Courses[0].CourseCode)

	// Averages cover only enrollments that have data.
	require.NotNil(t, res.AverageAttendancePercent)
	assert.InDelta(t, 60.0, *res.AverageAttendancePercent, 1e-9)
	require.NotNil(t, res.AverageMarksPercent)
	assert.InDelta(t, 90.0, *res.AverageMarksPercent, 1e-9)

	// Lookup by roll number, case-normalized.
	res, err = h.Handle(ctx, GetStudentSummaryQuery{RollNo: "cs2021001"})
	require.NoError(t, err)
	assert.Equal(t, s.ID, res.Student.ID)

	_, err = h.Handle(ctx, GetStudentSummaryQuery{StudentID: "missing"})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestGetStudentSummary_NoData(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	s := f.addStudent(t, "CS2021001", "Alice Johnson")
	h := NewGetStudentSummaryHandler(f.store)

	res, err := h.Handle(ctx, GetStudentSummaryQuery{StudentID: s.ID})
	require.NoError(t, err)
	assert.Zero(t, res.EnrollmentCount)
	assert.Nil(t, res.AverageAttendancePercent)
	assert.Nil(t, res.AverageMarksPercent)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE PERFORMANCE QUERY
// ══════════════════════════════════════════════════════════════════════════════

func TestGetCoursePerformance(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	c := f.addCourse(t, "CS301", "Operating Systems")

	// Two students with marks (80% and 60%), one without any.
	for i, obtained := range []float64{80, 60, -1} {
		s := f.addStudent(t, fmt.Sprintf("CS202100%d", i+1), fmt.Sprintf("Student %d", i+1))
		e := f.addEnrollment(t, s.ID, c.ID)
		if obtained >= 0 {
			f.addMark(t, e.ID, obtained, 100)
		}
	}

	h := NewGetCoursePerformanceHandler(f.store)

	res, err := h.Handle(ctx, GetCoursePerformanceQuery{Code: "cs301"})
	require.NoError(t, err)
	assert.Equal(t, "CS301", res.Course.Code)
	assert.Equal(t, 3, res.EnrolledCount)

	// {80, 60} averages to 70; the markless enrollment is excluded.
	require.NotNil(t, res.AverageMarksPercent)
	assert.InDelta(t, 70.0, *res.AverageMarksPercent, 1e-9)

	// No attendance anywhere: nil, not zero.
	assert.Nil(t, res.AverageAttendancePercent)

	_, err = h.Handle(ctx, GetCoursePerformanceQuery{Code: "XX999"})
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// AT-RISK QUERY
// ══════════════════════════════════════════════════════════════════════════════

func TestFindAtRisk(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	c := f.addCourse(t, "CS301", "Operating Systems")

	// Low attendance only.
	s1 := f.addStudent(t, "CS2021001", "Alice Johnson")
	e1 := f.addEnrollment(t, s1.ID, c.ID)
	f.setAttendance(t, e1.ID, 20, 10) // 50%
	f.addMark(t, e1.ID, 85, 100)

	// Low marks only.
	s2 := f.addStudent(t, "CS2021002", "Bob Smith")
	e2 := f.addEnrollment(t, s2.ID, c.ID)
	f.setAttendance(t, e2.ID, 20, 19)
	f.addMark(t, e2.ID, 20, 100)

	// Both low.
	s3 := f.addStudent(t, "CS2021003", "Carol White")
	e3 := f.addEnrollment(t, s3.ID, c.ID)
	f.setAttendance(t, e3.ID, 20, 5)
	f.addMark(t, e3.ID, 10, 100)

	// No data at all: never at risk.
	s4 := f.addStudent(t, "CS2021004", "Dave Brown")
	f.addEnrollment(t, s4.ID, c.ID)

	// Healthy on both counts.
	s5 := f.addStudent(t, "CS2021005", "Eve Green")
	e5 := f.addEnrollment(t, s5.ID, c.ID)
	f.setAttendance(t, e5.ID, 20, 18)
	f.addMark(t, e5.ID, 75, 100)

	h := NewFindAtRiskHandler(f.store)

	res, err := h.Handle(ctx, FindAtRiskQuery{})
	require.NoError(t, err)
	assert.Equal(t, DefaultAttendanceThreshold, res.AttendanceThreshold)
	assert.Equal(t, DefaultMarksThreshold, res.MarksThreshold)
	assert.Equal(t, 5, res.ScannedCount)
	require.Len(t, res.Entries, 3)

	// Ordered by roll number; reasons name the failing metric.
	assert.Equal(t, "CS2021001", res.Entries[0].Progress.RollNo)
	assert.Equal(t, []string{ReasonLowAttendance}, res.Entries[0].Reasons)

	assert.Equal(t, "CS2021002", res.Entries[1].Progress.RollNo)
	assert.Equal(t, []string{ReasonLowMarks}, res.Entries[1].Reasons)

	assert.Equal(t, "CS2021003", res.Entries[2].Progress.RollNo)
	assert.Equal(t, []string{ReasonLowAttendance, ReasonLowMarks}, res.Entries[2].Reasons)
}

func TestFindAtRisk_BoundaryIsNotAtRisk(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	c := f.addCourse(t, "CS301", "Operating Systems")
	s := f.addStudent(t, "CS2021001", "Alice Johnson")
	e := f.addEnrollment(t, s.ID, c.ID)

	// Exactly at the thresholds: strict comparison keeps them out.
	f.setAttendance(t, e.ID, 20, 15) // exactly 75%
	f.addMark(t, e.ID, 40, 100)      // exactly 40%

	h := NewFindAtRiskHandler(f.store)

	res, err := h.Handle(ctx, FindAtRiskQuery{})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestFindAtRisk_CustomThresholdsAndCourseFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	os := f.addCourse(t, "CS301", "Operating Systems")
	db := f.addCourse(t, "CS302", "Database Systems")
	s := f.addStudent(t, "CS2021001", "Alice Johnson")

	e1 := f.addEnrollment(t, s.ID, os.ID)
	f.setAttendance(t, e1.ID, 20, 17) // 85%

	e2 := f.addEnrollment(t, s.ID, db.ID)
	f.setAttendance(t, e2.ID, 20, 10) // 50%

	h := NewFindAtRiskHandler(f.store)

	// Raised threshold catches the first course too.
	res, err := h.Handle(ctx, FindAtRiskQuery{AttendanceBelow: 90})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)

	// Course filter narrows the scan.
	res, err = h.Handle(ctx, FindAtRiskQuery{CourseID: db.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ScannedCount)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "CS302", res.Entries[0].Progress.CourseCode)

	_, err = h.Handle(ctx, FindAtRiskQuery{MarksBelow: -5})
	assert.Error(t, err)
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func newTestStudent(t *testing.T, rollNo, name string) *student.Student {
	t.Helper()

	s, err := student.NewStudent(student.NewStudentParams{
		ID:       uuid.NewString(),
		RollNo:   rollNo,
		FullName: name,
		Semester: shared.Semester(3),
	})
	require.NoError(t, err)
	return s
}

func newTestCourse(t *testing.T, code, title string) *course.Course {
	t.Helper()

	c, err := course.NewCourse(course.NewCourseParams{
		ID:       uuid.NewString(),
		Code:     code,
		Title:    title,
		Semester: shared.Semester(3),
		Credits:  course.Credits(4),
	})
	require.NoError(t, err)
	return c
}

func newTestEnrollment(t *testing.T, studentID, courseID string) *enrollment.Enrollment {
	t.Helper()

	e, err := enrollment.NewEnrollment(uuid.NewString(), studentID, courseID, time.Time{})
	require.NoError(t, err)
	return e
}

// seedEnrollment inserts a student, course and enrollment and returns them.
func seedEnrollment(t *testing.T, store *Store) (*student.Student, *course.Course, *enrollment.Enrollment) {
	t.Helper()
	ctx := context.Background()

	s := newTestStudent(t, "CS2021001", "Alice Johnson")
	c := newTestCourse(t, "CS301", "Operating Systems")
	e := newTestEnrollment(t, s.ID, c.ID)

	err := store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		if err := r.Students().Create(ctx, s); err != nil {
			return err
		}
		if err := r.Courses().Create(ctx, c); err != nil {
			return err
		}
		return r.Enrollments().Create(ctx, e)
	})
	require.NoError(t, err)

	return s, c, e
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestStudentRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	s := newTestStudent(t, "CS2021001", "Alice Johnson")
	require.NoError(t, store.Students().Create(ctx, s))

	got, err := store.Students().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.RollNo, got.RollNo)
	assert.Equal(t, s.FullName, got.FullName)

	byRoll, err := store.Students().GetByRollNo(ctx, s.RollNo)
	require.NoError(t, err)
	assert.Equal(t, s.ID, byRoll.ID)

	_, err = store.Students().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStudentRepo_DuplicateRollNo(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Students().Create(ctx, newTestStudent(t, "CS2021001", "Alice")))

	err := store.Students().Create(ctx, newTestStudent(t, "CS2021001", "Impostor"))
	assert.ErrorIs(t, err, shared.ErrRollNoTaken)
	assert.True(t, shared.IsConflict(err))
}

func TestStudentRepo_UpdateConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first := newTestStudent(t, "CS2021001", "Alice")
	second := newTestStudent(t, "CS2021002", "Bob")
	require.NoError(t, store.Students().Create(ctx, first))
	require.NoError(t, store.Students().Create(ctx, second))

	// Taking another student's roll number must fail.
	require.NoError(t, second.ChangeRollNo("CS2021001"))
	assert.ErrorIs(t, store.Students().Update(ctx, second), shared.ErrRollNoTaken)

	// Keeping your own roll number is fine.
	require.NoError(t, first.Rename("Alice Johnson"))
	assert.NoError(t, store.Students().Update(ctx, first))

	ghost := newTestStudent(t, "CS2021099", "Ghost")
	assert.ErrorIs(t, store.Students().Update(ctx, ghost), shared.ErrStudentNotFound)
}

func TestStudentRepo_DeleteGuardedByEnrollments(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s, _, e := seedEnrollment(t, store)

	err := store.Students().Delete(ctx, s.ID)
	assert.ErrorIs(t, err, shared.ErrStudentHasRecords)

	require.NoError(t, store.Enrollments().Delete(ctx, e.ID))
	assert.NoError(t, store.Students().Delete(ctx, s.ID))

	assert.ErrorIs(t, store.Students().Delete(ctx, s.ID), shared.ErrStudentNotFound)
}

func TestStudentRepo_ListFilterSortPaginate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	seed := []struct {
		rollNo, name, dept string
	}{
		{"CS2021003", "Carol White", "CSE"},
		{"CS2021001", "Alice Johnson", "CSE"},
		{"EE2021001", "Dave Brown", "EEE"},
		{"CS2021002", "Bob Smith", "CSE"},
	}
	for _, row := range seed {
		s := newTestStudent(t, row.rollNo, row.name)
		require.NoError(t, s.SetDepartment(row.dept))
		require.NoError(t, store.Students().Create(ctx, s))
	}

	// Default sort: roll_no ascending.
	list, err := store.Students().List(ctx, student.DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "CS2021001", list[0].RollNo.String())
	assert.Equal(t, "EE2021001", list[3].RollNo.String())

	// Department filter.
	cse, err := store.Students().List(ctx, student.DefaultListOptions().WithDepartment("CSE"))
	require.NoError(t, err)
	assert.Len(t, cse, 3)

	count, err := store.Students().Count(ctx, student.DefaultListOptions().WithDepartment("CSE"))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Case-insensitive search over roll number and name.
	found, err := store.Students().List(ctx, student.DefaultListOptions().WithSearch("johnson"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Alice Johnson", found[0].FullName)

	// Pagination.
	page, err := store.Students().List(ctx, student.DefaultListOptions().WithOffset(1).WithLimit(2))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "CS2021002", page[0].RollNo.String())

	// Descending name sort.
	byName, err := store.Students().List(ctx, student.DefaultListOptions().WithSort("full_name", true))
	require.NoError(t, err)
	assert.Equal(t, "Dave Brown", byName[0].FullName)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestCourseRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	c := newTestCourse(t, "CS301", "Operating Systems")
	require.NoError(t, store.Courses().Create(ctx, c))

	dup := newTestCourse(t, "CS301", "Shadow Course")
	assert.ErrorIs(t, store.Courses().Create(ctx, dup), shared.ErrCourseCodeTaken)

	got, err := store.Courses().GetByCode(ctx, c.Code)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	require.NoError(t, c.Retitle("Advanced Operating Systems"))
	require.NoError(t, store.Courses().Update(ctx, c))

	updated, err := store.Courses().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Advanced Operating Systems", updated.Title)

	exists, err := store.Courses().ExistsByCode(ctx, c.Code)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Courses().Delete(ctx, c.ID))
	_, err = store.Courses().GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
}

func TestCourseRepo_DeleteGuardedByEnrollments(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, c, _ := seedEnrollment(t, store)

	assert.ErrorIs(t, store.Courses().Delete(ctx, c.ID), shared.ErrCourseHasRecords)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestEnrollmentRepo_CreateAndPairUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s, c, e := seedEnrollment(t, store)

	dup := newTestEnrollment(t, s.ID, c.ID)
	assert.ErrorIs(t, store.Enrollments().Create(ctx, dup), shared.ErrAlreadyEnrolled)

	got, err := store.Enrollments().GetByPair(ctx, s.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	ok, err := store.Enrollments().ExistsPair(ctx, s.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// A dangling reference is a conflict, not a storage failure.
	orphan := newTestEnrollment(t, uuid.NewString(), c.ID)
	err = store.Enrollments().Create(ctx, orphan)
	assert.True(t, shared.IsConflict(err))
}

func TestEnrollmentRepo_AttendanceUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, _, e := seedEnrollment(t, store)

	_, err := store.Enrollments().GetAttendance(ctx, e.ID)
	assert.ErrorIs(t, err, shared.ErrAttendanceNotFound)

	first, err := enrollment.NewAttendance(uuid.NewString(), e.ID, 10, 8)
	require.NoError(t, err)
	require.NoError(t, store.Enrollments().UpsertAttendance(ctx, first))

	// Second upsert replaces the counters but keeps the row identity.
	second, err := enrollment.NewAttendance(uuid.NewString(), e.ID, 20, 15)
	require.NoError(t, err)
	require.NoError(t, store.Enrollments().UpsertAttendance(ctx, second))

	got, err := store.Enrollments().GetAttendance(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 20, got.TotalClasses)
	assert.Equal(t, 15, got.AttendedClasses)

	ghost, err := enrollment.NewAttendance(uuid.NewString(), uuid.NewString(), 5, 5)
	require.NoError(t, err)
	assert.ErrorIs(t, store.Enrollments().UpsertAttendance(ctx, ghost), shared.ErrEnrollmentNotFound)
}

func TestEnrollmentRepo_Marks(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, _, e := seedEnrollment(t, store)

	mid, err := enrollment.NewMark(uuid.NewString(), e.ID, "Mid Sem", 40, 50, time.Time{})
	require.NoError(t, err)
	end, err := enrollment.NewMark(uuid.NewString(), e.ID, "End Sem", 70, 100, time.Time{})
	require.NoError(t, err)

	require.NoError(t, store.Enrollments().AddMark(ctx, mid))
	require.NoError(t, store.Enrollments().AddMark(ctx, end))

	marks, err := store.Enrollments().ListMarks(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	// Same recorded date: insertion order is reversed (newest first).
	assert.Equal(t, "End Sem", marks[0].Assessment)
	assert.Equal(t, "Mid Sem", marks[1].Assessment)

	count, err := store.Enrollments().CountMarks(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.Enrollments().DeleteMark(ctx, mid.ID))
	assert.ErrorIs(t, store.Enrollments().DeleteMark(ctx, mid.ID), shared.ErrMarkNotFound)

	stray, err := enrollment.NewMark(uuid.NewString(), uuid.NewString(), "Quiz", 5, 10, time.Time{})
	require.NoError(t, err)
	assert.ErrorIs(t, store.Enrollments().AddMark(ctx, stray), shared.ErrEnrollmentNotFound)
}

func TestEnrollmentRepo_DeleteCascadesAttendanceAndMarks(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s, _, e := seedEnrollment(t, store)

	att, err := enrollment.NewAttendance(uuid.NewString(), e.ID, 10, 8)
	require.NoError(t, err)
	require.NoError(t, store.Enrollments().UpsertAttendance(ctx, att))

	mark, err := enrollment.NewMark(uuid.NewString(), e.ID, "Quiz", 8, 10, time.Time{})
	require.NoError(t, err)
	require.NoError(t, store.Enrollments().AddMark(ctx, mark))

	deleted, err := store.Enrollments().DeleteByStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.Enrollments().GetAttendance(ctx, e.ID)
	assert.ErrorIs(t, err, shared.ErrAttendanceNotFound)

	count, err := store.Enrollments().CountMarks(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS & AGGREGATE TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestEnrollmentRepo_ProgressUndefinedWithoutData(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, _, e := seedEnrollment(t, store)

	p, err := store.Enrollments().GetProgress(ctx, e.ID)
	require.NoError(t, err)

	assert.False(t, p.HasAttendance)
	_, ok := p.AttendancePercent()
	assert.False(t, ok, "no attendance row: percent must be undefined")
	_, ok = p.MarksPercent()
	assert.False(t, ok, "no marks: percent must be undefined")
}

func TestEnrollmentRepo_ProgressComputed(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	s, c, e := seedEnrollment(t, store)

	att, err := enrollment.NewAttendance(uuid.NewString(), e.ID, 20, 15)
	require.NoError(t, err)
	require.NoError(t, store.Enrollments().UpsertAttendance(ctx, att))

	mid, err := enrollment.NewMark(uuid.NewString(), e.ID, "Mid Sem", 40, 50, time.Time{})
	require.NoError(t, err)
	end, err := enrollment.NewMark(uuid.NewString(), e.ID, "End Sem", 40, 50, time.Time{})
	require.NoError(t, err)
	require.NoError(t, store.Enrollments().AddMark(ctx, mid))
	require.NoError(t, store.Enrollments().AddMark(ctx, end))

	p, err := store.Enrollments().GetProgress(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, s.RollNo.String(), p.RollNo)
	assert.Equal(t, c.Code.String(), p.CourseCode)

	attPct, ok := p.AttendancePercent()
	require.True(t, ok)
	assert.InDelta(t, 75.0, attPct, 1e-9)

	marksPct, ok := p.MarksPercent()
	require.True(t, ok)
	assert.InDelta(t, 80.0, marksPct, 1e-9)
	assert.Equal(t, 2, p.MarksCount)
}

func TestEnrollmentRepo_CourseAverages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	c := newTestCourse(t, "CS301", "Operating Systems")
	require.NoError(t, store.Courses().Create(ctx, c))

	// Three students: 80%, 60% and one with no marks at all.
	scores := []struct {
		rollNo   string
		obtained float64
		hasMarks bool
	}{
		{"CS2021001", 80, true},
		{"CS2021002", 60, true},
		{"CS2021003", 0, false},
	}
	for _, row := range scores {
		s := newTestStudent(t, row.rollNo, "Student "+row.rollNo)
		require.NoError(t, store.Students().Create(ctx, s))

		e := newTestEnrollment(t, s.ID, c.ID)
		require.NoError(t, store.Enrollments().Create(ctx, e))

		if row.hasMarks {
			m, err := enrollment.NewMark(uuid.NewString(), e.ID, "Exam", row.obtained, 100, time.Time{})
			require.NoError(t, err)
			require.NoError(t, store.Enrollments().AddMark(ctx, m))
		}
	}

	// Enrollments without marks do not drag the average down.
	avg, err := store.Enrollments().CourseAverageMarksPercent(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 70.0, *avg, 1e-9)

	// No attendance recorded anywhere: average is undefined, not zero.
	attAvg, err := store.Enrollments().CourseAverageAttendancePercent(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, attAvg)
}

func TestEnrollmentRepo_ListProgressOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	s := newTestStudent(t, "CS2021001", "Alice Johnson")
	require.NoError(t, store.Students().Create(ctx, s))

	for _, code := range []string{"MA301", "CS301", "EE301"} {
		c := newTestCourse(t, code, "Course "+code)
		require.NoError(t, store.Courses().Create(ctx, c))
		require.NoError(t, store.Enrollments().Create(ctx, newTestEnrollment(t, s.ID, c.ID)))
	}

	list, err := store.Enrollments().ListProgressByStudent(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "CS301", list[0].CourseCode)
	assert.Equal(t, "EE301", list[1].CourseCode)
	assert.Equal(t, "MA301", list[2].CourseCode)
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION SEMANTICS TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	boom := errors.New("boom")
	s := newTestStudent(t, "CS2021001", "Alice")

	err := store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		if err := r.Students().Create(ctx, s); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The partial write must not be visible.
	exists, err := store.Students().Exists(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_WithinTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	s := newTestStudent(t, "CS2021001", "Alice")

	assert.Panics(t, func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
			_ = r.Students().Create(ctx, s)
			panic("fatal")
		})
	})

	exists, err := store.Students().Exists(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_WithinReadTxNeverCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	s := newTestStudent(t, "CS2021001", "Alice")

	err := store.WithinReadTx(ctx, func(ctx context.Context, r records.Repositories) error {
		return r.Students().Create(ctx, s)
	})
	require.NoError(t, err)

	exists, err := store.Students().Exists(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, exists, "writes inside a read transaction must not persist")
}

func TestStore_CloseRejectsFurtherWork(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Ping(ctx), ErrStoreClosed)
	assert.ErrorIs(t, store.WithinTx(ctx, func(ctx context.Context, r records.Repositories) error {
		return nil
	}), ErrStoreClosed)
}

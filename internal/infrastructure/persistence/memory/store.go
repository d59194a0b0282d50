// Package memory implements the storage gateway of CARPAS on plain maps.
// It mirrors the semantics of the SQL gateway - same sentinels, same cascade
// and uniqueness rules - and exists for tests and ephemeral tooling where a
// database file is unwanted.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/internal/domain/student"
)

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("memory: store is closed")

// ══════════════════════════════════════════════════════════════════════════════
// DATASET
// ══════════════════════════════════════════════════════════════════════════════

// dataset holds the whole database state. Transactions snapshot it on entry
// and restore the snapshot on rollback.
type dataset struct {
	students    map[string]*student.Student
	courses     map[string]*course.Course
	enrollments map[string]*enrollment.Enrollment
	attendance  map[string]*enrollment.Attendance // keyed by enrollment id
	marks       []*enrollment.Mark                // insertion order preserved
}

func newDataset() *dataset {
	return &dataset{
		students:    make(map[string]*student.Student),
		courses:     make(map[string]*course.Course),
		enrollments: make(map[string]*enrollment.Enrollment),
		attendance:  make(map[string]*enrollment.Attendance),
	}
}

// clone makes a deep copy of the dataset.
func (d *dataset) clone() *dataset {
	c := &dataset{
		students:    make(map[string]*student.Student, len(d.students)),
		courses:     make(map[string]*course.Course, len(d.courses)),
		enrollments: make(map[string]*enrollment.Enrollment, len(d.enrollments)),
		attendance:  make(map[string]*enrollment.Attendance, len(d.attendance)),
		marks:       make([]*enrollment.Mark, len(d.marks)),
	}

	for id, s := range d.students {
		c.students[id] = s.Clone()
	}
	for id, crs := range d.courses {
		c.courses[id] = crs.Clone()
	}
	for id, e := range d.enrollments {
		cp := *e
		c.enrollments[id] = &cp
	}
	for id, a := range d.attendance {
		cp := *a
		c.attendance[id] = &cp
	}
	for i, m := range d.marks {
		cp := *m
		c.marks[i] = &cp
	}

	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store implements records.Store in memory.
type Store struct {
	mu     sync.Mutex
	data   *dataset
	closed bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// locked wraps the store mutex so auto-commit repositories serialize access,
// while transactional repositories (which already run under the lock) skip it.
type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

type repoSet struct {
	d  *dataset
	mu sync.Locker
}

func (r *repoSet) Students() student.Repository       { return &studentRepo{r} }
func (r *repoSet) Courses() course.Repository         { return &courseRepo{r} }
func (r *repoSet) Enrollments() enrollment.Repository { return &enrollmentRepo{r} }

// Students returns the auto-commit student repository.
func (s *Store) Students() student.Repository { return s.repos().Students() }

// Courses returns the auto-commit course repository.
func (s *Store) Courses() course.Repository { return s.repos().Courses() }

// Enrollments returns the auto-commit enrollment repository.
func (s *Store) Enrollments() enrollment.Repository { return s.repos().Enrollments() }

func (s *Store) repos() *repoSet {
	return &repoSet{d: s.data, mu: &s.mu}
}

// WithinTx executes fn under the store lock. Any error or panic restores the
// pre-transaction snapshot, so partial writes are never visible.
func (s *Store) WithinTx(ctx context.Context, fn records.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	snapshot := s.data.clone()
	repos := &repoSet{d: s.data, mu: noLock{}}

	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
	}()

	if err := fn(ctx, repos); err != nil {
		s.data = snapshot
		return err
	}

	return nil
}

// WithinReadTx executes fn under the store lock without committing anything:
// the snapshot is always restored, so reads stay side-effect free.
func (s *Store) WithinReadTx(ctx context.Context, fn records.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	snapshot := s.data.clone()
	repos := &repoSet{d: s.data, mu: noLock{}}

	defer func() {
		s.data = snapshot
	}()

	return fn(ctx, repos)
}

// Ping reports whether the store is usable.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type studentRepo struct {
	set *repoSet
}

func (r *studentRepo) Create(ctx context.Context, s *student.Student) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for _, existing := range r.set.d.students {
		if existing.RollNo == s.RollNo {
			return shared.ErrRollNoTaken
		}
	}

	r.set.d.students[s.ID] = s.Clone()
	return nil
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*student.Student, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	s, ok := r.set.d.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return s.Clone(), nil
}

func (r *studentRepo) GetByRollNo(ctx context.Context, rollNo student.RollNo) (*student.Student, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for _, s := range r.set.d.students {
		if s.RollNo == rollNo {
			return s.Clone(), nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (r *studentRepo) Update(ctx context.Context, s *student.Student) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	if _, ok := r.set.d.students[s.ID]; !ok {
		return shared.ErrStudentNotFound
	}
	for id, existing := range r.set.d.students {
		if id != s.ID && existing.RollNo == s.RollNo {
			return shared.ErrRollNoTaken
		}
	}

	r.set.d.students[s.ID] = s.Clone()
	return nil
}

func (r *studentRepo) Delete(ctx context.Context, id string) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	if _, ok := r.set.d.students[id]; !ok {
		return shared.ErrStudentNotFound
	}
	for _, e := range r.set.d.enrollments {
		if e.StudentID == id {
			return shared.ErrStudentHasRecords
		}
	}

	delete(r.set.d.students, id)
	return nil
}

func (r *studentRepo) List(ctx context.Context, opts student.ListOptions) ([]*student.Student, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	matched := r.filter(opts)
	sortStudents(matched, opts.SortBy, opts.SortDesc)

	return paginate(matched, opts.Offset, opts.Limit), nil
}

func (r *studentRepo) Count(ctx context.Context, opts student.ListOptions) (int, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	return len(r.filter(opts)), nil
}

func (r *studentRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	_, ok := r.set.d.students[id]
	return ok, nil
}

func (r *studentRepo) ExistsByRollNo(ctx context.Context, rollNo student.RollNo) (bool, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for _, s := range r.set.d.students {
		if s.RollNo == rollNo {
			return true, nil
		}
	}
	return false, nil
}

func (r *studentRepo) filter(opts student.ListOptions) []*student.Student {
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	var matched []*student.Student
	for _, s := range r.set.d.students {
		if opts.Department != "" && s.Department != opts.Department {
			continue
		}
		if opts.Semester > 0 && int(s.Semester) != opts.Semester {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.RollNo.String()), search) &&
			!strings.Contains(strings.ToLower(s.FullName), search) {
			continue
		}
		matched = append(matched, s.Clone())
	}
	return matched
}

func sortStudents(list []*student.Student, sortBy string, desc bool) {
	less := func(a, b *student.Student) bool { return a.RollNo < b.RollNo }

	switch sortBy {
	case "full_name", "name":
		less = func(a, b *student.Student) bool { return a.FullName < b.FullName }
	case "department":
		less = func(a, b *student.Student) bool { return a.Department < b.Department }
	case "semester":
		less = func(a, b *student.Student) bool { return a.Semester < b.Semester }
	case "created_at":
		less = func(a, b *student.Student) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "updated_at":
		less = func(a, b *student.Student) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}

	sort.SliceStable(list, func(i, j int) bool {
		if desc {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type courseRepo struct {
	set *repoSet
}

func (r *courseRepo) Create(ctx context.Context, c *course.Course) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for _, existing := range r.set.d.courses {
		if existing.Code == c.Code {
			return shared.ErrCourseCodeTaken
		}
	}

	r.set.d.courses[c.ID] = c.Clone()
	return nil
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*course.Course, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	c, ok := r.set.d.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return c.Clone(), nil
}

func (r *courseRepo) GetByCode(ctx context.Context, code course.Code) (*course.Course, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for _, c := range r.set.d.courses {
		if c.Code == code {
			return c.Clone(), nil
		}
	}
	return nil, shared.ErrCourseNotFound
}

func (r *courseRepo) Update(ctx context.Context, c *course.Course) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	if _, ok := r.set.d.courses[c.ID]; !ok {
		return shared.ErrCourseNotFound
	}
	for id, existing := range r.set.d.courses {
		if id != c.ID && existing.Code == c.Code {
			return shared.ErrCourseCodeTaken
		}
	}

	r.set.d.courses[c.ID] = c.Clone()
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, id string) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	if _, ok := r.set.d.courses[id]; !ok {
		return shared.ErrCourseNotFound
	}
	for _, e := range r.set.d.enrollments {
		if e.CourseID == id {
			return shared.ErrCourseHasRecords
		}
	}

	delete(r.set.d.courses, id)
	return nil
}

func (r *courseRepo) List(ctx context.Context, opts course.ListOptions) ([]*course.Course, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	matched := r.filter(opts)
	sortCourses(matched, opts.SortBy, opts.SortDesc)

	return paginate(matched, opts.Offset, opts.Limit), nil
}

func (r *courseRepo) Count(ctx context.Context, opts course.ListOptions) (int, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	return len(r.filter(opts)), nil
}

func (r *courseRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	_, ok := r.set.d.courses[id]
	return ok, nil
}

func (r *courseRepo) ExistsByCode(ctx context.Context, code course.Code) (bool, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for _, c := range r.set.d.courses {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *courseRepo) filter(opts course.ListOptions) []*course.Course {
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	var matched []*course.Course
	for _, c := range r.set.d.courses {
		if opts.Semester > 0 && int(c.Semester) != opts.Semester {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Code.String()), search) &&
			!strings.Contains(strings.ToLower(c.Title), search) {
			continue
		}
		matched = append(matched, c.Clone())
	}
	return matched
}

func sortCourses(list []*course.Course, sortBy string, desc bool) {
	less := func(a, b *course.Course) bool { return a.Code < b.Code }

	switch sortBy {
	case "title":
		less = func(a, b *course.Course) bool { return a.Title < b.Title }
	case "semester":
		less = func(a, b *course.Course) bool { return a.Semester < b.Semester }
	case "credits":
		less = func(a, b *course.Course) bool { return a.Credits < b.Credits }
	case "created_at":
		less = func(a, b *course.Course) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "updated_at":
		less = func(a, b *course.Course) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}

	sort.SliceStable(list, func(i, j int) bool {
		if desc {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type enrollmentRepo struct {
	set *repoSet
}

func (r *enrollmentRepo) Create(ctx context.Context, e *enrollment.Enrollment) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	if _, ok := r.set.d.students[e.StudentID]; !ok {
		return shared.WrapError("enrollment", "Create", shared.ErrConflict, "student or course does not exist", nil)
	}
	if _, ok := r.set.d.courses[e.CourseID]; !ok {
		return shared.WrapError("enrollment", "Create", shared.ErrConflict, "student or course does not exist", nil)
	}
	for _, existing := range r.set.d.enrollments {
		if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID {
			return shared.ErrAlreadyEnrolled
		}
	}

	cp := *e
	r.set.d.enrollments[e.ID] = &cp
	return nil
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	e, ok := r.set.d.enrollments[id]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *enrollmentRepo) GetByPair(ctx context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for _, e := range r.set.d.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, shared.ErrEnrollmentNotFound
}

func (r *enrollmentRepo) Delete(ctx context.Context, id string) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	if _, ok := r.set.d.enrollments[id]; !ok {
		return shared.ErrEnrollmentNotFound
	}

	r.deleteCascade(id)
	return nil
}

func (r *enrollmentRepo) DeleteByStudent(ctx context.Context, studentID string) (int, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	count := 0
	for id, e := range r.set.d.enrollments {
		if e.StudentID == studentID {
			r.deleteCascade(id)
			count++
		}
	}
	return count, nil
}

func (r *enrollmentRepo) DeleteByCourse(ctx context.Context, courseID string) (int, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	count := 0
	for id, e := range r.set.d.enrollments {
		if e.CourseID == courseID {
			r.deleteCascade(id)
			count++
		}
	}
	return count, nil
}

// deleteCascade removes an enrollment with its attendance and marks.
// Callers hold the lock.
func (r *enrollmentRepo) deleteCascade(enrollmentID string) {
	delete(r.set.d.enrollments, enrollmentID)
	delete(r.set.d.attendance, enrollmentID)

	kept := r.set.d.marks[:0]
	for _, m := range r.set.d.marks {
		if m.EnrollmentID != enrollmentID {
			kept = append(kept, m)
		}
	}
	r.set.d.marks = kept
}

func (r *enrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	var list []*enrollment.Enrollment
	for _, e := range r.set.d.enrollments {
		if e.StudentID == studentID {
			cp := *e
			list = append(list, &cp)
		}
	}
	sortEnrollments(list)
	return list, nil
}

func (r *enrollmentRepo) ListByCourse(ctx context.Context, courseID string) ([]*enrollment.Enrollment, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	var list []*enrollment.Enrollment
	for _, e := range r.set.d.enrollments {
		if e.CourseID == courseID {
			cp := *e
			list = append(list, &cp)
		}
	}
	sortEnrollments(list)
	return list, nil
}

func (r *enrollmentRepo) ExistsPair(ctx context.Context, studentID, courseID string) (bool, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for _, e := range r.set.d.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r *enrollmentRepo) CountByStudent(ctx context.Context, studentID string) (int, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	count := 0
	for _, e := range r.set.d.enrollments {
		if e.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (r *enrollmentRepo) CountByCourse(ctx context.Context, courseID string) (int, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	count := 0
	for _, e := range r.set.d.enrollments {
		if e.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (r *enrollmentRepo) GetAttendance(ctx context.Context, enrollmentID string) (*enrollment.Attendance, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	a, ok := r.set.d.attendance[enrollmentID]
	if !ok {
		return nil, shared.ErrAttendanceNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *enrollmentRepo) UpsertAttendance(ctx context.Context, a *enrollment.Attendance) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	if _, ok := r.set.d.enrollments[a.EnrollmentID]; !ok {
		return shared.ErrEnrollmentNotFound
	}

	cp := *a
	if existing, ok := r.set.d.attendance[a.EnrollmentID]; ok {
		cp.ID = existing.ID // the 1:1 row keeps its identity across upserts
	}
	r.set.d.attendance[a.EnrollmentID] = &cp
	return nil
}

func (r *enrollmentRepo) AddMark(ctx context.Context, m *enrollment.Mark) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	if _, ok := r.set.d.enrollments[m.EnrollmentID]; !ok {
		return shared.ErrEnrollmentNotFound
	}

	cp := *m
	r.set.d.marks = append(r.set.d.marks, &cp)
	return nil
}

func (r *enrollmentRepo) ListMarks(ctx context.Context, enrollmentID string) ([]*enrollment.Mark, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	var list []*enrollment.Mark
	// Newest first: walk insertion order backwards, then order by date.
	for i := len(r.set.d.marks) - 1; i >= 0; i-- {
		if r.set.d.marks[i].EnrollmentID == enrollmentID {
			cp := *r.set.d.marks[i]
			list = append(list, &cp)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].RecordedOn.After(list[j].RecordedOn)
	})
	return list, nil
}

func (r *enrollmentRepo) DeleteMark(ctx context.Context, markID string) error {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	for i, m := range r.set.d.marks {
		if m.ID == markID {
			r.set.d.marks = append(r.set.d.marks[:i], r.set.d.marks[i+1:]...)
			return nil
		}
	}
	return shared.ErrMarkNotFound
}

func (r *enrollmentRepo) CountMarks(ctx context.Context, enrollmentID string) (int, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	count := 0
	for _, m := range r.set.d.marks {
		if m.EnrollmentID == enrollmentID {
			count++
		}
	}
	return count, nil
}

func (r *enrollmentRepo) GetProgress(ctx context.Context, enrollmentID string) (*enrollment.Progress, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	e, ok := r.set.d.enrollments[enrollmentID]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return r.buildProgress(e), nil
}

func (r *enrollmentRepo) ListProgressByStudent(ctx context.Context, studentID string) ([]*enrollment.Progress, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	var list []*enrollment.Progress
	for _, e := range r.set.d.enrollments {
		if e.StudentID == studentID {
			list = append(list, r.buildProgress(e))
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CourseCode < list[j].CourseCode })
	return list, nil
}

func (r *enrollmentRepo) ListProgress(ctx context.Context) ([]*enrollment.Progress, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	var list []*enrollment.Progress
	for _, e := range r.set.d.enrollments {
		list = append(list, r.buildProgress(e))
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].RollNo != list[j].RollNo {
			return list[i].RollNo < list[j].RollNo
		}
		return list[i].CourseCode < list[j].CourseCode
	})
	return list, nil
}

func (r *enrollmentRepo) CourseAverageMarksPercent(ctx context.Context, courseID string) (*float64, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	var sum float64
	var n int
	for _, e := range r.set.d.enrollments {
		if e.CourseID != courseID {
			continue
		}
		p := r.buildProgress(e)
		if pct, ok := p.MarksPercent(); ok {
			sum += pct
			n++
		}
	}

	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}

func (r *enrollmentRepo) CourseAverageAttendancePercent(ctx context.Context, courseID string) (*float64, error) {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()

	var sum float64
	var n int
	for _, e := range r.set.d.enrollments {
		if e.CourseID != courseID {
			continue
		}
		p := r.buildProgress(e)
		if pct, ok := p.AttendancePercent(); ok {
			sum += pct
			n++
		}
	}

	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}

// buildProgress assembles the denormalized progress row for an enrollment.
// Callers hold the lock.
func (r *enrollmentRepo) buildProgress(e *enrollment.Enrollment) *enrollment.Progress {
	p := &enrollment.Progress{
		EnrollmentID: e.ID,
		StudentID:    e.StudentID,
		CourseID:     e.CourseID,
	}

	if s, ok := r.set.d.students[e.StudentID]; ok {
		p.RollNo = s.RollNo.String()
		p.StudentName = s.FullName
	}
	if c, ok := r.set.d.courses[e.CourseID]; ok {
		p.CourseCode = c.Code.String()
		p.CourseTitle = c.Title
	}

	if a, ok := r.set.d.attendance[e.ID]; ok {
		p.HasAttendance = true
		p.TotalClasses = a.TotalClasses
		p.AttendedClasses = a.AttendedClasses
	}

	for _, m := range r.set.d.marks {
		if m.EnrollmentID == e.ID {
			p.MarksCount++
			p.ObtainedSum += m.Obtained
			p.MaxSum += m.MaxScore
		}
	}

	return p
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func sortEnrollments(list []*enrollment.Enrollment) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func paginate[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

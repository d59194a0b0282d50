package sqldb

import (
	"context"
	"database/sql"

	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// Owns the whole aggregate: enrollments, attendance (1:1) and marks (0..N).
// Attendance and marks ride on ON DELETE CASCADE, so deleting an enrollment
// row removes them in the same statement.
// ══════════════════════════════════════════════════════════════════════════════

const enrollmentColumns = `id, student_id, course_id, enrolled_on, created_at`

// progressQuery is the denormalized read model behind all analytics: one row
// per enrollment with student/course identity, attendance counters and mark
// sums. Percentages are derived in the domain so "no data" stays
// distinguishable from zero.
const progressQuery = `
	SELECT e.id, e.student_id, s.roll_no, s.full_name,
	       e.course_id, c.code, c.title,
	       a.id IS NOT NULL,
	       COALESCE(a.total_classes, 0), COALESCE(a.attended_classes, 0),
	       COALESCE(m.marks_count, 0), COALESCE(m.obtained_sum, 0), COALESCE(m.max_sum, 0)
	FROM enrollments e
	JOIN students s ON s.id = e.student_id
	JOIN courses c ON c.id = e.course_id
	LEFT JOIN attendance a ON a.enrollment_id = e.id
	LEFT JOIN (
		SELECT enrollment_id,
		       COUNT(*) AS marks_count,
		       SUM(obtained) AS obtained_sum,
		       SUM(max_score) AS max_sum
		FROM marks
		GROUP BY enrollment_id
	) m ON m.enrollment_id = e.id
`

// EnrollmentRepository implements enrollment.Repository for the SQL gateway.
type EnrollmentRepository struct {
	sess *session
}

// NewEnrollmentRepository creates a new EnrollmentRepository bound to a session.
func NewEnrollmentRepository(sess *session) *EnrollmentRepository {
	return &EnrollmentRepository{sess: sess}
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollment CRUD
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.sess.exec(ctx, query,
		e.ID,
		e.StudentID,
		e.CourseID,
		e.EnrolledOn,
		e.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyEnrolled
		}
		if IsForeignKeyViolation(err) {
			return shared.WrapError("enrollment", "Create", shared.ErrConflict, "student or course does not exist", err)
		}
		return shared.WrapError("enrollment", "Create", shared.ErrStorage, "failed to create enrollment", err)
	}

	return nil
}

// GetByID returns an enrollment by internal ID.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = ?`

	return r.scanEnrollment(r.sess.queryRow(ctx, query, id))
}

// GetByPair returns the enrollment of a (student, course) pair.
func (r *EnrollmentRepository) GetByPair(ctx context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = ? AND course_id = ?`

	return r.scanEnrollment(r.sess.queryRow(ctx, query, studentID, courseID))
}

// Delete deletes an enrollment together with its attendance and marks.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.sess.exec(ctx, `DELETE FROM enrollments WHERE id = ?`, id)
	if err != nil {
		return shared.WrapError("enrollment", "Delete", shared.ErrStorage, "failed to delete enrollment", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return shared.WrapError("enrollment", "Delete", shared.ErrStorage, "failed to delete enrollment", err)
	}
	if affected == 0 {
		return shared.ErrEnrollmentNotFound
	}

	return nil
}

// DeleteByStudent deletes all enrollments of a student and returns the count.
func (r *EnrollmentRepository) DeleteByStudent(ctx context.Context, studentID string) (int, error) {
	result, err := r.sess.exec(ctx, `DELETE FROM enrollments WHERE student_id = ?`, studentID)
	if err != nil {
		return 0, shared.WrapError("enrollment", "DeleteByStudent", shared.ErrStorage, "failed to delete enrollments", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, shared.WrapError("enrollment", "DeleteByStudent", shared.ErrStorage, "failed to delete enrollments", err)
	}

	return int(affected), nil
}

// DeleteByCourse deletes all enrollments of a course and returns the count.
func (r *EnrollmentRepository) DeleteByCourse(ctx context.Context, courseID string) (int, error) {
	result, err := r.sess.exec(ctx, `DELETE FROM enrollments WHERE course_id = ?`, courseID)
	if err != nil {
		return 0, shared.WrapError("enrollment", "DeleteByCourse", shared.ErrStorage, "failed to delete enrollments", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, shared.WrapError("enrollment", "DeleteByCourse", shared.ErrStorage, "failed to delete enrollments", err)
	}

	return int(affected), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing & Existence
// ─────────────────────────────────────────────────────────────────────────────

// ListByStudent returns all enrollments of a student.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = ? ORDER BY created_at`

	rows, err := r.sess.query(ctx, query, studentID)
	if err != nil {
		return nil, shared.WrapError("enrollment", "ListByStudent", shared.ErrStorage, "failed to list enrollments", err)
	}
	defer rows.Close()

	return r.scanEnrollments(rows)
}

// ListByCourse returns all enrollments of a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = ? ORDER BY created_at`

	rows, err := r.sess.query(ctx, query, courseID)
	if err != nil {
		return nil, shared.WrapError("enrollment", "ListByCourse", shared.ErrStorage, "failed to list enrollments", err)
	}
	defer rows.Close()

	return r.scanEnrollments(rows)
}

// ExistsPair checks if a student is enrolled in a course.
func (r *EnrollmentRepository) ExistsPair(ctx context.Context, studentID, courseID string) (bool, error) {
	var exists bool
	err := r.sess.queryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = ? AND course_id = ?)`,
		studentID, courseID,
	).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("enrollment", "ExistsPair", shared.ErrStorage, "failed to check enrollment", err)
	}
	return exists, nil
}

// CountByStudent returns the number of enrollments of a student.
func (r *EnrollmentRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	err := r.sess.queryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE student_id = ?`,
		studentID,
	).Scan(&count)
	if err != nil {
		return 0, shared.WrapError("enrollment", "CountByStudent", shared.ErrStorage, "failed to count enrollments", err)
	}
	return count, nil
}

// CountByCourse returns the number of enrollments of a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.sess.queryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = ?`,
		courseID,
	).Scan(&count)
	if err != nil {
		return 0, shared.WrapError("enrollment", "CountByCourse", shared.ErrStorage, "failed to count enrollments", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Attendance (1:1)
// ─────────────────────────────────────────────────────────────────────────────

// GetAttendance returns the attendance record of an enrollment.
func (r *EnrollmentRepository) GetAttendance(ctx context.Context, enrollmentID string) (*enrollment.Attendance, error) {
	query := `
		SELECT id, enrollment_id, total_classes, attended_classes, updated_at
		FROM attendance
		WHERE enrollment_id = ?
	`

	var a enrollment.Attendance
	err := r.sess.queryRow(ctx, query, enrollmentID).Scan(
		&a.ID,
		&a.EnrollmentID,
		&a.TotalClasses,
		&a.AttendedClasses,
		&a.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrAttendanceNotFound
	}
	if err != nil {
		return nil, shared.WrapError("enrollment", "GetAttendance", shared.ErrStorage, "failed to scan attendance", err)
	}

	return &a, nil
}

// UpsertAttendance creates or replaces the single attendance record of an
// enrollment.
func (r *EnrollmentRepository) UpsertAttendance(ctx context.Context, a *enrollment.Attendance) error {
	query := `
		INSERT INTO attendance (id, enrollment_id, total_classes, attended_classes, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(enrollment_id) DO UPDATE SET
			total_classes = EXCLUDED.total_classes,
			attended_classes = EXCLUDED.attended_classes,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.sess.exec(ctx, query,
		a.ID,
		a.EnrollmentID,
		a.TotalClasses,
		a.AttendedClasses,
		a.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrEnrollmentNotFound
		}
		return shared.WrapError("enrollment", "UpsertAttendance", shared.ErrStorage, "failed to upsert attendance", err)
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Marks (0..N)
// ─────────────────────────────────────────────────────────────────────────────

// AddMark adds a mark.
func (r *EnrollmentRepository) AddMark(ctx context.Context, m *enrollment.Mark) error {
	query := `
		INSERT INTO marks (id, enrollment_id, assessment, obtained, max_score, recorded_on)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.sess.exec(ctx, query,
		m.ID,
		m.EnrollmentID,
		m.Assessment,
		m.Obtained,
		m.MaxScore,
		m.RecordedOn,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrEnrollmentNotFound
		}
		return shared.WrapError("enrollment", "AddMark", shared.ErrStorage, "failed to add mark", err)
	}

	return nil
}

// ListMarks returns the marks of an enrollment, newest first.
func (r *EnrollmentRepository) ListMarks(ctx context.Context, enrollmentID string) ([]*enrollment.Mark, error) {
	query := `
		SELECT id, enrollment_id, assessment, obtained, max_score, recorded_on
		FROM marks
		WHERE enrollment_id = ?
		ORDER BY recorded_on DESC, id DESC
	`

	rows, err := r.sess.query(ctx, query, enrollmentID)
	if err != nil {
		return nil, shared.WrapError("enrollment", "ListMarks", shared.ErrStorage, "failed to list marks", err)
	}
	defer rows.Close()

	var marks []*enrollment.Mark
	for rows.Next() {
		var m enrollment.Mark
		err := rows.Scan(
			&m.ID,
			&m.EnrollmentID,
			&m.Assessment,
			&m.Obtained,
			&m.MaxScore,
			&m.RecordedOn,
		)
		if err != nil {
			return nil, shared.WrapError("enrollment", "ListMarks", shared.ErrStorage, "failed to scan mark", err)
		}
		marks = append(marks, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("enrollment", "ListMarks", shared.ErrStorage, "rows iteration error", err)
	}

	return marks, nil
}

// DeleteMark deletes a single mark by its ID.
func (r *EnrollmentRepository) DeleteMark(ctx context.Context, markID string) error {
	result, err := r.sess.exec(ctx, `DELETE FROM marks WHERE id = ?`, markID)
	if err != nil {
		return shared.WrapError("enrollment", "DeleteMark", shared.ErrStorage, "failed to delete mark", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return shared.WrapError("enrollment", "DeleteMark", shared.ErrStorage, "failed to delete mark", err)
	}
	if affected == 0 {
		return shared.ErrMarkNotFound
	}

	return nil
}

// CountMarks returns the number of marks of an enrollment.
func (r *EnrollmentRepository) CountMarks(ctx context.Context, enrollmentID string) (int, error) {
	var count int
	err := r.sess.queryRow(ctx,
		`SELECT COUNT(*) FROM marks WHERE enrollment_id = ?`,
		enrollmentID,
	).Scan(&count)
	if err != nil {
		return 0, shared.WrapError("enrollment", "CountMarks", shared.ErrStorage, "failed to count marks", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read Models & Aggregates
// ─────────────────────────────────────────────────────────────────────────────

// GetProgress returns the progress row of a single enrollment.
func (r *EnrollmentRepository) GetProgress(ctx context.Context, enrollmentID string) (*enrollment.Progress, error) {
	query := progressQuery + ` WHERE e.id = ?`

	rows, err := r.sess.query(ctx, query, enrollmentID)
	if err != nil {
		return nil, shared.WrapError("enrollment", "GetProgress", shared.ErrStorage, "failed to query progress", err)
	}
	defer rows.Close()

	list, err := r.scanProgressRows(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, shared.ErrEnrollmentNotFound
	}

	return list[0], nil
}

// ListProgressByStudent returns progress rows for all enrollments of a student.
func (r *EnrollmentRepository) ListProgressByStudent(ctx context.Context, studentID string) ([]*enrollment.Progress, error) {
	query := progressQuery + ` WHERE e.student_id = ? ORDER BY c.code`

	rows, err := r.sess.query(ctx, query, studentID)
	if err != nil {
		return nil, shared.WrapError("enrollment", "ListProgressByStudent", shared.ErrStorage, "failed to query progress", err)
	}
	defer rows.Close()

	return r.scanProgressRows(rows)
}

// ListProgress returns progress rows for every enrollment in the system.
func (r *EnrollmentRepository) ListProgress(ctx context.Context) ([]*enrollment.Progress, error) {
	query := progressQuery + ` ORDER BY s.roll_no, c.code`

	rows, err := r.sess.query(ctx, query)
	if err != nil {
		return nil, shared.WrapError("enrollment", "ListProgress", shared.ErrStorage, "failed to query progress", err)
	}
	defer rows.Close()

	return r.scanProgressRows(rows)
}

// CourseAverageMarksPercent returns the mean of per-enrollment mark
// percentages across a course. Enrollments without marks do not participate;
// nil means no enrollment has marks yet.
func (r *EnrollmentRepository) CourseAverageMarksPercent(ctx context.Context, courseID string) (*float64, error) {
	query := `
		SELECT AVG(per.pct) FROM (
			SELECT SUM(m.obtained) * 100.0 / SUM(m.max_score) AS pct
			FROM marks m
			JOIN enrollments e ON e.id = m.enrollment_id
			WHERE e.course_id = ?
			GROUP BY m.enrollment_id
			HAVING SUM(m.max_score) > 0
		) per
	`

	var avg sql.NullFloat64
	if err := r.sess.queryRow(ctx, query, courseID).Scan(&avg); err != nil {
		return nil, shared.WrapError("enrollment", "CourseAverageMarksPercent", shared.ErrStorage, "failed to compute course average", err)
	}

	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// CourseAverageAttendancePercent returns the mean of per-enrollment
// attendance percentages across a course. Only enrollments with at least one
// class held participate; nil means no attendance data yet.
func (r *EnrollmentRepository) CourseAverageAttendancePercent(ctx context.Context, courseID string) (*float64, error) {
	query := `
		SELECT AVG(a.attended_classes * 100.0 / a.total_classes)
		FROM attendance a
		JOIN enrollments e ON e.id = a.enrollment_id
		WHERE e.course_id = ? AND a.total_classes > 0
	`

	var avg sql.NullFloat64
	if err := r.sess.queryRow(ctx, query, courseID).Scan(&avg); err != nil {
		return nil, shared.WrapError("enrollment", "CourseAverageAttendancePercent", shared.ErrStorage, "failed to compute course average", err)
	}

	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// scanEnrollment scans a single enrollment from a row.
func (r *EnrollmentRepository) scanEnrollment(row *sql.Row) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment

	err := row.Scan(
		&e.ID,
		&e.StudentID,
		&e.CourseID,
		&e.EnrolledOn,
		&e.CreatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, shared.WrapError("enrollment", "Find", shared.ErrStorage, "failed to scan enrollment", err)
	}

	return &e, nil
}

// scanEnrollments scans multiple enrollments from rows.
func (r *EnrollmentRepository) scanEnrollments(rows *sql.Rows) ([]*enrollment.Enrollment, error) {
	var enrollments []*enrollment.Enrollment

	for rows.Next() {
		var e enrollment.Enrollment
		err := rows.Scan(
			&e.ID,
			&e.StudentID,
			&e.CourseID,
			&e.EnrolledOn,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, shared.WrapError("enrollment", "List", shared.ErrStorage, "failed to scan enrollment", err)
		}
		enrollments = append(enrollments, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("enrollment", "List", shared.ErrStorage, "rows iteration error", err)
	}

	return enrollments, nil
}

// scanProgressRows scans progress read-model rows.
func (r *EnrollmentRepository) scanProgressRows(rows *sql.Rows) ([]*enrollment.Progress, error) {
	var list []*enrollment.Progress

	for rows.Next() {
		var p enrollment.Progress
		err := rows.Scan(
			&p.EnrollmentID,
			&p.StudentID,
			&p.RollNo,
			&p.StudentName,
			&p.CourseID,
			&p.CourseCode,
			&p.CourseTitle,
			&p.HasAttendance,
			&p.TotalClasses,
			&p.AttendedClasses,
			&p.MarksCount,
			&p.ObtainedSum,
			&p.MaxSum,
		)
		if err != nil {
			return nil, shared.WrapError("enrollment", "ListProgress", shared.ErrStorage, "failed to scan progress", err)
		}
		list = append(list, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("enrollment", "ListProgress", shared.ErrStorage, "rows iteration error", err)
	}

	return list, nil
}

package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const studentColumns = `id, roll_no, full_name, department, semester, email, phone, created_at, updated_at`

// StudentRepository implements student.Repository for the SQL gateway.
type StudentRepository struct {
	sess *session
}

// NewStudentRepository creates a new StudentRepository bound to a session.
func NewStudentRepository(sess *session) *StudentRepository {
	return &StudentRepository{sess: sess}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (` + studentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.sess.exec(ctx, query,
		s.ID,
		s.RollNo.String(),
		s.FullName,
		s.Department,
		int(s.Semester),
		s.Email.String(),
		s.Phone,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrRollNoTaken
		}
		return shared.WrapError("student", "Create", shared.ErrStorage, "failed to create student", err)
	}

	return nil
}

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = ?`

	return r.scanStudent(r.sess.queryRow(ctx, query, id))
}

// GetByRollNo returns a student by roll number.
func (r *StudentRepository) GetByRollNo(ctx context.Context, rollNo student.RollNo) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE roll_no = ?`

	return r.scanStudent(r.sess.queryRow(ctx, query, rollNo.String()))
}

// Update updates a student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			roll_no = ?,
			full_name = ?,
			department = ?,
			semester = ?,
			email = ?,
			phone = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.sess.exec(ctx, query,
		s.RollNo.String(),
		s.FullName,
		s.Department,
		int(s.Semester),
		s.Email.String(),
		s.Phone,
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrRollNoTaken
		}
		return shared.WrapError("student", "Update", shared.ErrStorage, "failed to update student", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return shared.WrapError("student", "Update", shared.ErrStorage, "failed to update student", err)
	}
	if affected == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// Delete deletes a student. Enrollments are guarded by a RESTRICT foreign
// key, so deleting a student who still has records surfaces as a conflict.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.sess.exec(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentHasRecords
		}
		return shared.WrapError("student", "Delete", shared.ErrStorage, "failed to delete student", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return shared.WrapError("student", "Delete", shared.ErrStorage, "failed to delete student", err)
	}
	if affected == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing & Search
// ─────────────────────────────────────────────────────────────────────────────

// List returns students matching the given filters with pagination.
func (r *StudentRepository) List(ctx context.Context, opts student.ListOptions) ([]*student.Student, error) {
	where, args := r.buildFilter(opts)

	query := `SELECT ` + studentColumns + ` FROM students` + where +
		r.buildOrderBy(opts) + ` LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.sess.query(ctx, query, args...)
	if err != nil {
		return nil, shared.WrapError("student", "List", shared.ErrStorage, "failed to list students", err)
	}
	defer rows.Close()

	return r.scanStudents(rows)
}

// Count returns the number of students matching the filters.
func (r *StudentRepository) Count(ctx context.Context, opts student.ListOptions) (int, error) {
	where, args := r.buildFilter(opts)

	var count int
	err := r.sess.queryRow(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&count)
	if err != nil {
		return 0, shared.WrapError("student", "Count", shared.ErrStorage, "failed to count students", err)
	}

	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Existence Checks
// ─────────────────────────────────────────────────────────────────────────────

// Exists checks if a student exists by ID.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.sess.queryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM students WHERE id = ?)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("student", "Exists", shared.ErrStorage, "failed to check student existence", err)
	}
	return exists, nil
}

// ExistsByRollNo checks if a roll number is already registered.
func (r *StudentRepository) ExistsByRollNo(ctx context.Context, rollNo student.RollNo) (bool, error) {
	var exists bool
	err := r.sess.queryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM students WHERE roll_no = ?)`,
		rollNo.String(),
	).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("student", "ExistsByRollNo", shared.ErrStorage, "failed to check roll number", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// buildFilter builds the WHERE clause and its arguments from list options.
func (r *StudentRepository) buildFilter(opts student.ListOptions) (string, []any) {
	conditions := []string{}
	args := []any{}

	if opts.Department != "" {
		conditions = append(conditions, "department = ?")
		args = append(args, opts.Department)
	}
	if opts.Semester > 0 {
		conditions = append(conditions, "semester = ?")
		args = append(args, opts.Semester)
	}
	if opts.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(opts.Search)) + "%"
		conditions = append(conditions, "(LOWER(roll_no) LIKE ? OR LOWER(full_name) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildOrderBy builds the ORDER BY clause.
func (r *StudentRepository) buildOrderBy(opts student.ListOptions) string {
	orderField := "roll_no"
	validFields := map[string]string{
		"roll_no":    "roll_no",
		"full_name":  "full_name",
		"name":       "full_name",
		"department": "department",
		"semester":   "semester",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}

	if field, ok := validFields[opts.SortBy]; ok {
		orderField = field
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}

	return fmt.Sprintf(" ORDER BY %s %s", orderField, direction)
}

// scanStudent scans a single student from a row.
func (r *StudentRepository) scanStudent(row *sql.Row) (*student.Student, error) {
	var s student.Student
	var rollNo, email string
	var semester int

	err := row.Scan(
		&s.ID,
		&rollNo,
		&s.FullName,
		&s.Department,
		&semester,
		&email,
		&s.Phone,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, shared.WrapError("student", "Find", shared.ErrStorage, "failed to scan student", err)
	}

	s.RollNo = student.RollNo(rollNo)
	s.Semester = shared.Semester(semester)
	s.Email = student.Email(email)

	return &s, nil
}

// scanStudents scans multiple students from rows.
func (r *StudentRepository) scanStudents(rows *sql.Rows) ([]*student.Student, error) {
	var students []*student.Student

	for rows.Next() {
		var s student.Student
		var rollNo, email string
		var semester int

		err := rows.Scan(
			&s.ID,
			&rollNo,
			&s.FullName,
			&s.Department,
			&semester,
			&email,
			&s.Phone,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, shared.WrapError("student", "List", shared.ErrStorage, "failed to scan student", err)
		}

		s.RollNo = student.RollNo(rollNo)
		s.Semester = shared.Semester(semester)
		s.Email = student.Email(email)

		students = append(students, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("student", "List", shared.ErrStorage, "rows iteration error", err)
	}

	return students, nil
}

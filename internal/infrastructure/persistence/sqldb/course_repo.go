package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const courseColumns = `id, code, title, semester, credits, created_at, updated_at`

// CourseRepository implements course.Repository for the SQL gateway.
type CourseRepository struct {
	sess *session
}

// NewCourseRepository creates a new CourseRepository bound to a session.
func NewCourseRepository(sess *session) *CourseRepository {
	return &CourseRepository{sess: sess}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new course.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	query := `
		INSERT INTO courses (` + courseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.sess.exec(ctx, query,
		c.ID,
		c.Code.String(),
		c.Title,
		int(c.Semester),
		c.Credits.Int(),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCourseCodeTaken
		}
		return shared.WrapError("course", "Create", shared.ErrStorage, "failed to create course", err)
	}

	return nil
}

// GetByID returns a course by internal ID.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ?`

	return r.scanCourse(r.sess.queryRow(ctx, query, id))
}

// GetByCode returns a course by code.
func (r *CourseRepository) GetByCode(ctx context.Context, code course.Code) (*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE code = ?`

	return r.scanCourse(r.sess.queryRow(ctx, query, code.String()))
}

// Update updates a course.
func (r *CourseRepository) Update(ctx context.Context, c *course.Course) error {
	query := `
		UPDATE courses SET
			code = ?,
			title = ?,
			semester = ?,
			credits = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.sess.exec(ctx, query,
		c.Code.String(),
		c.Title,
		int(c.Semester),
		c.Credits.Int(),
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCourseCodeTaken
		}
		return shared.WrapError("course", "Update", shared.ErrStorage, "failed to update course", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return shared.WrapError("course", "Update", shared.ErrStorage, "failed to update course", err)
	}
	if affected == 0 {
		return shared.ErrCourseNotFound
	}

	return nil
}

// Delete deletes a course. Enrollments are guarded by a RESTRICT foreign key,
// so deleting a course that still has records surfaces as a conflict.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.sess.exec(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrCourseHasRecords
		}
		return shared.WrapError("course", "Delete", shared.ErrStorage, "failed to delete course", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return shared.WrapError("course", "Delete", shared.ErrStorage, "failed to delete course", err)
	}
	if affected == 0 {
		return shared.ErrCourseNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing & Search
// ─────────────────────────────────────────────────────────────────────────────

// List returns courses matching the given filters with pagination.
func (r *CourseRepository) List(ctx context.Context, opts course.ListOptions) ([]*course.Course, error) {
	where, args := r.buildFilter(opts)

	query := `SELECT ` + courseColumns + ` FROM courses` + where +
		r.buildOrderBy(opts) + ` LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.sess.query(ctx, query, args...)
	if err != nil {
		return nil, shared.WrapError("course", "List", shared.ErrStorage, "failed to list courses", err)
	}
	defer rows.Close()

	return r.scanCourses(rows)
}

// Count returns the number of courses matching the filters.
func (r *CourseRepository) Count(ctx context.Context, opts course.ListOptions) (int, error) {
	where, args := r.buildFilter(opts)

	var count int
	err := r.sess.queryRow(ctx, `SELECT COUNT(*) FROM courses`+where, args...).Scan(&count)
	if err != nil {
		return 0, shared.WrapError("course", "Count", shared.ErrStorage, "failed to count courses", err)
	}

	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Existence Checks
// ─────────────────────────────────────────────────────────────────────────────

// Exists checks if a course exists by ID.
func (r *CourseRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.sess.queryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM courses WHERE id = ?)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("course", "Exists", shared.ErrStorage, "failed to check course existence", err)
	}
	return exists, nil
}

// ExistsByCode checks if a course code is already registered.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code course.Code) (bool, error) {
	var exists bool
	err := r.sess.queryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM courses WHERE code = ?)`,
		code.String(),
	).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("course", "ExistsByCode", shared.ErrStorage, "failed to check course code", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// buildFilter builds the WHERE clause and its arguments from list options.
func (r *CourseRepository) buildFilter(opts course.ListOptions) (string, []any) {
	conditions := []string{}
	args := []any{}

	if opts.Semester > 0 {
		conditions = append(conditions, "semester = ?")
		args = append(args, opts.Semester)
	}
	if opts.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(opts.Search)) + "%"
		conditions = append(conditions, "(LOWER(code) LIKE ? OR LOWER(title) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildOrderBy builds the ORDER BY clause.
func (r *CourseRepository) buildOrderBy(opts course.ListOptions) string {
	orderField := "code"
	validFields := map[string]string{
		"code":       "code",
		"title":      "title",
		"semester":   "semester",
		"credits":    "credits",
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

// scanCourse scans a single course from a row.
func (r *CourseRepository) scanCourse(row *sql.Row) (*course.Course, error) {
	var c course.Course
	var code string
	var semester, credits int

	err := row.Scan(
		&c.ID,
		&code,
		&c.Title,
		&semester,
		&credits,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrCourseNotFound
	}
	if err != nil {
		return nil, shared.WrapError("course", "Find", shared.ErrStorage, "failed to scan course", err)
	}

	c.Code = course.Code(code)
	c.Semester = shared.Semester(semester)
	c.Credits = course.Credits(credits)

	return &c, nil
}

// scanCourses scans multiple courses from rows.
func (r *CourseRepository) scanCourses(rows *sql.Rows) ([]*course.Course, error) {
	var courses []*course.Course

	for rows.Next() {
		var c course.Course
		var code string
		var semester, credits int

		err := rows.Scan(
			&c.ID,
			&code,
			&c.Title,
			&semester,
			&credits,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, shared.WrapError("course", "List", shared.ErrStorage, "failed to scan course", err)
		}

		c.Code = course.Code(code)
		c.Semester = shared.Semester(semester)
		c.Credits = course.Credits(credits)

		courses = append(courses, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("course", "List", shared.ErrStorage, "rows iteration error", err)
	}

	return courses, nil
}

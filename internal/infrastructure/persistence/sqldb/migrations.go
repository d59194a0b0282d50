package sqldb

import (
	"context"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	store      *Store
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with the embedded migrations for the
// store's dialect.
func NewMigrator(store *Store) *Migrator {
	return &Migrator{
		store:      store,
		migrations: GetMigrations(store.dialect),
		tableName:  "schema_migrations",
	}
}

// NewMigratorWithMigrations creates a migrator with custom migrations.
func NewMigratorWithMigrations(store *Store, migrations []Migration) *Migrator {
	return &Migrator{
		store:      store,
		migrations: migrations,
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	timestampType := "TIMESTAMP"
	if m.store.dialect == DialectPostgres {
		timestampType = "TIMESTAMPTZ"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at %s NOT NULL
		)
	`, m.tableName, timestampType)

	if _, err := m.store.sess.exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.store.sess.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time

		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}

		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}

		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		version, name, upSQL := mig.Version, mig.Name, mig.UpSQL

		// Apply migration in transaction
		err := m.store.runTxSession(ctx, false, func(ctx context.Context, sess *session) error {
			if _, err := sess.exec(ctx, upSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", version, err)
			}

			insertQuery := fmt.Sprintf(
				"INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?)",
				m.tableName,
			)
			_, err := sess.exec(ctx, insertQuery, version, name, time.Now().UTC())
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	// Find the last applied migration
	var lastVersion int
	for v := range applied {
		if v > lastVersion {
			lastVersion = v
		}
	}

	if lastVersion == 0 {
		return nil // Nothing to rollback
	}

	// Find the migration
	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == lastVersion {
			migration = &m.migrations[i]
			break
		}
	}

	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, lastVersion)
	}

	downSQL := migration.DownSQL

	return m.store.runTxSession(ctx, false, func(ctx context.Context, sess *session) error {
		if _, err := sess.exec(ctx, downSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", lastVersion, err)
		}

		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE version = ?", m.tableName)
		_, err := sess.exec(ctx, deleteQuery, lastVersion)
		return err
	})
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)

	for i := range result {
		if appliedAt, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = appliedAt
		}
	}

	return result, nil
}

// Reset rolls back every applied migration. Destructive: it drops all
// academic records. Used by the seeder's -reset flag and by tests.
func (m *Migrator) Reset(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	for {
		applied, err := m.GetAppliedMigrations(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			return nil
		}
		if err := m.Rollback(ctx); err != nil {
			return err
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// The same logical schema is carried in two dialects: types and defaults
// differ, constraint names and semantics do not.
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations for the given dialect.
func GetMigrations(d dialect) []Migration {
	if d == DialectPostgres {
		return []Migration{
			{Version: 1, Name: "create_students", UpSQL: migration001UpPostgres, DownSQL: migration001Down},
			{Version: 2, Name: "create_courses", UpSQL: migration002UpPostgres, DownSQL: migration002Down},
			{Version: 3, Name: "create_enrollments", UpSQL: migration003UpPostgres, DownSQL: migration003Down},
		}
	}
	return []Migration{
		{Version: 1, Name: "create_students", UpSQL: migration001UpSQLite, DownSQL: migration001Down},
		{Version: 2, Name: "create_courses", UpSQL: migration002UpSQLite, DownSQL: migration002Down},
		{Version: 3, Name: "create_enrollments", UpSQL: migration003UpSQLite, DownSQL: migration003Down},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// MIGRATION 001: CREATE STUDENTS
// ─────────────────────────────────────────────────────────────────────────────

const migration001UpSQLite = `
-- Migration: Create students table
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    roll_no TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL,
    department TEXT NOT NULL DEFAULT '',
    semester INTEGER NOT NULL DEFAULT 0,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,

    CONSTRAINT valid_student_semester CHECK (semester >= 0 AND semester <= 12)
);

CREATE INDEX IF NOT EXISTS idx_students_department ON students(department);
CREATE INDEX IF NOT EXISTS idx_students_semester ON students(semester);
CREATE INDEX IF NOT EXISTS idx_students_full_name ON students(full_name);
`

const migration001UpPostgres = `
-- Migration: Create students table
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    roll_no TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL,
    department TEXT NOT NULL DEFAULT '',
    semester INTEGER NOT NULL DEFAULT 0,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,

    CONSTRAINT valid_student_semester CHECK (semester >= 0 AND semester <= 12)
);

CREATE INDEX IF NOT EXISTS idx_students_department ON students(department);
CREATE INDEX IF NOT EXISTS idx_students_semester ON students(semester);
CREATE INDEX IF NOT EXISTS idx_students_full_name ON students(full_name);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// ─────────────────────────────────────────────────────────────────────────────
// MIGRATION 002: CREATE COURSES
// ─────────────────────────────────────────────────────────────────────────────

const migration002UpSQLite = `
-- Migration: Create courses table
-- Version: 002

CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    semester INTEGER NOT NULL DEFAULT 0,
    credits INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,

    CONSTRAINT valid_course_semester CHECK (semester >= 0 AND semester <= 12),
    CONSTRAINT valid_course_credits CHECK (credits >= 0 AND credits <= 10)
);

CREATE INDEX IF NOT EXISTS idx_courses_semester ON courses(semester);
CREATE INDEX IF NOT EXISTS idx_courses_title ON courses(title);
`

const migration002UpPostgres = `
-- Migration: Create courses table
-- Version: 002

CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    semester INTEGER NOT NULL DEFAULT 0,
    credits INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,

    CONSTRAINT valid_course_semester CHECK (semester >= 0 AND semester <= 12),
    CONSTRAINT valid_course_credits CHECK (credits >= 0 AND credits <= 10)
);

CREATE INDEX IF NOT EXISTS idx_courses_semester ON courses(semester);
CREATE INDEX IF NOT EXISTS idx_courses_title ON courses(title);
`

const migration002Down = `
DROP TABLE IF EXISTS courses;
`

// ─────────────────────────────────────────────────────────────────────────────
// MIGRATION 003: CREATE ENROLLMENTS, ATTENDANCE, MARKS
// ─────────────────────────────────────────────────────────────────────────────

const migration003UpSQLite = `
-- Migration: Create enrollment aggregate tables
-- Version: 003

-- Enrollments: one row per (student, course) pair.
-- RESTRICT keeps accidental student/course deletes from silently
-- destroying academic history; cascade deletes are an explicit
-- application-level decision.
CREATE TABLE IF NOT EXISTS enrollments (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE RESTRICT,
    course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE RESTRICT,
    enrolled_on DATE NOT NULL,
    created_at TIMESTAMP NOT NULL,

    UNIQUE(student_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);

-- Attendance: at most one row per enrollment.
CREATE TABLE IF NOT EXISTS attendance (
    id TEXT PRIMARY KEY,
    enrollment_id TEXT NOT NULL UNIQUE REFERENCES enrollments(id) ON DELETE CASCADE,
    total_classes INTEGER NOT NULL DEFAULT 0,
    attended_classes INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,

    CONSTRAINT valid_attendance CHECK (
        total_classes >= 0 AND attended_classes >= 0 AND attended_classes <= total_classes
    )
);

-- Marks: zero or more rows per enrollment.
CREATE TABLE IF NOT EXISTS marks (
    id TEXT PRIMARY KEY,
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    assessment TEXT NOT NULL,
    obtained REAL NOT NULL,
    max_score REAL NOT NULL,
    recorded_on DATE NOT NULL,

    CONSTRAINT valid_mark CHECK (
        max_score > 0 AND obtained >= 0 AND obtained <= max_score
    )
);

CREATE INDEX IF NOT EXISTS idx_marks_enrollment ON marks(enrollment_id);
CREATE INDEX IF NOT EXISTS idx_marks_recorded_on ON marks(recorded_on);
`

const migration003UpPostgres = `
-- Migration: Create enrollment aggregate tables
-- Version: 003

-- Enrollments: one row per (student, course) pair.
-- RESTRICT keeps accidental student/course deletes from silently
-- destroying academic history; cascade deletes are an explicit
-- application-level decision.
CREATE TABLE IF NOT EXISTS enrollments (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE RESTRICT,
    course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE RESTRICT,
    enrolled_on DATE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,

    UNIQUE(student_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);

-- Attendance: at most one row per enrollment.
CREATE TABLE IF NOT EXISTS attendance (
    id TEXT PRIMARY KEY,
    enrollment_id TEXT NOT NULL UNIQUE REFERENCES enrollments(id) ON DELETE CASCADE,
    total_classes INTEGER NOT NULL DEFAULT 0,
    attended_classes INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL,

    CONSTRAINT valid_attendance CHECK (
        total_classes >= 0 AND attended_classes >= 0 AND attended_classes <= total_classes
    )
);

-- Marks: zero or more rows per enrollment.
CREATE TABLE IF NOT EXISTS marks (
    id TEXT PRIMARY KEY,
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    assessment TEXT NOT NULL,
    obtained DOUBLE PRECISION NOT NULL,
    max_score DOUBLE PRECISION NOT NULL,
    recorded_on DATE NOT NULL,

    CONSTRAINT valid_mark CHECK (
        max_score > 0 AND obtained >= 0 AND obtained <= max_score
    )
);

CREATE INDEX IF NOT EXISTS idx_marks_enrollment ON marks(enrollment_id);
CREATE INDEX IF NOT EXISTS idx_marks_recorded_on ON marks(recorded_on);
`

const migration003Down = `
DROP TABLE IF EXISTS marks;
DROP TABLE IF EXISTS attendance;
DROP TABLE IF EXISTS enrollments;
`

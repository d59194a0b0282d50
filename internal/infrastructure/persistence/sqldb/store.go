package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/student"
	"github.com/carpas-edu/carpas/pkg/retry"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("sqldb: store is closed")

	// ErrMigrationFailed indicates a migration failure.
	ErrMigrationFailed = errors.New("sqldb: migration failed")

	// ErrTransactionFailed indicates a transaction failure.
	ErrTransactionFailed = errors.New("sqldb: transaction failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds storage gateway configuration.
type Config struct {
	// URL is the database location. A postgres:// URL selects the
	// PostgreSQL backend; anything else is treated as a SQLite path.
	URL string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime is the maximum idle time of a connection.
	ConnMaxIdleTime time.Duration

	// ConnectTimeout is the timeout for the initial ping.
	ConnectTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		URL:             "carpas.db",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY SESSION
// ══════════════════════════════════════════════════════════════════════════════

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session binds a querier to a dialect. Repositories issue all SQL through it
// so placeholder rebinding happens in exactly one place.
type session struct {
	q       querier
	dialect dialect
}

func (s *session) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *session) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *session) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// repoSet is a records.Repositories implementation bound to one session:
// either the auto-commit connection pool or one open transaction.
type repoSet struct {
	students    *StudentRepository
	courses     *CourseRepository
	enrollments *EnrollmentRepository
}

func newRepoSet(sess *session) *repoSet {
	return &repoSet{
		students:    NewStudentRepository(sess),
		courses:     NewCourseRepository(sess),
		enrollments: NewEnrollmentRepository(sess),
	}
}

// Students returns the student repository of this scope.
func (r *repoSet) Students() student.Repository { return r.students }

// Courses returns the course repository of this scope.
func (r *repoSet) Courses() course.Repository { return r.courses }

// Enrollments returns the enrollment repository of this scope.
func (r *repoSet) Enrollments() enrollment.Repository { return r.enrollments }

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store implements records.Store on top of database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	sess    *session
	base    *repoSet
	retrier *retry.Retrier

	mu     sync.RWMutex
	closed bool
}

// Open connects to the database described by cfg.URL and verifies the
// connection. It does not run migrations; call NewMigrator(store).Migrate
// for that.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d := detectDialect(cfg.URL)

	dsn := cfg.URL
	if d == DialectSQLite {
		dsn = sqliteDSN(cfg.URL)
	}

	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: failed to open %s database: %w", d, err)
	}

	maxOpen := cfg.MaxOpenConns
	if d == DialectSQLite && strings.Contains(dsn, ":memory:") {
		// An in-memory SQLite database exists per connection; the pool
		// must not hand out a second one.
		maxOpen = 1
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqldb: failed to ping %s database: %w", d, err)
	}

	sess := &session{q: db, dialect: d}

	return &Store{
		db:      db,
		dialect: d,
		sess:    sess,
		base:    newRepoSet(sess),
		retrier: retry.DatabaseRetrier(),
	}, nil
}

// Dialect returns the active SQL dialect.
func (s *Store) Dialect() string {
	return s.dialect.String()
}

// Students returns the auto-commit student repository.
func (s *Store) Students() student.Repository { return s.base.Students() }

// Courses returns the auto-commit course repository.
func (s *Store) Courses() course.Repository { return s.base.Courses() }

// Enrollments returns the auto-commit enrollment repository.
func (s *Store) Enrollments() enrollment.Repository { return s.base.Enrollments() }

// WithinTx executes fn within a write transaction. The transaction commits
// only when fn returns nil; an error or panic rolls everything back.
// Serialization conflicts are retried with backoff.
func (s *Store) WithinTx(ctx context.Context, fn records.TxFunc) error {
	return s.withinTx(ctx, false, fn)
}

// WithinReadTx executes fn within a read transaction: a consistent snapshot
// for multi-query reads.
func (s *Store) WithinReadTx(ctx context.Context, fn records.TxFunc) error {
	return s.withinTx(ctx, true, fn)
}

func (s *Store) withinTx(ctx context.Context, readOnly bool, fn records.TxFunc) error {
	if s.isClosed() {
		return ErrStoreClosed
	}

	return s.retrier.Do(ctx, func(ctx context.Context) error {
		err := s.runTx(ctx, readOnly, fn)
		if err != nil && isSerializationFailure(err) {
			return retry.Retryable(err)
		}
		return err
	})
}

func (s *Store) runTx(ctx context.Context, readOnly bool, fn records.TxFunc) error {
	return s.runTxSession(ctx, readOnly, func(ctx context.Context, sess *session) error {
		return fn(ctx, newRepoSet(sess))
	})
}

// runTxSession is the raw transaction runner; the migrator uses it to issue
// DDL inside the same transaction that records the schema version.
func (s *Store) runTxSession(ctx context.Context, readOnly bool, fn func(ctx context.Context, sess *session) error) error {
	tx, err := s.db.BeginTx(ctx, s.txOptions(readOnly))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &session{q: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}

	return nil
}

// txOptions returns backend-appropriate transaction options. The SQLite
// driver rejects non-default options, so it gets nil.
func (s *Store) txOptions(readOnly bool) *sql.TxOptions {
	if s.dialect != DialectPostgres {
		return nil
	}
	return &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  readOnly,
	}
}

// Ping checks if the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if s.isClosed() {
		return ErrStoreClosed
	}
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// Constraint violations are detected per backend: PostgreSQL reports SQLSTATE
// codes via pgconn, SQLite only exposes message text.
// ══════════════════════════════════════════════════════════════════════════════

// IsUniqueViolation checks if the error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation checks if the error is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// IsCheckViolation checks if the error is a check constraint violation.
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514" // check_violation
	}
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}

// isSerializationFailure reports whether a transaction lost a concurrency
// race and is safe to run again from the top.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01" // serialization_failure, deadlock_detected
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// IsNoRows checks if the error is a "no rows" error.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

package redis

import (
	"context"
	"errors"
	"time"

	"github.com/carpas-edu/carpas/internal/application/query"
	"github.com/carpas-edu/carpas/pkg/circuitbreaker"
	"github.com/carpas-edu/carpas/pkg/logger"
	"github.com/carpas-edu/carpas/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS CACHE
// Typed cache for analytics query results. A circuit breaker guards every
// Redis call: when the cache is down the breaker trips and readers fall
// through to the SQL store without waiting on timeouts.
// ══════════════════════════════════════════════════════════════════════════════

// AnalyticsCache caches analytics query results in Redis.
type AnalyticsCache struct {
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewAnalyticsCache creates a new AnalyticsCache on top of a Cache client.
func NewAnalyticsCache(cache *Cache, log *logger.Logger) *AnalyticsCache {
	onStateChange := func(name string, from, to circuitbreaker.State) {
		log.Warn("cache circuit state changed",
			logger.Component(name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}

	return &AnalyticsCache{
		cache:   cache,
		breaker: circuitbreaker.CacheBreaker(onStateChange),
		retrier: retry.CacheRetrier(),
		log:     log,
	}
}

// Close closes the underlying Redis connection.
func (a *AnalyticsCache) Close() error {
	return a.cache.Close()
}

// Ping checks cache availability for health reporting.
func (a *AnalyticsCache) Ping(ctx context.Context) error {
	return a.cache.Ping(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Student Summary
// ─────────────────────────────────────────────────────────────────────────────

// GetStudentSummary returns a cached summary, or ErrCacheMiss.
func (a *AnalyticsCache) GetStudentSummary(ctx context.Context, studentID string) (*query.GetStudentSummaryResult, error) {
	var result query.GetStudentSummaryResult
	if err := a.get(ctx, SummaryKey(studentID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetStudentSummary caches a summary.
func (a *AnalyticsCache) SetStudentSummary(ctx context.Context, studentID string, result *query.GetStudentSummaryResult) {
	a.set(ctx, SummaryKey(studentID), result, TTLStudentSummary)
}

// ─────────────────────────────────────────────────────────────────────────────
// Course Performance
// ─────────────────────────────────────────────────────────────────────────────

// GetCoursePerformance returns cached course aggregates, or ErrCacheMiss.
func (a *AnalyticsCache) GetCoursePerformance(ctx context.Context, courseID string) (*query.GetCoursePerformanceResult, error) {
	var result query.GetCoursePerformanceResult
	if err := a.get(ctx, PerformanceKey(courseID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetCoursePerformance caches course aggregates.
func (a *AnalyticsCache) SetCoursePerformance(ctx context.Context, courseID string, result *query.GetCoursePerformanceResult) {
	a.set(ctx, PerformanceKey(courseID), result, TTLCoursePerformance)
}

// ─────────────────────────────────────────────────────────────────────────────
// At-Risk Scans
// ─────────────────────────────────────────────────────────────────────────────

// GetAtRisk returns a cached at-risk scan for the given thresholds, or
// ErrCacheMiss.
func (a *AnalyticsCache) GetAtRisk(ctx context.Context, q query.FindAtRiskQuery) (*query.FindAtRiskResult, error) {
	var result query.FindAtRiskResult
	if err := a.get(ctx, AtRiskKey(q.AttendanceBelow, q.MarksBelow, q.CourseID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetAtRisk caches an at-risk scan.
func (a *AnalyticsCache) SetAtRisk(ctx context.Context, q query.FindAtRiskQuery, result *query.FindAtRiskResult) {
	a.set(ctx, AtRiskKey(q.AttendanceBelow, q.MarksBelow, q.CourseID), result, TTLAtRisk)
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollment Progress
// ─────────────────────────────────────────────────────────────────────────────

// GetProgress returns cached progress for one enrollment, or ErrCacheMiss.
func (a *AnalyticsCache) GetProgress(ctx context.Context, enrollmentID string) (*query.GetEnrollmentProgressResult, error) {
	var result query.GetEnrollmentProgressResult
	if err := a.get(ctx, ProgressKey(enrollmentID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetProgress caches progress for one enrollment.
func (a *AnalyticsCache) SetProgress(ctx context.Context, enrollmentID string, result *query.GetEnrollmentProgressResult) {
	a.set(ctx, ProgressKey(enrollmentID), result, TTLProgress)
}

// ─────────────────────────────────────────────────────────────────────────────
// Invalidation
// Writes invalidate coarsely: any change to a student or course drops the
// affected summaries, aggregates and every at-risk scan.
// ─────────────────────────────────────────────────────────────────────────────

// InvalidateStudent drops cached analytics derived from one student.
func (a *AnalyticsCache) InvalidateStudent(ctx context.Context, studentID string) {
	a.delete(ctx, SummaryKey(studentID))
	a.deletePattern(ctx, PrefixAtRisk+"*")
}

// InvalidateCourse drops cached analytics derived from one course.
func (a *AnalyticsCache) InvalidateCourse(ctx context.Context, courseID string) {
	a.delete(ctx, PerformanceKey(courseID))
	a.deletePattern(ctx, PrefixAtRisk+"*")
}

// InvalidateEnrollment drops cached analytics derived from one enrollment.
func (a *AnalyticsCache) InvalidateEnrollment(ctx context.Context, studentID, courseID, enrollmentID string) {
	a.delete(ctx, ProgressKey(enrollmentID))
	a.InvalidateStudent(ctx, studentID)
	a.InvalidateCourse(ctx, courseID)
}

// InvalidateAll drops all cached analytics.
func (a *AnalyticsCache) InvalidateAll(ctx context.Context) {
	a.deletePattern(ctx, PrefixSummary+"*")
	a.deletePattern(ctx, PrefixPerformance+"*")
	a.deletePattern(ctx, PrefixAtRisk+"*")
	a.deletePattern(ctx, PrefixProgress+"*")
}

// ─────────────────────────────────────────────────────────────────────────────
// Guarded primitives
// ─────────────────────────────────────────────────────────────────────────────

// get reads through the breaker with a quick retry on transient failures.
// A miss is not a failure and never counts against the breaker.
func (a *AnalyticsCache) get(ctx context.Context, key string, dest any) error {
	var miss bool

	err := a.breaker.Execute(ctx, func(ctx context.Context) error {
		err := a.retrier.Do(ctx, func(ctx context.Context) error {
			err := a.cache.Get(ctx, key, dest)
			if err != nil && !errors.Is(err, ErrCacheMiss) {
				return retry.Retryable(err)
			}
			return err
		})
		if errors.Is(err, ErrCacheMiss) {
			miss = true
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	if miss {
		return ErrCacheMiss
	}
	return nil
}

// set writes through the breaker. Failures are logged, never surfaced:
// a broken cache must not fail the request that produced the result.
func (a *AnalyticsCache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	err := a.breaker.Execute(ctx, func(ctx context.Context) error {
		return a.cache.Set(ctx, key, value, ttl)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		a.log.Debug("cache set failed", logger.String("key", key), logger.Err(err))
	}
}

func (a *AnalyticsCache) delete(ctx context.Context, keys ...string) {
	err := a.breaker.Execute(ctx, func(ctx context.Context) error {
		return a.cache.Delete(ctx, keys...)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		a.log.Debug("cache delete failed", logger.Err(err))
	}
}

func (a *AnalyticsCache) deletePattern(ctx context.Context, pattern string) {
	err := a.breaker.Execute(ctx, func(ctx context.Context) error {
		return a.cache.DeleteByPattern(ctx, pattern)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		a.log.Debug("cache invalidation failed", logger.String("pattern", pattern), logger.Err(err))
	}
}

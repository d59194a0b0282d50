package query

import (
	"context"
	"errors"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE PERFORMANCE QUERY
// Возвращает агрегаты по курсу: количество зачисленных и средние проценты.
// Среднее по оценкам - среднее процентов студентов (не процент от суммы
// баллов), и только среди зачислений, у которых оценки вообще есть.
// ══════════════════════════════════════════════════════════════════════════════

// GetCoursePerformanceQuery содержит параметры запроса агрегатов курса.
type GetCoursePerformanceQuery struct {
	// CourseID - внутренний ID курса. Если пуст, используется Code.
	CourseID string

	// Code - код курса для адресации по внешнему идентификатору.
	Code string
}

// Validate проверяет корректность параметров запроса.
func (q GetCoursePerformanceQuery) Validate() error {
	if q.CourseID == "" && q.Code == "" {
		return errors.New("either course_id or code must be provided")
	}
	return nil
}

// GetCoursePerformanceResult содержит результат запроса.
type GetCoursePerformanceResult struct {
	// Course - карточка курса.
	Course CourseDTO `json:"course"`

	// EnrolledCount - количество зачисленных студентов.
	EnrolledCount int `json:"enrolled_count"`

	// AverageMarksPercent - средний процент по оценкам;
	// nil - ни у одного зачисления нет оценок.
	AverageMarksPercent *float64 `json:"average_marks_percent"`

	// AverageAttendancePercent - средний процент посещаемости;
	// nil - учёт нигде не вёлся.
	AverageAttendancePercent *float64 `json:"average_attendance_percent"`
}

// GetCoursePerformanceHandler обрабатывает GetCoursePerformanceQuery.
type GetCoursePerformanceHandler struct {
	store records.Store
}

// NewGetCoursePerformanceHandler создаёт новый GetCoursePerformanceHandler.
func NewGetCoursePerformanceHandler(store records.Store) *GetCoursePerformanceHandler {
	return &GetCoursePerformanceHandler{store: store}
}

// Handle выполняет запрос.
func (h *GetCoursePerformanceHandler) Handle(ctx context.Context, q GetCoursePerformanceQuery) (*GetCoursePerformanceResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("course", "GetPerformance", shared.ErrValidation, err.Error(), err)
	}

	result := &GetCoursePerformanceResult{}

	err := h.store.WithinReadTx(ctx, func(ctx context.Context, r records.Repositories) error {
		c, err := h.findCourse(ctx, r, q)
		if err != nil {
			return err
		}

		enrolled, err := r.Enrollments().CountByCourse(ctx, c.ID)
		if err != nil {
			return err
		}

		marksAvg, err := r.Enrollments().CourseAverageMarksPercent(ctx, c.ID)
		if err != nil {
			return err
		}

		attAvg, err := r.Enrollments().CourseAverageAttendancePercent(ctx, c.ID)
		if err != nil {
			return err
		}

		result.Course = newCourseDTO(c)
		result.EnrolledCount = enrolled
		result.AverageMarksPercent = marksAvg
		result.AverageAttendancePercent = attAvg
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// findCourse находит курс по ID или коду.
func (h *GetCoursePerformanceHandler) findCourse(ctx context.Context, r records.Repositories, q GetCoursePerformanceQuery) (*course.Course, error) {
	if q.CourseID != "" {
		return r.Courses().GetByID(ctx, q.CourseID)
	}

	code, err := course.NewCode(q.Code)
	if err != nil {
		return nil, shared.ErrCourseNotFound
	}
	return r.Courses().GetByCode(ctx, code)
}

package query

import (
	"context"
	"errors"

	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT SUMMARY QUERY
// Возвращает сводку по студенту: карточку и прогресс по каждому его курсу
// плюс усреднённые показатели. Средние считаются только по зачислениям с
// данными: курс без оценок не тянет средний процент вниз.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentSummaryQuery содержит параметры запроса сводки.
type GetStudentSummaryQuery struct {
	// StudentID - внутренний ID студента. Если пуст, используется RollNo.
	StudentID string

	// RollNo - номер зачётки для адресации по внешнему идентификатору.
	RollNo string
}

// Validate проверяет корректность параметров запроса.
func (q GetStudentSummaryQuery) Validate() error {
	if q.StudentID == "" && q.RollNo == "" {
		return errors.New("either student_id or roll_no must be provided")
	}
	return nil
}

// GetStudentSummaryResult содержит результат запроса.
type GetStudentSummaryResult struct {
	// Student - карточка студента.
	Student StudentDTO `json:"student"`

	// Courses - прогресс по каждому зачислению (по коду курса).
	Courses []ProgressDTO `json:"courses"`

	// EnrollmentCount - количество зачислений.
	EnrollmentCount int `json:"enrollment_count"`

	// AverageAttendancePercent - средняя посещаемость по курсам с учётом;
	// nil - учёт нигде не вёлся.
	AverageAttendancePercent *float64 `json:"average_attendance_percent"`

	// AverageMarksPercent - средний процент оценок по курсам с оценками;
	// nil - оценок нет ни по одному курсу.
	AverageMarksPercent *float64 `json:"average_marks_percent"`
}

// GetStudentSummaryHandler обрабатывает GetStudentSummaryQuery.
type GetStudentSummaryHandler struct {
	store records.Store
}

// NewGetStudentSummaryHandler создаёт новый GetStudentSummaryHandler.
func NewGetStudentSummaryHandler(store records.Store) *GetStudentSummaryHandler {
	return &GetStudentSummaryHandler{store: store}
}

// Handle выполняет запрос.
func (h *GetStudentSummaryHandler) Handle(ctx context.Context, q GetStudentSummaryQuery) (*GetStudentSummaryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("student", "GetSummary", shared.ErrValidation, err.Error(), err)
	}

	result := &GetStudentSummaryResult{}

	err := h.store.WithinReadTx(ctx, func(ctx context.Context, r records.Repositories) error {
		s, err := h.findStudent(ctx, r, q)
		if err != nil {
			return err
		}

		progress, err := r.Enrollments().ListProgressByStudent(ctx, s.ID)
		if err != nil {
			return err
		}

		result.Student = newStudentDTO(s)
		result.EnrollmentCount = len(progress)
		result.Courses = make([]ProgressDTO, 0, len(progress))

		var attSum, marksSum float64
		var attN, marksN int
		for _, p := range progress {
			result.Courses = append(result.Courses, newProgressDTO(p))

			if pct, ok := p.AttendancePercent(); ok {
				attSum += pct
				attN++
			}
			if pct, ok := p.MarksPercent(); ok {
				marksSum += pct
				marksN++
			}
		}

		if attN > 0 {
			avg := attSum / float64(attN)
			result.AverageAttendancePercent = &avg
		}
		if marksN > 0 {
			avg := marksSum / float64(marksN)
			result.AverageMarksPercent = &avg
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// findStudent находит студента по ID или номеру зачётки.
func (h *GetStudentSummaryHandler) findStudent(ctx context.Context, r records.Repositories, q GetStudentSummaryQuery) (*student.Student, error) {
	if q.StudentID != "" {
		return r.Students().GetByID(ctx, q.StudentID)
	}

	rollNo, err := student.NewRollNo(q.RollNo)
	if err != nil {
		return nil, shared.ErrStudentNotFound
	}
	return r.Students().GetByRollNo(ctx, rollNo)
}

package query

import (
	"context"
	"errors"
	"time"

	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ENROLLMENT PROGRESS QUERY
// Возвращает прогресс одного зачисления: счётчики посещаемости, суммы оценок,
// проценты и список самих оценок. Проценты - указатели: nil означает
// "данных нет", а не ноль.
// ══════════════════════════════════════════════════════════════════════════════

// GetEnrollmentProgressQuery содержит параметры запроса прогресса.
type GetEnrollmentProgressQuery struct {
	// EnrollmentID - внутренний ID зачисления.
	// Если пуст, должна быть задана пара (StudentID, CourseID).
	EnrollmentID string

	// StudentID - ID студента для адресации по паре.
	StudentID string

	// CourseID - ID курса для адресации по паре.
	CourseID string
}

// Validate проверяет корректность параметров запроса.
func (q GetEnrollmentProgressQuery) Validate() error {
	if q.EnrollmentID == "" && (q.StudentID == "" || q.CourseID == "") {
		return errors.New("either enrollment_id or the (student_id, course_id) pair must be provided")
	}
	return nil
}

// ProgressDTO - прогресс одного зачисления для внешних слоёв.
type ProgressDTO struct {
	// EnrollmentID - ID зачисления.
	EnrollmentID string `json:"enrollment_id"`

	// StudentID / RollNo / StudentName - идентификация студента.
	StudentID   string `json:"student_id"`
	RollNo      string `json:"roll_no"`
	StudentName string `json:"student_name"`

	// CourseID / CourseCode / CourseTitle - идентификация курса.
	CourseID    string `json:"course_id"`
	CourseCode  string `json:"course_code"`
	CourseTitle string `json:"course_title"`

	// HasAttendance - ведётся ли учёт посещаемости.
	HasAttendance   bool `json:"has_attendance"`
	TotalClasses    int  `json:"total_classes"`
	AttendedClasses int  `json:"attended_classes"`

	// AttendancePercent - процент посещаемости; nil = данных нет.
	AttendancePercent *float64 `json:"attendance_percent"`

	// MarksCount - количество оценок; суммы - по всем оценкам.
	MarksCount  int     `json:"marks_count"`
	ObtainedSum float64 `json:"obtained_sum"`
	MaxSum      float64 `json:"max_sum"`

	// MarksPercent - суммарный процент по оценкам; nil = оценок нет.
	MarksPercent *float64 `json:"marks_percent"`
}

// newProgressDTO собирает DTO из read model хранилища.
func newProgressDTO(p *enrollment.Progress) ProgressDTO {
	dto := ProgressDTO{
		EnrollmentID:    p.EnrollmentID,
		StudentID:       p.StudentID,
		RollNo:          p.RollNo,
		StudentName:     p.StudentName,
		CourseID:        p.CourseID,
		CourseCode:      p.CourseCode,
		CourseTitle:     p.CourseTitle,
		HasAttendance:   p.HasAttendance,
		TotalClasses:    p.TotalClasses,
		AttendedClasses: p.AttendedClasses,
		MarksCount:      p.MarksCount,
		ObtainedSum:     p.ObtainedSum,
		MaxSum:          p.MaxSum,
	}

	if pct, ok := p.AttendancePercent(); ok {
		dto.AttendancePercent = &pct
	}
	if pct, ok := p.MarksPercent(); ok {
		dto.MarksPercent = &pct
	}

	return dto
}

// MarkDTO - одна оценка для внешних слоёв.
type MarkDTO struct {
	// ID - внутренний ID оценки.
	ID string `json:"id"`

	// Assessment - название оценивания.
	Assessment string `json:"assessment"`

	// Obtained - полученный балл.
	Obtained float64 `json:"obtained"`

	// MaxScore - максимально возможный балл.
	MaxScore float64 `json:"max_score"`

	// Percent - процент по этой оценке.
	Percent float64 `json:"percent"`

	// RecordedOn - дата выставления.
	RecordedOn time.Time `json:"recorded_on"`
}

// newMarkDTO собирает DTO из доменной сущности.
func newMarkDTO(m *enrollment.Mark) MarkDTO {
	return MarkDTO{
		ID:         m.ID,
		Assessment: m.Assessment,
		Obtained:   m.Obtained,
		MaxScore:   m.MaxScore,
		Percent:    m.Percent(),
		RecordedOn: m.RecordedOn,
	}
}

// GetEnrollmentProgressResult содержит результат запроса.
type GetEnrollmentProgressResult struct {
	// Progress - прогресс зачисления.
	Progress ProgressDTO `json:"progress"`

	// Marks - оценки зачисления (новые первыми).
	Marks []MarkDTO `json:"marks"`
}

// GetEnrollmentProgressHandler обрабатывает GetEnrollmentProgressQuery.
type GetEnrollmentProgressHandler struct {
	store records.Store
}

// NewGetEnrollmentProgressHandler создаёт новый GetEnrollmentProgressHandler.
func NewGetEnrollmentProgressHandler(store records.Store) *GetEnrollmentProgressHandler {
	return &GetEnrollmentProgressHandler{store: store}
}

// Handle выполняет запрос.
func (h *GetEnrollmentProgressHandler) Handle(ctx context.Context, q GetEnrollmentProgressQuery) (*GetEnrollmentProgressResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("enrollment", "GetProgress", shared.ErrValidation, err.Error(), err)
	}

	result := &GetEnrollmentProgressResult{}

	err := h.store.WithinReadTx(ctx, func(ctx context.Context, r records.Repositories) error {
		id := q.EnrollmentID
		if id == "" {
			e, err := r.Enrollments().GetByPair(ctx, q.StudentID, q.CourseID)
			if err != nil {
				return err
			}
			id = e.ID
		}

		p, err := r.Enrollments().GetProgress(ctx, id)
		if err != nil {
			return err
		}

		marks, err := r.Enrollments().ListMarks(ctx, id)
		if err != nil {
			return err
		}

		result.Progress = newProgressDTO(p)
		result.Marks = make([]MarkDTO, 0, len(marks))
		for _, m := range marks {
			result.Marks = append(result.Marks, newMarkDTO(m))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

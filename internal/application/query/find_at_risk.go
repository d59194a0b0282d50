package query

import (
	"context"
	"errors"

	"github.com/carpas-edu/carpas/internal/domain/records"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIND AT-RISK QUERY
// Находит зачисления с низкой посещаемостью или низкими оценками. Зачисление
// без данных никогда не попадает в группу риска: неопределённый процент - это
// не ноль. Причины перечисляются явно, чтобы вызывающая сторона видела,
// по какому именно показателю студент проседает.
// ══════════════════════════════════════════════════════════════════════════════

// Пороговые значения по умолчанию.
const (
	// DefaultAttendanceThreshold - посещаемость ниже этого процента
	// считается низкой.
	DefaultAttendanceThreshold = 75.0

	// DefaultMarksThreshold - суммарный процент оценок ниже этого
	// значения считается низким.
	DefaultMarksThreshold = 40.0
)

// Причины попадания в группу риска.
const (
	ReasonLowAttendance = "low attendance"
	ReasonLowMarks      = "low marks"
)

// FindAtRiskQuery содержит параметры поиска группы риска.
type FindAtRiskQuery struct {
	// AttendanceBelow - порог посещаемости; 0 = значение по умолчанию.
	AttendanceBelow float64

	// MarksBelow - порог по оценкам; 0 = значение по умолчанию.
	MarksBelow float64

	// CourseID - ограничить поиск одним курсом (пустая строка = все).
	CourseID string
}

// Validate проверяет и нормализует параметры запроса.
func (q *FindAtRiskQuery) Validate() error {
	if q.AttendanceBelow < 0 || q.MarksBelow < 0 {
		return errors.New("thresholds cannot be negative")
	}
	if q.AttendanceBelow == 0 {
		q.AttendanceBelow = DefaultAttendanceThreshold
	}
	if q.MarksBelow == 0 {
		q.MarksBelow = DefaultMarksThreshold
	}
	return nil
}

// AtRiskEntryDTO - одно зачисление из группы риска.
type AtRiskEntryDTO struct {
	// Progress - прогресс зачисления.
	Progress ProgressDTO `json:"progress"`

	// Reasons - причины ("low attendance", "low marks").
	Reasons []string `json:"reasons"`
}

// FindAtRiskResult содержит результат поиска.
type FindAtRiskResult struct {
	// Entries - зачисления группы риска (по номеру зачётки и коду курса).
	Entries []AtRiskEntryDTO `json:"entries"`

	// AttendanceThreshold и MarksThreshold - применённые пороги.
	AttendanceThreshold float64 `json:"attendance_threshold"`
	MarksThreshold      float64 `json:"marks_threshold"`

	// ScannedCount - сколько зачислений было проверено.
	ScannedCount int `json:"scanned_count"`
}

// FindAtRiskHandler обрабатывает FindAtRiskQuery.
type FindAtRiskHandler struct {
	store records.Store
}

// NewFindAtRiskHandler создаёт новый FindAtRiskHandler.
func NewFindAtRiskHandler(store records.Store) *FindAtRiskHandler {
	return &FindAtRiskHandler{store: store}
}

// Handle выполняет поиск.
func (h *FindAtRiskHandler) Handle(ctx context.Context, q FindAtRiskQuery) (*FindAtRiskResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	result := &FindAtRiskResult{
		Entries:             []AtRiskEntryDTO{},
		AttendanceThreshold: q.AttendanceBelow,
		MarksThreshold:      q.MarksBelow,
	}

	err := h.store.WithinReadTx(ctx, func(ctx context.Context, r records.Repositories) error {
		progress, err := r.Enrollments().ListProgress(ctx)
		if err != nil {
			return err
		}

		for _, p := range progress {
			if q.CourseID != "" && p.CourseID != q.CourseID {
				continue
			}
			result.ScannedCount++

			var reasons []string
			if pct, ok := p.AttendancePercent(); ok && pct < q.AttendanceBelow {
				reasons = append(reasons, ReasonLowAttendance)
			}
			if pct, ok := p.MarksPercent(); ok && pct < q.MarksBelow {
				reasons = append(reasons, ReasonLowMarks)
			}

			if len(reasons) > 0 {
				result.Entries = append(result.Entries, AtRiskEntryDTO{
					Progress: newProgressDTO(p),
					Reasons:  reasons,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

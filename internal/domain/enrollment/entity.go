// Package enrollment содержит доменную модель зачисления - связи студента с
// курсом. Зачисление является корнем агрегата для посещаемости (Attendance)
// и оценок (Mark): они никогда не существуют отдельно от него.
package enrollment

import (
	"errors"
	"fmt"
	"time"

	"github.com/carpas-edu/carpas/internal/domain/shared"
	"github.com/carpas-edu/carpas/pkg/dateutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNegativeClasses - отрицательное количество занятий.
	ErrNegativeClasses = errors.New("classes held and attended cannot be negative")

	// ErrAttendedExceedsTotal - посещено больше занятий, чем проведено.
	ErrAttendedExceedsTotal = errors.New("attended classes cannot exceed total classes")

	// ErrNonPositiveMaxScore - максимальный балл должен быть положительным.
	ErrNonPositiveMaxScore = errors.New("max score must be positive")

	// ErrScoreOutOfRange - полученный балл вне диапазона [0, max].
	ErrScoreOutOfRange = errors.New("obtained score must be between 0 and max score")

	// ErrInvalidAssessment - невалидное название оценивания.
	ErrInvalidAssessment = errors.New("invalid assessment label: must be at most 60 chars")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT (корень агрегата)
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment - зачисление студента на курс. Пара (StudentID, CourseID)
// уникальна: студент не может быть зачислен на один курс дважды.
type Enrollment struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// StudentID - ссылка на студента.
	StudentID string

	// CourseID - ссылка на курс.
	CourseID string

	// EnrolledOn - дата зачисления (полночь UTC).
	EnrolledOn time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time
}

// NewEnrollment создаёт зачисление. Нулевая дата enrolledOn означает "сегодня".
// Существование студента и курса проверяет слой приложения внутри транзакции.
func NewEnrollment(id, studentID, courseID string, enrolledOn time.Time) (*Enrollment, error) {
	if id == "" {
		return nil, errors.New("enrollment id is required")
	}
	if studentID == "" {
		return nil, errors.New("student id is required")
	}
	if courseID == "" {
		return nil, errors.New("course id is required")
	}

	now := time.Now().UTC()
	if enrolledOn.IsZero() {
		enrolledOn = now
	}

	return &Enrollment{
		ID:         id,
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledOn: TruncateToDate(enrolledOn),
		CreatedAt:  now,
	}, nil
}

// String возвращает строковое представление зачисления для логирования.
func (e *Enrollment) String() string {
	return fmt.Sprintf(
		"Enrollment{ID: %s, Student: %s, Course: %s}",
		e.ID, e.StudentID, e.CourseID,
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE (ровно одна запись на зачисление)
// ══════════════════════════════════════════════════════════════════════════════

// Attendance - учёт посещаемости по одному зачислению. Отсутствие записи и
// запись с нулём проведённых занятий - разные состояния: обе дают
// неопределённый процент, но первая означает "учёт ещё не вёлся".
type Attendance struct {
	// ID - внутренний уникальный идентификатор.
	ID string

	// EnrollmentID - ссылка на зачисление (уникальна: связь 1:1).
	EnrollmentID string

	// TotalClasses - всего проведено занятий.
	TotalClasses int

	// AttendedClasses - из них посещено студентом.
	AttendedClasses int

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewAttendance создаёт запись посещаемости с валидацией инвариантов.
func NewAttendance(id, enrollmentID string, total, attended int) (*Attendance, error) {
	if id == "" {
		return nil, errors.New("attendance id is required")
	}
	if enrollmentID == "" {
		return nil, errors.New("enrollment id is required")
	}
	if total < 0 || attended < 0 {
		return nil, ErrNegativeClasses
	}
	if attended > total {
		return nil, ErrAttendedExceedsTotal
	}

	return &Attendance{
		ID:              id,
		EnrollmentID:    enrollmentID,
		TotalClasses:    total,
		AttendedClasses: attended,
		UpdatedAt:       time.Now().UTC(),
	}, nil
}

// Set обновляет счётчики посещаемости с той же валидацией.
func (a *Attendance) Set(total, attended int) error {
	if total < 0 || attended < 0 {
		return ErrNegativeClasses
	}
	if attended > total {
		return ErrAttendedExceedsTotal
	}

	a.TotalClasses = total
	a.AttendedClasses = attended
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Percent возвращает процент посещаемости. ok == false, когда занятий не было
// (процент неопределён, а не равен нулю).
func (a *Attendance) Percent() (float64, bool) {
	if a == nil || a.TotalClasses <= 0 {
		return 0, false
	}
	return float64(a.AttendedClasses) / float64(a.TotalClasses) * 100, true
}

// ══════════════════════════════════════════════════════════════════════════════
// MARK (ноль и более записей на зачисление)
// ══════════════════════════════════════════════════════════════════════════════

// Значения по умолчанию для оценок.
const (
	// DefaultAssessment - название оценивания, если не указано.
	DefaultAssessment = "Exam"

	// DefaultMaxScore - максимальный балл, если не указан.
	DefaultMaxScore = 100.0
)

// Mark - одна оценка по зачислению.
type Mark struct {
	// ID - внутренний уникальный идентификатор.
	ID string

	// EnrollmentID - ссылка на зачисление.
	EnrollmentID string

	// Assessment - название оценивания ("Mid Sem", "End Sem", "Assignment").
	Assessment string

	// Obtained - полученный балл.
	Obtained float64

	// MaxScore - максимально возможный балл (> 0).
	MaxScore float64

	// RecordedOn - дата выставления (полночь UTC).
	RecordedOn time.Time
}

// NewMark создаёт оценку с валидацией. Пустое название оценивания заменяется
// на DefaultAssessment, нулевая дата - на сегодняшнюю. maxScore обязан быть
// строго положительным: подстановка DefaultMaxScore - забота вызывающего слоя.
func NewMark(id, enrollmentID, assessment string, obtained, maxScore float64, recordedOn time.Time) (*Mark, error) {
	if id == "" {
		return nil, errors.New("mark id is required")
	}
	if enrollmentID == "" {
		return nil, errors.New("enrollment id is required")
	}

	label := shared.TrimName(assessment)
	if label == "" {
		label = DefaultAssessment
	}
	if len(label) > 60 {
		return nil, ErrInvalidAssessment
	}

	if maxScore <= 0 {
		return nil, ErrNonPositiveMaxScore
	}
	if obtained < 0 || obtained > maxScore {
		return nil, ErrScoreOutOfRange
	}

	if recordedOn.IsZero() {
		recordedOn = time.Now().UTC()
	}

	return &Mark{
		ID:           id,
		EnrollmentID: enrollmentID,
		Assessment:   label,
		Obtained:     obtained,
		MaxScore:     maxScore,
		RecordedOn:   TruncateToDate(recordedOn),
	}, nil
}

// Percent возвращает процент по одной оценке.
func (m *Mark) Percent() float64 {
	return m.Obtained / m.MaxScore * 100
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// TruncateToDate отбрасывает время, оставляя полночь UTC календарной даты.
func TruncateToDate(t time.Time) time.Time {
	return dateutil.Truncate(t)
}

package enrollment

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Контракт хранилища зачислений вместе с принадлежащими им записями
// посещаемости и оценок. Удаление зачисления каскадно удаляет и то, и другое
// на уровне движка хранилища.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранилища для агрегата зачисления.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Enrollment CRUD
	// ─────────────────────────────────────────────────────────────────────────

	// Create создаёт новое зачисление.
	Create(ctx context.Context, e *Enrollment) error

	// GetByID возвращает зачисление по внутреннему ID.
	// Возвращает ошибку с видом NotFound, если зачисление не найдено.
	GetByID(ctx context.Context, id string) (*Enrollment, error)

	// GetByPair возвращает зачисление по паре (студент, курс).
	GetByPair(ctx context.Context, studentID, courseID string) (*Enrollment, error)

	// Delete удаляет зачисление вместе с посещаемостью и оценками.
	Delete(ctx context.Context, id string) error

	// DeleteByStudent удаляет все зачисления студента (каскад для
	// удаления студента). Возвращает количество удалённых зачислений.
	DeleteByStudent(ctx context.Context, studentID string) (int, error)

	// DeleteByCourse удаляет все зачисления на курс.
	DeleteByCourse(ctx context.Context, courseID string) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Listing & Existence
	// ─────────────────────────────────────────────────────────────────────────

	// ListByStudent возвращает зачисления студента (по дате создания).
	ListByStudent(ctx context.Context, studentID string) ([]*Enrollment, error)

	// ListByCourse возвращает зачисления на курс.
	ListByCourse(ctx context.Context, courseID string) ([]*Enrollment, error)

	// ExistsPair проверяет, зачислен ли студент на курс.
	ExistsPair(ctx context.Context, studentID, courseID string) (bool, error)

	// CountByStudent возвращает количество зачислений студента.
	CountByStudent(ctx context.Context, studentID string) (int, error)

	// CountByCourse возвращает количество зачислений на курс.
	CountByCourse(ctx context.Context, courseID string) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Attendance (1:1)
	// ─────────────────────────────────────────────────────────────────────────

	// GetAttendance возвращает запись посещаемости зачисления.
	// Возвращает ошибку с видом NotFound, если учёт ещё не вёлся.
	GetAttendance(ctx context.Context, enrollmentID string) (*Attendance, error)

	// UpsertAttendance создаёт или обновляет единственную запись
	// посещаемости зачисления.
	UpsertAttendance(ctx context.Context, a *Attendance) error

	// ─────────────────────────────────────────────────────────────────────────
	// Marks (0..N)
	// ─────────────────────────────────────────────────────────────────────────

	// AddMark добавляет оценку.
	AddMark(ctx context.Context, m *Mark) error

	// ListMarks возвращает оценки зачисления (новые первыми).
	ListMarks(ctx context.Context, enrollmentID string) ([]*Mark, error)

	// DeleteMark удаляет одну оценку по её ID.
	DeleteMark(ctx context.Context, markID string) error

	// CountMarks возвращает количество оценок зачисления.
	CountMarks(ctx context.Context, enrollmentID string) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Read Models & Aggregates
	// Агрегаты считаются на уровне хранилища, чтобы аналитике не требовалось
	// вычитывать все оценки построчно.
	// ─────────────────────────────────────────────────────────────────────────

	// GetProgress возвращает прогресс одного зачисления.
	GetProgress(ctx context.Context, enrollmentID string) (*Progress, error)

	// ListProgressByStudent возвращает прогресс всех зачислений студента.
	ListProgressByStudent(ctx context.Context, studentID string) ([]*Progress, error)

	// ListProgress возвращает прогресс всех зачислений системы.
	ListProgress(ctx context.Context) ([]*Progress, error)

	// CourseAverageMarksPercent возвращает среднее процентов по оценкам
	// среди зачислений курса, имеющих хотя бы одну оценку. nil - нет данных.
	CourseAverageMarksPercent(ctx context.Context, courseID string) (*float64, error)

	// CourseAverageAttendancePercent возвращает среднее процентов
	// посещаемости среди зачислений курса с total > 0. nil - нет данных.
	CourseAverageAttendancePercent(ctx context.Context, courseID string) (*float64, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS READ MODEL
// Денормализованная строка "зачисление + счётчики посещаемости + суммы
// оценок", на которой строится вся аналитика.
// ══════════════════════════════════════════════════════════════════════════════

// Progress - прогресс одного зачисления.
type Progress struct {
	// EnrollmentID - ID зачисления.
	EnrollmentID string

	// StudentID / RollNo / StudentName - идентификация студента.
	StudentID   string
	RollNo      string
	StudentName string

	// CourseID / CourseCode / CourseTitle - идентификация курса.
	CourseID    string
	CourseCode  string
	CourseTitle string

	// HasAttendance - ведётся ли учёт посещаемости. false означает
	// "записи нет вообще", что отличается от записи с нулём занятий.
	HasAttendance   bool
	TotalClasses    int
	AttendedClasses int

	// MarksCount - количество оценок; ObtainedSum/MaxSum - их суммы.
	MarksCount  int
	ObtainedSum float64
	MaxSum      float64
}

// AttendancePercent возвращает процент посещаемости.
// ok == false, когда записи нет или занятий не проводилось.
func (p *Progress) AttendancePercent() (float64, bool) {
	if p == nil || !p.HasAttendance || p.TotalClasses <= 0 {
		return 0, false
	}
	return float64(p.AttendedClasses) / float64(p.TotalClasses) * 100, true
}

// MarksPercent возвращает суммарный процент по оценкам.
// ok == false, когда оценок нет.
func (p *Progress) MarksPercent() (float64, bool) {
	if p == nil || p.MarksCount == 0 || p.MaxSum <= 0 {
		return 0, false
	}
	return p.ObtainedSum / p.MaxSum * 100, true
}

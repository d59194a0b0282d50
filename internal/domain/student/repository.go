package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Контракт хранилища студентов. Реализации находятся в
// infrastructure/persistence; все методы работают в рамках той транзакции,
// из которой получен репозиторий.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранилища для студентов.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create создаёт нового студента.
	Create(ctx context.Context, s *Student) error

	// GetByID возвращает студента по внутреннему ID.
	// Возвращает ошибку с видом NotFound, если студент не найден.
	GetByID(ctx context.Context, id string) (*Student, error)

	// GetByRollNo возвращает студента по номеру зачётки.
	GetByRollNo(ctx context.Context, rollNo RollNo) (*Student, error)

	// Update сохраняет изменённого студента.
	Update(ctx context.Context, s *Student) error

	// Delete удаляет студента. Не трогает его зачисления - за политику
	// каскада отвечает слой приложения.
	Delete(ctx context.Context, id string) error

	// ─────────────────────────────────────────────────────────────────────────
	// Listing & Search
	// ─────────────────────────────────────────────────────────────────────────

	// List возвращает студентов согласно фильтрам и пагинации.
	List(ctx context.Context, opts ListOptions) ([]*Student, error)

	// Count возвращает количество студентов, подходящих под фильтры
	// (пагинация игнорируется).
	Count(ctx context.Context, opts ListOptions) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Existence Checks
	// ─────────────────────────────────────────────────────────────────────────

	// Exists проверяет существование студента по ID.
	Exists(ctx context.Context, id string) (bool, error)

	// ExistsByRollNo проверяет занятость номера зачётки.
	ExistsByRollNo(ctx context.Context, rollNo RollNo) (bool, error)
}

// ListOptions содержит фильтры, сортировку и пагинацию для списка студентов.
type ListOptions struct {
	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int

	// SortBy - поле для сортировки (roll_no, full_name, semester, created_at).
	SortBy string

	// SortDesc - сортировка по убыванию.
	SortDesc bool

	// Department - фильтр по кафедре (пустая строка = все).
	Department string

	// Semester - фильтр по семестру (0 = все).
	Semester int

	// Search - подстрока для поиска по имени или номеру зачётки.
	Search string
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset:   0,
		Limit:    50,
		SortBy:   "roll_no",
		SortDesc: false,
	}
}

// WithOffset устанавливает смещение.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit устанавливает лимит.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithSort устанавливает сортировку.
func (o ListOptions) WithSort(field string, desc bool) ListOptions {
	o.SortBy = field
	o.SortDesc = desc
	return o
}

// WithDepartment устанавливает фильтр по кафедре.
func (o ListOptions) WithDepartment(department string) ListOptions {
	o.Department = department
	return o
}

// WithSemester устанавливает фильтр по семестру.
func (o ListOptions) WithSemester(semester int) ListOptions {
	o.Semester = semester
	return o
}

// WithSearch устанавливает поисковую подстроку.
func (o ListOptions) WithSearch(query string) ListOptions {
	o.Search = query
	return o
}

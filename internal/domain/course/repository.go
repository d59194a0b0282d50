package course

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Контракт хранилища курсов. Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранилища для курсов.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create создаёт новый курс.
	Create(ctx context.Context, c *Course) error

	// GetByID возвращает курс по внутреннему ID.
	// Возвращает ошибку с видом NotFound, если курс не найден.
	GetByID(ctx context.Context, id string) (*Course, error)

	// GetByCode возвращает курс по коду.
	GetByCode(ctx context.Context, code Code) (*Course, error)

	// Update сохраняет изменённый курс.
	Update(ctx context.Context, c *Course) error

	// Delete удаляет курс. Не трогает зачисления - за политику каскада
	// отвечает слой приложения.
	Delete(ctx context.Context, id string) error

	// ─────────────────────────────────────────────────────────────────────────
	// Listing & Search
	// ─────────────────────────────────────────────────────────────────────────

	// List возвращает курсы согласно фильтрам и пагинации.
	List(ctx context.Context, opts ListOptions) ([]*Course, error)

	// Count возвращает количество курсов, подходящих под фильтры.
	Count(ctx context.Context, opts ListOptions) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Existence Checks
	// ─────────────────────────────────────────────────────────────────────────

	// Exists проверяет существование курса по ID.
	Exists(ctx context.Context, id string) (bool, error)

	// ExistsByCode проверяет занятость кода курса.
	ExistsByCode(ctx context.Context, code Code) (bool, error)
}

// ListOptions содержит фильтры, сортировку и пагинацию для списка курсов.
type ListOptions struct {
	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int

	// SortBy - поле для сортировки (code, title, semester, credits, created_at).
	SortBy string

	// SortDesc - сортировка по убыванию.
	SortDesc bool

	// Semester - фильтр по семестру (0 = все).
	Semester int

	// Search - подстрока для поиска по коду или названию.
	Search string
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset:   0,
		Limit:    50,
		SortBy:   "code",
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

package query

import (
	"context"
	"errors"
	"time"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/records"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST COURSES QUERY
// Возвращает страницу курсов с фильтрацией по семестру и поисковой подстроке.
// ══════════════════════════════════════════════════════════════════════════════

// ListCoursesQuery содержит параметры запроса списка курсов.
type ListCoursesQuery struct {
	// Semester - фильтр по семестру (0 = все).
	Semester int

	// Search - подстрока для поиска по коду или названию.
	Search string

	// SortBy - поле сортировки (code, title, semester, credits, created_at).
	SortBy string

	// SortDesc - сортировка по убыванию.
	SortDesc bool

	// Limit - количество записей (по умолчанию 50, максимум 200).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *ListCoursesQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

// CourseDTO - DTO курса для внешних слоёв.
type CourseDTO struct {
	// ID - внутренний ID курса.
	ID string `json:"id"`

	// Code - код курса.
	Code string `json:"code"`

	// Title - название курса.
	Title string `json:"title"`

	// Semester - семестр курса.
	Semester int `json:"semester"`

	// Credits - кредитный вес.
	Credits int `json:"credits"`

	// CreatedAt - время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// newCourseDTO собирает DTO из доменной сущности.
func newCourseDTO(c *course.Course) CourseDTO {
	return CourseDTO{
		ID:        c.ID,
		Code:      c.Code.String(),
		Title:     c.Title,
		Semester:  int(c.Semester),
		Credits:   c.Credits.Int(),
		CreatedAt: c.CreatedAt,
	}
}

// ListCoursesResult содержит результат запроса.
type ListCoursesResult struct {
	// Courses - страница курсов.
	Courses []CourseDTO `json:"courses"`

	// TotalCount - общее количество курсов под фильтрами.
	TotalCount int `json:"total_count"`

	// Limit и Offset - использованная пагинация.
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListCoursesHandler обрабатывает ListCoursesQuery.
type ListCoursesHandler struct {
	store records.Store
}

// NewListCoursesHandler создаёт новый ListCoursesHandler.
func NewListCoursesHandler(store records.Store) *ListCoursesHandler {
	return &ListCoursesHandler{store: store}
}

// Handle выполняет запрос.
func (h *ListCoursesHandler) Handle(ctx context.Context, q ListCoursesQuery) (*ListCoursesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	opts := course.DefaultListOptions().
		WithSemester(q.Semester).
		WithSearch(q.Search).
		WithOffset(q.Offset).
		WithLimit(q.Limit)
	if q.SortBy != "" {
		opts = opts.WithSort(q.SortBy, q.SortDesc)
	}

	result := &ListCoursesResult{
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	err := h.store.WithinReadTx(ctx, func(ctx context.Context, r records.Repositories) error {
		courses, err := r.Courses().List(ctx, opts)
		if err != nil {
			return err
		}

		total, err := r.Courses().Count(ctx, opts)
		if err != nil {
			return err
		}

		result.Courses = make([]CourseDTO, 0, len(courses))
		for _, c := range courses {
			result.Courses = append(result.Courses, newCourseDTO(c))
		}
		result.TotalCount = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

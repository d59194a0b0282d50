// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/carpas-edu/carpas/internal/domain/records"
	"github.com/carpas-edu/carpas/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENTS QUERY
// Возвращает страницу студентов с фильтрацией по кафедре, семестру и
// поисковой подстроке.
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentsQuery содержит параметры запроса списка студентов.
type ListStudentsQuery struct {
	// Department - фильтр по кафедре (пустая строка = все).
	Department string

	// Semester - фильтр по семестру (0 = все).
	Semester int

	// Search - подстрока для поиска по имени или номеру зачётки.
	Search string

	// SortBy - поле сортировки (roll_no, full_name, semester, created_at).
	SortBy string

	// SortDesc - сортировка по убыванию.
	SortDesc bool

	// Limit - количество записей (по умолчанию 50, максимум 200).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *ListStudentsQuery) Validate() error {
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

// StudentDTO - DTO студента для внешних слоёв.
type StudentDTO struct {
	// ID - внутренний ID студента.
	ID string `json:"id"`

	// RollNo - номер зачётки.
	RollNo string `json:"roll_no"`

	// FullName - полное имя.
	FullName string `json:"full_name"`

	// Department - кафедра (может быть пустой).
	Department string `json:"department,omitempty"`

	// Semester - текущий семестр (0 = не указан).
	Semester int `json:"semester,omitempty"`

	// Email - контактный email (может быть пустым).
	Email string `json:"email,omitempty"`

	// Phone - контактный телефон (может быть пустым).
	Phone string `json:"phone,omitempty"`

	// CreatedAt - время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// newStudentDTO собирает DTO из доменной сущности.
func newStudentDTO(s *student.Student) StudentDTO {
	return StudentDTO{
		ID:         s.ID,
		RollNo:     s.RollNo.String(),
		FullName:   s.FullName,
		Department: s.Department,
		Semester:   int(s.Semester),
		Email:      s.Email.String(),
		Phone:      s.Phone,
		CreatedAt:  s.CreatedAt,
	}
}

// ListStudentsResult содержит результат запроса.
type ListStudentsResult struct {
	// Students - страница студентов.
	Students []StudentDTO `json:"students"`

	// TotalCount - общее количество студентов под фильтрами.
	TotalCount int `json:"total_count"`

	// Limit и Offset - использованная пагинация.
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListStudentsHandler обрабатывает ListStudentsQuery.
type ListStudentsHandler struct {
	store records.Store
}

// NewListStudentsHandler создаёт новый ListStudentsHandler.
func NewListStudentsHandler(store records.Store) *ListStudentsHandler {
	return &ListStudentsHandler{store: store}
}

// Handle выполняет запрос.
func (h *ListStudentsHandler) Handle(ctx context.Context, q ListStudentsQuery) (*ListStudentsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	opts := student.DefaultListOptions().
		WithDepartment(q.Department).
		WithSemester(q.Semester).
		WithSearch(q.Search).
		WithOffset(q.Offset).
		WithLimit(q.Limit)
	if q.SortBy != "" {
		opts = opts.WithSort(q.SortBy, q.SortDesc)
	}

	result := &ListStudentsResult{
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	// Список и счётчик читаются в одном снимке.
	err := h.store.WithinReadTx(ctx, func(ctx context.Context, r records.Repositories) error {
		students, err := r.Students().List(ctx, opts)
		if err != nil {
			return err
		}

		total, err := r.Students().Count(ctx, opts)
		if err != nil {
			return err
		}

		result.Students = make([]StudentDTO, 0, len(students))
		for _, s := range students {
			result.Students = append(result.Students, newStudentDTO(s))
		}
		result.TotalCount = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

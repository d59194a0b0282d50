// Package course содержит доменную модель учебного курса CARPAS.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package course

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carpas-edu/carpas/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Code представляет уникальный код курса (например, "CS301").
// Хранится в канонической форме: верхний регистр, без пробелов.
type Code string

// IsValid проверяет корректность кода курса.
func (c Code) IsValid() bool {
	s := string(c)
	return len(s) >= 2 && len(s) <= 16 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление кода.
func (c Code) String() string {
	return string(c)
}

// NewCode нормализует и валидирует код курса.
func NewCode(raw string) (Code, error) {
	c := Code(shared.NormalizeCode(raw))
	if !c.IsValid() {
		return "", ErrInvalidCode
	}
	return c, nil
}

// Credits представляет количество кредитов курса. Ноль означает "не указано".
type Credits int

// MaxCredits - верхняя граница кредитов за один курс.
const MaxCredits = 10

// IsValid проверяет, что кредиты равны нулю или лежат в диапазоне 1..MaxCredits.
func (c Credits) IsValid() bool {
	return c == 0 || (c >= 1 && c <= MaxCredits)
}

// Int возвращает кредиты как обычное число.
func (c Credits) Int() int {
	return int(c)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course - сущность учебного курса.
type Course struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Code - код курса, уникален в пределах системы.
	Code Code

	// Title - название курса.
	Title string

	// Semester - семестр, в котором читается курс (0 = не указан).
	Semester shared.Semester

	// Credits - количество кредитов (0 = не указано).
	Credits Credits

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidCode - невалидный код курса.
	ErrInvalidCode = errors.New("invalid course code: must be 2-16 chars without whitespace")

	// ErrInvalidTitle - невалидное название.
	ErrInvalidTitle = errors.New("invalid course title: must be 1-160 chars")

	// ErrInvalidSemester - невалидный семестр.
	ErrInvalidSemester = errors.New("invalid semester: must be between 1 and 12")

	// ErrInvalidCredits - невалидные кредиты.
	ErrInvalidCredits = errors.New("invalid credits: must be between 1 and 10")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewCourseParams содержит параметры для создания нового курса.
type NewCourseParams struct {
	ID       string
	Code     string
	Title    string
	Semester shared.Semester
	Credits  Credits
}

// NewCourse создаёт новый курс с валидацией и нормализацией всех полей.
func NewCourse(params NewCourseParams) (*Course, error) {
	if params.ID == "" {
		return nil, errors.New("course id is required")
	}

	code, err := NewCode(params.Code)
	if err != nil {
		return nil, err
	}

	title := shared.TrimName(params.Title)
	if len(title) == 0 || len(title) > 160 {
		return nil, ErrInvalidTitle
	}

	if !params.Semester.IsValid() {
		return nil, ErrInvalidSemester
	}

	if !params.Credits.IsValid() {
		return nil, ErrInvalidCredits
	}

	now := time.Now().UTC()

	return &Course{
		ID:        params.ID,
		Code:      code,
		Title:     title,
		Semester:  params.Semester,
		Credits:   params.Credits,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// ChangeCode меняет код курса (с нормализацией).
// Проверка уникальности нового кода - задача вызывающего слоя.
func (c *Course) ChangeCode(raw string) error {
	code, err := NewCode(raw)
	if err != nil {
		return err
	}

	c.Code = code
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Retitle меняет название курса.
func (c *Course) Retitle(title string) error {
	t := shared.TrimName(title)
	if len(t) == 0 || len(t) > 160 {
		return ErrInvalidTitle
	}

	c.Title = t
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// SetSemester меняет семестр курса. Ноль очищает поле.
func (c *Course) SetSemester(semester shared.Semester) error {
	if !semester.IsValid() {
		return ErrInvalidSemester
	}

	c.Semester = semester
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// SetCredits меняет кредиты курса. Ноль очищает поле.
func (c *Course) SetCredits(credits Credits) error {
	if !credits.IsValid() {
		return ErrInvalidCredits
	}

	c.Credits = credits
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление курса для логирования.
func (c *Course) String() string {
	return fmt.Sprintf("Course{ID: %s, Code: %s, Title: %s}", c.ID, c.Code, c.Title)
}

// Clone создаёт глубокую копию курса.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

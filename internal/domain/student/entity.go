// Package student содержит доменную модель студента CARPAS.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

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

// RollNo представляет внешний номер зачётки студента (уникальный в колледже).
// Хранится в канонической форме: верхний регистр, без пробелов.
type RollNo string

// IsValid проверяет корректность номера зачётки.
func (r RollNo) IsValid() bool {
	s := string(r)
	return len(s) >= 2 && len(s) <= 32 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление номера.
func (r RollNo) String() string {
	return string(r)
}

// NewRollNo нормализует и валидирует номер зачётки.
func NewRollNo(raw string) (RollNo, error) {
	r := RollNo(shared.NormalizeCode(raw))
	if !r.IsValid() {
		return "", ErrInvalidRollNo
	}
	return r, nil
}

// Email представляет контактный email студента. Пустое значение допустимо.
type Email string

// IsValid проверяет минимальную корректность email.
func (e Email) IsValid() bool {
	s := string(e)
	if s == "" {
		return true
	}
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && len(s) <= 120 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление email.
func (e Email) String() string {
	return string(e)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - сущность студента колледжа.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// RollNo - внешний номер зачётки, уникален в пределах системы.
	RollNo RollNo

	// FullName - полное имя студента.
	FullName string

	// Department - кафедра/направление (например, "CSE").
	Department string

	// Semester - текущий семестр обучения (0 = не указан).
	Semester shared.Semester

	// Email - контактный email (опционально).
	Email Email

	// Phone - контактный телефон (опционально).
	Phone string

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidRollNo - невалидный номер зачётки.
	ErrInvalidRollNo = errors.New("invalid roll number: must be 2-32 chars without whitespace")

	// ErrInvalidFullName - невалидное имя.
	ErrInvalidFullName = errors.New("invalid full name: must be 1-120 chars")

	// ErrInvalidDepartment - невалидное название кафедры.
	ErrInvalidDepartment = errors.New("invalid department: must be at most 80 chars")

	// ErrInvalidSemester - невалидный семестр.
	ErrInvalidSemester = errors.New("invalid semester: must be between 1 and 12")

	// ErrInvalidEmail - невалидный email.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidPhone - невалидный телефон.
	ErrInvalidPhone = errors.New("invalid phone: must be at most 20 chars")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams содержит параметры для создания нового студента.
type NewStudentParams struct {
	ID         string
	RollNo     string
	FullName   string
	Department string
	Semester   shared.Semester
	Email      string
	Phone      string
}

// NewStudent создаёт нового студента с валидацией и нормализацией всех полей.
func NewStudent(params NewStudentParams) (*Student, error) {
	if params.ID == "" {
		return nil, errors.New("student id is required")
	}

	rollNo, err := NewRollNo(params.RollNo)
	if err != nil {
		return nil, err
	}

	fullName := shared.TrimName(params.FullName)
	if len(fullName) == 0 || len(fullName) > 120 {
		return nil, ErrInvalidFullName
	}

	department := shared.TrimName(params.Department)
	if len(department) > 80 {
		return nil, ErrInvalidDepartment
	}

	if !params.Semester.IsValid() {
		return nil, ErrInvalidSemester
	}

	email := Email(strings.TrimSpace(params.Email))
	if !email.IsValid() {
		return nil, ErrInvalidEmail
	}

	phone := strings.TrimSpace(params.Phone)
	if len(phone) > 20 {
		return nil, ErrInvalidPhone
	}

	now := time.Now().UTC()

	return &Student{
		ID:         params.ID,
		RollNo:     rollNo,
		FullName:   fullName,
		Department: department,
		Semester:   params.Semester,
		Email:      email,
		Phone:      phone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// ChangeRollNo меняет номер зачётки (с нормализацией).
// Проверка уникальности нового номера - задача вызывающего слоя.
func (s *Student) ChangeRollNo(raw string) error {
	rollNo, err := NewRollNo(raw)
	if err != nil {
		return err
	}

	s.RollNo = rollNo
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Rename меняет полное имя студента.
func (s *Student) Rename(fullName string) error {
	name := shared.TrimName(fullName)
	if len(name) == 0 || len(name) > 120 {
		return ErrInvalidFullName
	}

	s.FullName = name
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetDepartment меняет кафедру студента. Пустое значение очищает поле.
func (s *Student) SetDepartment(department string) error {
	dept := shared.TrimName(department)
	if len(dept) > 80 {
		return ErrInvalidDepartment
	}

	s.Department = dept
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetSemester меняет текущий семестр. Ноль очищает поле.
func (s *Student) SetSemester(semester shared.Semester) error {
	if !semester.IsValid() {
		return ErrInvalidSemester
	}

	s.Semester = semester
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetContact меняет контактные данные. Пустые значения очищают поля.
func (s *Student) SetContact(email, phone string) error {
	em := Email(strings.TrimSpace(email))
	if !em.IsValid() {
		return ErrInvalidEmail
	}

	ph := strings.TrimSpace(phone)
	if len(ph) > 20 {
		return ErrInvalidPhone
	}

	s.Email = em
	s.Phone = ph
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление студента для логирования.
func (s *Student) String() string {
	return fmt.Sprintf(
		"Student{ID: %s, RollNo: %s, Name: %s, Semester: %d}",
		s.ID, s.RollNo, s.FullName, s.Semester,
	)
}

// Clone создаёт глубокую копию студента.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}

package student

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carpas-edu/carpas/internal/domain/shared"
)

func validParams() NewStudentParams {
	return NewStudentParams{
		ID:         "6a1f6f2e-3a66-4f44-9a6a-1f2a33b44c55",
		RollNo:     "demo-001",
		FullName:   "Aarav Sharma",
		Department: "CSE",
		Semester:   shared.Semester(3),
		Email:      "demo001@example.com",
		Phone:      "+7 700 000 0001",
	}
}

func TestNewStudentNormalizesFields(t *testing.T) {
	params := validParams()
	params.RollNo = "  demo-001 "
	params.FullName = "  Aarav   Sharma "

	s, err := NewStudent(params)
	assert.NoError(t, err)
	assert.Equal(t, RollNo("DEMO-001"), s.RollNo)
	assert.Equal(t, "Aarav Sharma", s.FullName)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)
}

func TestNewStudentValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*NewStudentParams)
		wantErr error
	}{
		{"missing id", func(p *NewStudentParams) { p.ID = "" }, nil},
		{"empty roll no", func(p *NewStudentParams) { p.RollNo = "   " }, ErrInvalidRollNo},
		{"single char roll no", func(p *NewStudentParams) { p.RollNo = "x" }, ErrInvalidRollNo},
		{"empty name", func(p *NewStudentParams) { p.FullName = "  " }, ErrInvalidFullName},
		{"semester out of range", func(p *NewStudentParams) { p.Semester = 13 }, ErrInvalidSemester},
		{"negative semester", func(p *NewStudentParams) { p.Semester = -1 }, ErrInvalidSemester},
		{"email without at", func(p *NewStudentParams) { p.Email = "not-an-email" }, ErrInvalidEmail},
		{"email with space", func(p *NewStudentParams) { p.Email = "a b@example.com" }, ErrInvalidEmail},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)

			s, err := NewStudent(params)
			assert.Error(t, err)
			assert.Nil(t, s)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestNewStudentOptionalFieldsMayBeEmpty(t *testing.T) {
	params := validParams()
	params.Department = ""
	params.Semester = 0
	params.Email = ""
	params.Phone = ""

	s, err := NewStudent(params)
	assert.NoError(t, err)
	assert.Equal(t, Email(""), s.Email)
	assert.False(t, s.Semester.IsSet())
}

func TestChangeRollNoNormalizes(t *testing.T) {
	s, err := NewStudent(validParams())
	assert.NoError(t, err)

	assert.NoError(t, s.ChangeRollNo("cse-2024-17"))
	assert.Equal(t, RollNo("CSE-2024-17"), s.RollNo)

	assert.ErrorIs(t, s.ChangeRollNo(" "), ErrInvalidRollNo)
	// Неудачная смена не должна портить текущее значение.
	assert.Equal(t, RollNo("CSE-2024-17"), s.RollNo)
}

func TestSetContactClearsFields(t *testing.T) {
	s, err := NewStudent(validParams())
	assert.NoError(t, err)

	assert.NoError(t, s.SetContact("", ""))
	assert.Equal(t, Email(""), s.Email)
	assert.Equal(t, "", s.Phone)
}

func TestCloneIsIndependent(t *testing.T) {
	s, err := NewStudent(validParams())
	assert.NoError(t, err)

	clone := s.Clone()
	assert.NoError(t, clone.Rename("Another Name"))
	assert.Equal(t, "Aarav Sharma", s.FullName)
	assert.Equal(t, "Another Name", clone.FullName)
}

func TestListOptionsBuilders(t *testing.T) {
	opts := DefaultListOptions().
		WithLimit(10).
		WithOffset(20).
		WithDepartment("CSE").
		WithSemester(3).
		WithSearch("sharma").
		WithSort("full_name", true)

	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 20, opts.Offset)
	assert.Equal(t, "CSE", opts.Department)
	assert.Equal(t, 3, opts.Semester)
	assert.Equal(t, "sharma", opts.Search)
	assert.Equal(t, "full_name", opts.SortBy)
	assert.True(t, opts.SortDesc)
}

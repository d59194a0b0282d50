package course

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carpas-edu/carpas/internal/domain/shared"
)

func validParams() NewCourseParams {
	return NewCourseParams{
		ID:       "0d5a5b1c-2a3f-45d6-8e7a-9b0c1d2e3f40",
		Code:     "cs301",
		Title:    "Data Structures & Algorithms",
		Semester: shared.Semester(3),
		Credits:  Credits(4),
	}
}

func TestNewCourseNormalizesCode(t *testing.T) {
	params := validParams()
	params.Code = " cs 301 "

	c, err := NewCourse(params)
	assert.NoError(t, err)
	assert.Equal(t, Code("CS301"), c.Code)
	assert.Equal(t, "Data Structures & Algorithms", c.Title)
}

func TestNewCourseValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*NewCourseParams)
		wantErr error
	}{
		{"missing id", func(p *NewCourseParams) { p.ID = "" }, nil},
		{"empty code", func(p *NewCourseParams) { p.Code = "  " }, ErrInvalidCode},
		{"code too long", func(p *NewCourseParams) { p.Code = "ABCDEFGHIJKLMNOPQ" }, ErrInvalidCode},
		{"empty title", func(p *NewCourseParams) { p.Title = " " }, ErrInvalidTitle},
		{"semester out of range", func(p *NewCourseParams) { p.Semester = 99 }, ErrInvalidSemester},
		{"credits out of range", func(p *NewCourseParams) { p.Credits = 11 }, ErrInvalidCredits},
		{"negative credits", func(p *NewCourseParams) { p.Credits = -2 }, ErrInvalidCredits},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)

			c, err := NewCourse(params)
			assert.Error(t, err)
			assert.Nil(t, c)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestNewCourseOptionalFields(t *testing.T) {
	params := validParams()
	params.Semester = 0
	params.Credits = 0

	c, err := NewCourse(params)
	assert.NoError(t, err)
	assert.False(t, c.Semester.IsSet())
	assert.Equal(t, Credits(0), c.Credits)
}

func TestRetitleAndChangeCode(t *testing.T) {
	c, err := NewCourse(validParams())
	assert.NoError(t, err)

	assert.NoError(t, c.ChangeCode("ma301"))
	assert.Equal(t, Code("MA301"), c.Code)

	assert.NoError(t, c.Retitle("  Discrete   Mathematics "))
	assert.Equal(t, "Discrete Mathematics", c.Title)

	assert.ErrorIs(t, c.Retitle(""), ErrInvalidTitle)
	assert.Equal(t, "Discrete Mathematics", c.Title)
}

func TestCourseClone(t *testing.T) {
	c, err := NewCourse(validParams())
	assert.NoError(t, err)

	clone := c.Clone()
	assert.NoError(t, clone.SetCredits(3))
	assert.Equal(t, Credits(4), c.Credits)
	assert.Equal(t, Credits(3), clone.Credits)
}

package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpas-edu/carpas/internal/application/command"
	"github.com/carpas-edu/carpas/internal/application/query"
	"github.com/carpas-edu/carpas/internal/infrastructure/persistence/memory"
	"github.com/carpas-edu/carpas/pkg/logger"
)

func TestSeederRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seeder := NewSeeder(store, logger.Default())

	result, err := seeder.Run(ctx, DefaultSeed)
	require.NoError(t, err)

	assert.Equal(t, len(demoCourses), result.Courses)
	assert.Equal(t, 20, result.Students)
	assert.Equal(t, 20*4, result.Enrollments)
	assert.Equal(t, 20*4*3, result.Marks)
	assert.Equal(t, 0, result.Skipped)
}

func TestSeederIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seeder := NewSeeder(store, logger.Default())

	_, err := seeder.Run(ctx, DefaultSeed)
	require.NoError(t, err)

	second, err := seeder.Run(ctx, DefaultSeed)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Courses)
	assert.Equal(t, 0, second.Students)
	assert.Equal(t, 0, second.Enrollments)
	assert.Equal(t, 0, second.Marks)
	assert.Equal(t, len(demoCourses)+20+20*4, second.Skipped)
}

func TestSeederHealsPartialSeed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	// A previous run that died early: one course and one student made it
	// into the store, nothing else.
	spec := demoCourses[0]
	_, err := command.NewCreateCourseHandler(store).Handle(ctx, command.CreateCourseCommand{
		Code:     spec.Code,
		Title:    spec.Title,
		Semester: spec.Semester,
		Credits:  spec.Credits,
	})
	require.NoError(t, err)
	_, err = command.NewCreateStudentHandler(store).Handle(ctx, command.CreateStudentCommand{
		RollNo:   "DEMO-001",
		FullName: "Aarav Sharma",
		Semester: 3,
	})
	require.NoError(t, err)

	result, err := NewSeeder(store, logger.Default()).Run(ctx, DefaultSeed)
	require.NoError(t, err)

	// The existing records are reused, not lost: every student still ends
	// up with four enrollments, including into the pre-existing course.
	assert.Equal(t, len(demoCourses)-1, result.Courses)
	assert.Equal(t, 19, result.Students)
	assert.Equal(t, 20*4, result.Enrollments)
	assert.Equal(t, 20*4*3, result.Marks)
	assert.Equal(t, 2, result.Skipped)

	perf, err := query.NewGetCoursePerformanceHandler(store).Handle(ctx, query.GetCoursePerformanceQuery{Code: spec.Code})
	require.NoError(t, err)
	assert.Greater(t, perf.EnrolledCount, 0)
}

func TestSeederFlagsAtRiskStudents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seeder := NewSeeder(store, logger.Default())

	_, err := seeder.Run(ctx, DefaultSeed)
	require.NoError(t, err)

	result, err := query.NewFindAtRiskHandler(store).Handle(ctx, query.FindAtRiskQuery{})
	require.NoError(t, err)

	flagged := make(map[string]map[string][]string) // roll -> course -> reasons
	for _, entry := range result.Entries {
		p := entry.Progress
		if flagged[p.RollNo] == nil {
			flagged[p.RollNo] = make(map[string][]string)
		}
		flagged[p.RollNo][p.CourseCode] = entry.Reasons
	}

	// The forced cells must always land in the at-risk group.
	for roll, codes := range lowAttendance {
		for _, code := range codes {
			assert.Contains(t, flagged[roll][code], query.ReasonLowAttendance, "%s in %s", roll, code)
		}
	}
	for roll, codes := range lowMarks {
		for _, code := range codes {
			assert.Contains(t, flagged[roll][code], query.ReasonLowMarks, "%s in %s", roll, code)
		}
	}
}

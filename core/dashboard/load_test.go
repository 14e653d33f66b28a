package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/assignment"
	"github.com/PWRApex/english-prep-companion/core/attendance"
	"github.com/PWRApex/english-prep-companion/core/dashboard"
	"github.com/PWRApex/english-prep-companion/core/exam"
	"github.com/PWRApex/english-prep-companion/core/profile"
	"github.com/PWRApex/english-prep-companion/core/track"
	inmemdb "github.com/PWRApex/english-prep-companion/storage/database/inmem"
	testutil "github.com/PWRApex/english-prep-companion/tests"
)

func sources(env *testutil.Env) (dashboard.Sources, *exam.Service) {
	exams := exam.NewService(env.Deps)
	return dashboard.Sources{
		User:        env.Identity.User,
		Profile:     profile.NewService(env.Deps),
		Exams:       exams,
		Assignments: assignment.NewService(env.Deps),
		Attendance:  attendance.NewService(env.Deps),
		Tracks:      track.NewService(env.Deps),
	}, exams
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	src, exams := sources(env)
	now := time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)

	_, err := exams.Create(ctx, exam.NewExam{Title: "Quiz", Type: exam.Quiz, Date: core.NewDate(2024, time.May, 3), Grade: null.Float64From(80)})
	require.NoError(t, err)
	_, err = exams.Create(ctx, exam.NewExam{Title: "Final", Type: exam.Final, Date: core.NewDate(2024, time.June, 1)})
	require.NoError(t, err)

	summary, err := dashboard.Load(ctx, src, now)
	require.NoError(t, err)
	assert.Equal(t, "Joe Doe", summary.Greeting.Name)
	assert.Equal(t, null.Float64From(80), summary.AverageGrade)
	require.Len(t, summary.UpcomingExams, 1)
	assert.Equal(t, "Final", summary.UpcomingExams[0].Title)
	assert.Equal(t, 0, summary.CourseProgress)
}

func TestLoad_anonymous(t *testing.T) {
	env := testutil.NewEnv(t)
	src, _ := sources(env)
	env.Identity.SignOut()

	summary, err := dashboard.Load(context.Background(), src, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Student", summary.Greeting.Name)
	assert.Empty(t, summary.UpcomingExams)
	assert.False(t, summary.AverageGrade.Valid)
	assert.Equal(t, 0, env.Store.TotalCalls())
}

func TestLoad_remoteFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	src, _ := sources(env)
	env.Store.FailNext(inmemdb.OpSelect, core.NewRemoteError("select", 503, "Service unavailable", nil))

	_, err := dashboard.Load(context.Background(), src, time.Now())
	require.Error(t, err)
	assert.True(t, core.IsRemoteError(err))
}

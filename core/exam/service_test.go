package exam_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/exam"
	inmemdb "github.com/PWRApex/english-prep-companion/storage/database/inmem"
	testutil "github.com/PWRApex/english-prep-companion/tests"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	may1 := core.NewDate(2024, time.May, 1)

	tests := []struct {
		name    string
		ne      exam.NewExam
		wantErr bool
	}{
		{name: "blank title", ne: exam.NewExam{Title: "  ", Type: exam.Quiz, Date: may1}, wantErr: true},
		{name: "unknown type", ne: exam.NewExam{Title: "Unit 1", Type: "oral", Date: may1}, wantErr: true},
		{name: "no date", ne: exam.NewExam{Title: "Unit 1", Type: exam.Quiz}, wantErr: true},
		{name: "grade too high", ne: exam.NewExam{Title: "Unit 1", Type: exam.Quiz, Date: may1, Grade: null.Float64From(101)}, wantErr: true},
		{name: "negative grade", ne: exam.NewExam{Title: "Unit 1", Type: exam.Quiz, Date: may1, Grade: null.Float64From(-1)}, wantErr: true},
		{name: "ungraded", ne: exam.NewExam{Title: "Unit 1", Type: exam.Quiz, Date: may1}},
		{name: "graded", ne: exam.NewExam{Title: " Mid ", Type: exam.Midterm, Date: may1, Grade: null.Float64From(100), Notes: null.StringFrom(" ok ")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			svc := exam.NewService(env.Deps)

			got, err := svc.Create(ctx, tt.ne)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			last := env.Notifications.Last()
			if tt.wantErr {
				assert.True(t, core.IsValidationError(err))
				assert.Equal(t, 0, env.Store.TotalCalls(), "validation failures must not reach the store")
				assert.Equal(t, "Please fill required fields", last.Title)
				assert.True(t, last.Destructive())
				return
			}
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, testutil.Joe.ID, got.UserID)
			assert.Equal(t, core.CleanString(tt.ne.Title), got.Title)
			assert.Equal(t, tt.ne.Grade, got.Grade)
			assert.Equal(t, "Exam added successfully!", last.Title)
			assert.False(t, last.Destructive())
		})
	}
}

func TestService_Create_blankNotesAreNull(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := exam.NewService(env.Deps)

	got, err := svc.Create(context.Background(), exam.NewExam{
		Title: "Quiz 2",
		Type:  exam.Quiz,
		Date:  core.NewDate(2024, time.May, 2),
		Notes: null.StringFrom("   "),
	})
	require.NoError(t, err)
	assert.False(t, got.Notes.Valid)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := exam.NewService(env.Deps)

	for _, d := range []core.Date{
		core.NewDate(2024, time.March, 1),
		core.NewDate(2024, time.June, 1),
		core.NewDate(2024, time.April, 1),
	} {
		_, err := svc.Create(ctx, exam.NewExam{Title: "Exam " + d.String(), Type: exam.Final, Date: d})
		require.NoError(t, err)
	}
	env.Insert(t, "exams", testutil.Jane, map[string]interface{}{
		"exam_title": "Not mine", "exam_type": "quiz", "exam_date": "2024-07-01",
	})

	exams, err := svc.List(ctx)
	require.NoError(t, err)
	var dates []string
	for _, e := range exams {
		dates = append(dates, e.Date.String())
	}
	assert.Equal(t, []string{"2024-06-01", "2024-04-01", "2024-03-01"}, dates)
}

func TestService_SetGrade(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := exam.NewService(env.Deps)

	e, err := svc.Create(ctx, exam.NewExam{Title: "Speaking", Type: exam.Speaking, Date: core.NewDate(2024, time.May, 3)})
	require.NoError(t, err)

	graded, err := svc.SetGrade(ctx, e.ID, null.Float64From(87.5))
	require.NoError(t, err)
	assert.Equal(t, null.Float64From(87.5), graded.Grade)
	assert.Equal(t, "Exam updated successfully!", env.Notifications.Last().Title)

	_, err = svc.SetGrade(ctx, e.ID, null.Float64From(120))
	assert.True(t, core.IsValidationError(err))

	cleared, err := svc.SetGrade(ctx, e.ID, null.Float64{})
	require.NoError(t, err)
	assert.False(t, cleared.Graded())

	exams, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.False(t, exams[0].Graded())
}

func TestService_Update_failure(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := exam.NewService(env.Deps)

	title := "Renamed"
	_, err := svc.Update(ctx, "missing-id", exam.UpdateExam{Title: &title})
	require.Error(t, err)
	assert.True(t, core.IsRemoteError(err))
	last := env.Notifications.Last()
	assert.Equal(t, "Error updating exam", last.Title)
	assert.True(t, last.Destructive())

	var zero core.Date
	_, err = svc.Update(ctx, "missing-id", exam.UpdateExam{Date: &zero})
	assert.True(t, core.IsValidationError(err))
	assert.Equal(t, 1, env.Store.Calls(inmemdb.OpUpdate))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := exam.NewService(env.Deps)

	e, err := svc.Create(ctx, exam.NewExam{Title: "Final", Type: exam.Final, Date: core.NewDate(2024, time.June, 20)})
	require.NoError(t, err)
	_, err = svc.List(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, e.ID))
	assert.Equal(t, "Exam deleted successfully!", env.Notifications.Last().Title)

	exams, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, exams)
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    null.Float64
		wantErr bool
	}{
		{name: "blank", in: "  ", want: null.Float64{}},
		{name: "integer", in: "80", want: null.Float64From(80)},
		{name: "decimal", in: " 72.5 ", want: null.Float64From(72.5)},
		{name: "garbage", in: "A+", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := exam.ParseGrade(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseGrade() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseGrade() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_Label(t *testing.T) {
	assert.Equal(t, "Midterm", exam.Midterm.Label())
	assert.False(t, exam.Type("oral").Valid())
	assert.Len(t, exam.Types, 4)
}

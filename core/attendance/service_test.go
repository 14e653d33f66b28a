package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/attendance"
	testutil "github.com/PWRApex/english-prep-companion/tests"
)

func TestService_Create(t *testing.T) {
	day := core.NewDate(2024, time.April, 8)

	tests := []struct {
		name    string
		na      attendance.NewAttendance
		wantErr bool
	}{
		{name: "defaults", na: attendance.Default(day)},
		{name: "absent", na: attendance.NewAttendance{Date: day, Hours: 3, Status: attendance.Absent}},
		{name: "max hours", na: attendance.NewAttendance{Date: day, Hours: 12}},
		{name: "no hours", na: attendance.NewAttendance{Date: day}, wantErr: true},
		{name: "too many hours", na: attendance.NewAttendance{Date: day, Hours: 13}, wantErr: true},
		{name: "no date", na: attendance.NewAttendance{Hours: 2}, wantErr: true},
		{name: "bad status", na: attendance.NewAttendance{Date: day, Hours: 2, Status: "late"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			svc := attendance.NewService(env.Deps)

			got, err := svc.Create(context.Background(), tt.na)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				assert.Equal(t, 0, env.Store.TotalCalls())
				assert.True(t, env.Notifications.Last().Destructive())
				return
			}
			assert.Equal(t, tt.na.Hours, got.Hours)
			assert.True(t, got.Status.Valid())
			assert.Equal(t, "Attendance recorded!", env.Notifications.Last().Title)
		})
	}
}

func TestService_ListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	svc := attendance.NewService(env.Deps)

	first, err := svc.Create(ctx, attendance.Default(core.NewDate(2024, time.April, 1)))
	require.NoError(t, err)
	_, err = svc.Create(ctx, attendance.Default(core.NewDate(2024, time.April, 2)))
	require.NoError(t, err)

	records, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Date.Day(), "latest first")

	absent := attendance.Absent
	hours := 4
	updated, err := svc.Update(ctx, first.ID, attendance.UpdateAttendance{Status: &absent, Hours: &hours})
	require.NoError(t, err)
	assert.True(t, updated.Absent())
	assert.Equal(t, 4, updated.Hours)
	assert.Equal(t, "Attendance updated!", env.Notifications.Last().Title)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.Equal(t, "Attendance record deleted!", env.Notifications.Last().Title)
	records, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Date.Day())
}

package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/exam"
	"github.com/PWRApex/english-prep-companion/core/session"
	emailsvc "github.com/PWRApex/english-prep-companion/services/email"
)

func newTestConfig(t *testing.T, backend string) *core.Config {
	t.Helper()
	v := viper.New()
	v.Set("backend", backend)
	v.Set("testMode", true)
	v.Set("session.file", filepath.Join(t.TempDir(), "session.json"))
	v.Set("database.engine", "sqlite3")
	v.Set("database.path", filepath.Join(t.TempDir(), "data.db"))
	conf, err := core.NewConfig(v)
	require.NoError(t, err)
	return conf
}

func newTestContainer(t *testing.T, conf *core.Config) (*Container, *emailsvc.ConsoleServiceMock) {
	t.Helper()
	mailer := emailsvc.NewConsoleServiceMock(conf)
	c, err := New(conf, Options{Logger: core.NopLogger{}, Mailer: mailer})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Init(context.Background()))
	return c, mailer
}

func TestContainer(t *testing.T) {
	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })

	for _, backend := range []string{core.BackendMemory, core.BackendSQL} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			c, mailer := newTestContainer(t, newTestConfig(t, backend))

			err := c.Session.SignUp(ctx, session.Registration{Email: "Joe@Test.io", Password: "s3cr3t!!", Name: "Joe Doe"})
			require.NoError(t, err)
			assert.Equal(t, session.Authenticated, c.Session.State())
			assert.Len(t, mailer.SentMessages(), 1)

			// the profile is created on sign up
			p, err := c.Profile.Get(ctx)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "joe@test.io", p.Email)

			_, err = c.Exams.Create(ctx, exam.NewExam{Title: "Unit 3", Type: exam.Quiz, Date: core.NewDate(2024, time.March, 14)})
			require.NoError(t, err)

			sum, err := c.Dashboard(ctx)
			require.NoError(t, err)
			assert.Equal(t, "Joe Doe", sum.Greeting.Name)
			assert.Len(t, sum.UpcomingExams, 1)

			require.NoError(t, c.Session.SignOut(ctx))
			sum, err = c.Dashboard(ctx)
			require.NoError(t, err)
			assert.Empty(t, sum.UpcomingExams)
			assert.NotZero(t, c.Notifications.Len())
		})
	}
}

func TestContainer_sessionPersists(t *testing.T) {
	ctx := context.Background()
	conf := newTestConfig(t, core.BackendSQL)

	c, _ := newTestContainer(t, conf)
	require.NoError(t, c.Session.SignUp(ctx, session.Registration{Email: "jane@test.io", Password: "s3cr3t!!", Name: "Jane"}))
	require.NoError(t, c.Close())

	// a new process restores the session from the session file and reads the same database
	c2, _ := newTestContainer(t, conf)
	usr, ok := c2.Session.User()
	require.True(t, ok)
	assert.Equal(t, "jane@test.io", usr.Email)
	p, err := c2.Profile.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestNew_unknownBackend(t *testing.T) {
	conf := newTestConfig(t, core.BackendMemory)
	conf.Backend = "ftp"
	_, err := New(conf, Options{Logger: core.NopLogger{}})
	assert.EqualError(t, err, `unknown backend "ftp"`)
}

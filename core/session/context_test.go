package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/session"
	testutil "github.com/PWRApex/english-prep-companion/tests"
)

type events struct {
	mu   sync.Mutex
	list []session.Event
}

func (e *events) listen(ev session.Event, _ *session.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, ev)
}

func (e *events) all() []session.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]session.Event(nil), e.list...)
}

type fixture struct {
	ctx           *session.Context
	provider      *testutil.Provider
	notifications *testutil.Notifications
	events        *events
	persister     *session.FilePersister
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		provider:      new(testutil.Provider),
		notifications: new(testutil.Notifications),
		events:        new(events),
		persister:     session.NewFilePersister(filepath.Join(t.TempDir(), "session.json")),
	}
	f.ctx = session.NewContext(session.Options{
		Provider:    f.provider,
		Persister:   f.persister,
		Notifier:    f.notifications,
		Validator:   core.NewValidator(),
		RedirectURL: "http://localhost:8080/reset-password",
	})
	unsubscribe := f.ctx.Subscribe(f.events.listen)
	t.Cleanup(func() {
		unsubscribe()
		_ = f.ctx.Close()
	})
	return f
}

var validCreds = session.Credentials{Email: " Joe@Test.io ", Password: "S3cret!!"}

func TestContext_SignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var gotEmail string
	f.provider.SignInFunc = func(_ context.Context, email, _ string) (*session.Session, error) {
		gotEmail = email
		return testutil.NewSession(testutil.Joe, testutil.JoeToken), nil
	}
	require.NoError(t, f.ctx.SignIn(ctx, validCreds))

	assert.Equal(t, "joe@test.io", gotEmail)
	assert.Equal(t, session.Authenticated, f.ctx.State())
	usr, ok := f.ctx.User()
	assert.True(t, ok)
	assert.Equal(t, testutil.Joe, usr)
	assert.Equal(t, testutil.JoeToken, f.ctx.AccessToken())
	assert.Equal(t, []session.Event{session.EventSignedIn}, f.events.all())

	saved, err := f.persister.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, testutil.JoeToken, saved.AccessToken)
}

func TestContext_SignIn_failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		creds    session.Credentials
		provErr  error
		wantDesc string
		wantCall bool
	}{
		{name: "invalid email", creds: session.Credentials{Email: "joe", Password: "S3cret!!"}, wantDesc: "Please enter a valid email"},
		{name: "short password", creds: session.Credentials{Email: "joe@test.io", Password: "123"}, wantDesc: "Password must be at least 6 characters"},
		{
			name:     "wrong credentials",
			creds:    validCreds,
			provErr:  core.NewRemoteError("sign in", 400, "Invalid login credentials", nil),
			wantDesc: "Wrong email or password. Please try again.",
			wantCall: true,
		},
		{
			name:     "unreachable",
			creds:    validCreds,
			provErr:  core.NewRemoteError("sign in", 0, "connection refused", nil),
			wantDesc: "connection refused",
			wantCall: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var called bool
			f.provider.SignInFunc = func(context.Context, string, string) (*session.Session, error) {
				called = true
				return nil, tt.provErr
			}

			if err := f.ctx.SignIn(ctx, tt.creds); err == nil {
				t.Errorf("SignIn() error = %v, wantErr %v", err, true)
			}
			assert.Equal(t, tt.wantCall, called)
			assert.Equal(t, session.Anonymous, f.ctx.State())
			last := f.notifications.Last()
			assert.Equal(t, tt.wantDesc, last.Description)
			assert.True(t, last.Destructive())
			assert.Empty(t, f.events.all())
		})
	}
}

func TestContext_SignUp(t *testing.T) {
	ctx := context.Background()
	reg := session.Registration{Email: "joe@test.io", Password: "S3cret!!", Name: "Joe Doe"}

	tests := []struct {
		name      string
		reg       session.Registration
		signUp    func(context.Context, string, string, string) (*session.Session, error)
		wantErr   bool
		wantTitle string
		wantDesc  string
		wantState session.State
	}{
		{
			name:      "signed in right away",
			reg:       reg,
			wantTitle: "Welcome!",
			wantDesc:  "Account created successfully!",
			wantState: session.Authenticated,
		},
		{
			name: "confirmation pending",
			reg:  reg,
			signUp: func(context.Context, string, string, string) (*session.Session, error) {
				return nil, nil
			},
			wantTitle: "Welcome!",
			wantDesc:  "Account created successfully!",
			wantState: session.Anonymous,
		},
		{
			name: "already registered",
			reg:  reg,
			signUp: func(context.Context, string, string, string) (*session.Session, error) {
				return nil, core.NewRemoteError("sign up", 422, "User already registered", nil)
			},
			wantErr:   true,
			wantTitle: "Account exists",
			wantDesc:  "This email is already registered. Please sign in.",
		},
		{
			name: "other failure",
			reg:  reg,
			signUp: func(context.Context, string, string, string) (*session.Session, error) {
				return nil, core.NewRemoteError("sign up", 429, "Too many requests", nil)
			},
			wantErr:   true,
			wantTitle: "Sign up failed",
			wantDesc:  "Too many requests",
		},
		{
			name:      "short name",
			reg:       session.Registration{Email: "joe@test.io", Password: "S3cret!!", Name: " J "},
			wantErr:   true,
			wantTitle: "Validation Error",
			wantDesc:  "Name must be at least 2 characters",
		},
		{
			name:      "password like email",
			reg:       session.Registration{Email: "bigbird@test.io", Password: "bigbird1", Name: "Joe Doe"},
			wantErr:   true,
			wantTitle: "Validation Error",
			wantDesc:  "Password cannot be similar to your email or name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.provider.SignUpFunc = tt.signUp

			if err := f.ctx.SignUp(ctx, tt.reg); (err != nil) != tt.wantErr {
				t.Errorf("SignUp() error = %v, wantErr %v", err, tt.wantErr)
			}
			last := f.notifications.Last()
			assert.Equal(t, tt.wantTitle, last.Title)
			assert.Equal(t, tt.wantDesc, last.Description)
			assert.Equal(t, tt.wantState, f.ctx.State())
		})
	}
}

func TestContext_SignOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctx.SignIn(ctx, validCreds))

	f.provider.SignOutFunc = func(context.Context, string) error {
		return core.NewRemoteError("sign out", 0, "connection refused", nil)
	}
	require.NoError(t, f.ctx.SignOut(ctx))
	assert.Equal(t, session.Anonymous, f.ctx.State())
	assert.Equal(t, "", f.ctx.AccessToken())
	assert.Equal(t, []session.Event{session.EventSignedIn, session.EventSignedOut}, f.events.all())

	saved, err := f.persister.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)

	// signing out twice is a no-op
	require.NoError(t, f.ctx.SignOut(ctx))
	assert.Len(t, f.events.all(), 2)
}

func TestContext_ResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var gotEmail, gotRedirect string
	f.provider.ResetPasswordFunc = func(_ context.Context, email, redirectTo string) error {
		gotEmail, gotRedirect = email, redirectTo
		return nil
	}
	require.NoError(t, f.ctx.ResetPassword(ctx, session.PasswordResetRequest{Email: "JOE@test.io"}))
	assert.Equal(t, "joe@test.io", gotEmail)
	assert.Equal(t, "http://localhost:8080/reset-password", gotRedirect)
	assert.Equal(t, session.Anonymous, f.ctx.State(), "reset requests leave the state untouched")
	assert.Equal(t, "Check your email", f.notifications.Last().Title)

	f.provider.ResetPasswordFunc = func(context.Context, string, string) error {
		return core.NewRemoteError("recover", 429, "For security purposes, you can only request this once every 60 seconds", nil)
	}
	require.Error(t, f.ctx.ResetPassword(ctx, session.PasswordResetRequest{Email: "joe@test.io"}))
	assert.Equal(t, "Error", f.notifications.Last().Title)
}

func TestContext_UpdatePassword_requiresRecovery(t *testing.T) {
	ctx := context.Background()
	update := session.PasswordUpdate{Password: "N3wPass!!", PasswordConfirm: "N3wPass!!"}

	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)
		err := f.ctx.UpdatePassword(ctx, update)
		assert.Equal(t, core.ErrRecoveryRequired, err)
		assert.Equal(t, "Invalid or expired link", f.notifications.Last().Title)
	})

	t.Run("regular session", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctx.SignIn(ctx, validCreds))
		var called bool
		f.provider.UpdatePasswordFunc = func(context.Context, string, string) error {
			called = true
			return nil
		}

		err := f.ctx.UpdatePassword(ctx, update)
		assert.Equal(t, core.ErrRecoveryRequired, err)
		assert.False(t, called)
		assert.Equal(t, session.Anonymous, f.ctx.State())
		assert.Equal(t, "Please request a new password reset link.", f.notifications.Last().Description)
	})

	t.Run("invalid link", func(t *testing.T) {
		f := newFixture(t)
		f.provider.VerifyRecoveryFunc = func(context.Context, string) (*session.Session, error) {
			return nil, core.NewRemoteError("verify", 403, "Token has expired or is invalid", nil)
		}
		require.Error(t, f.ctx.BeginRecovery(ctx, "stale-token"))
		assert.Equal(t, session.Anonymous, f.ctx.State())
		assert.Equal(t, "Invalid or expired link", f.notifications.Last().Title)

		assert.Equal(t, core.ErrRecoveryRequired, f.ctx.BeginRecovery(ctx, "  "))
	})
}

func TestContext_Recovery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctx.BeginRecovery(ctx, "reset-token"))
	require.True(t, f.ctx.Session().Recovery)

	tests := []struct {
		name      string
		update    session.PasswordUpdate
		wantErr   bool
		wantTitle string
	}{
		{name: "mismatch", update: session.PasswordUpdate{Password: "N3wPass!!", PasswordConfirm: "N3wPass??"}, wantErr: true, wantTitle: "Passwords do not match"},
		{name: "too short", update: session.PasswordUpdate{Password: "123", PasswordConfirm: "123"}, wantErr: true, wantTitle: "Validation Error"},
		{name: "valid", update: session.PasswordUpdate{Password: "N3wPass!!", PasswordConfirm: "N3wPass!!"}, wantTitle: "Password updated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.ctx.UpdatePassword(ctx, tt.update); (err != nil) != tt.wantErr {
				t.Errorf("UpdatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.wantTitle, f.notifications.Last().Title)
		})
	}

	assert.Equal(t, session.Authenticated, f.ctx.State())
	assert.False(t, f.ctx.Session().Recovery, "the recovery session is spent")
	assert.Equal(t,
		[]session.Event{session.EventPasswordRecovery, session.EventUserUpdated},
		f.events.all())
}

func TestContext_CheckExpiry(t *testing.T) {
	ctx := context.Background()
	expired := testutil.NewSession(testutil.Joe, testutil.JoeToken)
	expired.ExpiresAt = time.Now().Add(-time.Minute)

	tests := []struct {
		name      string
		refresh   func(context.Context, string) (*session.Session, error)
		wantState session.State
		wantEvent session.Event
	}{
		{name: "refreshed", wantState: session.Authenticated, wantEvent: session.EventTokenRefreshed},
		{
			name: "refresh rejected",
			refresh: func(context.Context, string) (*session.Session, error) {
				return nil, errors.New("invalid refresh token")
			},
			wantState: session.Anonymous,
			wantEvent: session.EventExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.persister.Save(expired))
			f.provider.RefreshFunc = tt.refresh

			require.NoError(t, f.ctx.Init(ctx))
			assert.Equal(t, tt.wantState, f.ctx.State())
			assert.Equal(t, []session.Event{tt.wantEvent}, f.events.all())
		})
	}
}

func TestContext_Init_restoresSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.persister.Save(testutil.NewSession(testutil.Jane, testutil.JaneToken)))

	require.NoError(t, f.ctx.Init(ctx))
	usr, ok := f.ctx.User()
	assert.True(t, ok)
	assert.Equal(t, testutil.Jane.ID, usr.ID)
	assert.Empty(t, f.events.all(), "restoring is not a change")
}

func TestContext_Subscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	other := new(events)
	unsubscribe := f.ctx.Subscribe(other.listen)
	require.NoError(t, f.ctx.SignIn(ctx, validCreds))
	unsubscribe()
	unsubscribe() // idempotent
	require.NoError(t, f.ctx.SignOut(ctx))

	assert.Equal(t, []session.Event{session.EventSignedIn}, other.all())
	assert.Len(t, f.events.all(), 2)
}

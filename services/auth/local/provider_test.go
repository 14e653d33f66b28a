package localauth

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/account"
	emailsvc "github.com/PWRApex/english-prep-companion/services/email"
	inmemdb "github.com/PWRApex/english-prep-companion/storage/database/inmem"
)

var testConf = &core.Config{
	AppName:          "English Prep Companion",
	FrontendBaseURL:  "http://localhost:8080",
	DefaultFromEmail: "noreply@test.io",
	Auth: core.AuthConfig{
		SecretKey:                 "test-secret",
		JWTExpirationDelta:        time.Hour,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		RedirectURL:               "http://localhost:8080/reset-password",
	},
}

func newTestProvider(t *testing.T) (*Provider, *emailsvc.ConsoleServiceMock) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	mailer := emailsvc.NewConsoleServiceMock(testConf)
	p := New(Options{
		Accounts: account.NewService(inmemdb.NewAccountRepository(db)),
		Mailer:   mailer,
		Conf:     testConf,
	})
	return p, mailer
}

func TestProvider_SignUpSignIn(t *testing.T) {
	p, mailer := newTestProvider(t)
	ctx := context.Background()

	sess, err := p.SignUp(ctx, "joe@test.io", "correct-horse", "Joe Doe")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "joe@test.io", sess.User.Email)
	assert.Equal(t, "Joe Doe", sess.User.Name)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.False(t, sess.Recovery)

	sent := mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "welcome", sent[0].TemplateName)

	_, err = p.SignUp(ctx, "JOE@test.io", "another-pass", "Joe")
	require.Error(t, err)
	assert.Equal(t, "User already registered", core.Message(err))

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{name: "valid", email: "joe@test.io", password: "correct-horse"},
		{name: "case insensitive email", email: "Joe@Test.io", password: "correct-horse"},
		{name: "wrong password", email: "joe@test.io", password: "wrong-horse", wantErr: true},
		{name: "unknown email", email: "jane@test.io", password: "correct-horse", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.SignIn(ctx, tt.email, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SignIn() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assert.Equal(t, invalidCredentialsMsg, core.Message(err))
				return
			}
			usr, err := p.VerifyToken(got.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, sess.User, usr)
		})
	}
}

func TestProvider_VerifyToken(t *testing.T) {
	p, _ := newTestProvider(t)
	sess, err := p.SignUp(context.Background(), "joe@test.io", "correct-horse", "Joe Doe")
	require.NoError(t, err)

	other := New(Options{Accounts: p.accounts, Conf: &core.Config{Auth: core.AuthConfig{SecretKey: "other", JWTExpirationDelta: time.Hour}}})
	foreign, err := other.issue(account.Account{ID: sess.User.ID}, false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "access token", token: sess.AccessToken},
		{name: "refresh token", token: sess.RefreshToken, wantErr: true},
		{name: "empty", token: "", wantErr: true},
		{name: "garbage", token: "not-a-jwt", wantErr: true},
		{name: "other key", token: foreign.AccessToken, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.VerifyToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !core.IsAuthError(err) {
				t.Errorf("VerifyToken() error = %T, want *core.AuthError", err)
			}
		})
	}
}

func TestProvider_expiry(t *testing.T) {
	p, _ := newTestProvider(t)
	sess, err := p.SignUp(context.Background(), "joe@test.io", "correct-horse", "Joe Doe")
	require.NoError(t, err)

	nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	defer func() { nowFunc = time.Now }()

	_, err = p.VerifyToken(sess.AccessToken)
	require.Error(t, err)
	assert.Equal(t, "JWT expired", core.Message(err))

	refreshed, err := p.Refresh(context.Background(), sess.RefreshToken)
	require.NoError(t, err)
	_, err = p.VerifyToken(refreshed.AccessToken)
	assert.NoError(t, err)

	_, err = p.Refresh(context.Background(), sess.AccessToken)
	assert.Error(t, err)
}

func resetToken(t *testing.T, msg core.EmailMessage) string {
	data, ok := msg.TemplateData.(map[string]interface{})
	require.True(t, ok)
	link, err := url.Parse(data["Link"].(string))
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", link.Path)
	assert.Equal(t, "recovery", link.Query().Get("type"))
	return link.Query().Get("token")
}

func TestProvider_passwordRecovery(t *testing.T) {
	p, mailer := newTestProvider(t)
	ctx := context.Background()
	sess, err := p.SignUp(ctx, "joe@test.io", "correct-horse", "Joe Doe")
	require.NoError(t, err)
	mailer.Reset()

	// a regular session cannot change the password
	err = p.UpdatePassword(ctx, sess.AccessToken, "battery-staple")
	assert.Equal(t, core.ErrRecoveryRequired, err)

	// unknown emails are not reported
	require.NoError(t, p.ResetPassword(ctx, "jane@test.io", testConf.Auth.RedirectURL))
	assert.Empty(t, mailer.SentMessages())

	require.NoError(t, p.ResetPassword(ctx, "joe@test.io", testConf.Auth.RedirectURL))
	sent := mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "password_reset", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, "3 day(s)")
	token := resetToken(t, sent[0])

	for _, bad := range []string{"", "no-dot", "!!!.token", token + "x"} {
		_, err := p.VerifyRecovery(ctx, bad)
		assert.Error(t, err, bad)
	}

	recovery, err := p.VerifyRecovery(ctx, token)
	require.NoError(t, err)
	assert.True(t, recovery.Recovery)
	assert.Empty(t, recovery.RefreshToken)

	require.NoError(t, p.UpdatePassword(ctx, recovery.AccessToken, "battery-staple"))

	// the link is single use
	_, err = p.VerifyRecovery(ctx, token)
	assert.Error(t, err)

	_, err = p.SignIn(ctx, "joe@test.io", "correct-horse")
	assert.Error(t, err)
	_, err = p.SignIn(ctx, "joe@test.io", "battery-staple")
	assert.NoError(t, err)
}

func TestProvider_SignOut(t *testing.T) {
	p, _ := newTestProvider(t)
	sess, err := p.SignUp(context.Background(), "joe@test.io", "correct-horse", "Joe Doe")
	require.NoError(t, err)

	assert.NoError(t, p.SignOut(context.Background(), sess.AccessToken))
	assert.Error(t, p.SignOut(context.Background(), "bogus"))
}

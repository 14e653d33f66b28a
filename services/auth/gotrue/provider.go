// Package gotrue implements session.Provider against the hosted GoTrue auth endpoint.
package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/session"
)

const authPath = "/auth/v1"

var nowFunc = time.Now // mockable

type Provider struct {
	baseURL string
	anonKey string
	client  *rest.Client
	logger  core.Logger
}

var _ session.Provider = (*Provider)(nil) // interface compliance check

// New creates a provider for the project at `projectURL`. A nil httpClient uses http.DefaultClient.
func New(projectURL, anonKey string, httpClient *http.Client, logger core.Logger) *Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Provider{
		baseURL: strings.TrimRight(projectURL, "/") + authPath,
		anonKey: anonKey,
		client:  &rest.Client{HTTPClient: httpClient},
		logger:  logger,
	}
}

func NewFromConfig(conf *core.Config, logger core.Logger) *Provider {
	return New(conf.SupabaseURL, conf.SupabaseAnonKey, nil, logger)
}

type (
	userResponse struct {
		ID           string                 `json:"id"`
		Email        string                 `json:"email"`
		UserMetadata map[string]interface{} `json:"user_metadata"`
	}

	sessionResponse struct {
		AccessToken  string        `json:"access_token"`
		RefreshToken string        `json:"refresh_token"`
		ExpiresIn    int64         `json:"expires_in"`
		ExpiresAt    int64         `json:"expires_at"`
		User         *userResponse `json:"user"`
	}

	// errorResponse covers the error shapes GoTrue answers with.
	errorResponse struct {
		Code             interface{} `json:"code"`
		ErrorCode        string      `json:"error_code"`
		Msg              string      `json:"msg"`
		Message          string      `json:"message"`
		Error            string      `json:"error"`
		ErrorDescription string      `json:"error_description"`
	}
)

func (u userResponse) user() core.User {
	usr := core.User{ID: u.ID, Email: u.Email}
	if name, ok := u.UserMetadata["name"].(string); ok {
		usr.Name = name
	}
	return usr
}

func (r sessionResponse) session() *session.Session {
	sess := &session.Session{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
	if r.User != nil {
		sess.User = r.User.user()
	}
	switch {
	case r.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	case r.ExpiresIn > 0:
		sess.ExpiresAt = nowFunc().UTC().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return sess
}

func (r errorResponse) message() string {
	for _, msg := range []string{r.ErrorDescription, r.Msg, r.Message, r.Error} {
		if msg != "" {
			return msg
		}
	}
	return ""
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	var res sessionResponse
	body := map[string]string{"email": email, "password": password}
	if err := p.do(ctx, "sign in", rest.Post, "/token", "", map[string]string{"grant_type": "password"}, body, &res); err != nil {
		return nil, err
	}
	return res.session(), nil
}

// SignUp returns a nil session when email confirmation is enabled on the project.
func (p *Provider) SignUp(ctx context.Context, email, password, name string) (*session.Session, error) {
	// GoTrue answers with a session, or with the bare user when it still has to be confirmed
	var res struct {
		sessionResponse
		userResponse
	}
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}
	if err := p.do(ctx, "sign up", rest.Post, "/signup", "", nil, body, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, nil
	}
	return res.sessionResponse.session(), nil
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	return p.do(ctx, "sign out", rest.Post, "/logout", accessToken, nil, nil, nil)
}

func (p *Provider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	var params map[string]string
	if redirectTo != "" {
		params = map[string]string{"redirect_to": redirectTo}
	}
	return p.do(ctx, "reset password", rest.Post, "/recover", "", params, map[string]string{"email": email}, nil)
}

func (p *Provider) VerifyRecovery(ctx context.Context, token string) (*session.Session, error) {
	var res sessionResponse
	body := map[string]string{"type": "recovery", "token_hash": token}
	if err := p.do(ctx, "verify recovery", rest.Post, "/verify", "", nil, body, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, &core.AuthError{Message: core.ErrRecoveryRequired.Message}
	}
	sess := res.session()
	sess.Recovery = true
	return sess, nil
}

func (p *Provider) UpdatePassword(ctx context.Context, accessToken, password string) error {
	return p.do(ctx, "update password", rest.Put, "/user", accessToken, nil, map[string]string{"password": password}, nil)
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*session.Session, error) {
	var res sessionResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := p.do(ctx, "refresh session", rest.Post, "/token", "", map[string]string{"grant_type": "refresh_token"}, body, &res); err != nil {
		return nil, err
	}
	return res.session(), nil
}

// do sends one request. Client errors (4xx) become *core.AuthError, everything else *core.RemoteError.
func (p *Provider) do(ctx context.Context, op string, method rest.Method, path, token string, params map[string]string, body, out interface{}) error {
	if token == "" {
		token = p.anonKey
	}
	req := rest.Request{
		Method:  method,
		BaseURL: p.baseURL + path,
		Headers: map[string]string{
			"apikey":        p.anonKey,
			"Authorization": "Bearer " + token,
			"Accept":        "application/json",
		},
		QueryParams: params,
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := p.client.SendWithContext(ctx, req)
	if err != nil {
		p.logger.Warn(op, err)
		return core.NewRemoteError(op, 0, err.Error(), err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return decodeError(op, res)
	}
	if out == nil || strings.TrimSpace(res.Body) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Body), out); err != nil {
		return core.NewRemoteError(op, res.StatusCode, "unexpected response from server", err)
	}
	return nil
}

func decodeError(op string, res *rest.Response) error {
	var body errorResponse
	_ = json.Unmarshal([]byte(res.Body), &body)
	msg := body.message()
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	rErr := &core.RemoteError{Op: op, Status: res.StatusCode, Code: body.ErrorCode, Message: msg}
	if res.StatusCode < http.StatusInternalServerError {
		return &core.AuthError{Message: msg, Err: rErr}
	}
	return rErr
}

// Package localauth implements session.Provider on top of the local account store.
// Access tokens are HS256 JWTs; password reset links carry the account uid and a one-time token.
package localauth

import (
	"context"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/account"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/session"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"

	invalidCredentialsMsg = "Invalid login credentials"
)

var (
	nowFunc                = time.Now // mockable
	refreshExpirationDelta = 7 * 24 * time.Hour

	signingMethod = jwt.SigningMethodHS256

	errInvalidJWT = &core.AuthError{Message: "Invalid JWT"}
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Kind     string `json:"kind"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Recovery bool   `json:"recovery,omitempty"`
}

type Options struct {
	Accounts *account.Service
	Mailer   core.EmailService // optional
	Logger   core.Logger
	Conf     *core.Config
}

type Provider struct {
	accounts  *account.Service
	tokens    *account.TokenGenerator
	mailer    core.EmailService
	logger    core.Logger
	appName   string
	secretKey []byte
	expiry    time.Duration
}

var (
	_ session.Provider     = (*Provider)(nil) // interface compliance check
	_ remote.TokenVerifier = (*Provider)(nil)
)

func New(opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Provider{
		accounts:  opts.Accounts,
		tokens:    account.NewTokenGenerator(opts.Conf.Auth.SecretKey, opts.Conf.Auth.PasswordResetTimeoutDelta),
		mailer:    opts.Mailer,
		logger:    logger,
		appName:   opts.Conf.AppName,
		secretKey: []byte(opts.Conf.Auth.SecretKey),
		expiry:    opts.Conf.Auth.JWTExpirationDelta,
	}
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	acc, err := p.accounts.Authenticate(ctx, email, password)
	if err != nil {
		if err == account.ErrNotFound {
			return nil, &core.AuthError{Message: invalidCredentialsMsg}
		}
		return nil, errors.Wrap(err, "authenticating")
	}
	return p.issue(acc, false)
}

// SignUp creates the account and signs it in right away: there is no email confirmation.
func (p *Provider) SignUp(ctx context.Context, email, password, name string) (*session.Session, error) {
	acc, err := p.accounts.Create(ctx, email, name, password)
	if err != nil {
		if err == account.ErrEmailExists {
			return nil, &core.AuthError{Message: err.Error()}
		}
		return nil, errors.Wrap(err, "creating account")
	}
	p.send(acc, "Welcome!", "welcome", map[string]interface{}{"Name": acc.Name})
	return p.issue(acc, false)
}

// SignOut only checks the token: tokens are stateless and expire on their own.
func (p *Provider) SignOut(_ context.Context, accessToken string) error {
	_, err := p.parse(accessToken, kindAccess)
	return err
}

// ResetPassword succeeds for unknown emails too, so that registered addresses cannot be probed.
func (p *Provider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	acc, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if err == account.ErrNotFound {
			p.logger.Info("password reset requested for unknown email", map[string]interface{}{"email": email})
			return nil
		}
		return errors.Wrap(err, "finding account by email")
	}
	token, err := p.tokens.MakeToken(acc)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	link, err := recoveryLink(redirectTo, account.EncodeUID(acc)+"."+token)
	if err != nil {
		return err
	}
	p.send(acc, "Password Reset", "password_reset", map[string]interface{}{
		"Name":      acc.Name,
		"Link":      link,
		"ValidDays": p.tokens.ValidDays(),
	})
	return nil
}

// VerifyRecovery accepts the `token` query value of a reset link: "<uid>.<token>".
func (p *Provider) VerifyRecovery(ctx context.Context, token string) (*session.Session, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, &core.AuthError{Message: core.ErrRecoveryRequired.Message, Err: account.ErrInvalidToken}
	}
	id, err := account.DecodeUID(parts[0])
	if err != nil {
		return nil, &core.AuthError{Message: core.ErrRecoveryRequired.Message, Err: account.ErrInvalidToken}
	}
	acc, err := p.accounts.GetByID(ctx, id)
	if err != nil {
		if err == account.ErrNotFound {
			return nil, &core.AuthError{Message: core.ErrRecoveryRequired.Message, Err: account.ErrInvalidToken}
		}
		return nil, errors.Wrap(err, "finding account by id")
	}
	if err := p.tokens.VerifyToken(acc, parts[1]); err != nil {
		return nil, &core.AuthError{Message: core.ErrRecoveryRequired.Message, Err: err}
	}
	return p.issue(acc, true)
}

// UpdatePassword is only granted to recovery sessions.
func (p *Provider) UpdatePassword(ctx context.Context, accessToken, password string) error {
	claims, err := p.parse(accessToken, kindAccess)
	if err != nil {
		return err
	}
	if !claims.Recovery {
		return core.ErrRecoveryRequired
	}
	acc, err := p.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding account by id")
	}
	_, err = p.accounts.SetPassword(ctx, acc, password)
	return errors.Wrap(err, "setting password")
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*session.Session, error) {
	claims, err := p.parse(refreshToken, kindRefresh)
	if err != nil {
		return nil, err
	}
	acc, err := p.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if err == account.ErrNotFound {
			return nil, errInvalidJWT
		}
		return nil, errors.Wrap(err, "finding account by id")
	}
	return p.issue(acc, false)
}

// VerifyToken resolves an access token to its user.
func (p *Provider) VerifyToken(token string) (core.User, error) {
	claims, err := p.parse(token, kindAccess)
	if err != nil {
		return core.User{}, err
	}
	return core.User{ID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

func (p *Provider) issue(acc account.Account, recovery bool) (*session.Session, error) {
	now := nowFunc()
	exp := now.Add(p.expiry)

	access, err := p.sign(p.claims(acc, kindAccess, now, exp, recovery))
	if err != nil {
		return nil, err
	}
	sess := &session.Session{
		User:        acc.User(),
		AccessToken: access,
		ExpiresAt:   exp.UTC().Truncate(time.Second),
		Recovery:    recovery,
	}
	// recovery sessions cannot be refreshed
	if !recovery {
		refresh, err := p.sign(p.claims(acc, kindRefresh, now, now.Add(refreshExpirationDelta), false))
		if err != nil {
			return nil, err
		}
		sess.RefreshToken = refresh
	}
	return sess, nil
}

func (p *Provider) claims(acc account.Account, kind string, now, exp time.Time, recovery bool) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    p.appName,
			Subject:   acc.ID,
			ExpiresAt: exp.Unix(),
			IssuedAt:  now.Unix(),
		},
		Kind:     kind,
		Email:    acc.Email,
		Name:     acc.Name,
		Recovery: recovery,
	}
}

// sign generates a signed JWT token string representing the Claims.
func (p *Provider) sign(claims *Claims) (string, error) {
	ss, err := jwt.NewWithClaims(signingMethod, claims).SignedString(p.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (p *Provider) parse(token, kind string) (*Claims, error) {
	if token == "" {
		return nil, errInvalidJWT
	}
	claims := new(Claims)
	parser := jwt.Parser{ValidMethods: []string{signingMethod.Alg()}, SkipClaimsValidation: true}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return p.secretKey, nil
	}); err != nil {
		return nil, &core.AuthError{Message: errInvalidJWT.Message, Err: err}
	}
	if claims.Kind != kind {
		return nil, errInvalidJWT
	}
	if !claims.VerifyExpiresAt(nowFunc().Unix(), true) {
		return nil, &core.AuthError{Message: "JWT expired"}
	}
	return claims, nil
}

func (p *Provider) send(acc account.Account, subject, tmpl string, data map[string]interface{}) {
	if p.mailer == nil {
		return
	}
	p.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.Name, Address: acc.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}

func recoveryLink(redirectTo, token string) (string, error) {
	u, err := url.Parse(redirectTo)
	if err != nil {
		return "", errors.Wrap(err, "parsing redirect url")
	}
	q := u.Query()
	q.Set("type", "recovery")
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
)

var (
	nowFunc       = time.Now // mockable
	refreshLeeway = 30 * time.Second

	invalidCredentialsMsg = "Invalid login credentials"
	alreadyRegisteredMsg  = "already registered"
)

type Options struct {
	Provider    Provider
	Persister   Persister // optional
	Notifier    core.Notifier
	Logger      core.Logger
	Validator   *core.Validator
	RedirectURL string // where password reset links point to
}

// Context is the process-wide auth state. It must be initialized with Init and torn down with Close.
// All methods are safe for concurrent use.
type Context struct {
	provider    Provider
	persister   Persister
	notifier    core.Notifier
	logger      core.Logger
	validator   *core.Validator
	redirectURL string

	mu        sync.RWMutex
	sess      *Session
	listeners map[int]Listener
	nextID    int
}

func NewContext(opts Options) *Context {
	registerValidators(opts.Validator)
	return &Context{
		provider:    opts.Provider,
		persister:   opts.Persister,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		validator:   opts.Validator,
		redirectURL: opts.RedirectURL,
		listeners:   make(map[int]Listener),
	}
}

// Init restores the persisted session, refreshing it when it expired.
func (c *Context) Init(ctx context.Context) error {
	if c.persister == nil {
		return nil
	}
	sess, err := c.persister.Load()
	if err != nil {
		return errors.Wrap(err, "loading session")
	}
	if sess == nil {
		return nil
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	return c.CheckExpiry(ctx)
}

// Close drops every subscriber.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = make(map[int]Listener)
	return nil
}

// Subscribe registers `l` for session changes and returns the function that unregisters it.
func (c *Context) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return Anonymous
	}
	return Authenticated
}

// Session returns a copy of the current session, nil when anonymous.
func (c *Context) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return nil
	}
	sess := *c.sess
	return &sess
}

func (c *Context) User() (core.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return core.User{}, false
	}
	return c.sess.User, true
}

func (c *Context) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.AccessToken
}

func (c *Context) SignIn(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(c.validator); err != nil {
		c.notifyValidation(err)
		return err
	}

	sess, err := c.provider.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		msg := core.Message(err)
		if msg == invalidCredentialsMsg {
			msg = "Wrong email or password. Please try again."
		}
		c.notify(core.Failure("Sign in failed", msg))
		return errors.Wrap(err, "signing in")
	}
	c.setSession(EventSignedIn, sess)
	return nil
}

func (c *Context) SignUp(ctx context.Context, reg Registration) error {
	if err := reg.Validate(c.validator); err != nil {
		c.notifyValidation(err)
		return err
	}

	sess, err := c.provider.SignUp(ctx, reg.Email, reg.Password, reg.Name)
	if err != nil {
		msg := core.Message(err)
		if strings.Contains(msg, alreadyRegisteredMsg) {
			c.notify(core.Failure("Account exists", "This email is already registered. Please sign in."))
		} else {
			c.notify(core.Failure("Sign up failed", msg))
		}
		return errors.Wrap(err, "signing up")
	}
	c.notify(core.Success("Welcome!", "Account created successfully!"))
	if sess != nil {
		c.setSession(EventSignedUp, sess)
	}
	return nil
}

// SignOut always ends the local session, even when the auth service cannot be reached.
func (c *Context) SignOut(ctx context.Context) error {
	token := c.AccessToken()
	if token == "" {
		return nil
	}
	if err := c.provider.SignOut(ctx, token); err != nil {
		c.log().Warn("signing out remotely", err)
	}
	c.setSession(EventSignedOut, nil)
	return nil
}

// ResetPassword requests an out-of-band reset email. The session state is left untouched.
func (c *Context) ResetPassword(ctx context.Context, req PasswordResetRequest) error {
	if err := req.Validate(c.validator); err != nil {
		c.notifyValidation(err)
		return err
	}
	if err := c.provider.ResetPassword(ctx, req.Email, c.redirectURL); err != nil {
		c.notify(core.Failure("Error", core.Message(err)))
		return errors.Wrap(err, "requesting password reset")
	}
	c.notify(core.Success("Check your email", "We sent you a password reset link."))
	return nil
}

// BeginRecovery exchanges the token of a reset link for a recovery session.
func (c *Context) BeginRecovery(ctx context.Context, token string) error {
	token = core.CleanString(token)
	if token == "" {
		return c.rejectRecovery()
	}
	sess, err := c.provider.VerifyRecovery(ctx, token)
	if err != nil {
		c.log().Info("verifying recovery token", err)
		_ = c.rejectRecovery()
		return errors.Wrap(err, "verifying recovery token")
	}
	sess.Recovery = true
	c.setSession(EventPasswordRecovery, sess)
	return nil
}

// UpdatePassword sets a new password. Only recovery sessions may do so: without one the context
// falls back to anonymous and ErrRecoveryRequired is returned.
func (c *Context) UpdatePassword(ctx context.Context, pu PasswordUpdate) error {
	sess := c.Session()
	if sess == nil || !sess.Recovery {
		return c.rejectRecovery()
	}

	if err := pu.Validate(c.validator); err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) && len(vErr.Fields) > 0 && vErr.Fields[0].Field == "password_confirm" {
			c.notify(core.Failure("Passwords do not match", "Please make sure both passwords are the same."))
		} else {
			c.notifyValidation(err)
		}
		return err
	}

	if err := c.provider.UpdatePassword(ctx, sess.AccessToken, pu.Password); err != nil {
		c.notify(core.Failure("Error", core.Message(err)))
		return errors.Wrap(err, "updating password")
	}
	c.notify(core.Success("Password updated", "Your password has been successfully updated."))
	sess.Recovery = false
	c.setSession(EventUserUpdated, sess)
	return nil
}

// CheckExpiry refreshes a session about to expire. A session that cannot be refreshed
// once expired falls back to anonymous.
func (c *Context) CheckExpiry(ctx context.Context) error {
	sess := c.Session()
	if sess == nil {
		return nil
	}
	now := nowFunc()
	if !sess.Expired(now.Add(refreshLeeway)) {
		return nil
	}

	if sess.RefreshToken != "" && !sess.Recovery {
		refreshed, err := c.provider.Refresh(ctx, sess.RefreshToken)
		if err == nil {
			c.setSession(EventTokenRefreshed, refreshed)
			return nil
		}
		c.log().Info("refreshing session", err)
	}
	if sess.Expired(now) {
		c.setSession(EventExpired, nil)
		c.notify(core.Failure("Session expired", "Please sign in again."))
	}
	return nil
}

func (c *Context) rejectRecovery() error {
	if c.State() == Authenticated {
		c.setSession(EventSignedOut, nil)
	}
	c.notify(core.Failure("Invalid or expired link", "Please request a new password reset link."))
	return core.ErrRecoveryRequired
}

func (c *Context) setSession(event Event, sess *Session) {
	c.mu.Lock()
	c.sess = sess
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	c.persist(sess)
	for _, l := range listeners {
		var cp *Session
		if sess != nil {
			s := *sess
			cp = &s
		}
		l(event, cp)
	}
}

func (c *Context) persist(sess *Session) {
	if c.persister == nil {
		return
	}
	var err error
	if sess == nil {
		err = c.persister.Clear()
	} else {
		err = c.persister.Save(sess)
	}
	if err != nil {
		c.log().Error("persisting session", err)
	}
}

func (c *Context) notifyValidation(err error) {
	c.notify(core.Failure("Validation Error", core.Message(err)))
}

func (c *Context) notify(n core.Notification) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

func (c *Context) log() core.Logger {
	if c.logger == nil {
		return core.NopLogger{}
	}
	return c.logger
}

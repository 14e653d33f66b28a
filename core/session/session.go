// Package session holds the process-wide authentication state.
package session

import (
	"context"
	"time"

	"github.com/PWRApex/english-prep-companion/core"
)

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Events delivered to subscribers.
type Event string

const (
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedUp         Event = "SIGNED_UP"
	EventSignedOut        Event = "SIGNED_OUT"
	EventExpired          Event = "EXPIRED"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
	EventUserUpdated      Event = "USER_UPDATED"
)

// Listener is called after every session change with the new session (nil when anonymous).
type Listener func(event Event, sess *Session)

// Session is an authenticated session. Recovery sessions are granted by a password reset link
// and are the only ones allowed to set a new password.
type Session struct {
	User         core.User `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Recovery     bool      `json:"recovery,omitempty"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Provider is the auth service.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp returns a nil session when the account still has to be confirmed by email.
	SignUp(ctx context.Context, email, password, name string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// ResetPassword sends an out-of-band email holding a recovery link to `redirectTo`.
	ResetPassword(ctx context.Context, email, redirectTo string) error
	// VerifyRecovery exchanges the token of a recovery link for a recovery session.
	VerifyRecovery(ctx context.Context, token string) (*Session, error)
	UpdatePassword(ctx context.Context, accessToken, password string) error
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// Persister keeps the session across process restarts.
type Persister interface {
	Load() (*Session, error)
	Save(sess *Session) error
	Clear() error
}

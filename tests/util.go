// Package testutil holds the fixtures shared by the tests of every layer.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/cache"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/resource"
	"github.com/PWRApex/english-prep-companion/core/session"
	inmemdb "github.com/PWRApex/english-prep-companion/storage/database/inmem"
)

var (
	Joe      = core.User{ID: "6f6a8c52-2b1e-4d3f-9c0a-5e7b1d2f3a41", Email: "joe@test.io", Name: "Joe Doe"}
	JoeToken = "joe-access-token"

	Jane      = core.User{ID: "a1d4e7f0-8c3b-4b2a-b6e5-9f0c1d2e3b52", Email: "jane@test.io", Name: "Jane"}
	JaneToken = "jane-access-token"
)

// Notifications records every notification it receives.
type Notifications struct {
	mu   sync.Mutex
	list []core.Notification
}

var _ core.Notifier = (*Notifications)(nil) // interface compliance check

func (n *Notifications) Notify(notif core.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notif)
}

func (n *Notifications) All() []core.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Notification(nil), n.list...)
}

// Last returns the latest notification, a zero one when there is none.
func (n *Notifications) Last() core.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return core.Notification{}
	}
	return n.list[len(n.list)-1]
}

func (n *Notifications) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = nil
}

// Identity is a session that tests switch explicitly.
type Identity struct {
	mu    sync.RWMutex
	usr   core.User
	token string
}

func (id *Identity) User() (core.User, bool) {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.usr, !id.usr.IsZero()
}

func (id *Identity) AccessToken() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.token
}

func (id *Identity) SignIn(usr core.User, token string) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.usr, id.token = usr, token
}

func (id *Identity) SignOut() { id.SignIn(core.User{}, "") }

// Verifier resolves the fixture tokens.
type Verifier map[string]core.User

func (v Verifier) VerifyToken(token string) (core.User, error) {
	if usr, ok := v[token]; ok {
		return usr, nil
	}
	return core.User{}, core.ErrNotAuthenticated
}

// Env is an in-memory stack signed in as Joe.
type Env struct {
	DB            *inmemdb.DB
	Store         *inmemdb.Store
	Cache         *cache.Cache
	Identity      *Identity
	Notifications *Notifications
	Deps          resource.Deps
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	env := &Env{
		DB:            db,
		Store:         inmemdb.NewStore(db, Verifier{JoeToken: Joe, JaneToken: Jane}),
		Cache:         cache.New(time.Minute),
		Identity:      new(Identity),
		Notifications: new(Notifications),
	}
	env.Identity.SignIn(Joe, JoeToken)
	env.Deps = resource.Deps{
		Store:     env.Store,
		Cache:     env.Cache,
		Identity:  env.Identity,
		Notifier:  env.Notifications,
		Validator: core.NewValidator(),
	}
	return env
}

// Insert stores `row` for `owner` directly, bypassing services and caches.
func (env *Env) Insert(t *testing.T, table string, owner core.User, row remote.Row) remote.Row {
	t.Helper()
	token := JoeToken
	if owner.ID == Jane.ID {
		token = JaneToken
	}
	row[remote.OwnerColumn(table)] = owner.ID
	created, err := env.Store.Insert(context.Background(), token, table, row)
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	return created
}

// Provider is an auth provider whose behaviour is set per test. Unset funcs succeed.
type Provider struct {
	SignInFunc         func(ctx context.Context, email, password string) (*session.Session, error)
	SignUpFunc         func(ctx context.Context, email, password, name string) (*session.Session, error)
	SignOutFunc        func(ctx context.Context, accessToken string) error
	ResetPasswordFunc  func(ctx context.Context, email, redirectTo string) error
	VerifyRecoveryFunc func(ctx context.Context, token string) (*session.Session, error)
	UpdatePasswordFunc func(ctx context.Context, accessToken, password string) error
	RefreshFunc        func(ctx context.Context, refreshToken string) (*session.Session, error)
}

var _ session.Provider = (*Provider)(nil) // interface compliance check

// NewSession returns a session of `usr` valid for an hour.
func NewSession(usr core.User, token string) *session.Session {
	return &session.Session{
		User:         usr,
		AccessToken:  token,
		RefreshToken: token + "-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	if p.SignInFunc != nil {
		return p.SignInFunc(ctx, email, password)
	}
	return NewSession(Joe, JoeToken), nil
}

func (p *Provider) SignUp(ctx context.Context, email, password, name string) (*session.Session, error) {
	if p.SignUpFunc != nil {
		return p.SignUpFunc(ctx, email, password, name)
	}
	return NewSession(core.User{ID: Joe.ID, Email: email, Name: name}, JoeToken), nil
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	if p.SignOutFunc != nil {
		return p.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (p *Provider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	if p.ResetPasswordFunc != nil {
		return p.ResetPasswordFunc(ctx, email, redirectTo)
	}
	return nil
}

func (p *Provider) VerifyRecovery(ctx context.Context, token string) (*session.Session, error) {
	if p.VerifyRecoveryFunc != nil {
		return p.VerifyRecoveryFunc(ctx, token)
	}
	return NewSession(Joe, JoeToken), nil
}

func (p *Provider) UpdatePassword(ctx context.Context, accessToken, password string) error {
	if p.UpdatePasswordFunc != nil {
		return p.UpdatePasswordFunc(ctx, accessToken, password)
	}
	return nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*session.Session, error) {
	if p.RefreshFunc != nil {
		return p.RefreshFunc(ctx, refreshToken)
	}
	return NewSession(Joe, JoeToken), nil
}

// Package di wires the services of one process for the configured backend.
package di

import (
	"context"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/account"
	"github.com/PWRApex/english-prep-companion/core/assignment"
	"github.com/PWRApex/english-prep-companion/core/attendance"
	"github.com/PWRApex/english-prep-companion/core/cache"
	"github.com/PWRApex/english-prep-companion/core/dashboard"
	"github.com/PWRApex/english-prep-companion/core/exam"
	"github.com/PWRApex/english-prep-companion/core/profile"
	"github.com/PWRApex/english-prep-companion/core/remote"
	"github.com/PWRApex/english-prep-companion/core/resource"
	"github.com/PWRApex/english-prep-companion/core/session"
	"github.com/PWRApex/english-prep-companion/core/track"
	"github.com/PWRApex/english-prep-companion/services/auth/gotrue"
	localauth "github.com/PWRApex/english-prep-companion/services/auth/local"
	emailsvc "github.com/PWRApex/english-prep-companion/services/email"
	logsvc "github.com/PWRApex/english-prep-companion/services/logger"
	notifysvc "github.com/PWRApex/english-prep-companion/services/notify"
	"github.com/PWRApex/english-prep-companion/services/scheduler"
	reststore "github.com/PWRApex/english-prep-companion/storage/rest"
	"github.com/PWRApex/english-prep-companion/storage/database"
	inmemdb "github.com/PWRApex/english-prep-companion/storage/database/inmem"
	sqlxrepos "github.com/PWRApex/english-prep-companion/storage/database/sqlx"
)

var nowFunc = time.Now // mockable

type Options struct {
	Logger    core.Logger        // defaults to logsvc.New on stderr
	LogOutput io.Writer          // used by the default logger
	Notifier  core.Notifier      // optional sink next to the notification queue
	Persister session.Persister  // defaults to the session file
	Mailer    core.EmailService  // local auth only; defaults to emailsvc.NewService
	Provider  session.Provider   // overrides the backend provider
	Store     remote.Store       // overrides the backend store
	Accounts  account.Repository // local auth only; overrides the backend repository
}

// Container holds every service of the process. Init restores the session, Close releases it all.
type Container struct {
	Conf          *core.Config
	Logger        core.Logger
	Validator     *core.Validator
	Cache         *cache.Cache
	Notifications *notifysvc.Queue
	Session       *session.Context
	Store         remote.Store
	Provider      session.Provider
	DB            *sqlx.DB // sql backend only

	Profile     *profile.Service
	Exams       *exam.Service
	Assignments *assignment.Service
	Attendance  *attendance.Service
	Tracks      *track.Service

	scheduler *scheduler.Scheduler
	closers   []func() error
}

func New(conf *core.Config, opts Options) (*Container, error) {
	c := &Container{
		Conf:          conf,
		Logger:        opts.Logger,
		Validator:     core.NewValidator(),
		Cache:         cache.New(conf.CacheStaleTime),
		Notifications: notifysvc.NewQueue(conf.NotificationTTL),
	}
	if c.Logger == nil {
		c.Logger = logsvc.New(conf, opts.LogOutput)
	}
	if err := c.setUpBackend(opts); err != nil {
		_ = c.Close()
		return nil, err
	}

	var notifier core.Notifier = c.Notifications
	if opts.Notifier != nil {
		notifier = notifysvc.Multi{c.Notifications, opts.Notifier}
	}
	persister := opts.Persister
	if persister == nil && conf.SessionFile != "" {
		persister = session.NewFilePersister(conf.SessionFile)
	}
	c.Session = session.NewContext(session.Options{
		Provider:    c.Provider,
		Persister:   persister,
		Notifier:    notifier,
		Logger:      c.Logger,
		Validator:   c.Validator,
		RedirectURL: conf.Auth.RedirectURL,
	})

	deps := resource.Deps{
		Store:     c.Store,
		Cache:     c.Cache,
		Identity:  c.Session,
		Notifier:  notifier,
		Validator: c.Validator,
		Logger:    c.Logger,
	}
	c.Profile = profile.NewService(deps)
	c.Exams = exam.NewService(deps)
	c.Assignments = assignment.NewService(deps)
	c.Attendance = attendance.NewService(deps)
	c.Tracks = track.NewService(deps)

	c.Session.Subscribe(c.onSessionChange)
	return c, nil
}

func (c *Container) setUpBackend(opts Options) error {
	if opts.Store != nil && opts.Provider != nil {
		c.Store, c.Provider = opts.Store, opts.Provider
		return nil
	}

	if c.Conf.Backend == core.BackendREST {
		c.Provider = gotrue.NewFromConfig(c.Conf, c.Logger)
		c.Store = reststore.NewFromConfig(c.Conf, c.Logger)
		return c.override(opts)
	}

	accounts := opts.Accounts
	var newStore func(verifier remote.TokenVerifier) remote.Store
	switch c.Conf.Backend {
	case core.BackendSQL:
		if err := database.CreateIfNotExist(c.Conf); err != nil {
			return errors.Wrap(err, "creating database")
		}
		db, err := database.Open(c.Conf)
		if err != nil {
			return errors.Wrap(err, "opening database")
		}
		c.DB = db
		c.closers = append(c.closers, db.Close)
		if err := database.Migrate(db); err != nil {
			return err
		}
		if accounts == nil {
			accounts = sqlxrepos.NewAccountRepository(db)
		}
		newStore = func(v remote.TokenVerifier) remote.Store { return sqlxrepos.NewStore(db, v, c.Logger) }
	case core.BackendMemory:
		db, err := inmemdb.Open()
		if err != nil {
			return errors.Wrap(err, "opening in-memory database")
		}
		if accounts == nil {
			accounts = inmemdb.NewAccountRepository(db)
		}
		newStore = func(v remote.TokenVerifier) remote.Store { return inmemdb.NewStore(db, v) }
	default:
		return errors.Errorf("unknown backend %q", c.Conf.Backend)
	}

	mailer := opts.Mailer
	if mailer == nil {
		mailer = emailsvc.NewService(c.Conf, c.Logger)
	}
	provider := localauth.New(localauth.Options{
		Accounts: account.NewService(accounts),
		Mailer:   mailer,
		Logger:   c.Logger,
		Conf:     c.Conf,
	})
	c.Provider = provider
	c.Store = newStore(provider)
	return c.override(opts)
}

func (c *Container) override(opts Options) error {
	if opts.Store != nil {
		c.Store = opts.Store
	}
	if opts.Provider != nil {
		c.Provider = opts.Provider
	}
	return nil
}

// onSessionChange creates the profile row of new accounts on stacks without a server trigger,
// and drops the cached lists of the previous user.
func (c *Container) onSessionChange(event session.Event, sess *session.Session) {
	switch event {
	case session.EventSignedOut, session.EventExpired:
		c.Cache.Clear()
	case session.EventSignedUp, session.EventSignedIn:
		if c.Conf.Backend == core.BackendREST || sess == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := c.Profile.Ensure(ctx); err != nil {
			c.Logger.Warn("creating profile", err, sess.User)
		}
	}
}

// Init restores the persisted session.
func (c *Container) Init(ctx context.Context) error {
	return c.Session.Init(ctx)
}

// StartScheduler checks the session expiry in the background until Close.
func (c *Container) StartScheduler() error {
	if c.scheduler != nil {
		return nil
	}
	c.scheduler = scheduler.New(c.Session, c.Conf.SessionCheckInterval, c.Logger)
	if err := c.scheduler.Start(); err != nil {
		c.scheduler = nil
		return err
	}
	return nil
}

func (c *Container) Dashboard(ctx context.Context) (dashboard.Summary, error) {
	return dashboard.Load(ctx, dashboard.Sources{
		User:        c.Session.User,
		Profile:     c.Profile,
		Exams:       c.Exams,
		Assignments: c.Assignments,
		Attendance:  c.Attendance,
		Tracks:      c.Tracks,
	}, nowFunc())
}

func (c *Container) Close() error {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	var firstErr error
	if c.Session != nil {
		firstErr = c.Session.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

// Package database opens and migrates the local SQL database (postgres or sqlite3).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/PWRApex/english-prep-companion/assets"
	"github.com/PWRApex/english-prep-companion/core"
)

// Engines
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

var (
	pingAttempts = 30
	pingDelay    = 100 * time.Millisecond

	migrateFunc  = goose.Up         // mockable
	gooseRunFunc = goose.RunContext // mockable
)

func dataSourceName(dbName string, conf *core.Config) (string, error) {
	switch conf.Database.Engine {
	case Postgres:
		sslMode := "require"
		if conf.Database.DisableTLS {
			sslMode = "disable"
		}
		q := make(url.Values)
		q.Set("sslmode", sslMode)
		q.Set("timezone", "utc")

		u := url.URL{
			Scheme:   Postgres,
			User:     url.UserPassword(conf.Database.User, conf.Database.Password),
			Host:     conf.Database.Address(),
			Path:     dbName,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	case SQLite:
		if conf.Database.Path == "" {
			return "", errors.New("database path is required with sqlite3")
		}
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", conf.Database.Path), nil
	}
	return "", errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func open(dbName string, conf *core.Config) (*sqlx.DB, error) {
	dsn, err := dataSourceName(dbName, conf)
	if err != nil {
		return nil, err
	}
	if conf.Database.Engine == SQLite {
		if err := os.MkdirAll(filepath.Dir(conf.Database.Path), 0o700); err != nil {
			return nil, errors.Wrap(err, "creating database dir")
		}
	}
	db, err := sqlx.Open(conf.Database.Engine, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.Database.Engine == SQLite {
		db.SetMaxOpenConns(1) // sqlite allows a single writer
	}
	return db, nil
}

// Open connects to the configured database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, conf)
	if err != nil {
		return nil, err
	}
	if err := ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits `pingDelay` longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	for attempts := 1; attempts <= pingAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * pingDelay)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func createDB(db *sqlx.DB, name string) error {
	var exists bool
	if err := db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name); err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		// identifiers cannot be bound
		if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %q", name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres database. sqlite3 databases are created on open.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != Postgres {
		return nil
	}
	db, err := open("postgres", conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := ping(db.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	return createDB(db, conf.Database.Name)
}

func setUpGoose(db *sqlx.DB) error {
	goose.SetBaseFS(assets.FS)
	return errors.Wrap(goose.SetDialect(db.DriverName()), "setting migration dialect")
}

// Migrate applies the embedded migrations.
func Migrate(db *sqlx.DB) error {
	if err := setUpGoose(db); err != nil {
		return err
	}
	if err := migrateFunc(db.DB, assets.MigrationsDir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// RunMigrations runs a goose command (up, down, status, version, redo, reset...) on the embedded migrations.
func RunMigrations(ctx context.Context, db *sqlx.DB, command string, args ...string) error {
	if err := setUpGoose(db); err != nil {
		return err
	}
	return gooseRunFunc(ctx, command, db.DB, assets.MigrationsDir, args...)
}

// Package sqlxrepos holds the repositories backed by a SQL database through sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core/account"
)

// accountRow maps the accounts table; last_login is NULL until the first sign in.
type accountRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func newAccountRow(acc account.Account) accountRow {
	row := accountRow{
		ID:           acc.ID,
		Email:        acc.Email,
		Name:         acc.Name,
		PasswordHash: string(acc.PasswordHash),
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
	}
	if !acc.LastLogin.IsZero() {
		row.LastLogin = null.TimeFrom(acc.LastLogin.UTC())
	}
	return row
}

func (row accountRow) account() account.Account {
	return account.Account{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	q := `INSERT INTO accounts (id, email, name, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :email, :name, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, newAccountRow(acc)); err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return repo.GetAccountByID(ctx, acc.ID)
}

func (repo *accountRepository) get(ctx context.Context, col, val string) (account.Account, error) {
	var row accountRow
	q := repo.db.Rebind("SELECT * FROM accounts WHERE " + col + " = ?")
	if err := repo.db.GetContext(ctx, &row, q, val); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrapf(err, "selecting account by %s", col)
	}
	return row.account(), nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	return repo.get(ctx, "id", id)
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return repo.get(ctx, "email", email)
}

// UpdateAccount only saves set fields, the same way the in-memory repository does.
func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	orig, err := repo.GetAccountByID(ctx, acc.ID)
	if err != nil {
		return account.Account{}, err
	}
	if acc.PasswordHash != nil {
		orig.PasswordHash = acc.PasswordHash
	}
	if acc.Name != "" {
		orig.Name = acc.Name
	}
	if !acc.LastLogin.IsZero() {
		orig.LastLogin = acc.LastLogin
	}
	if !acc.UpdatedAt.IsZero() {
		orig.UpdatedAt = acc.UpdatedAt
	}

	q := `UPDATE accounts SET name = :name, password_hash = :password_hash, updated_at = :updated_at,
		last_login = :last_login WHERE id = :id`
	if _, err := repo.db.NamedExecContext(ctx, q, newAccountRow(orig)); err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	return repo.GetAccountByID(ctx, acc.ID)
}

// isUniqueViolation matches the unique constraint errors of both postgres and sqlite3.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

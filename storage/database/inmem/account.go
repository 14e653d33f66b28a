package inmemdb

import (
	"context"
	"sync"

	"github.com/PWRApex/english-prep-companion/core/account"
)

type (
	accountRow = account.Account

	accountTable struct {
		sync.RWMutex
		table map[string]*accountRow // {id: account}
	}

	accountRepository struct {
		db *accountTable
	}
)

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.accounts}
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.table {
		if a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	repo.db.table[acc.ID] = &acc
	return acc, nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, id string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acc, ok := repo.db.table[id]; ok {
		return *acc, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, email string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acc := range repo.db.table {
		if acc.Email == email {
			return *acc, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origAcc, ok := repo.db.table[acc.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if acc.PasswordHash != nil {
		origAcc.PasswordHash = acc.PasswordHash
	}
	if acc.Name != "" {
		origAcc.Name = acc.Name
	}
	if !acc.LastLogin.IsZero() {
		origAcc.LastLogin = acc.LastLogin
	}
	if !acc.UpdatedAt.IsZero() {
		origAcc.UpdatedAt = acc.UpdatedAt
	}
	return *origAcc, nil
}

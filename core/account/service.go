package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/PWRApex/english-prep-companion/core"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("User already registered")
)

type (
	Repository interface {
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new account. Emails are unique, case-insensitively.
func (svc *Service) Create(ctx context.Context, email, name, pwd string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if _, err := svc.repo.GetAccountByEmail(ctx, email); err == nil {
		return Account{}, ErrEmailExists
	} else if err != ErrNotFound {
		return Account{}, err
	}

	now := time.Now().UTC()
	acc := Account{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      core.CleanString(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, err
	}
	return svc.repo.CreateAccount(ctx, acc)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	if err := acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrNotFound
	}
	acc.LastLogin = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) SetPassword(ctx context.Context, acc Account, pwd string) (Account, error) {
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, err
	}
	acc.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

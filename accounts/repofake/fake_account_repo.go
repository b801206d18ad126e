package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tasklane/identity/accounts"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

// FakeAccountRepo is an in-memory accounts.Repo for tests.
type FakeAccountRepo struct {
	lock     sync.RWMutex
	accounts map[string]*accounts.Account
	emailIDs map[string]string // email to account id
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*accounts.Account),
		emailIDs: make(map[string]string),
	}
}

func (ar *FakeAccountRepo) Create(_ context.Context, account *accounts.Account) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	cp := *account
	ar.accounts[cp.ID] = &cp
	ar.emailIDs[cp.Email] = cp.ID
	return nil
}

func (ar *FakeAccountRepo) GetByEmail(_ context.Context, email string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.emailIDs[email]
	if !ok {
		return nil, accounts.NotFoundErr
	}
	cp := *ar.accounts[id]
	return &cp, nil
}

func (ar *FakeAccountRepo) GetByID(_ context.Context, id string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	account, ok := ar.accounts[id]
	if !ok {
		return nil, accounts.NotFoundErr
	}
	cp := *account
	return &cp, nil
}

func (ar *FakeAccountRepo) SetVerified(_ context.Context, id string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	account, ok := ar.accounts[id]
	if !ok {
		return accounts.NotFoundErr
	}
	account.EmailVerified = true
	account.VerificationStatus = accounts.VerificationVerified
	return nil
}

func (ar *FakeAccountRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	account, ok := ar.accounts[id]
	if !ok {
		return accounts.NotFoundErr
	}
	account.LastLogin = at
	return nil
}

func (ar *FakeAccountRepo) UpdateImageRef(_ context.Context, id, imageRef string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	account, ok := ar.accounts[id]
	if !ok {
		return accounts.NotFoundErr
	}
	account.ImageRef = imageRef
	return nil
}

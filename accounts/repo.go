package accounts

import (
	"context"
	"errors"
	"time"
)

var NotFoundErr = errors.New("account not found")

type Repo interface {
	Create(ctx context.Context, account *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	// SetVerified flips the email-ownership invariant. It must be idempotent:
	// verifying an already-verified account is a no-op success.
	SetVerified(ctx context.Context, id string) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateImageRef(ctx context.Context, id, imageRef string) error
}

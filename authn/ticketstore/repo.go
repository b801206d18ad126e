// Package ticketstore holds encrypted pending-authentication tickets for
// the gap between a successful password check and MFA step-up completion.
package ticketstore

import (
	"context"
	"errors"
	"time"
)

var NotFoundErr = errors.New("pending ticket not found")

// Ticket is an opaque encrypted blob; the store never sees the plaintext.
type Ticket struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
}

type Repo interface {
	Save(ctx context.Context, id string, ticket Ticket, ttl time.Duration) error
	// Peek reads a ticket without consuming it. The ticket stays live so a
	// mistyped code does not kill the attempt; single-use is enforced by
	// the secret consume, not here.
	Peek(ctx context.Context, id string) (Ticket, error)
	// Delete discards a ticket once its attempt reached a terminal outcome.
	Delete(ctx context.Context, id string) error
}

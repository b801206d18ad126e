package ticketstore

import (
	"context"
	"sync"
	"time"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is the ticket store used in tests.
type InMemoryRepo struct {
	lock    sync.Mutex
	tickets map[string]inMemoryEntry
	nowTime func() time.Time
}

type inMemoryEntry struct {
	ticket    Ticket
	expiresAt time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		tickets: make(map[string]inMemoryEntry),
		nowTime: time.Now,
	}
}

// SetNowTime swaps the clock (primarily for expiry tests).
func (r *InMemoryRepo) SetNowTime(nowFunc func() time.Time) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.nowTime = nowFunc
}

func (r *InMemoryRepo) Save(_ context.Context, id string, ticket Ticket, ttl time.Duration) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tickets[id] = inMemoryEntry{ticket: ticket, expiresAt: r.nowTime().Add(ttl)}
	return nil
}

func (r *InMemoryRepo) Peek(_ context.Context, id string) (Ticket, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	entry, ok := r.tickets[id]
	if !ok {
		return Ticket{}, NotFoundErr
	}
	if r.nowTime().After(entry.expiresAt) {
		delete(r.tickets, id)
		return Ticket{}, NotFoundErr
	}
	return entry.ticket, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.tickets, id)
	return nil
}

package storefake

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/tasklane/identity/secrets"
)

var _ secrets.Store = (*FakeStore)(nil)

type storeKey struct {
	userID  string
	purpose secrets.Purpose
}

// FakeStore is an in-memory secrets.Store with the same replace-on-save and
// delete-on-consume semantics as the redis-backed store.
type FakeStore struct {
	lock    sync.Mutex
	records map[storeKey]*secrets.Record
}

func New() *FakeStore {
	return &FakeStore{records: make(map[storeKey]*secrets.Record)}
}

func (s *FakeStore) Save(_ context.Context, record *secrets.Record, _ time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	cp := *record
	s.records[storeKey{userID: record.UserID, purpose: record.Purpose}] = &cp
	return nil
}

func (s *FakeStore) Consume(_ context.Context, userID string, purpose secrets.Purpose, presentedHash [32]byte, now time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := storeKey{userID: userID, purpose: purpose}
	record, ok := s.records[key]
	if !ok {
		return secrets.NotFoundErr
	}
	if now.Unix() > record.ExpiresAt {
		delete(s.records, key)
		return secrets.ExpiredErr
	}
	if !bytes.Equal(record.ValueHash[:], presentedHash[:]) {
		return secrets.MismatchErr
	}
	delete(s.records, key)
	return nil
}

// Count reports how many live records the store holds.
func (s *FakeStore) Count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.records)
}

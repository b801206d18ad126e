package repofake

import (
	"context"
	"sync"

	"github.com/tasklane/identity/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	lock     sync.RWMutex
	sessions map[string]sessions.Session
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{sessions: make(map[string]sessions.Session)}
}

func (sr *FakeSessionRepo) Save(_ context.Context, session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.sessions[session.Secret] = *session
	return nil
}

func (sr *FakeSessionRepo) Get(_ context.Context, secret string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	session, ok := sr.sessions[secret]
	if !ok {
		return nil, sessions.NotFoundErr
	}
	return &session, nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, secret string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	delete(sr.sessions, secret)
	return nil
}

// Count reports how many sessions are held, for asserting that no session
// exists before step-up completes.
func (sr *FakeSessionRepo) Count() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}

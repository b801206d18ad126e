package mailerfake

import (
	"context"
	"sync"

	"github.com/tasklane/identity/mailer"
)

var _ mailer.Mailer = (*FakeMailer)(nil)

// FakeMailer records outgoing mail for assertions. Setting Err makes every
// send fail, for exercising the delivery-failure-is-not-fatal path.
type FakeMailer struct {
	lock  sync.Mutex
	Err   error
	Codes []SentCode
	Links []SentLink
}

type SentCode struct {
	To   string
	Code string
}

type SentLink struct {
	To   string
	Link string
}

func New() *FakeMailer {
	return &FakeMailer{}
}

func (m *FakeMailer) SendMFACode(_ context.Context, to, code string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Codes = append(m.Codes, SentCode{To: to, Code: code})
	return nil
}

func (m *FakeMailer) SendVerificationLink(_ context.Context, to, link string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Links = append(m.Links, SentLink{To: to, Link: link})
	return nil
}

// LastCode returns the most recently delivered MFA code, if any.
func (m *FakeMailer) LastCode() (SentCode, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if len(m.Codes) == 0 {
		return SentCode{}, false
	}
	return m.Codes[len(m.Codes)-1], true
}

// LastLink returns the most recently delivered verification link, if any.
func (m *FakeMailer) LastLink() (SentLink, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if len(m.Links) == 0 {
		return SentLink{}, false
	}
	return m.Links[len(m.Links)-1], true
}

// Package mailer handles out-of-band delivery of one-time codes and
// verification links.
package mailer

import "context"

type Mailer interface {
	SendMFACode(ctx context.Context, to, code string) error
	SendVerificationLink(ctx context.Context, to, link string) error
}

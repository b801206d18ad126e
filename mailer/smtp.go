package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/pkg/errors"
)

// SMTPMailer sends mail through a plain SMTP relay. None of the example
// integrations need more than an account, a host and a port, so this stays
// on net/smtp rather than pulling in a mail framework.
type SMTPMailer struct {
	host    string
	port    string
	account string
	auth    smtp.Auth
	appName string
}

func NewSMTPMailer(host, port, account, password, appName string) *SMTPMailer {
	return &SMTPMailer{
		host:    host,
		port:    port,
		account: account,
		auth:    smtp.PlainAuth("", account, password, host),
		appName: appName,
	}
}

func (m *SMTPMailer) SendMFACode(ctx context.Context, to, code string) error {
	subject := fmt.Sprintf("%s verification code", m.appName)
	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) SendVerificationLink(ctx context.Context, to, link string) error {
	subject := fmt.Sprintf("Verify your %s email address", m.appName)
	body := fmt.Sprintf("Confirm your email address by opening this link:\r\n\r\n%s", link)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.account, to, subject, body))

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, m.auth, m.account, []string{to}, msg); err != nil {
		return errors.Wrap(err, "[SMTPMailer.send] smtp.SendMail")
	}
	return nil
}

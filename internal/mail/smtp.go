// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package mail

import (
	"context"

	"github.com/samber/oops"
	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers mail over SMTP with gomail.
type SMTPSender struct {
	from   string
	dialer dialer
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(from string, cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		from:   from,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send delivers msg. gomail has no context support, so ctx is only checked
// before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("driver", DriverSMTP).Wrap(err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("driver", DriverSMTP).
			With("to", msg.To).
			Wrap(err)
	}
	return nil
}

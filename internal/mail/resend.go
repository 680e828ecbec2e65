// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package mail

import (
	"context"
	"net/url"

	"github.com/resend/resend-go/v2"
	"github.com/samber/oops"
)

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	from   string
	client *resend.Client
}

// NewResendSender creates a ResendSender. BaseURL overrides the API endpoint.
func NewResendSender(from string, cfg ResendConfig) (*ResendSender, error) {
	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, oops.Code("MAIL_CONFIG_INVALID").With("base_url", cfg.BaseURL).Wrap(err)
		}
		client.BaseURL = u
	}
	return &ResendSender{from: from, client: client}, nil
}

// Send delivers msg.
func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}

	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("driver", DriverResend).
			With("to", msg.To).
			Wrap(err)
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package mail delivers transactional email through SMTP, the Resend API,
// or the log for local development.
package mail

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Driver names accepted by New.
const (
	DriverLog    = "log"
	DriverSMTP   = "smtp"
	DriverResend = "resend"
)

// Config selects and configures a Sender.
type Config struct {
	Driver string       `koanf:"driver"`
	From   string       `koanf:"from"`
	SMTP   SMTPConfig   `koanf:"smtp"`
	Resend ResendConfig `koanf:"resend"`
}

// SMTPConfig configures the SMTP driver.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// ResendConfig configures the Resend driver.
type ResendConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// Validate checks that the selected driver has what it needs.
func (c Config) Validate() error {
	switch c.Driver {
	case "":
		return oops.Code("MAIL_CONFIG_INVALID").Errorf("mail driver is required (smtp, resend or log)")
	case DriverLog:
		return nil
	case DriverSMTP:
		if c.SMTP.Host == "" || c.SMTP.Port <= 0 {
			return oops.Code("MAIL_CONFIG_INVALID").With("driver", c.Driver).Errorf("smtp host and port are required")
		}
	case DriverResend:
		if c.Resend.APIKey == "" {
			return oops.Code("MAIL_CONFIG_INVALID").With("driver", c.Driver).Errorf("resend api key is required")
		}
	default:
		return oops.Code("MAIL_CONFIG_INVALID").With("driver", c.Driver).Errorf("unknown mail driver %q", c.Driver)
	}
	if c.From == "" {
		return oops.Code("MAIL_CONFIG_INVALID").With("driver", c.Driver).Errorf("from address is required")
	}
	return nil
}

// New builds the Sender selected by cfg.Driver.
func New(cfg Config, logger *slog.Logger) (Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverSMTP:
		return NewSMTPSender(cfg.From, cfg.SMTP), nil
	case DriverResend:
		return NewResendSender(cfg.From, cfg.Resend)
	default:
		s := NewLogSender(logger)
		s.logger.Warn("mail driver is log; messages are not delivered")
		return s, nil
	}
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("recipient is required")
	}
	if msg.Text == "" && msg.HTML == "" {
		return oops.Code("MAIL_INVALID_MESSAGE").With("to", msg.To).Errorf("message body is empty")
	}
	return nil
}

// LogSender records that a message was due without delivering it. Bodies
// are never logged since they can carry reset links.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the envelope of msg.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email not delivered, log driver active",
		"to", msg.To,
		"subject", msg.Subject,
		"body_bytes", len(msg.Text)+len(msg.HTML))
	return nil
}

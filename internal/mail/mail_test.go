// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/lnmiit/researchportal/pkg/errutil"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"driver is required", Config{}, true},
		{"log needs nothing else", Config{Driver: DriverLog}, false},
		{"smtp ok", Config{Driver: DriverSMTP, From: "portal@lnmiit.ac.in", SMTP: SMTPConfig{Host: "smtp", Port: 587}}, false},
		{"smtp without host", Config{Driver: DriverSMTP, From: "portal@lnmiit.ac.in"}, true},
		{"resend without key", Config{Driver: DriverResend, From: "portal@lnmiit.ac.in"}, true},
		{"resend without from", Config{Driver: DriverResend, Resend: ResendConfig{APIKey: "re_123"}}, true},
		{"unknown driver", Config{Driver: "pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew_SelectsDriver(t *testing.T) {
	_, err := New(Config{}, nil)
	errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")

	s, err := New(Config{Driver: DriverLog}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = New(Config{Driver: DriverSMTP, From: "a@b.c", SMTP: SMTPConfig{Host: "localhost", Port: 25}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = New(Config{Driver: DriverResend, From: "a@b.c", Resend: ResendConfig{APIKey: "re_123"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ResendSender{}, s)
}

func TestLogSender_Send(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := s.Send(context.Background(), Message{To: "a@lnmiit.ac.in", Subject: "hi", Text: "body"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"a@lnmiit.ac.in"`)

	err = s.Send(context.Background(), Message{To: "a@lnmiit.ac.in"})
	errutil.AssertErrorCode(t, err, "MAIL_INVALID_MESSAGE")
}

func TestLogSender_NeverLogsBody(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	const token = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b"
	msg, err := PasswordResetMessage("a@lnmiit.ac.in",
		"https://portal.lnmiit.ac.in/reset-password/"+token+"&userType=student", 10)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), msg))

	assert.Contains(t, buf.String(), `"subject":`)
	assert.NotContains(t, buf.String(), token)
	assert.NotContains(t, buf.String(), "reset-password")
}

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSMTPSender_Send(t *testing.T) {
	d := &recordingDialer{}
	s := &SMTPSender{from: "portal@lnmiit.ac.in", dialer: d}

	err := s.Send(context.Background(), Message{To: "f@x.com", Subject: "Welcome", Text: "hello", HTML: "<p>hello</p>"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"portal@lnmiit.ac.in"}, d.sent[0].GetHeader("From"))
	assert.Equal(t, []string{"f@x.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Welcome"}, d.sent[0].GetHeader("Subject"))
}

func TestSMTPSender_Failure(t *testing.T) {
	s := &SMTPSender{from: "portal@lnmiit.ac.in", dialer: &recordingDialer{err: errors.New("connection refused")}}

	err := s.Send(context.Background(), Message{To: "f@x.com", Text: "hello"})
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
	errutil.AssertErrorContext(t, err, "driver", DriverSMTP)
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	d := &recordingDialer{}
	s := &SMTPSender{from: "portal@lnmiit.ac.in", dialer: d}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, Message{To: "f@x.com", Text: "hello"})
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
	assert.Empty(t, d.sent)
}

func TestResendSender_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	defer srv.Close()

	s, err := NewResendSender("portal@lnmiit.ac.in", ResendConfig{APIKey: "re_test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{To: "f@x.com", Subject: "Password reset token", Text: "link"})
	require.NoError(t, err)
	assert.Equal(t, "portal@lnmiit.ac.in", got["from"])
	assert.Equal(t, []any{"f@x.com"}, got["to"])
	assert.Equal(t, "Password reset token", got["subject"])
}

func TestResendSender_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid from field"}`))
	}))
	defer srv.Close()

	s, err := NewResendSender("bad", ResendConfig{APIKey: "re_test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{To: "f@x.com", Text: "link"})
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
}

func TestPasswordResetMessage(t *testing.T) {
	msg, err := PasswordResetMessage("a@lnmiit.ac.in", "https://portal/reset-password/abc&userType=student", 10)
	require.NoError(t, err)
	assert.Equal(t, "a@lnmiit.ac.in", msg.To)
	assert.Contains(t, msg.Text, "https://portal/reset-password/abc&userType=student")
	assert.Contains(t, msg.HTML, "10 minutes")
}

func TestWelcomeMessage_EscapesName(t *testing.T) {
	msg, err := WelcomeMessage("f@x.com", "<b>Dr. X</b>")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<b>Dr. X</b>")
	assert.Contains(t, msg.Text, "<b>Dr. X</b>")
}

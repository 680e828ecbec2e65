// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package mail

import (
	"bytes"
	"html/template"

	"github.com/samber/oops"
)

var (
	resetHTML = template.Must(template.New("reset").Parse(
		`<p>You are receiving this email because you (or someone else) requested a password reset.</p>` +
			`<p><a href="{{.URL}}">Reset your password</a>. The link expires in {{.Minutes}} minutes.</p>`))
	welcomeHTML = template.Must(template.New("welcome").Parse(
		`<p>Welcome to the LNMIIT Research Portal, {{.Name}}.</p>` +
			`<p>Your publications are being imported from Scopus and will appear on your profile shortly.</p>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", oops.Code("MAIL_TEMPLATE_FAILED").With("template", t.Name()).Wrap(err)
	}
	return buf.String(), nil
}

// PasswordResetMessage builds the email carrying a reset link.
func PasswordResetMessage(to, resetURL string, expiryMinutes int) (Message, error) {
	html, err := render(resetHTML, struct {
		URL     string
		Minutes int
	}{resetURL, expiryMinutes})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Password reset token",
		Text: "You are receiving this email because you (or someone else) requested a password reset. " +
			"Please make a PUT request to:\n\n" + resetURL,
		HTML: html,
	}, nil
}

// WelcomeMessage builds the email sent after faculty registration.
func WelcomeMessage(to, name string) (Message, error) {
	html, err := render(welcomeHTML, struct{ Name string }{name})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Welcome to the LNMIIT Research Portal",
		Text:    "Welcome to the LNMIIT Research Portal, " + name + ".",
		HTML:    html,
	}, nil
}

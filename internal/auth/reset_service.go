// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"github.com/thejerf/abtime"

	"github.com/lnmiit/researchportal/internal/mail"
	"github.com/lnmiit/researchportal/pkg/errutil"
)

// PasswordResetService runs the emailed reset token flow.
type PasswordResetService struct {
	principals PrincipalRepository
	hasher     PasswordHasher
	tokens     Issuer
	mailer     mail.Sender
	baseURL    string
	clock      abtime.AbstractTime
	logger     *slog.Logger
}

// NewPasswordResetService creates a PasswordResetService. baseURL is the
// front-end origin reset links point at.
func NewPasswordResetService(
	principals PrincipalRepository,
	hasher PasswordHasher,
	tokens Issuer,
	mailer mail.Sender,
	baseURL string,
	opts ...Option,
) (*PasswordResetService, error) {
	if principals == nil {
		return nil, oops.Errorf("principal repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mail sender is required")
	}
	if baseURL == "" {
		return nil, oops.Errorf("base url is required")
	}
	o := buildOptions(opts)
	return &PasswordResetService{
		principals: principals,
		hasher:     hasher,
		tokens:     tokens,
		mailer:     mailer,
		baseURL:    baseURL,
		clock:      o.clock,
		logger:     o.logger,
	}, nil
}

func missingResetParams() error {
	return oops.Code("RESET_MISSING_PARAMS").
		Public("Missing required parameters").
		Errorf("missing required parameters")
}

func invalidResetToken() error {
	return oops.Code("RESET_TOKEN_INVALID").
		Public("Invalid or expired token").
		Errorf("reset token is invalid or expired")
}

// RequestReset stores a fresh token hash for the account and emails the
// plaintext token. If the email cannot be sent the stored token is cleared.
func (s *PasswordResetService) RequestReset(ctx context.Context, userType, email string) (err error) {
	defer func() { RecordPasswordReset(StageRequest, resultOf(err)) }()

	email = NormalizeEmail(email)
	if email == "" || strings.TrimSpace(userType) == "" {
		return missingResetParams()
	}
	role, err := ParseRole(userType)
	if err != nil {
		return err
	}

	p, err := s.principals.GetByEmail(ctx, role, email)
	if errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_USER_NOT_FOUND").
			With("role", string(role)).
			Public("User not found").
			Errorf("no %s account for email", role)
	}
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").With("operation", "get principal by email").Wrap(err)
	}
	account := p.Base()

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").With("operation", "generate token").Wrap(err)
	}
	expiresAt := s.clock.Now().Add(ResetTokenExpiry)
	if err := s.principals.SetResetToken(ctx, role, account.ID, hash, expiresAt); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store token").
			With("principal_id", account.ID.String()).
			Wrap(err)
	}

	msg, err := mail.PasswordResetMessage(account.Email,
		ResetURL(s.baseURL, token, role.UserType()), int(ResetTokenExpiry.Minutes()))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		if clearErr := s.principals.ClearResetToken(ctx, role, account.ID); clearErr != nil {
			errutil.LogErrorContext(ctx, s.logger, "failed to clear reset token after send failure", clearErr)
		}
		return oops.Code("RESET_EMAIL_FAILED").
			With("principal_id", account.ID.String()).
			Public("Email could not be sent").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		"role", string(role),
		"principal_id", account.ID.String(),
		"expires_at", expiresAt)
	return nil
}

// ResetPassword redeems a reset token and returns a bearer token for the
// account. rawToken may carry a packed "&userType=" suffix; a non-empty
// userType argument takes precedence over it.
func (s *PasswordResetService) ResetPassword(ctx context.Context, rawToken, userType, newPassword string) (_ string, err error) {
	defer func() { RecordPasswordReset(StageRedeem, resultOf(err)) }()

	token, packedType := SplitPackedToken(rawToken)
	if userType == "" {
		userType = packedType
	}
	if token == "" || userType == "" || newPassword == "" {
		return "", missingResetParams()
	}
	role, err := ParseRole(userType)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	hash := HashResetToken(token)
	p, err := s.principals.GetByResetTokenHash(ctx, role, hash, now)
	if errors.Is(err, ErrNotFound) {
		return "", invalidResetToken()
	}
	if err != nil {
		return "", oops.Code("RESET_PASSWORD_FAILED").With("operation", "get principal by token").Wrap(err)
	}
	account := p.Base()

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", oops.Code("RESET_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
	}

	err = s.principals.CompleteReset(ctx, role, account.ID, hash, passwordHash, now)
	if errors.Is(err, ErrNotFound) {
		// Another redemption of the same token won the race.
		return "", invalidResetToken()
	}
	if err != nil {
		return "", oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "complete reset").
			With("principal_id", account.ID.String()).
			Wrap(err)
	}

	bearer, err := s.tokens.Issue(account.ID, account.Name, role)
	if err != nil {
		return "", oops.Code("RESET_PASSWORD_FAILED").With("operation", "issue token").Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		"role", string(role),
		"principal_id", account.ID.String())
	return bearer, nil
}

// resultOf classifies err for metrics: client mistakes are failures,
// everything else is an error.
func resultOf(err error) string {
	if err == nil {
		return ResultSuccess
	}
	switch errutil.Code(err) {
	case "RESET_MISSING_PARAMS", "RESET_TOKEN_INVALID", "AUTH_USER_NOT_FOUND", "AUTH_INVALID_USER_TYPE",
		"AUTH_MISSING_FIELDS", "AUTH_BAD_CREDENTIALS", "AUTH_BAD_PASSWORD", "AUTH_EMPTY_PASSWORD":
		return ResultFailure
	default:
		return ResultError
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Display name constraints.
const (
	MinNameLength = 3
	MaxNameLength = 50
)

// Account holds the fields shared by every principal.
type Account struct {
	ID                  ulid.ULID  `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Principal is an authenticated identity of either role.
type Principal interface {
	Base() *Account
	Role() Role
}

// Faculty is a teacher account with a Scopus author profile.
type Faculty struct {
	Account
	Department              string     `json:"department"`
	AuthorID                string     `json:"authorID"`
	Domains                 []string   `json:"domains"`
	PublicationsRefreshedAt *time.Time `json:"publicationsRefreshedAt,omitempty"`
}

// Base returns the shared account fields.
func (f *Faculty) Base() *Account { return &f.Account }

// Role returns RoleFaculty.
func (f *Faculty) Role() Role { return RoleFaculty }

// Student is a student account.
type Student struct {
	Account
	Department string `json:"department"`
}

// Base returns the shared account fields.
func (s *Student) Base() *Account { return &s.Account }

// Role returns RoleStudent.
func (s *Student) Role() Role { return RoleStudent }

var (
	_ Principal = (*Faculty)(nil)
	_ Principal = (*Student)(nil)
)

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateName checks the display name length in characters.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength || n > MaxNameLength {
		return oops.Code("AUTH_INVALID_NAME").
			With("length", n).
			Public("Name must be between 3 and 50 characters").
			Errorf("name must be %d to %d characters, got %d", MinNameLength, MaxNameLength, n)
	}
	return nil
}

func newAccount(name, email, passwordHash string, now time.Time) (Account, error) {
	if err := ValidateName(name); err != nil {
		return Account{}, err
	}
	if passwordHash == "" {
		return Account{}, oops.Code("AUTH_EMPTY_PASSWORD_HASH").Errorf("password hash is required")
	}
	return Account{
		ID:           ulid.Make(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewFaculty creates a Faculty with a fresh ID.
func NewFaculty(name, email, passwordHash, department, authorID string, domains []string, now time.Time) (*Faculty, error) {
	account, err := newAccount(name, email, passwordHash, now)
	if err != nil {
		return nil, err
	}
	return &Faculty{
		Account:    account,
		Department: strings.TrimSpace(department),
		AuthorID:   strings.TrimSpace(authorID),
		Domains:    domains,
	}, nil
}

// NewStudent creates a Student with a fresh ID.
func NewStudent(name, email, passwordHash, department string, now time.Time) (*Student, error) {
	account, err := newAccount(name, email, passwordHash, now)
	if err != nil {
		return nil, err
	}
	return &Student{Account: account, Department: strings.TrimSpace(department)}, nil
}

// PrincipalRepository persists faculty and student accounts.
// Lookups that find nothing return ErrNotFound.
type PrincipalRepository interface {
	GetByEmail(ctx context.Context, role Role, email string) (Principal, error)
	GetByID(ctx context.Context, role Role, id ulid.ULID) (Principal, error)

	// GetByResetTokenHash matches only tokens expiring after now.
	GetByResetTokenHash(ctx context.Context, role Role, tokenHash string, now time.Time) (Principal, error)

	// CreateFaculty and CreateStudent return ErrDuplicateKey when the email
	// is taken and ErrDuplicateAuthorID when the author id is.
	CreateFaculty(ctx context.Context, f *Faculty) error
	CreateStudent(ctx context.Context, s *Student) error

	UpdatePassword(ctx context.Context, role Role, id ulid.ULID, passwordHash string) error
	SetResetToken(ctx context.Context, role Role, id ulid.ULID, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, role Role, id ulid.ULID) error

	// CompleteReset stores the new hash and clears the token in one statement,
	// provided the stored token still equals tokenHash and has not expired.
	// Otherwise it returns ErrNotFound.
	CompleteReset(ctx context.Context, role Role, id ulid.ULID, tokenHash, passwordHash string, now time.Time) error

	ListFaculty(ctx context.Context) ([]*Faculty, error)
	MarkPublicationsRefreshed(ctx context.Context, facultyID ulid.ULID, at time.Time) error
}

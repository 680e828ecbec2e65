// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/lnmiit/researchportal/internal/auth"
	"github.com/lnmiit/researchportal/internal/mail"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func principalOrNil(v any) auth.Principal {
	if v == nil {
		return nil
	}
	return v.(auth.Principal)
}

// MockPrincipalRepository mocks auth.PrincipalRepository.
type MockPrincipalRepository struct {
	mock.Mock
}

var _ auth.PrincipalRepository = (*MockPrincipalRepository)(nil)

// NewMockPrincipalRepository creates a mock that asserts its expectations on cleanup.
func NewMockPrincipalRepository(t testingT) *MockPrincipalRepository {
	m := &MockPrincipalRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPrincipalRepository) GetByEmail(ctx context.Context, role auth.Role, email string) (auth.Principal, error) {
	args := m.Called(ctx, role, email)
	return principalOrNil(args.Get(0)), args.Error(1)
}

func (m *MockPrincipalRepository) GetByID(ctx context.Context, role auth.Role, id ulid.ULID) (auth.Principal, error) {
	args := m.Called(ctx, role, id)
	return principalOrNil(args.Get(0)), args.Error(1)
}

func (m *MockPrincipalRepository) GetByResetTokenHash(ctx context.Context, role auth.Role, tokenHash string, now time.Time) (auth.Principal, error) {
	args := m.Called(ctx, role, tokenHash, now)
	return principalOrNil(args.Get(0)), args.Error(1)
}

func (m *MockPrincipalRepository) CreateFaculty(ctx context.Context, f *auth.Faculty) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockPrincipalRepository) CreateStudent(ctx context.Context, s *auth.Student) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockPrincipalRepository) UpdatePassword(ctx context.Context, role auth.Role, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, role, id, passwordHash).Error(0)
}

func (m *MockPrincipalRepository) SetResetToken(ctx context.Context, role auth.Role, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, role, id, tokenHash, expiresAt).Error(0)
}

func (m *MockPrincipalRepository) ClearResetToken(ctx context.Context, role auth.Role, id ulid.ULID) error {
	return m.Called(ctx, role, id).Error(0)
}

func (m *MockPrincipalRepository) CompleteReset(ctx context.Context, role auth.Role, id ulid.ULID, tokenHash, passwordHash string, now time.Time) error {
	return m.Called(ctx, role, id, tokenHash, passwordHash, now).Error(0)
}

func (m *MockPrincipalRepository) ListFaculty(ctx context.Context) ([]*auth.Faculty, error) {
	args := m.Called(ctx)
	faculty, _ := args.Get(0).([]*auth.Faculty)
	return faculty, args.Error(1)
}

func (m *MockPrincipalRepository) MarkPublicationsRefreshed(ctx context.Context, facultyID ulid.ULID, at time.Time) error {
	return m.Called(ctx, facultyID, at).Error(0)
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockIssuer mocks auth.Issuer.
type MockIssuer struct {
	mock.Mock
}

var _ auth.Issuer = (*MockIssuer)(nil)

// NewMockIssuer creates a mock that asserts its expectations on cleanup.
func NewMockIssuer(t testingT) *MockIssuer {
	m := &MockIssuer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockIssuer) Issue(id ulid.ULID, name string, role auth.Role) (string, error) {
	args := m.Called(id, name, role)
	return args.String(0), args.Error(1)
}

// MockAuthorValidator mocks auth.AuthorValidator.
type MockAuthorValidator struct {
	mock.Mock
}

var _ auth.AuthorValidator = (*MockAuthorValidator)(nil)

// NewMockAuthorValidator creates a mock that asserts its expectations on cleanup.
func NewMockAuthorValidator(t testingT) *MockAuthorValidator {
	m := &MockAuthorValidator{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuthorValidator) ValidateAuthorID(ctx context.Context, authorID string) (bool, error) {
	args := m.Called(ctx, authorID)
	return args.Bool(0), args.Error(1)
}

// MockPublicationRefresher mocks auth.PublicationRefresher.
type MockPublicationRefresher struct {
	mock.Mock
}

var _ auth.PublicationRefresher = (*MockPublicationRefresher)(nil)

// NewMockPublicationRefresher creates a mock that asserts its expectations on cleanup.
func NewMockPublicationRefresher(t testingT) *MockPublicationRefresher {
	m := &MockPublicationRefresher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPublicationRefresher) Refresh(ctx context.Context, facultyID ulid.ULID) (int, error) {
	args := m.Called(ctx, facultyID)
	return args.Int(0), args.Error(1)
}

// MockSender mocks mail.Sender.
type MockSender struct {
	mock.Mock
}

var _ mail.Sender = (*MockSender)(nil)

// NewMockSender creates a mock that asserts its expectations on cleanup.
func NewMockSender(t testingT) *MockSender {
	m := &MockSender{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSender) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

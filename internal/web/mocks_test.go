// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package web_test

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/lnmiit/researchportal/internal/auth"
	"github.com/lnmiit/researchportal/internal/publication"
	"github.com/lnmiit/researchportal/internal/web"
)

type mockAuth struct{ mock.Mock }

var _ web.Authenticator = (*mockAuth)(nil)

func (m *mockAuth) Login(ctx context.Context, role auth.Role, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, role, email, password)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *mockAuth) RegisterFaculty(ctx context.Context, in auth.FacultyRegistration) (*auth.Session, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *mockAuth) RegisterStudent(ctx context.Context, in auth.StudentRegistration) (*auth.Session, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *mockAuth) ChangePassword(ctx context.Context, role auth.Role, id ulid.ULID, current, next string) error {
	return m.Called(ctx, role, id, current, next).Error(0)
}

func (m *mockAuth) Directory(ctx context.Context) ([]*auth.Faculty, error) {
	args := m.Called(ctx)
	f, _ := args.Get(0).([]*auth.Faculty)
	return f, args.Error(1)
}

type mockResets struct{ mock.Mock }

var _ web.PasswordResetter = (*mockResets)(nil)

func (m *mockResets) RequestReset(ctx context.Context, userType, email string) error {
	return m.Called(ctx, userType, email).Error(0)
}

func (m *mockResets) ResetPassword(ctx context.Context, rawToken, userType, newPassword string) (string, error) {
	args := m.Called(ctx, rawToken, userType, newPassword)
	return args.String(0), args.Error(1)
}

type mockPublications struct{ mock.Mock }

var _ web.Publications = (*mockPublications)(nil)

func (m *mockPublications) Refresh(ctx context.Context, facultyID ulid.ULID) (int, error) {
	args := m.Called(ctx, facultyID)
	return args.Int(0), args.Error(1)
}

func (m *mockPublications) List(ctx context.Context, facultyID ulid.ULID) ([]publication.Publication, error) {
	args := m.Called(ctx, facultyID)
	p, _ := args.Get(0).([]publication.Publication)
	return p, args.Error(1)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lnmiit/researchportal/internal/auth"
	"github.com/lnmiit/researchportal/internal/auth/mocks"
	"github.com/lnmiit/researchportal/pkg/errutil"
)

type serviceFixture struct {
	principals   *mocks.MockPrincipalRepository
	hasher       *mocks.MockPasswordHasher
	tokens       *mocks.MockIssuer
	authors      *mocks.MockAuthorValidator
	publications *mocks.MockPublicationRefresher
	mailer       *mocks.MockSender
	logs         *bytes.Buffer
	svc          *auth.Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		principals:   mocks.NewMockPrincipalRepository(t),
		hasher:       mocks.NewMockPasswordHasher(t),
		tokens:       mocks.NewMockIssuer(t),
		authors:      mocks.NewMockAuthorValidator(t),
		publications: mocks.NewMockPublicationRefresher(t),
		mailer:       mocks.NewMockSender(t),
		logs:         &bytes.Buffer{},
	}
	svc, err := auth.NewAuthService(auth.ServiceDeps{
		Principals:   f.principals,
		Hasher:       f.hasher,
		Tokens:       f.tokens,
		Authors:      f.authors,
		Publications: f.publications,
		Mailer:       f.mailer,
	}, auth.WithLogger(slog.New(slog.NewJSONHandler(f.logs, nil))))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func testFaculty(t *testing.T) *auth.Faculty {
	t.Helper()
	f, err := auth.NewFaculty("Dr. Rao", "f@x.com", "$argon2id$stored", "CSE", "57190000000", []string{"ML"}, time.Now())
	require.NoError(t, err)
	return f
}

func TestNewAuthService_NilDependencies(t *testing.T) {
	full := auth.ServiceDeps{
		Principals: mocks.NewMockPrincipalRepository(t),
		Hasher:     mocks.NewMockPasswordHasher(t),
		Tokens:     mocks.NewMockIssuer(t),
		Authors:    mocks.NewMockAuthorValidator(t),
	}
	tests := []struct {
		name   string
		mutate func(*auth.ServiceDeps)
		want   string
	}{
		{"nil principals", func(d *auth.ServiceDeps) { d.Principals = nil }, "principal repository is required"},
		{"nil hasher", func(d *auth.ServiceDeps) { d.Hasher = nil }, "password hasher is required"},
		{"nil tokens", func(d *auth.ServiceDeps) { d.Tokens = nil }, "token issuer is required"},
		{"nil authors", func(d *auth.ServiceDeps) { d.Authors = nil }, "author validator is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.mutate(&deps)
			svc, err := auth.NewAuthService(deps)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns a token", func(t *testing.T) {
		f := newServiceFixture(t)
		faculty := testFaculty(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(faculty, nil)
		f.hasher.On("Verify", "secret", "$argon2id$stored").Return(true)
		f.hasher.On("NeedsUpgrade", "$argon2id$stored").Return(false)
		f.tokens.On("Issue", faculty.ID, "Dr. Rao", auth.RoleFaculty).Return("jwt", nil)

		session, err := f.svc.Login(ctx, auth.RoleFaculty, "F@x.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "jwt", session.Token)
		assert.Same(t, faculty, session.Principal)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Login(ctx, auth.RoleStudent, "", "secret")
		errutil.AssertErrorCode(t, err, "AUTH_MISSING_FIELDS")
		_, err = f.svc.Login(ctx, auth.RoleStudent, "a@lnmiit.ac.in", "")
		errutil.AssertErrorCode(t, err, "AUTH_MISSING_FIELDS")
	})

	t.Run("unknown email still verifies against dummy hash", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleStudent, "ghost@lnmiit.ac.in").Return(nil, auth.ErrNotFound)
		f.hasher.On("Verify", "secret", mock.MatchedBy(func(h string) bool { return h != "" })).Return(false).Once()

		_, err := f.svc.Login(ctx, auth.RoleStudent, "ghost@lnmiit.ac.in", "secret")
		errutil.AssertErrorCode(t, err, "AUTH_BAD_CREDENTIALS")
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newServiceFixture(t)
		faculty := testFaculty(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(faculty, nil)
		f.hasher.On("Verify", "wrong", "$argon2id$stored").Return(false)

		_, err := f.svc.Login(ctx, auth.RoleFaculty, "f@x.com", "wrong")
		errutil.AssertErrorCode(t, err, "AUTH_BAD_PASSWORD")
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(nil, errors.New("connection reset"))

		_, err := f.svc.Login(ctx, auth.RoleFaculty, "f@x.com", "secret")
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("legacy hash is upgraded", func(t *testing.T) {
		f := newServiceFixture(t)
		faculty := testFaculty(t)
		faculty.PasswordHash = "$2a$10$legacy"
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(faculty, nil)
		f.hasher.On("Verify", "secret", "$2a$10$legacy").Return(true)
		f.hasher.On("NeedsUpgrade", "$2a$10$legacy").Return(true)
		f.hasher.On("Hash", "secret").Return("$argon2id$fresh", nil)
		f.principals.On("UpdatePassword", ctx, auth.RoleFaculty, faculty.ID, "$argon2id$fresh").Return(nil)
		f.tokens.On("Issue", faculty.ID, "Dr. Rao", auth.RoleFaculty).Return("jwt", nil)

		_, err := f.svc.Login(ctx, auth.RoleFaculty, "f@x.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$fresh", faculty.PasswordHash)
	})

	t.Run("failed upgrade is logged and login succeeds", func(t *testing.T) {
		f := newServiceFixture(t)
		faculty := testFaculty(t)
		faculty.PasswordHash = "$2a$10$legacy"
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(faculty, nil)
		f.hasher.On("Verify", "secret", "$2a$10$legacy").Return(true)
		f.hasher.On("NeedsUpgrade", "$2a$10$legacy").Return(true)
		f.hasher.On("Hash", "secret").Return("$argon2id$fresh", nil)
		f.principals.On("UpdatePassword", ctx, auth.RoleFaculty, faculty.ID, "$argon2id$fresh").
			Return(errors.New("read only transaction"))
		f.tokens.On("Issue", faculty.ID, "Dr. Rao", auth.RoleFaculty).Return("jwt", nil)

		_, err := f.svc.Login(ctx, auth.RoleFaculty, "f@x.com", "secret")
		require.NoError(t, err)
		assert.Contains(t, f.logs.String(), "password hash upgrade failed")
		assert.Equal(t, "$2a$10$legacy", faculty.PasswordHash)
	})
}

func TestService_RegisterFaculty(t *testing.T) {
	ctx := context.Background()
	input := auth.FacultyRegistration{
		Name:       "Dr. Rao",
		Email:      "F@x.com",
		Password:   "secret",
		Department: "CSE",
		AuthorID:   "57190000000",
		Domains:    []string{"ML", " "},
	}

	t.Run("validates author before creating then imports publications", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(nil, auth.ErrNotFound)
		validate := f.authors.On("ValidateAuthorID", ctx, "57190000000").Return(true, nil)
		f.hasher.On("Hash", "secret").Return("$argon2id$h", nil)
		create := f.principals.On("CreateFaculty", ctx, mock.MatchedBy(func(fac *auth.Faculty) bool {
			return fac.Email == "f@x.com" && fac.PasswordHash == "$argon2id$h" &&
				assert.ObjectsAreEqual([]string{"ML"}, fac.Domains)
		})).Return(nil).NotBefore(validate)
		f.publications.On("Refresh", ctx, mock.AnythingOfType("ulid.ULID")).Return(4, nil).NotBefore(create)
		f.mailer.On("Send", ctx, mock.AnythingOfType("mail.Message")).Return(nil)
		f.tokens.On("Issue", mock.AnythingOfType("ulid.ULID"), "Dr. Rao", auth.RoleFaculty).Return("jwt", nil)

		session, err := f.svc.RegisterFaculty(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "jwt", session.Token)
		assert.Equal(t, auth.RoleFaculty, session.Principal.Role())
	})

	t.Run("invalid author id creates nothing", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(nil, auth.ErrNotFound)
		f.authors.On("ValidateAuthorID", ctx, "57190000000").Return(false, nil)

		_, err := f.svc.RegisterFaculty(ctx, input)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_AUTHOR_ID")
		f.principals.AssertNotCalled(t, "CreateFaculty", mock.Anything, mock.Anything)
	})

	t.Run("author lookup outage", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(nil, auth.ErrNotFound)
		f.authors.On("ValidateAuthorID", ctx, "57190000000").Return(false, errors.New("scopus 503"))

		_, err := f.svc.RegisterFaculty(ctx, input)
		errutil.AssertErrorCode(t, err, "AUTH_AUTHOR_LOOKUP_FAILED")
	})

	t.Run("email in use", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(testFaculty(t), nil)

		_, err := f.svc.RegisterFaculty(ctx, input)
		errutil.AssertErrorCode(t, err, "AUTH_EMAIL_IN_USE")
	})

	t.Run("duplicate author id at insert", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(nil, auth.ErrNotFound)
		f.authors.On("ValidateAuthorID", ctx, "57190000000").Return(true, nil)
		f.hasher.On("Hash", "secret").Return("$argon2id$h", nil)
		f.principals.On("CreateFaculty", ctx, mock.Anything).Return(auth.ErrDuplicateAuthorID)

		_, err := f.svc.RegisterFaculty(ctx, input)
		errutil.AssertErrorCode(t, err, "AUTH_AUTHOR_ID_IN_USE")
	})

	t.Run("missing values", func(t *testing.T) {
		f := newServiceFixture(t)
		in := input
		in.Domains = []string{" "}
		_, err := f.svc.RegisterFaculty(ctx, in)
		errutil.AssertErrorCode(t, err, "AUTH_MISSING_FIELDS")
	})

	t.Run("best effort follow-ups do not fail registration", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleFaculty, "f@x.com").Return(nil, auth.ErrNotFound)
		f.authors.On("ValidateAuthorID", ctx, "57190000000").Return(true, nil)
		f.hasher.On("Hash", "secret").Return("$argon2id$h", nil)
		f.principals.On("CreateFaculty", ctx, mock.Anything).Return(nil)
		f.publications.On("Refresh", ctx, mock.Anything).Return(0, errors.New("scopus timeout"))
		f.mailer.On("Send", ctx, mock.Anything).Return(errors.New("smtp down"))
		f.tokens.On("Issue", mock.Anything, "Dr. Rao", auth.RoleFaculty).Return("jwt", nil)

		_, err := f.svc.RegisterFaculty(ctx, input)
		require.NoError(t, err)
		assert.Contains(t, f.logs.String(), "initial publication import failed")
		assert.Contains(t, f.logs.String(), "welcome email failed")
	})
}

func TestService_RegisterStudent(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleStudent, "a@lnmiit.ac.in").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "secret").Return("$argon2id$h", nil)
		f.principals.On("CreateStudent", ctx, mock.AnythingOfType("*auth.Student")).Return(nil)
		f.tokens.On("Issue", mock.AnythingOfType("ulid.ULID"), "Asha", auth.RoleStudent).Return("jwt", nil)

		session, err := f.svc.RegisterStudent(ctx, auth.StudentRegistration{
			Name: "Asha", Email: "a@lnmiit.ac.in", Password: "secret", Department: "CSE",
		})
		require.NoError(t, err)
		assert.Equal(t, "jwt", session.Token)
	})

	t.Run("outside the institutional domain", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.RegisterStudent(ctx, auth.StudentRegistration{
			Name: "Asha", Email: "a@gmail.com", Password: "secret",
		})
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_EMAIL_DOMAIN")
	})

	t.Run("lookalike domain is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.RegisterStudent(ctx, auth.StudentRegistration{
			Name: "Asha", Email: "a@notlnmiit.ac.in", Password: "secret",
		})
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_EMAIL_DOMAIN")
	})

	t.Run("race on insert maps to email in use", func(t *testing.T) {
		f := newServiceFixture(t)
		f.principals.On("GetByEmail", ctx, auth.RoleStudent, "a@lnmiit.ac.in").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "secret").Return("$argon2id$h", nil)
		f.principals.On("CreateStudent", ctx, mock.Anything).Return(auth.ErrDuplicateKey)

		_, err := f.svc.RegisterStudent(ctx, auth.StudentRegistration{
			Name: "Asha", Email: "a@lnmiit.ac.in", Password: "secret",
		})
		errutil.AssertErrorCode(t, err, "AUTH_EMAIL_IN_USE")
	})

	t.Run("short name", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.RegisterStudent(ctx, auth.StudentRegistration{
			Name: "Al", Email: "a@lnmiit.ac.in", Password: "secret",
		})
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_NAME")
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newServiceFixture(t)
		faculty := testFaculty(t)
		f.principals.On("GetByID", ctx, auth.RoleFaculty, faculty.ID).Return(faculty, nil)
		f.hasher.On("Verify", "old", "$argon2id$stored").Return(true)
		f.hasher.On("Hash", "new").Return("$argon2id$new", nil)
		f.principals.On("UpdatePassword", ctx, auth.RoleFaculty, faculty.ID, "$argon2id$new").Return(nil)

		require.NoError(t, f.svc.ChangePassword(ctx, auth.RoleFaculty, faculty.ID, "old", "new"))
	})

	t.Run("wrong current password", func(t *testing.T) {
		f := newServiceFixture(t)
		faculty := testFaculty(t)
		f.principals.On("GetByID", ctx, auth.RoleFaculty, faculty.ID).Return(faculty, nil)
		f.hasher.On("Verify", "guess", "$argon2id$stored").Return(false)

		err := f.svc.ChangePassword(ctx, auth.RoleFaculty, faculty.ID, "guess", "new")
		errutil.AssertErrorCode(t, err, "AUTH_CURRENT_PASSWORD_MISMATCH")
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newServiceFixture(t)
		id := ulid.Make()
		f.principals.On("GetByID", ctx, auth.RoleStudent, id).Return(nil, auth.ErrNotFound)

		err := f.svc.ChangePassword(ctx, auth.RoleStudent, id, "old", "new")
		errutil.AssertErrorCode(t, err, "AUTH_USER_NOT_FOUND")
	})
}

func TestService_Directory(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	faculty := []*auth.Faculty{testFaculty(t)}
	f.principals.On("ListFaculty", ctx).Return(faculty, nil)

	got, err := f.svc.Directory(ctx)
	require.NoError(t, err)
	assert.Equal(t, faculty, got)
}

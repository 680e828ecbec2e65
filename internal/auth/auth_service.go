// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/thejerf/abtime"

	"github.com/lnmiit/researchportal/internal/mail"
	"github.com/lnmiit/researchportal/pkg/errutil"
)

// DefaultStudentEmailDomain is the institutional domain student emails must use.
const DefaultStudentEmailDomain = "lnmiit.ac.in"

// AuthorValidator checks a Scopus author id before a faculty account is created.
type AuthorValidator interface {
	ValidateAuthorID(ctx context.Context, authorID string) (bool, error)
}

// PublicationRefresher imports a faculty member's publications.
type PublicationRefresher interface {
	Refresh(ctx context.Context, facultyID ulid.ULID) (int, error)
}

// ServiceDeps are the collaborators of Service. Publications and Mailer may be nil.
type ServiceDeps struct {
	Principals   PrincipalRepository
	Hasher       PasswordHasher
	Tokens       Issuer
	Authors      AuthorValidator
	Publications PublicationRefresher
	Mailer       mail.Sender
	// StudentEmailDomain defaults to DefaultStudentEmailDomain.
	StudentEmailDomain string
}

// Service provides login, registration and account operations.
type Service struct {
	principals    PrincipalRepository
	hasher        PasswordHasher
	tokens        Issuer
	authors       AuthorValidator
	publications  PublicationRefresher
	mailer        mail.Sender
	studentDomain string
	clock         abtime.AbstractTime
	logger        *slog.Logger
}

// NewAuthService creates a new Service.
func NewAuthService(deps ServiceDeps, opts ...Option) (*Service, error) {
	if deps.Principals == nil {
		return nil, oops.Errorf("principal repository is required")
	}
	if deps.Hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if deps.Tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if deps.Authors == nil {
		return nil, oops.Errorf("author validator is required")
	}
	domain := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(deps.StudentEmailDomain)), "@")
	if domain == "" {
		domain = DefaultStudentEmailDomain
	}
	o := buildOptions(opts)
	return &Service{
		principals:    deps.Principals,
		hasher:        deps.Hasher,
		tokens:        deps.Tokens,
		authors:       deps.Authors,
		publications:  deps.Publications,
		mailer:        deps.Mailer,
		studentDomain: domain,
		clock:         o.clock,
		logger:        o.logger,
	}, nil
}

// dummyPasswordHash is verified against when the account does not exist so
// unknown and known emails take similar time. It matches no password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Session is the result of a successful login or registration.
type Session struct {
	Principal Principal
	Token     string
}

// Login authenticates an account of the given role.
func (s *Service) Login(ctx context.Context, role Role, email, password string) (_ *Session, err error) {
	defer func() { RecordLogin(role, resultOf(err)) }()

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, oops.Code("AUTH_MISSING_FIELDS").
			Public("Bad request. Please add email and password in the request body").
			Errorf("email and password are required")
	}

	p, lookupErr := s.principals.GetByEmail(ctx, role, email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get principal by email").
			Wrap(lookupErr)
	}
	if lookupErr != nil {
		s.hasher.Verify(password, dummyPasswordHash)
		return nil, oops.Code("AUTH_BAD_CREDENTIALS").
			With("role", string(role)).
			Public("Bad credentials").
			Errorf("no %s account for email", role)
	}

	account := p.Base()
	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, oops.Code("AUTH_BAD_PASSWORD").
			With("principal_id", account.ID.String()).
			Public("Bad password").
			Errorf("password mismatch")
	}

	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		s.upgradeHash(ctx, role, account, password)
	}

	token, err := s.tokens.Issue(account.ID, account.Name, role)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue token").Wrap(err)
	}
	return &Session{Principal: p, Token: token}, nil
}

// upgradeHash re-hashes a legacy password. Login succeeds even if it fails.
func (s *Service) upgradeHash(ctx context.Context, role Role, account *Account, password string) {
	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.principals.UpdatePassword(ctx, role, account.ID, newHash)
	}
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password hash upgrade failed",
			oops.With("principal_id", account.ID.String()).Wrap(err))
		return
	}
	account.PasswordHash = newHash
	s.logger.InfoContext(ctx, "upgraded legacy password hash", "principal_id", account.ID.String())
}

// FacultyRegistration is the input to RegisterFaculty.
type FacultyRegistration struct {
	Name       string
	Email      string
	Password   string
	Department string
	AuthorID   string
	Domains    []string
}

// StudentRegistration is the input to RegisterStudent.
type StudentRegistration struct {
	Name       string
	Email      string
	Password   string
	Department string
}

func missingFields() error {
	return oops.Code("AUTH_MISSING_FIELDS").
		Public("Please add all values in the request body").
		Errorf("required registration fields are missing")
}

func emailInUse(role Role) error {
	return oops.Code("AUTH_EMAIL_IN_USE").
		With("role", string(role)).
		Public("Email already in use").
		Errorf("email already registered")
}

func nonEmpty(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func (s *Service) ensureEmailFree(ctx context.Context, role Role, email string) error {
	_, err := s.principals.GetByEmail(ctx, role, email)
	switch {
	case err == nil:
		return emailInUse(role)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return oops.Code("AUTH_REGISTER_FAILED").With("operation", "check email").Wrap(err)
	}
}

// RegisterFaculty validates the Scopus author id, creates the account, then
// imports publications and sends a welcome email. The last two are best effort.
func (s *Service) RegisterFaculty(ctx context.Context, in FacultyRegistration) (*Session, error) {
	in.Email = NormalizeEmail(in.Email)
	in.AuthorID = strings.TrimSpace(in.AuthorID)
	in.Domains = nonEmpty(in.Domains)
	if strings.TrimSpace(in.Name) == "" || in.Email == "" || in.Password == "" ||
		strings.TrimSpace(in.Department) == "" || in.AuthorID == "" || len(in.Domains) == 0 {
		return nil, missingFields()
	}
	if err := ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, RoleFaculty, in.Email); err != nil {
		return nil, err
	}

	valid, err := s.authors.ValidateAuthorID(ctx, in.AuthorID)
	if err != nil {
		return nil, oops.Code("AUTH_AUTHOR_LOOKUP_FAILED").
			With("author_id", in.AuthorID).
			Public("Could not verify Author ID, please try again later").
			Wrap(err)
	}
	if !valid {
		return nil, oops.Code("AUTH_INVALID_AUTHOR_ID").
			With("author_id", in.AuthorID).
			Public("Invalid Author ID").
			Errorf("author id rejected by scopus")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}
	faculty, err := NewFaculty(in.Name, in.Email, hash, in.Department, in.AuthorID, in.Domains, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.principals.CreateFaculty(ctx, faculty); err != nil {
		return nil, s.createFailed(RoleFaculty, err)
	}
	s.logger.InfoContext(ctx, "faculty registered", "principal_id", faculty.ID.String(), "author_id", faculty.AuthorID)

	s.afterFacultyCreated(ctx, faculty)

	return s.session(faculty)
}

func (s *Service) afterFacultyCreated(ctx context.Context, f *Faculty) {
	if s.publications != nil {
		n, err := s.publications.Refresh(ctx, f.ID)
		if err != nil {
			errutil.LogErrorContext(ctx, s.logger, "initial publication import failed",
				oops.With("principal_id", f.ID.String()).Wrap(err))
		} else {
			s.logger.InfoContext(ctx, "imported publications", "principal_id", f.ID.String(), "count", n)
		}
	}
	if s.mailer != nil {
		msg, err := mail.WelcomeMessage(f.Email, f.Name)
		if err == nil {
			err = s.mailer.Send(ctx, msg)
		}
		if err != nil {
			errutil.LogErrorContext(ctx, s.logger, "welcome email failed",
				oops.With("principal_id", f.ID.String()).Wrap(err))
		}
	}
}

// RegisterStudent creates a student account. The email must belong to the
// institutional domain.
func (s *Service) RegisterStudent(ctx context.Context, in StudentRegistration) (*Session, error) {
	in.Email = NormalizeEmail(in.Email)
	if strings.TrimSpace(in.Name) == "" || in.Email == "" || in.Password == "" {
		return nil, missingFields()
	}
	if !strings.HasSuffix(in.Email, "@"+s.studentDomain) {
		return nil, oops.Code("AUTH_INVALID_EMAIL_DOMAIN").
			With("domain", s.studentDomain).
			Public("Please enter your college email id (@" + s.studentDomain + ")").
			Errorf("student email outside institutional domain")
	}
	if err := ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, RoleStudent, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}
	student, err := NewStudent(in.Name, in.Email, hash, in.Department, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.principals.CreateStudent(ctx, student); err != nil {
		return nil, s.createFailed(RoleStudent, err)
	}
	s.logger.InfoContext(ctx, "student registered", "principal_id", student.ID.String())

	return s.session(student)
}

func (s *Service) createFailed(role Role, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateKey):
		return emailInUse(role)
	case errors.Is(err, ErrDuplicateAuthorID):
		return oops.Code("AUTH_AUTHOR_ID_IN_USE").
			Public("Author ID already registered").
			Errorf("author id already registered")
	default:
		return oops.Code("AUTH_REGISTER_FAILED").With("operation", "create principal").Wrap(err)
	}
}

func (s *Service) session(p Principal) (*Session, error) {
	account := p.Base()
	token, err := s.tokens.Issue(account.ID, account.Name, p.Role())
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "issue token").Wrap(err)
	}
	return &Session{Principal: p, Token: token}, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, role Role, id ulid.ULID, current, next string) error {
	if current == "" || next == "" {
		return oops.Code("AUTH_MISSING_FIELDS").
			Public("Please provide the current and the new password").
			Errorf("current and new password are required")
	}

	p, err := s.Profile(ctx, role, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, p.Base().PasswordHash) {
		return oops.Code("AUTH_CURRENT_PASSWORD_MISMATCH").
			With("principal_id", id.String()).
			Public("Current password is incorrect").
			Errorf("current password mismatch")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").With("operation", "hash password").Wrap(err)
	}
	if err := s.principals.UpdatePassword(ctx, role, id, hash); err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").
			With("operation", "update password").
			With("principal_id", id.String()).
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "password changed", "role", string(role), "principal_id", id.String())
	return nil
}

// Directory lists every faculty account.
func (s *Service) Directory(ctx context.Context) ([]*Faculty, error) {
	faculty, err := s.principals.ListFaculty(ctx)
	if err != nil {
		return nil, oops.Code("AUTH_DIRECTORY_FAILED").Wrap(err)
	}
	return faculty, nil
}

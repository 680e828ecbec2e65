// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lnmiit/researchportal/internal/auth"
	"github.com/lnmiit/researchportal/internal/store"
)

const (
	facultyColumns = `id, name, email, password_hash, department, author_id, domains,
		publications_refreshed_at, reset_token_hash, reset_token_expires_at, created_at, updated_at`
	studentColumns = `id, name, email, password_hash, department,
		reset_token_hash, reset_token_expires_at, created_at, updated_at`
)

// PrincipalRepository implements auth.PrincipalRepository. Faculty and
// students live in separate tables; every method picks the table by role.
type PrincipalRepository struct {
	db store.DB
}

// NewPrincipalRepository creates a new PrincipalRepository.
func NewPrincipalRepository(db store.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

func table(role auth.Role) (string, error) {
	switch role {
	case auth.RoleFaculty:
		return "faculty", nil
	case auth.RoleStudent:
		return "students", nil
	default:
		return "", oops.Code("PRINCIPAL_INVALID_ROLE").With("role", string(role)).Errorf("unknown role")
	}
}

func (r *PrincipalRepository) selectOne(ctx context.Context, role auth.Role, where string, args ...any) (auth.Principal, error) {
	q := store.Conn(ctx, r.db)
	switch role {
	case auth.RoleFaculty:
		f, err := scanFaculty(q.QueryRow(ctx, `SELECT `+facultyColumns+` FROM faculty WHERE `+where, args...))
		if err != nil {
			return nil, err
		}
		return f, nil
	case auth.RoleStudent:
		s, err := scanStudent(q.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE `+where, args...))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		_, err := table(role)
		return nil, err
	}
}

// GetByEmail retrieves an account by its normalized email.
func (r *PrincipalRepository) GetByEmail(ctx context.Context, role auth.Role, email string) (auth.Principal, error) {
	p, err := r.selectOne(ctx, role, `email = $1`, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PRINCIPAL_NOT_FOUND").With("role", string(role)).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PRINCIPAL_GET_BY_EMAIL_FAILED").With("role", string(role)).Wrap(err)
	}
	return p, nil
}

// GetByID retrieves an account by ID.
func (r *PrincipalRepository) GetByID(ctx context.Context, role auth.Role, id ulid.ULID) (auth.Principal, error) {
	p, err := r.selectOne(ctx, role, `id = $1`, id.String())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PRINCIPAL_NOT_FOUND").
			With("role", string(role)).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PRINCIPAL_GET_BY_ID_FAILED").
			With("role", string(role)).
			With("id", id.String()).
			Wrap(err)
	}
	return p, nil
}

// GetByResetTokenHash retrieves the account holding an unexpired reset token.
func (r *PrincipalRepository) GetByResetTokenHash(ctx context.Context, role auth.Role, tokenHash string, now time.Time) (auth.Principal, error) {
	p, err := r.selectOne(ctx, role, `reset_token_hash = $1 AND reset_token_expires_at > $2`, tokenHash, now)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PRINCIPAL_NOT_FOUND").With("role", string(role)).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PRINCIPAL_GET_BY_RESET_TOKEN_FAILED").With("role", string(role)).Wrap(err)
	}
	return p, nil
}

// CreateFaculty stores a new faculty account.
func (r *PrincipalRepository) CreateFaculty(ctx context.Context, f *auth.Faculty) error {
	domains := f.Domains
	if domains == nil {
		domains = []string{}
	}
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO faculty (id, name, email, password_hash, department, author_id, domains, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		f.ID.String(),
		f.Name,
		f.Email,
		f.PasswordHash,
		f.Department,
		f.AuthorID,
		domains,
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		return insertFailed(auth.RoleFaculty, f.ID, err)
	}
	return nil
}

// CreateStudent stores a new student account.
func (r *PrincipalRepository) CreateStudent(ctx context.Context, s *auth.Student) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO students (id, name, email, password_hash, department, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		s.ID.String(),
		s.Name,
		s.Email,
		s.PasswordHash,
		s.Department,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return insertFailed(auth.RoleStudent, s.ID, err)
	}
	return nil
}

func insertFailed(role auth.Role, id ulid.ULID, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		sentinel := auth.ErrDuplicateKey
		if pgErr.ConstraintName == "faculty_author_id_key" {
			sentinel = auth.ErrDuplicateAuthorID
		}
		return oops.Code("PRINCIPAL_DUPLICATE").
			With("role", string(role)).
			With("constraint", pgErr.ConstraintName).
			Wrap(sentinel)
	}
	return oops.Code("PRINCIPAL_CREATE_FAILED").
		With("role", string(role)).
		With("id", id.String()).
		Wrap(err)
}

// exec runs an UPDATE against the role's table and maps zero affected rows
// to auth.ErrNotFound.
func (r *PrincipalRepository) exec(ctx context.Context, code string, role auth.Role, id ulid.ULID, set, extra string, args ...any) error {
	tbl, err := table(role)
	if err != nil {
		return err
	}
	sql := `UPDATE ` + tbl + ` SET ` + set + ` WHERE id = $1` + extra
	result, err := store.Conn(ctx, r.db).Exec(ctx, sql, append([]any{id.String()}, args...)...)
	if err != nil {
		return oops.Code(code).With("role", string(role)).With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PRINCIPAL_NOT_FOUND").
			With("role", string(role)).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword replaces the password hash.
func (r *PrincipalRepository) UpdatePassword(ctx context.Context, role auth.Role, id ulid.ULID, passwordHash string) error {
	return r.exec(ctx, "PRINCIPAL_UPDATE_PASSWORD_FAILED", role, id,
		`password_hash = $2, updated_at = now()`, ``, passwordHash)
}

// SetResetToken stores a reset token hash and its expiry, replacing any earlier token.
func (r *PrincipalRepository) SetResetToken(ctx context.Context, role auth.Role, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	return r.exec(ctx, "PRINCIPAL_SET_RESET_TOKEN_FAILED", role, id,
		`reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now()`, ``, tokenHash, expiresAt)
}

// ClearResetToken removes any pending reset token.
func (r *PrincipalRepository) ClearResetToken(ctx context.Context, role auth.Role, id ulid.ULID) error {
	return r.exec(ctx, "PRINCIPAL_CLEAR_RESET_TOKEN_FAILED", role, id,
		`reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()`, ``)
}

// CompleteReset sets the new password and consumes the token in a single
// conditional update, so a token can be redeemed at most once.
func (r *PrincipalRepository) CompleteReset(ctx context.Context, role auth.Role, id ulid.ULID, tokenHash, passwordHash string, now time.Time) error {
	return r.exec(ctx, "PRINCIPAL_COMPLETE_RESET_FAILED", role, id,
		`password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()`,
		` AND reset_token_hash = $3 AND reset_token_expires_at > $4`,
		passwordHash, tokenHash, now)
}

// ListFaculty returns every faculty account ordered by name.
func (r *PrincipalRepository) ListFaculty(ctx context.Context) ([]*auth.Faculty, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `SELECT `+facultyColumns+` FROM faculty ORDER BY name, id`)
	if err != nil {
		return nil, oops.Code("PRINCIPAL_LIST_FACULTY_FAILED").Wrap(err)
	}
	defer rows.Close()

	var out []*auth.Faculty
	for rows.Next() {
		f, err := scanFaculty(rows)
		if err != nil {
			return nil, oops.Code("PRINCIPAL_LIST_FACULTY_FAILED").With("operation", "scan row").Wrap(err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PRINCIPAL_LIST_FACULTY_FAILED").With("operation", "iterate rows").Wrap(err)
	}
	return out, nil
}

// MarkPublicationsRefreshed records when a faculty member's publications were last imported.
func (r *PrincipalRepository) MarkPublicationsRefreshed(ctx context.Context, facultyID ulid.ULID, at time.Time) error {
	return r.exec(ctx, "PRINCIPAL_MARK_REFRESHED_FAILED", auth.RoleFaculty, facultyID,
		`publications_refreshed_at = $2`, ``, at)
}

func parseID(idStr string) (ulid.ULID, error) {
	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("PRINCIPAL_INVALID_ID").With("id", idStr).Wrap(err)
	}
	return id, nil
}

// scanFaculty propagates pgx.ErrNoRows unchanged and leaves other scan
// errors uncoded so the caller's code wins.
func scanFaculty(row pgx.Row) (*auth.Faculty, error) {
	var (
		f     auth.Faculty
		idStr string
	)
	err := row.Scan(
		&idStr,
		&f.Name,
		&f.Email,
		&f.PasswordHash,
		&f.Department,
		&f.AuthorID,
		&f.Domains,
		&f.PublicationsRefreshedAt,
		&f.ResetTokenHash,
		&f.ResetTokenExpiresAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	if err != nil {
		return nil, oops.With("role", string(auth.RoleFaculty)).Wrap(err)
	}
	if f.ID, err = parseID(idStr); err != nil {
		return nil, err
	}
	return &f, nil
}

func scanStudent(row pgx.Row) (*auth.Student, error) {
	var (
		s     auth.Student
		idStr string
	)
	err := row.Scan(
		&idStr,
		&s.Name,
		&s.Email,
		&s.PasswordHash,
		&s.Department,
		&s.ResetTokenHash,
		&s.ResetTokenExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	if err != nil {
		return nil, oops.With("role", string(auth.RoleStudent)).Wrap(err)
	}
	if s.ID, err = parseID(idStr); err != nil {
		return nil, err
	}
	return &s, nil
}

// Compile-time interface check.
var _ auth.PrincipalRepository = (*PrincipalRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package postgres implements collab.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lnmiit/researchportal/internal/collab"
	"github.com/lnmiit/researchportal/internal/store"
)

const requestColumns = `r.id, r.student_id, r.faculty_id, r.status, r.faculty_name, r.faculty_email,
	r.resume_link, r.project_idea, r.created_at, r.updated_at`

// RequestRepository implements collab.Repository.
type RequestRepository struct {
	db store.DB
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(db store.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Exists reports whether a request for the pair is already stored.
func (r *RequestRepository) Exists(ctx context.Context, studentID, facultyID ulid.ULID) (bool, error) {
	var exists bool
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM btp_requests WHERE student_id = $1 AND faculty_id = $2)
	`, studentID.String(), facultyID.String()).Scan(&exists)
	if err != nil {
		return false, oops.Code("REQUEST_EXISTS_FAILED").
			With("student_id", studentID.String()).
			With("faculty_id", facultyID.String()).
			Wrap(err)
	}
	return exists, nil
}

// Create stores a new request.
func (r *RequestRepository) Create(ctx context.Context, req *collab.Request) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO btp_requests (
			id, student_id, faculty_id, status, faculty_name, faculty_email,
			resume_link, project_idea, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		req.ID.String(),
		req.StudentID.String(),
		req.FacultyID.String(),
		string(req.Status),
		req.FacultyName,
		req.FacultyEmail,
		req.ResumeLink,
		req.ProjectIdea,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return oops.With("constraint", pgErr.ConstraintName).Wrap(collab.ErrDuplicate)
		case pgerrcode.ForeignKeyViolation:
			return oops.With("constraint", pgErr.ConstraintName).Wrap(collab.ErrInvalidReference)
		}
	}
	return oops.Code("REQUEST_CREATE_FAILED").With("id", req.ID.String()).Wrap(err)
}

// LockFaculty locks the faculty row for the rest of the transaction.
// Concurrent accepts for one faculty member queue here.
func (r *RequestRepository) LockFaculty(ctx context.Context, facultyID ulid.ULID) error {
	var id string
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id FROM faculty WHERE id = $1 FOR UPDATE
	`, facultyID.String()).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.With("faculty_id", facultyID.String()).Wrap(collab.ErrNotFound)
	}
	if err != nil {
		return oops.Code("REQUEST_LOCK_FAILED").With("faculty_id", facultyID.String()).Wrap(err)
	}
	return nil
}

// CountAccepted counts the faculty member's accepted requests.
func (r *RequestRepository) CountAccepted(ctx context.Context, facultyID ulid.ULID) (int, error) {
	var n int
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT count(*) FROM btp_requests WHERE faculty_id = $1 AND status = $2
	`, facultyID.String(), string(collab.StatusAccepted)).Scan(&n)
	if err != nil {
		return 0, oops.Code("REQUEST_COUNT_FAILED").With("faculty_id", facultyID.String()).Wrap(err)
	}
	return n, nil
}

// GetForFaculty loads a request targeting facultyID.
func (r *RequestRepository) GetForFaculty(ctx context.Context, id, facultyID ulid.ULID) (*collab.Request, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+requestColumns+` FROM btp_requests r WHERE r.id = $1 AND r.faculty_id = $2
	`, id.String(), facultyID.String())

	var req collab.Request
	err := scanRequest(row, &req)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("request_id", id.String()).Wrap(collab.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REQUEST_GET_FAILED").With("request_id", id.String()).Wrap(err)
	}
	return &req, nil
}

// UpdateStatus writes req.Status only while the stored status is still from.
func (r *RequestRepository) UpdateStatus(ctx context.Context, req *collab.Request, from collab.Status) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		UPDATE btp_requests SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4
	`, req.ID.String(), string(req.Status), req.UpdatedAt, string(from))
	if err != nil {
		return oops.Code("REQUEST_UPDATE_FAILED").With("request_id", req.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("request_id", req.ID.String()).With("from", string(from)).Wrap(collab.ErrStatusChanged)
	}
	return nil
}

// ListSent returns a student's requests with the faculty joined, newest first.
func (r *RequestRepository) ListSent(ctx context.Context, studentID ulid.ULID) ([]collab.SentRequest, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `
		SELECT `+requestColumns+`, f.name, f.department
		FROM btp_requests r
		JOIN faculty f ON f.id = r.faculty_id
		WHERE r.student_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`, studentID.String())
	if err != nil {
		return nil, oops.Code("REQUEST_LIST_SENT_FAILED").With("student_id", studentID.String()).Wrap(err)
	}
	defer rows.Close()

	out := []collab.SentRequest{}
	for rows.Next() {
		var s collab.SentRequest
		if err := scanRequest(rows, &s.Request, &s.Teacher.Name, &s.Teacher.Department); err != nil {
			return nil, oops.Code("REQUEST_LIST_SENT_FAILED").With("operation", "scan row").Wrap(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("REQUEST_LIST_SENT_FAILED").With("operation", "iterate rows").Wrap(err)
	}
	return out, nil
}

// ListIncoming returns requests targeting a faculty member with the student joined, newest first.
func (r *RequestRepository) ListIncoming(ctx context.Context, facultyID ulid.ULID) ([]collab.IncomingRequest, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `
		SELECT `+requestColumns+`, s.name, s.email, s.department
		FROM btp_requests r
		JOIN students s ON s.id = r.student_id
		WHERE r.faculty_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`, facultyID.String())
	if err != nil {
		return nil, oops.Code("REQUEST_LIST_INCOMING_FAILED").With("faculty_id", facultyID.String()).Wrap(err)
	}
	defer rows.Close()

	out := []collab.IncomingRequest{}
	for rows.Next() {
		var in collab.IncomingRequest
		if err := scanRequest(rows, &in.Request, &in.Student.Name, &in.Student.Email, &in.Student.Department); err != nil {
			return nil, oops.Code("REQUEST_LIST_INCOMING_FAILED").With("operation", "scan row").Wrap(err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("REQUEST_LIST_INCOMING_FAILED").With("operation", "iterate rows").Wrap(err)
	}
	return out, nil
}

// scanRequest scans the request columns followed by any joined columns.
// pgx.ErrNoRows is returned unchanged.
func scanRequest(row pgx.Row, req *collab.Request, joined ...any) error {
	var id, studentID, facultyID, status string
	dest := append([]any{
		&id, &studentID, &facultyID, &status,
		&req.FacultyName, &req.FacultyEmail, &req.ResumeLink, &req.ProjectIdea,
		&req.CreatedAt, &req.UpdatedAt,
	}, joined...)
	if err := row.Scan(dest...); err != nil {
		return err //nolint:wrapcheck // callers wrap with context
	}

	var err error
	if req.ID, err = ulid.Parse(id); err != nil {
		return oops.Code("REQUEST_INVALID_ID").With("id", id).Wrap(err)
	}
	if req.StudentID, err = ulid.Parse(studentID); err != nil {
		return oops.Code("REQUEST_INVALID_ID").With("student_id", studentID).Wrap(err)
	}
	if req.FacultyID, err = ulid.Parse(facultyID); err != nil {
		return oops.Code("REQUEST_INVALID_ID").With("faculty_id", facultyID).Wrap(err)
	}
	req.Status = collab.Status(status)
	if !req.Status.Valid() {
		return oops.Code("REQUEST_INVALID_STATUS").With("status", status).Errorf("unknown request status")
	}
	return nil
}

// Compile-time interface check.
var _ collab.Repository = (*RequestRepository)(nil)

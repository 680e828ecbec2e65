// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package collab

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/thejerf/abtime"

	"github.com/lnmiit/researchportal/internal/auth"
)

// Repository persists requests. All methods use the transaction carried by
// ctx when there is one.
type Repository interface {
	// Exists reports whether the student already sent a request to the faculty member.
	Exists(ctx context.Context, studentID, facultyID ulid.ULID) (bool, error)

	// Create returns ErrDuplicate on the (student, faculty) uniqueness
	// constraint and ErrInvalidReference on a foreign key violation.
	Create(ctx context.Context, r *Request) error

	// LockFaculty takes a row lock on the faculty member until the
	// transaction ends. Returns ErrNotFound for an unknown faculty id.
	LockFaculty(ctx context.Context, facultyID ulid.ULID) error

	CountAccepted(ctx context.Context, facultyID ulid.ULID) (int, error)

	// GetForFaculty loads a request only if it targets facultyID.
	GetForFaculty(ctx context.Context, id, facultyID ulid.ULID) (*Request, error)

	// UpdateStatus moves a request from one status to another and returns
	// ErrStatusChanged when the stored status is no longer from.
	UpdateStatus(ctx context.Context, r *Request, from Status) error

	ListSent(ctx context.Context, studentID ulid.ULID) ([]SentRequest, error)
	ListIncoming(ctx context.Context, facultyID ulid.ULID) ([]IncomingRequest, error)
}

// FacultyLookup resolves the faculty member a request is addressed to.
// auth.PrincipalRepository satisfies it.
type FacultyLookup interface {
	GetByEmail(ctx context.Context, role auth.Role, email string) (auth.Principal, error)
}

// Transactor runs fn in a transaction carried by its context.
// store.Transactor satisfies it.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service runs the request workflow.
type Service struct {
	repo    Repository
	faculty FacultyLookup
	tx      Transactor
	clock   abtime.AbstractTime
	logger  *slog.Logger
}

// NewService creates a new Service.
func NewService(repo Repository, faculty FacultyLookup, tx Transactor, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("request repository is required")
	}
	if faculty == nil {
		return nil, oops.Errorf("faculty lookup is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.clock == nil {
		o.clock = abtime.NewRealTime()
	}
	return &Service{repo: repo, faculty: faculty, tx: tx, clock: o.clock, logger: o.logger}, nil
}

// Submit creates a pending request from a student to the faculty member
// whose email is named in the submission.
func (s *Service) Submit(ctx context.Context, studentID ulid.ULID, sub Submission) (_ *Request, err error) {
	defer func() { RecordTransition(ActionSubmit, err) }()

	sub, err = sub.Validate()
	if err != nil {
		return nil, err
	}

	p, err := s.faculty.GetByEmail(ctx, auth.RoleFaculty, sub.FacultyEmail)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, oops.Code("REQUEST_FACULTY_NOT_FOUND").
			With("faculty_email", sub.FacultyEmail).
			Public("Faculty not found with the provided email").
			Errorf("no faculty with email")
	}
	if err != nil {
		return nil, oops.Code("REQUEST_SUBMIT_FAILED").With("operation", "resolve faculty").Wrap(err)
	}
	facultyID := p.Base().ID

	exists, err := s.repo.Exists(ctx, studentID, facultyID)
	if err != nil {
		return nil, oops.Code("REQUEST_SUBMIT_FAILED").With("operation", "check existing").Wrap(err)
	}
	if exists {
		return nil, oops.Code("REQUEST_DUPLICATE").
			With("student_id", studentID.String()).
			With("faculty_id", facultyID.String()).
			Public("You have already sent a request to this faculty").
			Errorf("request already exists for pair")
	}

	now := s.clock.Now()
	req := &Request{
		ID:           ulid.Make(),
		StudentID:    studentID,
		FacultyID:    facultyID,
		Status:       StatusPending,
		FacultyName:  sub.FacultyName,
		FacultyEmail: sub.FacultyEmail,
		ResumeLink:   sub.ResumeLink,
		ProjectIdea:  sub.ProjectIdea,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			return nil, oops.Code("REQUEST_CONFLICT").
				With("student_id", studentID.String()).
				Public("A request with these details already exists").
				Errorf("unique constraint rejected request: %v", err)
		case errors.Is(err, ErrInvalidReference):
			return nil, oops.Code("REQUEST_INVALID_REFERENCE").
				Public("Invalid student ID or faculty ID").
				Errorf("foreign key rejected request: %v", err)
		default:
			return nil, oops.Code("REQUEST_SUBMIT_FAILED").
				With("operation", "create request").
				Public("An unexpected error occurred while creating the BTP request").
				Wrap(err)
		}
	}

	s.logger.InfoContext(ctx, "btp request submitted",
		"request_id", req.ID.String(),
		"student_id", studentID.String(),
		"faculty_id", facultyID.String())
	return req, nil
}

func notFoundOrUnauthorized(id, facultyID ulid.ULID) error {
	return oops.Code("REQUEST_NOT_FOUND_OR_UNAUTHORIZED").
		With("request_id", id.String()).
		With("faculty_id", facultyID.String()).
		Public("Request not found or unauthorized").
		Errorf("no request with id for faculty")
}

// Accept moves a pending request to accepted, provided the faculty member
// holds fewer than MaxAccepted accepted requests. The capacity check, the
// ownership lookup and the write run in one transaction.
func (s *Service) Accept(ctx context.Context, facultyID, requestID ulid.ULID) (_ *Request, err error) {
	defer func() { RecordTransition(ActionAccept, err) }()

	var req *Request
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.LockFaculty(ctx, facultyID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return notFoundOrUnauthorized(requestID, facultyID)
			}
			return oops.Code("REQUEST_ACCEPT_FAILED").With("operation", "lock faculty").Wrap(err)
		}

		accepted, err := s.repo.CountAccepted(ctx, facultyID)
		if err != nil {
			return oops.Code("REQUEST_ACCEPT_FAILED").With("operation", "count accepted").Wrap(err)
		}
		if accepted >= MaxAccepted {
			return oops.Code("REQUEST_CAPACITY_EXCEEDED").
				With("faculty_id", facultyID.String()).
				With("accepted", accepted).
				Public("Limit exceeded. Only 10 requests are allowed to be accepted.").
				Errorf("faculty at capacity")
		}

		req, err = s.transition(ctx, facultyID, requestID, StatusAccepted)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "btp request accepted",
		"request_id", requestID.String(), "faculty_id", facultyID.String())
	return req, nil
}

// Reject moves a pending request to rejected. There is no capacity check.
func (s *Service) Reject(ctx context.Context, facultyID, requestID ulid.ULID) (_ *Request, err error) {
	defer func() { RecordTransition(ActionReject, err) }()

	req, err := s.transition(ctx, facultyID, requestID, StatusRejected)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "btp request rejected",
		"request_id", requestID.String(), "faculty_id", facultyID.String())
	return req, nil
}

func (s *Service) transition(ctx context.Context, facultyID, requestID ulid.ULID, to Status) (*Request, error) {
	code := "REQUEST_ACCEPT_FAILED"
	if to == StatusRejected {
		code = "REQUEST_REJECT_FAILED"
	}

	req, err := s.repo.GetForFaculty(ctx, requestID, facultyID)
	if errors.Is(err, ErrNotFound) {
		return nil, notFoundOrUnauthorized(requestID, facultyID)
	}
	if err != nil {
		return nil, oops.Code(code).With("operation", "load request").Wrap(err)
	}

	from := req.Status
	if !CanTransition(from, to) {
		return nil, invalidTransition(requestID, from, to)
	}

	req.Status = to
	req.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, req, from); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, invalidTransition(requestID, from, to)
		}
		return nil, oops.Code(code).With("operation", "update status").Wrap(err)
	}
	return req, nil
}

func invalidTransition(id ulid.ULID, from, to Status) error {
	return oops.Code("REQUEST_INVALID_TRANSITION").
		With("request_id", id.String()).
		With("from", string(from)).
		With("to", string(to)).
		Public("Request has already been " + string(from)).
		Errorf("cannot move request from %s to %s", from, to)
}

// ListSent returns the student's requests, newest first.
func (s *Service) ListSent(ctx context.Context, studentID ulid.ULID) ([]SentRequest, error) {
	out, err := s.repo.ListSent(ctx, studentID)
	if err != nil {
		return nil, oops.Code("REQUEST_LIST_FAILED").
			With("student_id", studentID.String()).
			Public("Failed to fetch sent BTP requests").
			Wrap(err)
	}
	return out, nil
}

// ListIncoming returns the requests addressed to the faculty member, newest first.
func (s *Service) ListIncoming(ctx context.Context, facultyID ulid.ULID) ([]IncomingRequest, error) {
	out, err := s.repo.ListIncoming(ctx, facultyID)
	if err != nil {
		return nil, oops.Code("REQUEST_LIST_FAILED").
			With("faculty_id", facultyID.String()).
			Public("Failed to fetch incoming BTP requests").
			Wrap(err)
	}
	return out, nil
}

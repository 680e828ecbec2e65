// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package collabtest provides an in-memory request store for workflow tests.
package collabtest

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/lnmiit/researchportal/internal/auth"
	"github.com/lnmiit/researchportal/internal/collab"
)

type person struct {
	name, email, department string
}

// Store is an in-memory collab.Repository, collab.FacultyLookup and
// collab.Transactor. InTransaction serializes callers on one lock, which
// stands in for the faculty row lock.
type Store struct {
	txMu sync.Mutex

	mu       sync.Mutex
	faculty  map[ulid.ULID]person
	students map[ulid.ULID]person
	requests map[ulid.ULID]collab.Request
}

var (
	_ collab.Repository    = (*Store)(nil)
	_ collab.FacultyLookup = (*Store)(nil)
	_ collab.Transactor    = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		faculty:  make(map[ulid.ULID]person),
		students: make(map[ulid.ULID]person),
		requests: make(map[ulid.ULID]collab.Request),
	}
}

// AddFaculty registers a faculty member and returns its id.
func (s *Store) AddFaculty(name, email, department string) ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ulid.Make()
	s.faculty[id] = person{name, auth.NormalizeEmail(email), department}
	return id
}

// AddStudent registers a student and returns its id.
func (s *Store) AddStudent(name, email, department string) ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ulid.Make()
	s.students[id] = person{name, auth.NormalizeEmail(email), department}
	return id
}

// Status returns the stored status of a request.
func (s *Store) Status(id ulid.ULID) collab.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id].Status
}

// InTransaction runs fn while holding the store's transaction lock.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// GetByEmail resolves faculty accounts only.
func (s *Store) GetByEmail(_ context.Context, role auth.Role, email string) (auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role != auth.RoleFaculty {
		return nil, auth.ErrNotFound
	}
	for id, f := range s.faculty {
		if f.email == email {
			return &auth.Faculty{
				Account:    auth.Account{ID: id, Name: f.name, Email: f.email},
				Department: f.department,
			}, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *Store) Exists(_ context.Context, studentID, facultyID ulid.ULID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.StudentID == studentID && r.FacultyID == facultyID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Create(_ context.Context, r *collab.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[r.StudentID]; !ok {
		return collab.ErrInvalidReference
	}
	if _, ok := s.faculty[r.FacultyID]; !ok {
		return collab.ErrInvalidReference
	}
	for _, existing := range s.requests {
		if existing.StudentID == r.StudentID && existing.FacultyID == r.FacultyID {
			return collab.ErrDuplicate
		}
	}
	s.requests[r.ID] = *r
	return nil
}

func (s *Store) LockFaculty(_ context.Context, facultyID ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.faculty[facultyID]; !ok {
		return collab.ErrNotFound
	}
	return nil
}

func (s *Store) CountAccepted(_ context.Context, facultyID ulid.ULID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.FacultyID == facultyID && r.Status == collab.StatusAccepted {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetForFaculty(_ context.Context, id, facultyID ulid.ULID) (*collab.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.FacultyID != facultyID {
		return nil, collab.ErrNotFound
	}
	return &r, nil
}

func (s *Store) UpdateStatus(_ context.Context, r *collab.Request, from collab.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[r.ID]
	if !ok {
		return collab.ErrNotFound
	}
	if stored.Status != from {
		return collab.ErrStatusChanged
	}
	stored.Status = r.Status
	stored.UpdatedAt = r.UpdatedAt
	s.requests[r.ID] = stored
	return nil
}

func newestFirst(a, b collab.Request) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID.String(), a.ID.String())
}

func (s *Store) ListSent(_ context.Context, studentID ulid.ULID) ([]collab.SentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []collab.SentRequest
	for _, r := range s.requests {
		if r.StudentID == studentID {
			f := s.faculty[r.FacultyID]
			out = append(out, collab.SentRequest{
				Request: r,
				Teacher: collab.FacultySummary{Name: f.name, Department: f.department},
			})
		}
	}
	slices.SortFunc(out, func(a, b collab.SentRequest) int { return newestFirst(a.Request, b.Request) })
	return out, nil
}

func (s *Store) ListIncoming(_ context.Context, facultyID ulid.ULID) ([]collab.IncomingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []collab.IncomingRequest
	for _, r := range s.requests {
		if r.FacultyID == facultyID {
			st := s.students[r.StudentID]
			out = append(out, collab.IncomingRequest{
				Request: r,
				Student: collab.StudentSummary{Name: st.name, Email: st.email, Department: st.department},
			})
		}
	}
	slices.SortFunc(out, func(a, b collab.IncomingRequest) int { return newestFirst(a.Request, b.Request) })
	return out, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package publication keeps each faculty member's Scopus publication list.
package publication

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/thejerf/abtime"

	"github.com/lnmiit/researchportal/internal/auth"
	"github.com/lnmiit/researchportal/internal/scopus"
)

// Publication is one document attributed to a faculty member.
type Publication struct {
	ID        ulid.ULID  `json:"id"`
	FacultyID ulid.ULID  `json:"facultyId"`
	ScopusID  string     `json:"scopusId"`
	Title     string     `json:"title"`
	Venue     string     `json:"venue"`
	CoverDate *time.Time `json:"coverDate,omitempty"`
	DOI       string     `json:"doi,omitempty"`
	CitedBy   int        `json:"citedBy"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Repository stores publications.
type Repository interface {
	// Replace swaps the faculty member's publications for pubs.
	Replace(ctx context.Context, facultyID ulid.ULID, pubs []Publication) error
	// ListByFaculty returns publications newest cover date first.
	ListByFaculty(ctx context.Context, facultyID ulid.ULID) ([]Publication, error)
}

// Fetcher retrieves documents for a Scopus author id. *scopus.Client satisfies it.
type Fetcher interface {
	FetchPublications(ctx context.Context, authorID string) ([]scopus.Document, error)
}

// Faculty is the subset of auth.PrincipalRepository the service needs.
type Faculty interface {
	GetByID(ctx context.Context, role auth.Role, id ulid.ULID) (auth.Principal, error)
	MarkPublicationsRefreshed(ctx context.Context, facultyID ulid.ULID, at time.Time) error
}

// Transactor runs fn in a transaction carried by its context.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service imports and lists publications.
type Service struct {
	repo    Repository
	faculty Faculty
	fetcher Fetcher
	tx      Transactor
	clock   abtime.AbstractTime
	logger  *slog.Logger
}

// NewService creates a new Service. clock and logger may be nil.
func NewService(repo Repository, faculty Faculty, fetcher Fetcher, tx Transactor, clock abtime.AbstractTime, logger *slog.Logger) (*Service, error) {
	if repo == nil || faculty == nil || fetcher == nil || tx == nil {
		return nil, oops.Errorf("publication service dependencies are required")
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, faculty: faculty, fetcher: fetcher, tx: tx, clock: clock, logger: logger}, nil
}

func (s *Service) loadFaculty(ctx context.Context, facultyID ulid.ULID) (*auth.Faculty, error) {
	p, err := s.faculty.GetByID(ctx, auth.RoleFaculty, facultyID)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, oops.Code("PUBLICATION_FACULTY_NOT_FOUND").
			With("faculty_id", facultyID.String()).
			Public("User not found").
			Errorf("no faculty with id")
	}
	if err != nil {
		return nil, oops.Code("PUBLICATION_LOOKUP_FAILED").With("operation", "load faculty").Wrap(err)
	}
	f, ok := p.(*auth.Faculty)
	if !ok {
		return nil, oops.Code("PUBLICATION_LOOKUP_FAILED").Errorf("principal %T is not faculty", p)
	}
	return f, nil
}

// Refresh re-imports the faculty member's publications from Scopus and
// returns how many were stored. The old list is replaced in one transaction.
func (s *Service) Refresh(ctx context.Context, facultyID ulid.ULID) (int, error) {
	f, err := s.loadFaculty(ctx, facultyID)
	if err != nil {
		return 0, err
	}
	if f.AuthorID == "" {
		return 0, oops.Code("PUBLICATION_NO_AUTHOR_ID").
			With("faculty_id", facultyID.String()).
			Public("User does not have an author ID").
			Errorf("faculty has no author id")
	}

	docs, err := s.fetcher.FetchPublications(ctx, f.AuthorID)
	if err != nil {
		return 0, oops.Code("PUBLICATION_FETCH_FAILED").
			With("faculty_id", facultyID.String()).
			Public("Error refreshing publications").
			Wrap(err)
	}

	now := s.clock.Now()
	pubs := make([]Publication, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.ScopusID == "" || seen[d.ScopusID] {
			continue
		}
		seen[d.ScopusID] = true
		pubs = append(pubs, Publication{
			ID:        ulid.Make(),
			FacultyID: facultyID,
			ScopusID:  d.ScopusID,
			Title:     d.Title,
			Venue:     d.Venue,
			CoverDate: d.CoverDate,
			DOI:       d.DOI,
			CitedBy:   d.CitedBy,
			CreatedAt: now,
		})
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Replace(ctx, facultyID, pubs); err != nil {
			return err
		}
		return s.faculty.MarkPublicationsRefreshed(ctx, facultyID, now)
	})
	if err != nil {
		return 0, oops.Code("PUBLICATION_REFRESH_FAILED").
			With("faculty_id", facultyID.String()).
			Public("Error refreshing publications").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "publications refreshed", "faculty_id", facultyID.String(), "count", len(pubs))
	return len(pubs), nil
}

// List returns the faculty member's stored publications.
func (s *Service) List(ctx context.Context, facultyID ulid.ULID) ([]Publication, error) {
	if _, err := s.loadFaculty(ctx, facultyID); err != nil {
		return nil, err
	}
	pubs, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, oops.Code("PUBLICATION_LIST_FAILED").With("faculty_id", facultyID.String()).Wrap(err)
	}
	return pubs, nil
}

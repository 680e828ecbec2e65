// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package postgres implements publication.Repository on PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lnmiit/researchportal/internal/publication"
	"github.com/lnmiit/researchportal/internal/store"
)

// PublicationRepository implements publication.Repository.
type PublicationRepository struct {
	db store.DB
}

// NewPublicationRepository creates a new PublicationRepository.
func NewPublicationRepository(db store.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

// Replace deletes the faculty member's publications and inserts pubs.
// Callers run it inside a transaction so readers never see a partial list.
func (r *PublicationRepository) Replace(ctx context.Context, facultyID ulid.ULID, pubs []publication.Publication) error {
	q := store.Conn(ctx, r.db)
	if _, err := q.Exec(ctx, `DELETE FROM publications WHERE faculty_id = $1`, facultyID.String()); err != nil {
		return oops.Code("PUBLICATION_REPLACE_FAILED").
			With("operation", "delete existing").
			With("faculty_id", facultyID.String()).
			Wrap(err)
	}
	for _, p := range pubs {
		_, err := q.Exec(ctx, `
			INSERT INTO publications (id, faculty_id, scopus_id, title, venue, cover_date, doi, cited_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			p.ID.String(),
			facultyID.String(),
			p.ScopusID,
			p.Title,
			p.Venue,
			p.CoverDate,
			p.DOI,
			p.CitedBy,
			p.CreatedAt,
		)
		if err != nil {
			return oops.Code("PUBLICATION_REPLACE_FAILED").
				With("operation", "insert publication").
				With("scopus_id", p.ScopusID).
				Wrap(err)
		}
	}
	return nil
}

// ListByFaculty returns publications newest cover date first; undated last.
func (r *PublicationRepository) ListByFaculty(ctx context.Context, facultyID ulid.ULID) ([]publication.Publication, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `
		SELECT id, faculty_id, scopus_id, title, venue, cover_date, doi, cited_by, created_at
		FROM publications
		WHERE faculty_id = $1
		ORDER BY cover_date DESC NULLS LAST, title
	`, facultyID.String())
	if err != nil {
		return nil, oops.Code("PUBLICATION_LIST_FAILED").With("faculty_id", facultyID.String()).Wrap(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (publication.Publication, error) {
		var (
			p                publication.Publication
			id, facultyIDStr string
			coverDate        *time.Time
		)
		if err := row.Scan(&id, &facultyIDStr, &p.ScopusID, &p.Title, &p.Venue, &coverDate, &p.DOI, &p.CitedBy, &p.CreatedAt); err != nil {
			return p, err
		}
		var err error
		if p.ID, err = ulid.Parse(id); err != nil {
			return p, oops.Code("PUBLICATION_INVALID_ID").With("id", id).Wrap(err)
		}
		if p.FacultyID, err = ulid.Parse(facultyIDStr); err != nil {
			return p, oops.Code("PUBLICATION_INVALID_ID").With("faculty_id", facultyIDStr).Wrap(err)
		}
		p.CoverDate = coverDate
		return p, nil
	})
	if err != nil {
		return nil, oops.Code("PUBLICATION_LIST_FAILED").With("faculty_id", facultyID.String()).Wrap(err)
	}
	return out, nil
}

// Compile-time interface check.
var _ publication.Repository = (*PublicationRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package store

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Transactor runs functions inside a database transaction. The active
// pgx.Tx travels in the context so repositories pick it up through Conn.
type Transactor struct {
	db DB
}

// NewTransactor creates a Transactor backed by db.
func NewTransactor(db DB) *Transactor {
	return &Transactor{db: db}
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil the transaction is committed, otherwise it is rolled back.
// A context that already carries a transaction is reused as is.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.WarnContext(ctx, "transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

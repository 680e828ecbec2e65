// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package collab

import "errors"

var (
	// ErrNotFound is returned when a request or faculty row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a (student, faculty) request already exists.
	ErrDuplicate = errors.New("duplicate request")

	// ErrInvalidReference is returned when the student or faculty id is unknown to the store.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrStatusChanged is returned when a conditional status update finds the
	// request no longer in the expected state.
	ErrStatusChanged = errors.New("status changed")
)

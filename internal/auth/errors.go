// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert violates a unique email constraint.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDuplicateAuthorID is returned when a faculty author id is already registered.
	ErrDuplicateAuthorID = errors.New("duplicate author id")
)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import (
	"strings"

	"github.com/samber/oops"
)

// Role distinguishes the two principal kinds.
type Role string

// Roles.
const (
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleFaculty || r == RoleStudent
}

func (r Role) String() string { return string(r) }

// UserType is the name reset links carry for r. Faculty links keep the
// "teacher" spelling existing front ends send back.
func (r Role) UserType() string {
	if r == RoleFaculty {
		return "teacher"
	}
	return string(r)
}

// ParseRole maps a client supplied user type to a Role. "teacher" is kept
// as an alias for faculty.
func ParseRole(userType string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(userType)) {
	case "teacher", "faculty":
		return RoleFaculty, nil
	case "student":
		return RoleStudent, nil
	default:
		return "", oops.Code("AUTH_INVALID_USER_TYPE").
			With("user_type", userType).
			Public("Invalid user type").
			Errorf("unknown user type %q", userType)
	}
}

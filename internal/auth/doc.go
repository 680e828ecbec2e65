// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package auth provides authentication for the two portal roles, faculty
// and students.
//
// # Domain Types
//
// Faculty and Student both embed an Account and satisfy Principal. Create
// them with NewFaculty and NewStudent, which validate the display name and
// require a password hash.
//
// # Services
//
//   - Service - login, registration, password change, faculty directory
//   - PasswordResetService - the emailed single-use reset token flow
//
// Bearer tokens are HS256 JWTs issued and verified by TokenIssuer.
// Services are created with New*Service constructors that validate dependencies.
package auth

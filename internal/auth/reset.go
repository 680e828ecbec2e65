// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes  = 20               // 20 bytes = 40 hex chars
	ResetTokenExpiry = 10 * time.Minute // single use, short lived
)

// packedUserType separates a reset token from a user type appended to it in
// emailed links.
const packedUserType = "&userType="

// GenerateResetToken creates a secure random token and its hash.
// The plaintext token is emailed; only the hash is stored.
func GenerateResetToken() (token, hash string, err error) {
	tokenBytes := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashResetToken(token), nil
}

// HashResetToken returns the hex SHA-256 of a plaintext token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SplitPackedToken separates "<token>&userType=<type>" into its parts.
// A token without the suffix is returned unchanged with an empty type.
func SplitPackedToken(raw string) (token, userType string) {
	token, userType, _ = strings.Cut(raw, packedUserType)
	return token, userType
}

// ResetURL builds the link emailed to the user.
func ResetURL(baseURL, token, userType string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password/" + token + packedUserType + userType
}

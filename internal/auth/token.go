// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/thejerf/abtime"
)

// DefaultTokenTTL is how long an issued bearer token stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// MinSecretLength is the shortest HMAC secret NewTokenIssuer accepts.
const MinSecretLength = 32

// Claims is the bearer token payload.
type Claims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Role is empty only for tokens minted before roles were carried.
	Role Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// PrincipalID parses the id claim.
func (c *Claims) PrincipalID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.ID)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").
			Public("Not authorized").
			With("id", c.ID).
			Wrap(err)
	}
	return id, nil
}

// Issuer mints bearer tokens.
type Issuer interface {
	Issue(id ulid.ULID, name string, role Role) (string, error)
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  abtime.AbstractTime
}

var _ Issuer = (*TokenIssuer)(nil)

// NewTokenIssuer creates a TokenIssuer. A zero ttl uses DefaultTokenTTL and a
// nil clock uses real time.
func NewTokenIssuer(secret string, ttl time.Duration, clock abtime.AbstractTime) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			With("length", len(secret)).
			Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if ttl < 0 {
		return nil, oops.Code("TOKEN_TTL_INVALID").With("ttl", ttl).Errorf("token ttl must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, clock: clock}, nil
}

// Issue returns a signed token for the principal.
func (i *TokenIssuer) Issue(id ulid.ULID, name string, role Role) (string, error) {
	now := i.clock.Now()
	claims := Claims{
		ID:   id.String(),
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("principal_id", id.String()).Wrap(err)
	}
	return signed, nil
}

// Verify parses token and checks its signature, algorithm and expiry.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, oops.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, oops.Code("TOKEN_INVALID").Public("Not authorized").Wrap(invalidTokenCause(err))
	}
	if claims.ID == "" {
		return nil, oops.Code("TOKEN_INVALID").Public("Not authorized").Errorf("token has no principal id")
	}
	if claims.Role != "" && !claims.Role.Valid() {
		return nil, oops.Code("TOKEN_INVALID").
			Public("Not authorized").
			With("role", string(claims.Role)).
			Errorf("token carries unknown role")
	}
	return claims, nil
}

func invalidTokenCause(err error) error {
	if err == nil {
		return jwt.ErrTokenInvalidClaims
	}
	return err
}

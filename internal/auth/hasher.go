// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").
	Public("Password cannot be empty").
	Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A malformed hash never matches.
	Verify(password, hash string) bool

	// NeedsUpgrade returns true if the hash should be re-computed with argon2id.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id. It also verifies
// bcrypt hashes carried over from earlier deployments.
type Argon2idHasher struct{}

var _ PasswordHasher = (*Argon2idHasher)(nil)

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces a PHC-formatted argon2id hash:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an argon2id or bcrypt hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	if isBcrypt(encodedHash) {
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	}

	p, err := parseArgon2id(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1
}

// NeedsUpgrade returns true if the hash is not argon2id (e.g., bcrypt).
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	return !strings.HasPrefix(hash, "$argon2id$")
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

type argon2Params struct {
	memory, time uint32
	threads      uint8
	salt, key    []byte
}

func parseArgon2id(encoded string) (*argon2Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads == 0 || threads > 255 || time == 0 || memory == 0 || memory > 1<<20 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid argon2 parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) == 0 || len(key) > 1<<10 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(key))
	}

	return &argon2Params{
		memory:  memory,
		time:    time,
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}

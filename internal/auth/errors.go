// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords. The two cases are deliberately indistinguishable so callers
// cannot enumerate usernames through response content.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Token validation errors. Validate returns exactly one of these so
// diagnostics can tell the cases apart; anything user-facing must collapse
// them to a generic unauthorized response.
var (
	// ErrTokenMalformed indicates the token could not be parsed.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenInvalidSignature indicates a signature or algorithm mismatch.
	ErrTokenInvalidSignature = errors.New("token signature is invalid")

	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = errors.New("token has expired")
)

// UserExistsError is returned by Create when the username is already taken.
type UserExistsError struct {
	Username string
}

func (e *UserExistsError) Error() string {
	return fmt.Sprintf("user with username %q already exists", e.Username)
}

// IsUserExists reports whether err is (or wraps) a UserExistsError.
func IsUserExists(err error) bool {
	var ue *UserExistsError
	return errors.As(err, &ue)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/samber/oops"
)

// RoleUser is the role every account carries unless told otherwise.
const RoleUser = "user"

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, underscores, and dots
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.]*$`)

// User represents a registered principal.
//
// ID is assigned by storage on Create; it is zero for an unpersisted user
// and is never chosen by the caller. Username is unique and immutable once
// persisted. PasswordHash holds the PasswordHasher output, never the
// plaintext, and is never serialized to external callers.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// NewUser creates an unpersisted User with a validated username.
// If roles is empty, the default role list is used. The role slice is
// copied so callers cannot alias internal state.
func NewUser(username, passwordHash string, roles []string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_MISSING_HASH").Errorf("password hash cannot be empty")
	}
	if len(roles) == 0 {
		roles = DefaultRoles()
	} else {
		roles = append([]string(nil), roles...)
	}
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        roles,
	}, nil
}

// DefaultRoles returns a fresh default role list. A new slice is allocated
// on every call so no two users ever share backing storage.
func DefaultRoles() []string {
	return []string{RoleUser}
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters, numbers, underscores, and dots
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, underscores, and dots")
	}
	return nil
}

// UserRepository manages user persistence. It is the only storage-facing
// abstraction in the core; any backend implements exactly this capability
// set and is selected at startup.
type UserRepository interface {
	// FindByUsername retrieves a user by exact, case-sensitive username.
	// Returns ErrNotFound (wrapped) when no row matches.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Create persists a new user and returns it with its storage-assigned
	// ID. The uniqueness check and the insert are a single storage-level
	// operation; on a username collision Create fails with UserExistsError
	// and leaves storage unchanged.
	Create(ctx context.Context, user *User) (*User, error)
}

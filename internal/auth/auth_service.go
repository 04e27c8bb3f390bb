// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/samber/oops"
)

// Service orchestrates registration and authentication. It is the only
// component that knows the end-to-end policy; storage access goes through
// UserRepository and credential work through PasswordHasher/TokenIssuer.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	tokens *TokenIssuer
	logger *slog.Logger

	// dummyHash is verified against on the unknown-username path so that
	// path performs the same hash work as a wrong-password attempt. This
	// is NOT a real credential and never matches a submitted password.
	dummyHash string
}

// NewService creates an authentication Service.
func NewService(users UserRepository, hasher PasswordHasher, tokens *TokenIssuer) (*Service, error) {
	return NewServiceWithLogger(users, hasher, tokens, slog.Default())
}

// NewServiceWithLogger creates an authentication Service with a custom logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, tokens *TokenIssuer, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("logger is required")
	}

	dummy, err := hasher.Hash("sigil-timing-equalizer")
	if err != nil {
		return nil, oops.Code("AUTH_DUMMY_HASH_FAILED").Wrap(err)
	}

	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Register hashes the password, builds a candidate user with the default
// role list, and persists it. Uniqueness is not pre-checked here; the
// repository's atomic constraint is the only arbiter, so concurrent
// registrations of one username resolve to a single winner.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("username", username).
			Wrap(err)
	}

	candidate, err := NewUser(username, hash, nil)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, candidate)
	if err != nil {
		if IsUserExists(err) {
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			With("username", username).
			Wrap(err)
	}

	s.logger.Info("user registered", "username", created.Username, "user_id", created.ID)
	return created, nil
}

// Authenticate verifies a username/password pair and returns the user on
// success. Unknown usernames and wrong passwords both fail with
// ErrInvalidCredentials; a dummy hash comparison runs on the unknown-user
// path so the two failures cost the same.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, lookupErr := s.users.FindByUsername(ctx, username)

	targetHash := s.dummyHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOOKUP_FAILED").
				With("operation", "find user by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid := s.hasher.Verify(password, targetHash)

	if !userExists || !valid {
		s.logger.Info("authentication failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// IssueSessionToken mints a signed session token for the user, with the
// stringified user ID as subject and a copy of the user's roles.
func (s *Service) IssueSessionToken(user *User) (string, error) {
	if user == nil {
		return "", oops.Code("AUTH_NIL_USER").Errorf("user is required")
	}
	return s.tokens.Issue(strconv.FormatInt(user.ID, 10), user.Roles)
}

// GetUser looks up a user by username on the unauthenticated read path.
// Returns ErrNotFound (wrapped) when no such user exists.
func (s *Service) GetUser(ctx context.Context, username string) (*User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "find user by username").
			Wrap(err)
	}
	return user, nil
}

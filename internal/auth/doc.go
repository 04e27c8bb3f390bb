// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package auth provides the credential-authentication core for Sigil.
//
// # Domain Types
//
// User represents a registered principal. Users should be created with
// NewUser, which validates the username and guarantees a non-empty role
// list. Direct struct initialization bypasses validation and may create
// invalid state. Repository implementations receive pre-validated values
// from this constructor.
//
// # Services
//
// Service orchestrates registration and authentication end to end:
//   - Register - hash the password and persist a new user
//   - Authenticate - look up, verify, and return the user
//   - IssueSessionToken - mint a signed session token for a user
//
// TokenIssuer signs and validates compact JWT session tokens. PasswordHasher
// abstracts the one-way credential transform; bcrypt and argon2id
// implementations are provided.
package auth

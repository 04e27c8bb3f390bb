// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the session token lifetime used when none is configured.
const DefaultTokenTTL = 30 * time.Minute

// Claims is the session token claim set: subject identity, roles, and the
// issued-at/expiry timestamps. The JSON layout is the wire contract; other
// services validate these tokens byte for byte.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates compact, self-contained session tokens.
type TokenIssuer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer for the given symmetric key and
// HMAC algorithm ("HS256", "HS384", or "HS512"). An empty key or unknown
// algorithm is a configuration error; callers treat it as fatal at startup.
// A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenIssuer(secret []byte, algorithm string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, oops.Code("TOKEN_MISSING_SECRET").Errorf("signing key is required")
	}

	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, oops.Code("TOKEN_BAD_ALGORITHM").
			With("algorithm", algorithm).
			Errorf("unsupported signing algorithm %q", algorithm)
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenIssuer{
		secret: secret,
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the issuer's time source. Expiry checks and issued-at
// claims use the injected clock, which keeps expiry tests deterministic.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

// TTL returns the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a session token for the subject with the configured lifetime.
func (i *TokenIssuer) Issue(subject string, roles []string) (string, error) {
	return i.IssueWithTTL(subject, roles, i.ttl)
}

// IssueWithTTL signs a session token with an explicit lifetime. The role
// list is copied into the claim set.
func (i *TokenIssuer) IssueWithTTL(subject string, roles []string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &Claims{
		Roles: append([]string(nil), roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("subject", subject).
			Wrap(err)
	}
	return signed, nil
}

// Validate verifies the token's signature and expiry and returns its claims.
// Failures are exactly one of ErrTokenMalformed, ErrTokenInvalidSignature,
// or ErrTokenExpired.
func (i *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		// Reject any token whose header names a different algorithm,
		// including "none" and asymmetric downgrades.
		if t.Method.Alg() != i.method.Alg() {
			return nil, ErrTokenInvalidSignature
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, mapJWTError(err)
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// mapJWTError collapses golang-jwt's error set onto the core taxonomy.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, ErrTokenInvalidSignature):
		return ErrTokenInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrTokenMalformed
	}
}

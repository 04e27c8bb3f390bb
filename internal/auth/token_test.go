// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigilauth/sigil/internal/auth"
)

var testSecret = []byte("test-secret-key-at-least-32-bytes!!")

func newTestIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(testSecret, "HS256", 30*time.Minute)
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuer(t *testing.T) {
	t.Run("empty secret is fatal", func(t *testing.T) {
		_, err := auth.NewTokenIssuer(nil, "HS256", time.Minute)
		assert.Error(t, err)
	})

	t.Run("unknown algorithm is fatal", func(t *testing.T) {
		_, err := auth.NewTokenIssuer(testSecret, "RS256", time.Minute)
		assert.Error(t, err)
	})

	t.Run("empty algorithm defaults to HS256", func(t *testing.T) {
		issuer, err := auth.NewTokenIssuer(testSecret, "", time.Minute)
		require.NoError(t, err)

		token, err := issuer.Issue("1", []string{"user"})
		require.NoError(t, err)
		_, err = issuer.Validate(token)
		assert.NoError(t, err)
	})

	t.Run("non-positive ttl falls back to default", func(t *testing.T) {
		issuer, err := auth.NewTokenIssuer(testSecret, "HS256", 0)
		require.NoError(t, err)
		assert.Equal(t, auth.DefaultTokenTTL, issuer.TTL())
	})

	t.Run("HS384 and HS512 are accepted", func(t *testing.T) {
		for _, alg := range []string{"HS384", "HS512"} {
			issuer, err := auth.NewTokenIssuer(testSecret, alg, time.Minute)
			require.NoError(t, err, alg)

			token, err := issuer.Issue("1", []string{"user"})
			require.NoError(t, err, alg)
			_, err = issuer.Validate(token)
			assert.NoError(t, err, alg)
		}
	})
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.Issue("42", []string{"user"})
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, []string{"user"}, claims.Roles)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, 30*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenIssuer_RoleListIsCopied(t *testing.T) {
	issuer := newTestIssuer(t)

	roles := []string{"user", "admin"}
	token, err := issuer.Issue("7", roles)
	require.NoError(t, err)

	roles[0] = "mutated"

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "admin"}, claims.Roles)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	t.Run("negative ttl is already expired", func(t *testing.T) {
		issuer := newTestIssuer(t)

		token, err := issuer.IssueWithTTL("42", []string{"user"}, -time.Second)
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("clock advancing past exp fails validation", func(t *testing.T) {
		now := time.Now()
		issuer := newTestIssuer(t).WithClock(func() time.Time { return now })

		token, err := issuer.Issue("42", []string{"user"})
		require.NoError(t, err)

		// Still valid just before expiry.
		now = now.Add(30*time.Minute - time.Second)
		_, err = issuer.Validate(token)
		require.NoError(t, err)

		now = now.Add(2 * time.Second)
		_, err = issuer.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})
}

func TestTokenIssuer_Validate_Failures(t *testing.T) {
	issuer := newTestIssuer(t)

	t.Run("tampered signature", func(t *testing.T) {
		token, err := issuer.Issue("42", []string{"user"})
		require.NoError(t, err)

		// Replace a character in the middle of the signature segment.
		sigStart := strings.LastIndexByte(token, '.') + 1
		mid := sigStart + (len(token)-sigStart)/2
		flipped := byte('x')
		if token[mid] == 'x' {
			flipped = 'y'
		}
		tampered := token[:mid] + string(flipped) + token[mid+1:]

		_, err = issuer.Validate(tampered)
		assert.ErrorIs(t, err, auth.ErrTokenInvalidSignature)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := auth.NewTokenIssuer([]byte("a-completely-different-secret-key"), "HS256", time.Minute)
		require.NoError(t, err)

		token, err := other.Issue("42", []string{"user"})
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalidSignature)
	})

	t.Run("algorithm mismatch", func(t *testing.T) {
		hs512, err := auth.NewTokenIssuer(testSecret, "HS512", time.Minute)
		require.NoError(t, err)

		token, err := hs512.Issue("42", []string{"user"})
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalidSignature)
	})

	t.Run("malformed token", func(t *testing.T) {
		for _, garbage := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
			_, err := issuer.Validate(garbage)
			assert.ErrorIs(t, err, auth.ErrTokenMalformed, "input %q", garbage)
		}
	})
}

func TestTokenIssuer_WireFormat(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.Issue("42", []string{"user"})
	require.NoError(t, err)

	// Compact JWS: three dot-separated base64url segments.
	parts := strings.Split(token, ".")
	assert.Len(t, parts, 3)
	for _, p := range parts {
		assert.NotContains(t, p, "=")
		assert.NotContains(t, p, "+")
		assert.NotContains(t, p, "/")
	}
}

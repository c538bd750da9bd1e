package server

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func signedToken(t *testing.T, build func(*jwt.Builder) *jwt.Builder) string {
	t.Helper()

	token, err := build(jwt.NewBuilder().Expiration(time.Now().Add(time.Hour))).Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), testSigningKey))
	require.NoError(t, err)

	return string(signed)
}

func TestParseTokenExtractsIdentity(t *testing.T) {
	raw := signedToken(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("user1").Claim("email", "amina@example.com")
	})

	identity, err := parseToken(raw, jwt.WithKey(jwa.HS256(), testSigningKey))
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user1", Email: "amina@example.com"}, identity)
}

func TestParseTokenWithoutEmail(t *testing.T) {
	raw := signedToken(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("user1")
	})

	identity, err := parseToken(raw, jwt.WithKey(jwa.HS256(), testSigningKey))
	require.NoError(t, err)
	assert.Equal(t, "user1", identity.UserID)
	assert.Empty(t, identity.Email)
}

func TestParseTokenRequiresSubject(t *testing.T) {
	raw := signedToken(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Claim("email", "amina@example.com")
	})

	_, err := parseToken(raw, jwt.WithKey(jwa.HS256(), testSigningKey))
	require.ErrorIs(t, err, ErrMissingSubject)
}

func TestParseTokenRejectsWrongKey(t *testing.T) {
	raw := signedToken(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("user1")
	})

	_, err := parseToken(raw, jwt.WithKey(jwa.HS256(), []byte("another-key-another-key-another!")))
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	raw := signedToken(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("user1").Expiration(time.Now().Add(-time.Hour))
	})

	_, err := parseToken(raw, jwt.WithKey(jwa.HS256(), testSigningKey))
	require.Error(t, err)
}

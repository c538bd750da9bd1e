package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

var ErrMissingSubject = errors.New("token has no subject")

// Identity is the authenticated caller extracted from an access token.
type Identity struct {
	UserID string
	Email  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWKSVerifier validates Cognito access tokens against the pool's published key set.
type JWKSVerifier struct {
	cache *jwk.Cache
	url   string
}

func NewJWKSVerifier(cache *jwk.Cache, jwksURL string) *JWKSVerifier {
	return &JWKSVerifier{cache: cache, url: jwksURL}
}

func (v *JWKSVerifier) Verify(ctx context.Context, accessToken string) (Identity, error) {
	set, err := v.cache.Lookup(ctx, v.url)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	return parseToken(accessToken, jwt.WithKeySet(set))
}

func parseToken(accessToken string, opts ...jwt.ParseOption) (Identity, error) {
	opts = append(opts, jwt.WithValidate(true))

	token, err := jwt.Parse([]byte(accessToken), opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse JWT: %w", err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return Identity{}, ErrMissingSubject
	}

	identity := Identity{UserID: userID}

	// Cognito access tokens usually carry username instead of email.
	var email string
	if err := token.Get("email", &email); err == nil {
		identity.Email = email
	}

	return identity, nil
}

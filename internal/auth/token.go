// Package auth verifies bearer credentials and gates HTTP requests on a
// verified identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
)

// Token verification errors. Callers outside this package treat every one of
// them the same way (the credential is invalid); the distinct sentinels exist
// for diagnostics and tests.
var (
	ErrNoToken          = errors.New("auth: no access token provided")
	ErrMalformedToken   = errors.New("auth: malformed access token")
	ErrBadAlgorithm     = errors.New("auth: unexpected signing algorithm")
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrMissingSubject   = errors.New("auth: token has no subject claim")
)

// Identity is the verified subject extracted from a credential, used for
// ownership checks downstream.
type Identity struct {
	Subject   string    `json:"sub"`
	ExpiresAt time.Time `json:"exp,omitzero"`
	IssuedAt  time.Time `json:"iat,omitzero"`
}

// TokenVerifier verifies HS256-signed bearer tokens against a shared secret.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{
		secret: secret,
		now:    time.Now,
	}
}

// Verify checks the token's signature and claims and returns the identity it
// carries.
//
// Verification steps:
//  1. Parse the compact JWT.
//  2. Require exactly one signature using HS256. Tokens carrying any other
//     algorithm are rejected before key material is applied.
//  3. Verify the HMAC against the shared secret.
//  4. Reject expired tokens.
//  5. Require a subject claim: a token that verifies cryptographically but
//     carries no subject is structurally invalid.
func (v *TokenVerifier) Verify(token string) (*Identity, error) {
	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if len(parsed.Headers) != 1 || parsed.Headers[0].Algorithm != string(jose.HS256) {
		return nil, ErrBadAlgorithm
	}

	var claims jwt.Claims
	if err := parsed.Claims(v.secret, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if err := claims.Validate(jwt.Expected{Time: v.now()}); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, fmt.Errorf("%w: expired at %v", ErrTokenExpired, claims.Expiry.Time())
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	identity := &Identity{Subject: claims.Subject}
	if claims.Expiry != nil {
		identity.ExpiresAt = claims.Expiry.Time()
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time()
	}
	return identity, nil
}

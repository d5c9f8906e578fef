package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/quillmark/text-analyzer/internal/obs"
)

// AccessTokenCookieName is the fallback credential location for clients that
// cannot set an Authorization header.
const AccessTokenCookieName = "access_token"

type contextKey string

const identityKey contextKey = "identity"

// Middleware gates requests on a verified bearer credential.
type Middleware struct {
	verifier *TokenVerifier
}

// NewMiddleware creates the authorization gate over verifier.
func NewMiddleware(verifier *TokenVerifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid credential with 401 and
// attaches the verified identity to the request context otherwise. It runs
// to completion before the downstream handler is invoked.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := CredentialFromRequest(r)
		if err != nil {
			writeUnauthenticated(w, "no credential provided")
			return
		}

		identity, err := m.verifier.Verify(token)
		if err != nil {
			// The rejection cause is logged for diagnostics but the caller
			// always sees the same response.
			obs.From(r.Context()).With("pkg", "auth").Debug("token rejected", "err", err)
			writeUnauthenticated(w, "invalid credential")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// CredentialFromRequest extracts the bearer credential: the Authorization
// header wins, the access_token cookie is the fallback.
func CredentialFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return "", fmt.Errorf("%w: expected Bearer scheme", ErrMalformedToken)
		}
		token := strings.TrimPrefix(authHeader, bearerPrefix)
		if token == "" {
			return "", ErrNoToken
		}
		return token, nil
	}

	cookie, err := r.Cookie(AccessTokenCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNoToken
		}
		return "", err
	}
	if cookie.Value == "" {
		return "", ErrNoToken
	}
	return cookie.Value, nil
}

// WithIdentity stores the verified identity in ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the verified identity from the request
// context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok && identity != nil
}

// SubjectFromContext returns the verified subject, or "" when the request is
// unauthenticated.
func SubjectFromContext(ctx context.Context) string {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return ""
	}
	return identity.Subject
}

func writeUnauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

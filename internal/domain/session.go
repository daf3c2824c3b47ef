package domain

import (
	"context"
	"time"
)

type sessionTokenKey struct{}

// WithSessionToken returns a context carrying the catalog session token.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey{}, token)
}

// SessionTokenFromContext returns the catalog session token, or "" if none is set.
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey{}).(string)
	return token
}

// SessionClaims are the verified contents of an access token.
type SessionClaims struct {
	Subject      string
	SessionToken string
	ExpiresAt    time.Time
}

// TokenIssuer signs access tokens that carry a catalog session token.
type TokenIssuer interface {
	Issue(subject, sessionToken string, expiry time.Duration) (string, time.Time, error)
}

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (SessionClaims, error)
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "eventcatalog/internal/delivery/http/helpers"
	"eventcatalog/internal/domain"
)

type contextKey string

const subjectKey contextKey = "subject"

// SetSubject returns a context with the token subject set. Used by auth middleware.
func SetSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext returns the authenticated token subject from the context, if present.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok
}

// SessionAuth validates an optional Bearer token. Requests without an
// Authorization header pass through anonymously. A valid token puts its
// subject and catalog session token on the request context; a malformed or
// rejected token is answered with 401 and next is not called.
func SessionAuth(verifier domain.TokenVerifier, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			next.ServeHTTP(w, r)
			return
		}
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
			return
		}
		token := strings.TrimSpace(auth[len(prefix):])
		if token == "" {
			h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
			h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
			return
		}
		ctx := SetSubject(r.Context(), claims.Subject)
		if claims.SessionToken != "" {
			ctx = domain.WithSessionToken(ctx, claims.SessionToken)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

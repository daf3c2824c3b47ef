package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"eventcatalog/internal/delivery/http/helpers"
	"eventcatalog/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenVerifier implements domain.TokenVerifier for tests.
type fakeTokenVerifier struct {
	claims domain.SessionClaims
	err    error
}

func (f *fakeTokenVerifier) Verify(_ string) (domain.SessionClaims, error) {
	if f.err != nil {
		return domain.SessionClaims{}, f.err
	}
	return f.claims, nil
}

func TestSessionAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	valid := &fakeTokenVerifier{claims: domain.SessionClaims{Subject: "device-1", SessionToken: "r:abc"}}

	tests := []struct {
		name             string
		authHeader       string
		verifier         domain.TokenVerifier
		wantStatus       int
		wantBodyCode     string
		nextCalled       bool
		wantSubject      string
		wantSessionToken string
	}{
		{
			name:             "valid token sets context and calls next",
			authHeader:       "Bearer valid-token",
			verifier:         valid,
			wantStatus:       http.StatusOK,
			nextCalled:       true,
			wantSubject:      "device-1",
			wantSessionToken: "r:abc",
		},
		{
			name:       "missing authorization header is anonymous",
			authHeader: "",
			verifier:   valid,
			wantStatus: http.StatusOK,
			nextCalled: true,
		},
		{
			name:         "invalid authorization format no Bearer prefix",
			authHeader:   "Basic abc",
			verifier:     valid,
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "empty token after Bearer",
			authHeader:   "Bearer ",
			verifier:     valid,
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "verifier returns error",
			authHeader:   "Bearer bad-token",
			verifier:     &fakeTokenVerifier{err: errors.New("invalid or expired token")},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var subject, sessionToken string
			var hasSubject bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				subject, hasSubject = SubjectFromContext(r.Context())
				sessionToken = domain.SessionTokenFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			handler := SessionAuth(tt.verifier, logger, next)

			req := httptest.NewRequest(http.MethodGet, "http://test/events", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			assert.Equal(t, tt.nextCalled, nextCalled, "next handler called")
			if tt.nextCalled {
				assert.Equal(t, tt.wantSubject != "", hasSubject)
				assert.Equal(t, tt.wantSubject, subject)
				assert.Equal(t, tt.wantSessionToken, sessionToken)
			}
			if tt.wantBodyCode != "" {
				var envelope helpers.APIResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
			}
		})
	}
}

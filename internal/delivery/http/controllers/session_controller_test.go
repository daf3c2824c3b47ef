package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventcatalog/internal/delivery/http/helpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionController_CreateSession(t *testing.T) {
	expiresAt := time.Date(2022, 2, 15, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		body         string
		issuerErr    error
		wantStatus   int
		wantBodyCode string
		wantSubject  string
		wantSession  string
	}{
		{
			name:        "explicit subject",
			body:        `{"sessionToken":"r:abc","subject":"device-1"}`,
			wantStatus:  http.StatusOK,
			wantSubject: "device-1",
			wantSession: "r:abc",
		},
		{
			name:        "generated subject",
			body:        `{"sessionToken":" r:abc "}`,
			wantStatus:  http.StatusOK,
			wantSession: "r:abc",
		},
		{
			name:         "missing session token",
			body:         `{"subject":"device-1"}`,
			wantStatus:   http.StatusBadRequest,
			wantBodyCode: helpers.ErrCodeBadRequest,
		},
		{
			name:         "subject too long",
			body:         `{"sessionToken":"r:abc","subject":"` + strings.Repeat("x", 300) + `"}`,
			wantStatus:   http.StatusBadRequest,
			wantBodyCode: helpers.ErrCodeBadRequest,
		},
		{
			name:         "issuer failure",
			body:         `{"sessionToken":"r:abc"}`,
			issuerErr:    errors.New("sign failed"),
			wantStatus:   http.StatusInternalServerError,
			wantBodyCode: helpers.ErrCodeInternalError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := &fakeIssuer{err: tt.issuerErr, issuedExpiresAt: expiresAt}
			c := NewSessionController(testLogger, issuer, 0)
			req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			c.CreateSession(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var data SessionResponse
			envelope := decodeEnvelope(t, rr, &data)
			if tt.wantBodyCode != "" {
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
				return
			}
			assert.Equal(t, DefaultTokenExpiry, issuer.lastExpiry)
			assert.Equal(t, tt.wantSession, issuer.lastSession)
			if tt.wantSubject != "" {
				assert.Equal(t, tt.wantSubject, data.Subject)
			} else {
				_, err := uuid.Parse(data.Subject)
				require.NoError(t, err)
			}
			assert.Equal(t, issuer.lastSubject, data.Subject)
			assert.Equal(t, "signed."+data.Subject, data.Token)
			assert.Equal(t, "Bearer", data.TokenType)
			assert.True(t, expiresAt.Equal(data.ExpiresAt))
		})
	}
}

package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	h "eventcatalog/internal/delivery/http/helpers"
	"eventcatalog/internal/domain"

	"github.com/google/uuid"
)

// DefaultTokenExpiry is used when the controller is built with a non-positive expiry.
const DefaultTokenExpiry = 24 * time.Hour

// CreateSessionRequest is the request body for POST /session.
type CreateSessionRequest struct {
	// SessionToken is the catalog session token to forward on catalog requests.
	SessionToken string `json:"sessionToken"`
	// Subject identifies the client. A random id is assigned when empty.
	Subject string `json:"subject,omitempty"`
}

// Validate implements Validator.
func (c CreateSessionRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.SessionToken) == "" {
		errs = append(errs, "sessionToken is required")
	}
	if len(c.Subject) > 256 {
		errs = append(errs, "subject must be at most 256 characters")
	}
	return errs
}

// SessionResponse is the response body for POST /session.
type SessionResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionSuccessResponse is the success response envelope for POST /session (200).
type SessionSuccessResponse struct {
	Data  SessionResponse `json:"data"`
	Error *h.APIError     `json:"error"`
}

type SessionController struct {
	Logger *slog.Logger
	Issuer domain.TokenIssuer
	Expiry time.Duration
}

func NewSessionController(logger *slog.Logger, issuer domain.TokenIssuer, expiry time.Duration) *SessionController {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &SessionController{
		Logger: logger,
		Issuer: issuer,
		Expiry: expiry,
	}
}

// CreateSession godoc
// @Summary Create an access token
// @Description Wraps a catalog session token in a signed bearer token. Requests carrying the bearer token query the catalog with that session.
// @Tags session
// @Accept json
// @Produce json
// @Param body body CreateSessionRequest true "Catalog session"
// @Success 200 {object} controllers.SessionSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /session [post]
func (c *SessionController) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = uuid.NewString()
	}
	token, expiresAt, err := c.Issuer.Issue(subject, strings.TrimSpace(req.SessionToken), c.Expiry)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "could not issue token")
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, SessionResponse{
		Token:     token,
		TokenType: "Bearer",
		Subject:   subject,
		ExpiresAt: expiresAt,
	})
}

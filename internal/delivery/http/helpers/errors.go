package helpers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"eventcatalog/internal/domain"
)

// StatusClientClosedRequest is logged for requests whose client went away.
const StatusClientClosedRequest = 499

// StatusForError maps a catalog error to an HTTP status and API error code.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyStore):
		return http.StatusNotFound, ErrCodeEmptyStore
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrMissingIdentifier):
		return http.StatusBadRequest, ErrCodeMissingIdentifier
	case errors.Is(err, domain.ErrNoConnectivity):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	case errors.Is(err, domain.ErrDataLoading),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidResponse),
		errors.Is(err, domain.ErrJSONDecoding):
		return http.StatusBadGateway, ErrCodeUpstreamFailure
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrCodeBadRequest
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteDomainError logs err and writes the mapped JSON error response.
// Internal errors are reported with a generic message.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusForError(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	WriteJSONError(w, status, code, msg)
}

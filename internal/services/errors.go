package services

import (
	"errors"
	"fmt"

	"eventcatalog/internal/domain"
)

// TranslateTransportError maps a transport failure to the domain taxonomy.
// Status code, body and cause are carried over unchanged.
func TranslateTransportError(err *domain.TransportError) error {
	switch err.Kind {
	case domain.TransportInvalidResponse:
		return withCause(domain.ErrInvalidResponse, err.Err)
	case domain.TransportInvalidRequest:
		return withCause(domain.ErrInvalidRequest, err.Err)
	case domain.TransportDataLoading:
		return &domain.DataLoadingError{StatusCode: err.StatusCode, Body: err.Body}
	case domain.TransportJSONDecoding:
		return &domain.JSONDecodingError{Err: err.Err}
	case domain.TransportNoConnectivity:
		return withCause(domain.ErrNoConnectivity, err.Err)
	}
	// unknown kinds are a contract violation of the transport
	return withCause(domain.ErrInvalidResponse, err)
}

// translate converts transport failures and passes every other error through.
func translate(err error) error {
	var terr *domain.TransportError
	if errors.As(err, &terr) {
		return TranslateTransportError(terr)
	}
	return err
}

func withCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

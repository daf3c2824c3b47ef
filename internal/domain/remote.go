package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// RemoteCatalog is the transport to the remote event catalog (or a test double).
type RemoteCatalog interface {
	// QueryClass runs a class query and returns the decoded envelope.
	QueryClass(ctx context.Context, className string, q ClassQuery) (ClassResult, error)
	// CallFunction invokes a named remote function and returns its raw response body.
	CallFunction(ctx context.Context, name string, params any, sessionToken string) (json.RawMessage, error)
}

// TransportKind enumerates the failure kinds reported by the transport layer.
type TransportKind int

const (
	TransportInvalidResponse TransportKind = iota
	TransportInvalidRequest
	TransportDataLoading
	TransportJSONDecoding
	TransportNoConnectivity
)

// TransportKinds returns every transport failure kind.
func TransportKinds() []TransportKind {
	return []TransportKind{
		TransportInvalidResponse,
		TransportInvalidRequest,
		TransportDataLoading,
		TransportJSONDecoding,
		TransportNoConnectivity,
	}
}

func (k TransportKind) String() string {
	switch k {
	case TransportInvalidResponse:
		return "invalidResponse"
	case TransportInvalidRequest:
		return "invalidRequest"
	case TransportDataLoading:
		return "dataLoadingError"
	case TransportJSONDecoding:
		return "jsonDecodingError"
	case TransportNoConnectivity:
		return "isInternetConnectionError"
	}
	return fmt.Sprintf("TransportKind(%d)", int(k))
}

// TransportError is a failure reported by the transport layer.
// StatusCode and Body are set for TransportDataLoading, Err carries the cause.
type TransportError struct {
	Kind       TransportKind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Kind == TransportDataLoading:
		return fmt.Sprintf("transport %s: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("transport %s: %v", e.Kind, e.Err)
	}
	return "transport " + e.Kind.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the closed error taxonomy of the catalog core.
var (
	ErrMissingIdentifier    = errors.New("event has no identifier")
	ErrEmptyStore           = errors.New("store is empty")
	ErrSerializationFailure = errors.New("serialization failure")
	ErrCapacityInvalid      = errors.New("capacity must be greater than zero")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidResponse      = errors.New("invalid response")
	ErrDataLoading          = errors.New("data loading failed")
	ErrJSONDecoding         = errors.New("json decoding failed")
	ErrNoConnectivity       = errors.New("no internet connection")
)

// ErrNotFound is returned by blob storage for a missing key.
var ErrNotFound = errors.New("not found")

// DataLoadingError is a non-2xx answer from the remote catalog.
// It matches ErrDataLoading with errors.Is.
type DataLoadingError struct {
	StatusCode int
	Body       []byte
}

func (e *DataLoadingError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrDataLoading, e.StatusCode)
}

func (e *DataLoadingError) Is(target error) bool {
	return target == ErrDataLoading
}

// JSONDecodingError wraps the decoder failure of a remote payload.
// It matches ErrJSONDecoding with errors.Is and unwraps to the cause.
type JSONDecodingError struct {
	Err error
}

func (e *JSONDecodingError) Error() string {
	return fmt.Sprintf("%s: %v", ErrJSONDecoding, e.Err)
}

func (e *JSONDecodingError) Is(target error) bool {
	return target == ErrJSONDecoding
}

func (e *JSONDecodingError) Unwrap() error {
	return e.Err
}

// SerializationError reports a value that could not be encoded to or decoded
// from its persisted representation.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s for %q: %v", ErrSerializationFailure, e.Key, e.Err)
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerializationFailure
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsFallbackEligible reports whether a remote failure may be answered from the local cache.
// Only connectivity and data loading failures qualify; contract errors never do.
func IsFallbackEligible(err error) bool {
	return errors.Is(err, ErrNoConnectivity) || errors.Is(err, ErrDataLoading)
}

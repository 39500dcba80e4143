package labsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind string

const (
	// KindBusiness is a 2xx response whose envelope reports failure
	// (success=false, or a legacy code outside the success set).
	KindBusiness Kind = "business"
	// KindHTTP is a non-2xx response.
	KindHTTP Kind = "http"
	// KindTimeout is a call that got no response before its deadline.
	KindTimeout Kind = "timeout"
	// KindNetwork is a call that could not reach the backend.
	KindNetwork Kind = "network"
	// KindUnknown is everything else.
	KindUnknown Kind = "unknown"
)

// ErrNoProfile is returned by operations that need a loaded user profile.
var ErrNoProfile = errors.New("labsdk: no user profile loaded")

// APIError is the single error type returned by the request pipeline.
type APIError struct {
	Kind Kind

	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int

	// Message is the backend's own message field, verbatim. May be empty.
	Message string

	// Notice is the text shown to the user for this failure. Empty when the
	// failure was deliberately not surfaced (401 on logout, or a 401 that
	// joined an in-flight session recovery).
	Notice string

	// Body is the raw response body when one was received.
	Body json.RawMessage

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	text := e.Notice
	if text == "" {
		text = e.Message
	}
	if text == "" && e.StatusCode != 0 {
		text = http.StatusText(e.StatusCode)
	}
	if text == "" {
		text = msgRequestFailed
	}

	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, text)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, text)
}

// Unwrap returns the underlying transport error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

package shipper

import (
	"errors"
	"fmt"
	"net/http"
)

// ShipperError represents an error from an external collaborator (platform, identity, rate table).
type ShipperError struct {
	Source     string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Source, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Source, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError.
func (e *ShipperError) Is(target error) bool {
	t, ok := target.(*ShipperError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewShipperError creates a new ShipperError.
func NewShipperError(source, code, message string) *ShipperError {
	return &ShipperError{
		Source:  source,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
// Only 401, 404 and 429 mark the error retryable; the platform answers those while
// a freshly issued token is still propagating. A 5xx may arrive after the write
// took effect, so it is never retried.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	switch code {
	case http.StatusUnauthorized, http.StatusNotFound, http.StatusTooManyRequests:
		e.Retryable = true
	}
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for the install and quotation flows.
var (
	// ErrOAuthDenied indicates the platform returned an error to the OAuth callback.
	ErrOAuthDenied = errors.New("oauth authorization denied")

	// ErrStateMismatch indicates the callback state does not match the session state.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrMissingCode indicates the callback carried no authorization code.
	ErrMissingCode = errors.New("missing authorization code")

	// ErrIncompleteCredential indicates the token exchange did not yield token and store id.
	ErrIncompleteCredential = errors.New("incomplete credential")

	// ErrCarrierCreate indicates carrier registration failed.
	ErrCarrierCreate = errors.New("carrier creation failed")

	// ErrNotReady indicates the platform has not yet propagated a new credential.
	ErrNotReady = errors.New("platform not ready")

	// ErrTableNotFound indicates the rate table does not exist in the backend.
	ErrTableNotFound = errors.New("rate table not found")

	// ErrInvalidCatalog indicates the option catalog breaks its invariants.
	ErrInvalidCatalog = errors.New("invalid option catalog")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	return errors.Is(err, ErrNotReady)
}

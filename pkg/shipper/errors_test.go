package shipper_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/stretchr/testify/assert"
)

func TestShipperError_Error(t *testing.T) {
	err := shipper.NewShipperError("tiendanube", "INVALID_TOKEN", "Invalid access token")
	assert.Equal(t, "tiendanube error (INVALID_TOKEN): Invalid access token", err.Error())
}

func TestShipperError_ErrorWithCause(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.NewShipperError("ratesheet", "API_ERROR", "API call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "API call failed")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestShipperError_Unwrap(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.NewShipperError("tiendanube", "API_ERROR", "API call failed").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestShipperError_Is(t *testing.T) {
	err1 := shipper.NewShipperError("tiendanube", "HTTP_422", "Unprocessable")
	err2 := shipper.NewShipperError("ratesheet", "HTTP_422", "Different message")

	assert.True(t, errors.Is(err1, err2))
}

func TestShipperError_IsNot(t *testing.T) {
	err1 := shipper.NewShipperError("tiendanube", "HTTP_422", "Unprocessable")
	err2 := shipper.NewShipperError("tiendanube", "HTTP_500", "Server error")

	assert.False(t, errors.Is(err1, err2))
}

func TestShipperError_WithStatusCode(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnprocessableEntity, false},
		{http.StatusUnauthorized, true},
		{http.StatusNotFound, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, false},
		{http.StatusGatewayTimeout, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := shipper.NewShipperError("tiendanube", "HTTP", "failed").WithStatusCode(tt.code)
			assert.Equal(t, tt.code, err.StatusCode)
			assert.Equal(t, tt.retryable, shipper.IsRetryable(err))
		})
	}
}

func TestShipperError_WithRetryable(t *testing.T) {
	err := shipper.NewShipperError("tiendanube", "RATE_LIMIT", "Too many requests").WithRetryable(true)
	assert.True(t, err.Retryable)
}

func TestIsRetryable_Wrapped(t *testing.T) {
	inner := shipper.NewShipperError("tiendanube", "HTTP_429", "slow down").WithStatusCode(429)
	err := fmt.Errorf("creating carrier: %w", inner)
	assert.True(t, shipper.IsRetryable(err))
}

func TestIsRetryable_NotReady(t *testing.T) {
	assert.True(t, shipper.IsRetryable(shipper.ErrNotReady))
}

func TestIsRetryable_StateMismatch(t *testing.T) {
	assert.False(t, shipper.IsRetryable(shipper.ErrStateMismatch))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrOAuthDenied", shipper.ErrOAuthDenied},
		{"ErrStateMismatch", shipper.ErrStateMismatch},
		{"ErrMissingCode", shipper.ErrMissingCode},
		{"ErrIncompleteCredential", shipper.ErrIncompleteCredential},
		{"ErrCarrierCreate", shipper.ErrCarrierCreate},
		{"ErrNotReady", shipper.ErrNotReady},
		{"ErrTableNotFound", shipper.ErrTableNotFound},
		{"ErrInvalidCatalog", shipper.ErrInvalidCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

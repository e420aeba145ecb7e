package provisioning

import (
	"errors"
	"net/http"
)

// Error is an install failure carrying the status and the text shown to the merchant.
type Error struct {
	State  State // state the run was in when it aborted
	Status int
	Public string
	Err    error
}

func (e *Error) Error() string {
	return e.State.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func protocolError(state State, public string, err error) *Error {
	return &Error{State: state, Status: http.StatusBadRequest, Public: public, Err: err}
}

func fatalError(state State, public string, err error) *Error {
	return &Error{State: state, Status: http.StatusInternalServerError, Public: public, Err: err}
}

// HTTPStatus maps an install error to its HTTP status.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the plain-text reason to show the merchant for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Public != "" {
		return e.Public
	}
	return "Error durante la instalación."
}

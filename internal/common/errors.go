package common

import (
	"errors"
	"fmt"
)

// AppError carries the stable code and HTTP status the register UI keys on.
// Codes are short upper-snake identifiers such as INSUFFICIENT_STOCK,
// OVERPAYMENT or CART_CHANGED; Details holds the structured context rendered
// alongside them in the error envelope.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError builds an AppError without details. Call sites that need
// Details construct the struct directly.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// CodeOf returns the AppError code behind err, or "" when err carries none.
func CodeOf(err error) string {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code
	}
	return ""
}

package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the booking payment flow
type ErrorKind string

const (
	ErrKindInvalidInput        ErrorKind = "invalid_input"
	ErrKindAmountMismatch      ErrorKind = "amount_mismatch"
	ErrKindListingUnavailable  ErrorKind = "listing_unavailable"
	ErrKindOwnerNotOnboarded   ErrorKind = "owner_not_onboarded"
	ErrKindPaymentSetupFailed  ErrorKind = "payment_setup_failed"
	ErrKindInvalidSignature    ErrorKind = "invalid_signature"
	ErrKindMalformedMetadata   ErrorKind = "malformed_metadata"
	ErrKindPaymentNotCompleted ErrorKind = "payment_not_completed"
	ErrKindUnauthorized        ErrorKind = "unauthorized"
	ErrKindSessionNotFound     ErrorKind = "session_not_found"
	ErrKindProviderTimeout     ErrorKind = "provider_timeout"
	ErrKindNotFound            ErrorKind = "not_found"
	ErrKindConflict            ErrorKind = "conflict"
	ErrKindInternal            ErrorKind = "internal_error"
)

// Sentinels usable with errors.Is against any *AppError of the same kind
var (
	ErrInvalidInput        = &AppError{Kind: ErrKindInvalidInput}
	ErrAmountMismatch      = &AppError{Kind: ErrKindAmountMismatch}
	ErrListingUnavailable  = &AppError{Kind: ErrKindListingUnavailable}
	ErrOwnerNotOnboarded   = &AppError{Kind: ErrKindOwnerNotOnboarded}
	ErrPaymentSetupFailed  = &AppError{Kind: ErrKindPaymentSetupFailed}
	ErrInvalidSignature    = &AppError{Kind: ErrKindInvalidSignature}
	ErrMalformedMetadata   = &AppError{Kind: ErrKindMalformedMetadata}
	ErrPaymentNotCompleted = &AppError{Kind: ErrKindPaymentNotCompleted}
	ErrUnauthorized        = &AppError{Kind: ErrKindUnauthorized}
	ErrSessionNotFound     = &AppError{Kind: ErrKindSessionNotFound}
	ErrProviderTimeout     = &AppError{Kind: ErrKindProviderTimeout}
	ErrNotFound            = &AppError{Kind: ErrKindNotFound}
	ErrConflict            = &AppError{Kind: ErrKindConflict}
)

// AppError is a classified failure. Message is safe to show to clients,
// Err keeps the underlying cause for logs only.
type AppError struct {
	Kind           ErrorKind
	Message        string
	ExpectedAmount *int64
	Err            error
}

func (e *AppError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can compare against the package sentinels
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewAppError creates a classified error with a client-safe message
func NewAppError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// WrapAppError classifies an underlying error without exposing its text to clients
func WrapAppError(kind ErrorKind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// InvalidInput is shorthand for a validation failure
func InvalidInput(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// AmountMismatch carries the recomputed amount so the client can re-quote
func AmountMismatch(expected int64) *AppError {
	return &AppError{
		Kind:           ErrKindAmountMismatch,
		Message:        fmt.Sprintf("Amount mismatch: expected %d", expected),
		ExpectedAmount: &expected,
	}
}

// KindOf returns the kind of err, or ErrKindInternal when it is not classified
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrKindInternal
}

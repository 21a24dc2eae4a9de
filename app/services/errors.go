package services

import (
	"errors"

	"github.com/plantnet/plantnet-server/app/repositories"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrPaymentNotCompleted   = errors.New("payment not completed")
	ErrOrdersNotFound        = errors.New("no orders found for this checkout session")
	ErrCancellationForbidden = errors.New("delivered orders cannot be cancelled")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidInput          = errors.New("invalid input")

	// ErrConfirmationIncomplete means part of a paid session could not be
	// applied yet. Confirming again finishes it.
	ErrConfirmationIncomplete = errors.New("payment confirmation incomplete")

	ErrNotFound  = repositories.ErrNotFound
	ErrInvalidID = repositories.ErrInvalidID
)

// GatewayError is a failed or malformed call to the payment gateway.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return "payment gateway: " + e.Op + ": " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error { return e.Err }

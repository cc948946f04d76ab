package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for the booking and payment flows. Handlers map these to
// HTTP statuses; AlreadyPaid and PaymentNotCompleted are flow outcomes, not
// failures, and are modelled as ConfirmationResult states instead.
var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrVehicleNotFound  = errors.New("vehicle not found")
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrInvalidSession   = errors.New("invalid checkout session")
	ErrBookingCancelled = errors.New("booking is cancelled")
	ErrAlreadyPaid      = errors.New("booking is already paid")
	ErrNotCancellable   = errors.New("booking can no longer be cancelled")
)

// VehicleUnavailableError reports a creation-time reservation conflict.
// Fatal to the request; retrying needs a different vehicle or a later time.
type VehicleUnavailableError struct {
	VehicleID uuid.UUID
}

func (e *VehicleUnavailableError) Error() string {
	return fmt.Sprintf("vehicle %s is not available", e.VehicleID)
}

// IsVehicleUnavailable reports whether err is a VehicleUnavailableError
func IsVehicleUnavailable(err error) bool {
	var target *VehicleUnavailableError
	return errors.As(err, &target)
}

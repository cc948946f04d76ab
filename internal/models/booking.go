package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// PaymentStatus represents the payment state of a booking
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// ServiceType classifies what kind of ride a booking is
type ServiceType string

const (
	ServiceTypeAirportTransfer ServiceType = "airport_transfer"
	ServiceTypeTrip            ServiceType = "trip"
	ServiceTypeRental          ServiceType = "rental"
)

// ParseServiceType validates a caller-supplied service type
func ParseServiceType(s string) (ServiceType, bool) {
	switch ServiceType(s) {
	case ServiceTypeAirportTransfer, ServiceTypeTrip, ServiceTypeRental:
		return ServiceType(s), true
	default:
		return "", false
	}
}

// Booking represents a vehicle booking.
// TotalAmount is authoritative once a gateway session referencing the
// booking exists; only the reconciler may patch it, and only before
// session creation.
type Booking struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	VehicleID        uuid.UUID     `json:"vehicle_id" db:"vehicle_id"`
	CustomerName     string        `json:"customer_name" db:"customer_name"`
	CustomerEmail    string        `json:"customer_email" db:"customer_email"`
	CustomerPhone    string        `json:"customer_phone" db:"customer_phone"`
	ServiceType      ServiceType   `json:"service_type" db:"service_type"`
	PickupLocation   string        `json:"pickup_location" db:"pickup_location"`
	DropoffLocation  string        `json:"dropoff_location" db:"dropoff_location"`
	StartDate        string        `json:"start_date" db:"start_date"`
	StartTime        string        `json:"start_time" db:"start_time"`
	DurationHours    int           `json:"duration_hours" db:"duration_hours"`
	TotalAmount      float64       `json:"total_amount" db:"total_amount"`
	Currency         string        `json:"currency" db:"currency"`
	Status           BookingStatus `json:"status" db:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	GatewaySessionID *string       `json:"gateway_session_id,omitempty" db:"gateway_session_id"`
	GatewayPaymentID *string       `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	HoldExpiresAt    time.Time     `json:"hold_expires_at" db:"hold_expires_at"`
	VehicleReleased  bool          `json:"vehicle_released" db:"vehicle_released"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// IsPaid returns true if payment has completed
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}

// IsTerminal returns true if the booking can no longer transition
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusCancelled
}

// PriceBreakdown is the value object produced by the pricing engine.
// Amounts are major currency units; only Total is persisted, on the booking.
type PriceBreakdown struct {
	ServiceType       ServiceType `json:"service_type"`
	BasePrice         float64     `json:"base_price"`
	OverageHours      int         `json:"overage_hours"`
	OveragePrice      float64     `json:"overage_price"`
	MidnightSurcharge float64     `json:"midnight_surcharge"`
	Tax               float64     `json:"tax"`
	Subtotal          float64     `json:"subtotal"`
	Total             float64     `json:"total"`
	Currency          string      `json:"currency"`
}

// CreateBookingRequest is the payload for creating a booking
type CreateBookingRequest struct {
	VehicleID       string `json:"vehicle_id" binding:"required"`
	CustomerName    string `json:"customer_name" binding:"required"`
	CustomerEmail   string `json:"customer_email" binding:"required,email"`
	CustomerPhone   string `json:"customer_phone"`
	ServiceType     string `json:"service_type"`
	ServiceLabel    string `json:"service_label"`
	PickupLocation  string `json:"pickup_location" binding:"required"`
	DropoffLocation string `json:"dropoff_location"`
	StartDate       string `json:"start_date" binding:"required"`
	StartTime       string `json:"start_time" binding:"required"`
	DurationHours   int    `json:"duration_hours"`
}

// Validate checks request fields the binding tags cannot express
func (r *CreateBookingRequest) Validate() error {
	if _, err := uuid.Parse(r.VehicleID); err != nil {
		return fmt.Errorf("invalid vehicle_id")
	}
	if r.ServiceType != "" {
		if _, ok := ParseServiceType(r.ServiceType); !ok {
			return fmt.Errorf("invalid service_type: %s", r.ServiceType)
		}
	}
	if ServiceType(r.ServiceType) == ServiceTypeRental && r.DurationHours <= 0 {
		return fmt.Errorf("duration_hours is required for rental bookings")
	}
	if r.DurationHours < 0 {
		return fmt.Errorf("duration_hours cannot be negative")
	}
	return nil
}

// QuoteRequest asks for a price without creating a booking
type QuoteRequest struct {
	VehicleID       string `json:"vehicle_id" binding:"required"`
	ServiceType     string `json:"service_type"`
	ServiceLabel    string `json:"service_label"`
	PickupLocation  string `json:"pickup_location" binding:"required"`
	DropoffLocation string `json:"dropoff_location"`
	StartTime       string `json:"start_time" binding:"required"`
	DurationHours   int    `json:"duration_hours"`
}

// BookingResponse wraps a booking together with its price breakdown
type BookingResponse struct {
	Booking   *Booking        `json:"booking"`
	Breakdown *PriceBreakdown `json:"breakdown,omitempty"`
}

// CheckoutSessionResponse is returned when a gateway session is created
type CheckoutSessionResponse struct {
	BookingID   uuid.UUID `json:"booking_id"`
	SessionID   string    `json:"session_id"`
	RedirectURL string    `json:"redirect_url"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
}

// ConfirmationState reports the outcome of a fallback confirmation poll
type ConfirmationState string

const (
	ConfirmationConfirmed ConfirmationState = "confirmed"
	ConfirmationPending   ConfirmationState = "pending"
	ConfirmationFailed    ConfirmationState = "failed"
)

// ConfirmationResult is returned by the client-pollable confirmation path
type ConfirmationResult struct {
	State     ConfirmationState `json:"state"`
	BookingID uuid.UUID         `json:"booking_id"`
	Booking   *Booking          `json:"booking,omitempty"`
}

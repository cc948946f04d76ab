package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/config"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/luxeride/booking-backend/pkg/mail"
	"github.com/sirupsen/logrus"
)

// BookingStore is the persistence contract the lifecycle needs from the
// booking repository
type BookingStore interface {
	Create(booking *models.Booking) error
	GetByID(bookingID uuid.UUID) (*models.Booking, error)
	MarkPaid(bookingID uuid.UUID, gatewayPaymentID string) (bool, error)
	MarkPaymentFailed(bookingID uuid.UUID) (bool, error)
	Cancel(bookingID uuid.UUID, vehicleReleased bool, holdExpiresAt time.Time) (bool, error)
}

// VehicleStore is the catalog contract the lifecycle needs from the
// vehicle repository
type VehicleStore interface {
	GetByID(vehicleID uuid.UUID) (*models.Vehicle, error)
	Reserve(vehicleID uuid.UUID) (bool, error)
	Release(vehicleID uuid.UUID) (bool, error)
}

// BookingLifecycleService owns booking status transitions and the vehicle
// reservation that shadows them. Confirmation is idempotent and safe under
// concurrent callers: the repository's conditional update decides the
// single winner.
type BookingLifecycleService struct {
	bookings    BookingStore
	vehicles    VehicleStore
	pricing     *PricingService
	notifier    mail.Notifier
	reservation config.ReservationConfig
	currency    string
	logger      *logrus.Logger
}

// NewBookingLifecycleService creates a new lifecycle service
func NewBookingLifecycleService(
	bookings BookingStore,
	vehicles VehicleStore,
	pricing *PricingService,
	notifier mail.Notifier,
	reservation config.ReservationConfig,
	currency string,
	logger *logrus.Logger,
) *BookingLifecycleService {
	return &BookingLifecycleService{
		bookings:    bookings,
		vehicles:    vehicles,
		pricing:     pricing,
		notifier:    notifier,
		reservation: reservation,
		currency:    currency,
		logger:      logger,
	}
}

// Create prices the request, persists a pending booking and reserves the
// vehicle. The reservation is a conditional update; losing the race to
// another booking surfaces as VehicleUnavailableError with no writes left
// behind.
func (s *BookingLifecycleService) Create(req *models.CreateBookingRequest) (*models.Booking, *models.PriceBreakdown, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid vehicle_id")
	}

	vehicle, err := s.vehicles.GetByID(vehicleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, nil, ErrVehicleNotFound
	}
	if !vehicle.IsAvailable() {
		return nil, nil, &VehicleUnavailableError{VehicleID: vehicleID}
	}

	breakdown, err := s.pricing.Price(QuoteParams{
		Sheet:           vehicle.PriceSheet(),
		ServiceType:     models.ServiceType(req.ServiceType),
		ServiceLabel:    req.ServiceLabel,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		StartTime:       req.StartTime,
		DurationHours:   req.DurationHours,
	})
	if err != nil {
		return nil, nil, err
	}

	reserved, err := s.vehicles.Reserve(vehicleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reserve vehicle: %w", err)
	}
	if !reserved {
		return nil, nil, &VehicleUnavailableError{VehicleID: vehicleID}
	}

	booking := &models.Booking{
		VehicleID:       vehicleID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ServiceType:     breakdown.ServiceType,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		StartDate:       req.StartDate,
		StartTime:       req.StartTime,
		DurationHours:   req.DurationHours,
		TotalAmount:     breakdown.Total,
		Currency:        s.currency,
		HoldExpiresAt:   time.Now().Add(s.reservation.HoldTTL),
	}
	if err := s.bookings.Create(booking); err != nil {
		// Roll the reservation back; the vehicle must not stay locked
		// behind a booking that was never persisted.
		if _, releaseErr := s.vehicles.Release(vehicleID); releaseErr != nil {
			s.logger.WithError(releaseErr).WithField("vehicle_id", vehicleID).
				Error("Failed to release vehicle after booking create failure")
		}
		return nil, nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"vehicle_id":   vehicleID,
		"service_type": booking.ServiceType,
		"total_amount": booking.TotalAmount,
		"hold_expires": booking.HoldExpiresAt,
	}).Info("Booking created, vehicle reserved")

	return booking, breakdown, nil
}

// ConfirmPayment transitions a booking to confirmed/paid exactly once.
// Repeat calls (or the loser of a concurrent race) get the current booking
// back unchanged and trigger no second notification.
func (s *BookingLifecycleService) ConfirmPayment(bookingID uuid.UUID, gatewayPaymentID string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.IsPaid() {
		return booking, nil
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, ErrBookingCancelled
	}

	transitioned, err := s.bookings.MarkPaid(bookingID, gatewayPaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	updated, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}
	if updated == nil {
		return nil, ErrBookingNotFound
	}

	if !transitioned {
		// A concurrent caller won the conditional update. If the booking is
		// paid now that is an idempotent success, otherwise the state moved
		// somewhere confirmation is no longer legal.
		if updated.IsPaid() {
			return updated, nil
		}
		return nil, fmt.Errorf("booking %s is not in a confirmable state (status: %s, payment: %s)",
			bookingID, updated.Status, updated.PaymentStatus)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":         bookingID,
		"gateway_payment_id": gatewayPaymentID,
	}).Info("Booking confirmed and paid")

	s.notifyConfirmed(updated)
	return updated, nil
}

// FailPayment records a failed gateway payment. The booking stays pending
// and cancellable, and checkout can be retried.
func (s *BookingLifecycleService) FailPayment(bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.IsPaid() {
		// A completed payment is never demoted by a late failure event.
		return booking, nil
	}

	if _, err := s.bookings.MarkPaymentFailed(bookingID); err != nil {
		return nil, err
	}

	s.logger.WithField("booking_id", bookingID).Warn("Payment failed for booking")
	return s.bookings.GetByID(bookingID)
}

// Cancel transitions a pending, unpaid booking to cancelled and returns
// the vehicle to the pool, immediately or after the configured grace
// period. Confirmed bookings fail closed.
func (s *BookingLifecycleService) Cancel(bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.Status != models.BookingStatusPending || booking.IsPaid() {
		return nil, ErrNotCancellable
	}

	releaseNow := s.reservation.CancelReleaseGrace <= 0
	holdUntil := time.Now().Add(s.reservation.CancelReleaseGrace)

	cancelled, err := s.bookings.Cancel(bookingID, releaseNow, holdUntil)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !cancelled {
		return nil, ErrNotCancellable
	}

	if releaseNow {
		if _, err := s.vehicles.Release(booking.VehicleID); err != nil {
			s.logger.WithError(err).WithField("vehicle_id", booking.VehicleID).
				Error("Failed to release vehicle on cancellation")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  bookingID,
		"vehicle_id":  booking.VehicleID,
		"release_now": releaseNow,
	}).Info("Booking cancelled")

	return s.bookings.GetByID(bookingID)
}

// Quote prices a request without creating a booking or touching the
// vehicle's reservation state
func (s *BookingLifecycleService) Quote(req *models.QuoteRequest) (*models.PriceBreakdown, error) {
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("invalid vehicle_id")
	}
	vehicle, err := s.vehicles.GetByID(vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	return s.pricing.Price(QuoteParams{
		Sheet:           vehicle.PriceSheet(),
		ServiceType:     models.ServiceType(req.ServiceType),
		ServiceLabel:    req.ServiceLabel,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		StartTime:       req.StartTime,
		DurationHours:   req.DurationHours,
	})
}

// Get loads a booking by ID
func (s *BookingLifecycleService) Get(bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// notifyConfirmed sends the confirmation email. Best effort: a failed
// email never unwinds a paid booking.
func (s *BookingLifecycleService) notifyConfirmed(booking *models.Booking) {
	vehicleName := ""
	if vehicle, err := s.vehicles.GetByID(booking.VehicleID); err == nil && vehicle != nil {
		vehicleName = vehicle.Name
	}

	data := map[string]interface{}{
		"CustomerName":   booking.CustomerName,
		"ServiceType":    string(booking.ServiceType),
		"VehicleName":    vehicleName,
		"StartDate":      booking.StartDate,
		"StartTime":      booking.StartTime,
		"PickupLocation": booking.PickupLocation,
		"Currency":       booking.Currency,
		"Total":          booking.TotalAmount,
		"BookingID":      booking.ID.String(),
	}
	if err := s.notifier.Send(booking.CustomerEmail, "Your booking is confirmed", mail.TemplateBookingConfirmed, data); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).
			Warn("Failed to send confirmation email")
	}
}

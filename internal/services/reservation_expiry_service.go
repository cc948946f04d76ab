package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const sweepBatchSize = 100

// SweepBookingStore is the slice of the booking repository the expiry
// sweep reads and writes
type SweepBookingStore interface {
	GetExpiredHolds(limit int) ([]*models.Booking, error)
	GetUnreleasedCancelled(limit int) ([]*models.Booking, error)
	Cancel(bookingID uuid.UUID, vehicleReleased bool, holdExpiresAt time.Time) (bool, error)
	MarkVehicleReleased(bookingID uuid.UUID) error
}

// SweepResult reports what a single sweep pass did
type SweepResult struct {
	Expired  int `json:"expired"`
	Released int `json:"released"`
}

// ReservationExpiryService reclaims vehicles from pending bookings whose
// payment hold lapsed, and from cancelled bookings whose release was
// deferred by the grace period. Each transition is a conditional update,
// so a payment landing mid-sweep wins and the sweep skips that booking.
type ReservationExpiryService struct {
	bookings SweepBookingStore
	vehicles VehicleStore
	audits   AuditLog
	logger   *logrus.Logger
}

// NewReservationExpiryService creates a new reservation expiry service
func NewReservationExpiryService(
	bookings SweepBookingStore,
	vehicles VehicleStore,
	audits AuditLog,
	logger *logrus.Logger,
) *ReservationExpiryService {
	return &ReservationExpiryService{
		bookings: bookings,
		vehicles: vehicles,
		audits:   audits,
		logger:   logger,
	}
}

// Sweep runs one pass over expired holds and deferred releases
func (s *ReservationExpiryService) Sweep() (*SweepResult, error) {
	result := &SweepResult{}

	expired, err := s.bookings.GetExpiredHolds(sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	for _, booking := range expired {
		if s.expireBooking(booking) {
			result.Expired++
			result.Released++
		}
	}

	deferred, err := s.bookings.GetUnreleasedCancelled(sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list deferred releases: %w", err)
	}
	for _, booking := range deferred {
		if s.releaseBooking(booking) {
			result.Released++
		}
	}

	if result.Expired > 0 || result.Released > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired":  result.Expired,
			"released": result.Released,
		}).Info("Reservation sweep reclaimed vehicles")
	}
	return result, nil
}

// expireBooking cancels one expired pending booking and releases its
// vehicle. Returns false when the booking escaped the sweep, typically
// because it was paid in the meantime.
func (s *ReservationExpiryService) expireBooking(booking *models.Booking) bool {
	cancelled, err := s.bookings.Cancel(booking.ID, true, booking.HoldExpiresAt)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).
			Error("Failed to cancel expired booking")
		return false
	}
	if !cancelled {
		return false
	}

	if _, err := s.vehicles.Release(booking.VehicleID); err != nil {
		s.logger.WithError(err).WithField("vehicle_id", booking.VehicleID).
			Error("Failed to release vehicle for expired booking")
	}

	if s.audits != nil {
		status := string(models.PaymentStatusPending)
		if err := s.audits.Log(&models.PaymentAudit{
			BookingID:     &booking.ID,
			SessionID:     booking.GatewaySessionID,
			EventType:     models.PaymentEventPaymentFailed,
			EventSource:   models.PaymentSourceSweep,
			PaymentStatus: &status,
		}); err != nil {
			s.logger.WithError(err).Error("Failed to write sweep audit entry")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"vehicle_id": booking.VehicleID,
		"expired_at": booking.HoldExpiresAt,
	}).Info("Expired unpaid booking, vehicle released")
	return true
}

// releaseBooking releases the vehicle of a cancelled booking whose grace
// period has lapsed
func (s *ReservationExpiryService) releaseBooking(booking *models.Booking) bool {
	if _, err := s.vehicles.Release(booking.VehicleID); err != nil {
		s.logger.WithError(err).WithField("vehicle_id", booking.VehicleID).
			Error("Failed to release vehicle for cancelled booking")
		return false
	}
	if err := s.bookings.MarkVehicleReleased(booking.ID); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).
			Error("Failed to mark vehicle released")
		return false
	}
	return true
}

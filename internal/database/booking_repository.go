package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/models"
)

// BookingRepository handles booking database operations.
// Every state transition is a conditional update keyed on the expected
// prior state, so racing callers resolve to exactly one winner.
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, vehicle_id, customer_name, customer_email, customer_phone,
	service_type, pickup_location, dropoff_location, start_date, start_time,
	duration_hours, total_amount, currency, status, payment_status,
	gateway_session_id, gateway_payment_id, hold_expires_at, vehicle_released,
	created_at, updated_at`

func scanBooking(row interface {
	Scan(dest ...interface{}) error
}) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.VehicleID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.ServiceType, &b.PickupLocation, &b.DropoffLocation, &b.StartDate, &b.StartTime,
		&b.DurationHours, &b.TotalAmount, &b.Currency, &b.Status, &b.PaymentStatus,
		&b.GatewaySessionID, &b.GatewayPaymentID, &b.HoldExpiresAt, &b.VehicleReleased,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create persists a new booking in pending/pending state
func (r *BookingRepository) Create(booking *models.Booking) error {
	booking.ID = uuid.New()
	booking.Status = models.BookingStatusPending
	booking.PaymentStatus = models.PaymentStatusPending
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	query := `
		INSERT INTO bookings (
			id, vehicle_id, customer_name, customer_email, customer_phone,
			service_type, pickup_location, dropoff_location, start_date, start_time,
			duration_hours, total_amount, currency, status, payment_status,
			hold_expires_at, vehicle_released, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)`

	_, err := r.db.Exec(query,
		booking.ID, booking.VehicleID, booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone,
		booking.ServiceType, booking.PickupLocation, booking.DropoffLocation, booking.StartDate, booking.StartTime,
		booking.DurationHours, booking.TotalAmount, booking.Currency, booking.Status, booking.PaymentStatus,
		booking.HoldExpiresAt, booking.VehicleReleased, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by ID. Returns nil, nil when not found.
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(query, bookingID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetBySessionID retrieves a booking by its gateway checkout session ID
func (r *BookingRepository) GetBySessionID(sessionID string) (*models.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE gateway_session_id = $1`

	booking, err := scanBooking(r.db.QueryRow(query, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by session: %w", err)
	}
	return booking, nil
}

// List retrieves bookings ordered by creation time, newest first
func (r *BookingRepository) List(limit, offset int) ([]*models.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// MarkPaid performs the idempotent payment confirmation transition.
// Returns true only for the caller that actually flipped the row; a
// concurrent duplicate sees zero rows affected.
func (r *BookingRepository) MarkPaid(bookingID uuid.UUID, gatewayPaymentID string) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_status = 'paid',
		    status = 'confirmed',
		    gateway_payment_id = $2,
		    updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending' AND status = 'pending'`

	result, err := r.db.Exec(query, bookingID, gatewayPaymentID)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking paid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read mark-paid result: %w", err)
	}
	return rows == 1, nil
}

// MarkPaymentFailed flags a failed gateway payment. The booking stays
// pending so the customer can retry with a fresh checkout session.
func (r *BookingRepository) MarkPaymentFailed(bookingID uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_status = 'failed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending' AND status = 'pending'`

	result, err := r.db.Exec(query, bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read mark-failed result: %w", err)
	}
	return rows == 1, nil
}

// ReopenPayment re-enters payment pending after a failure, for retry
func (r *BookingRepository) ReopenPayment(bookingID uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_status = 'pending', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'failed' AND status = 'pending'`

	result, err := r.db.Exec(query, bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to reopen payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read reopen result: %w", err)
	}
	return rows == 1, nil
}

// Cancel transitions a pending, unpaid booking to cancelled. vehicleReleased
// records whether the vehicle was returned to the pool immediately or is
// left for the sweep (cancellation grace period).
func (r *BookingRepository) Cancel(bookingID uuid.UUID, vehicleReleased bool, holdExpiresAt time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled',
		    vehicle_released = $2,
		    hold_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND payment_status != 'paid'`

	result, err := r.db.Exec(query, bookingID, vehicleReleased, holdExpiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read cancel result: %w", err)
	}
	return rows == 1, nil
}

// SetGatewaySession stores the checkout session ID on a booking
func (r *BookingRepository) SetGatewaySession(bookingID uuid.UUID, sessionID string) error {
	query := `UPDATE bookings SET gateway_session_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, bookingID, sessionID); err != nil {
		return fmt.Errorf("failed to set gateway session: %w", err)
	}
	return nil
}

// PatchTotalAmount updates the persisted total before a session exists.
// Once a session references the booking the total is frozen; the WHERE
// clause refuses the patch if a session was created concurrently.
func (r *BookingRepository) PatchTotalAmount(bookingID uuid.UUID, total float64) (bool, error) {
	query := `
		UPDATE bookings
		SET total_amount = $2, updated_at = NOW()
		WHERE id = $1 AND gateway_session_id IS NULL AND payment_status = 'pending'`

	result, err := r.db.Exec(query, bookingID, total)
	if err != nil {
		return false, fmt.Errorf("failed to patch total amount: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read patch result: %w", err)
	}
	return rows == 1, nil
}

// GetExpiredHolds returns pending, unpaid bookings whose vehicle hold has
// lapsed. Used by the expiry sweep; capped to keep each cycle bounded.
func (r *BookingRepository) GetExpiredHolds(limit int) ([]*models.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending' AND payment_status != 'paid' AND hold_expires_at < NOW()
		ORDER BY hold_expires_at
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired holds: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// GetUnreleasedCancelled returns cancelled bookings still holding their
// vehicle past the cancellation grace period
func (r *BookingRepository) GetUnreleasedCancelled(limit int) ([]*models.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE status = 'cancelled' AND vehicle_released = FALSE AND hold_expires_at < NOW()
		ORDER BY hold_expires_at
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get unreleased cancelled bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cancelled booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// MarkVehicleReleased records that the sweep returned the vehicle
func (r *BookingRepository) MarkVehicleReleased(bookingID uuid.UUID) error {
	query := `UPDATE bookings SET vehicle_released = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, bookingID); err != nil {
		return fmt.Errorf("failed to mark vehicle released: %w", err)
	}
	return nil
}

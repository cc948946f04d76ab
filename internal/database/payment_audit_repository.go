package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository handles the immutable payment audit trail
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db, logger: logger}
}

// Log creates a new payment audit entry.
// Payment events must always be logged; a failure here is surfaced loudly.
func (r *PaymentAuditRepository) Log(audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, session_id,
			event_type, event_source,
			expected_amount, received_amount, currency, amounts_match,
			payment_status, gateway_payment_id,
			payload, error_message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.db.Exec(query,
		audit.ID, audit.BookingID, audit.SessionID,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.Currency, audit.AmountsMatch,
		audit.PaymentStatus, audit.GatewayPaymentID,
		audit.Payload, audit.ErrorMessage, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"booking_id": audit.BookingID,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}
	return nil
}

// GetByBookingID retrieves audit entries for a booking, oldest first
func (r *PaymentAuditRepository) GetByBookingID(bookingID uuid.UUID) ([]*models.PaymentAudit, error) {
	query := `
		SELECT id, booking_id, session_id, event_type, event_source,
		       expected_amount, received_amount, currency, amounts_match,
		       payment_status, gateway_payment_id, payload, error_message, created_at
		FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment audits: %w", err)
	}
	defer rows.Close()

	audits := make([]*models.PaymentAudit, 0)
	for rows.Next() {
		var a models.PaymentAudit
		if err := rows.Scan(
			&a.ID, &a.BookingID, &a.SessionID, &a.EventType, &a.EventSource,
			&a.ExpectedAmount, &a.ReceivedAmount, &a.Currency, &a.AmountsMatch,
			&a.PaymentStatus, &a.GatewayPaymentID, &a.Payload, &a.ErrorMessage, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment audit: %w", err)
		}
		audits = append(audits, &a)
	}
	return audits, rows.Err()
}

// ListRecent retrieves the most recent audit entries across all bookings
func (r *PaymentAuditRepository) ListRecent(limit, offset int) ([]*models.PaymentAudit, error) {
	query := `
		SELECT id, booking_id, session_id, event_type, event_source,
		       expected_amount, received_amount, currency, amounts_match,
		       payment_status, gateway_payment_id, payload, error_message, created_at
		FROM payment_audits
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	defer rows.Close()

	audits := make([]*models.PaymentAudit, 0)
	for rows.Next() {
		var a models.PaymentAudit
		if err := rows.Scan(
			&a.ID, &a.BookingID, &a.SessionID, &a.EventType, &a.EventSource,
			&a.ExpectedAmount, &a.ReceivedAmount, &a.Currency, &a.AmountsMatch,
			&a.PaymentStatus, &a.GatewayPaymentID, &a.Payload, &a.ErrorMessage, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment audit: %w", err)
		}
		audits = append(audits, &a)
	}
	return audits, rows.Err()
}

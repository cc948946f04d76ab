package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/config"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/luxeride/booking-backend/pkg/payment"
	"github.com/sirupsen/logrus"
)

// PaymentBookingStore is the slice of the booking repository the
// reconciler writes through
type PaymentBookingStore interface {
	GetByID(bookingID uuid.UUID) (*models.Booking, error)
	GetBySessionID(sessionID string) (*models.Booking, error)
	SetGatewaySession(bookingID uuid.UUID, sessionID string) error
	PatchTotalAmount(bookingID uuid.UUID, total float64) (bool, error)
	ReopenPayment(bookingID uuid.UUID) (bool, error)
}

// PaymentConfirmer applies verified payment outcomes to bookings
type PaymentConfirmer interface {
	ConfirmPayment(bookingID uuid.UUID, gatewayPaymentID string) (*models.Booking, error)
	FailPayment(bookingID uuid.UUID) (*models.Booking, error)
}

// AuditLog records payment events for reconciliation
type AuditLog interface {
	Log(audit *models.PaymentAudit) error
}

// PaymentReconcilerService mediates between the payment gateway and
// booking state. It owns session creation, webhook processing and the
// client-pollable fallback, and writes an audit row for every gateway
// interaction.
type PaymentReconcilerService struct {
	gateway   payment.Gateway
	bookings  PaymentBookingStore
	vehicles  VehicleStore
	confirmer PaymentConfirmer
	pricing   *PricingService
	audits    AuditLog
	cfg       config.PaymentConfig
	logger    *logrus.Logger
}

// NewPaymentReconcilerService creates a new payment reconciler service
func NewPaymentReconcilerService(
	gateway payment.Gateway,
	bookings PaymentBookingStore,
	vehicles VehicleStore,
	confirmer PaymentConfirmer,
	pricing *PricingService,
	audits AuditLog,
	cfg config.PaymentConfig,
	logger *logrus.Logger,
) *PaymentReconcilerService {
	return &PaymentReconcilerService{
		gateway:   gateway,
		bookings:  bookings,
		vehicles:  vehicles,
		confirmer: confirmer,
		pricing:   pricing,
		audits:    audits,
		cfg:       cfg,
		logger:    logger,
	}
}

// toMinorUnits converts a major-unit amount to integer minor units.
// This is the single place the conversion happens.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateCheckoutSession re-prices the booking, repairs any stored total
// that drifted from the current price (only while no session exists yet),
// and opens a hosted checkout session for the authoritative amount.
// Paid and cancelled bookings fail closed.
func (s *PaymentReconcilerService) CreateCheckoutSession(bookingID uuid.UUID) (*models.CheckoutSessionResponse, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.IsPaid() {
		return nil, ErrAlreadyPaid
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, ErrBookingCancelled
	}
	if booking.PaymentStatus == models.PaymentStatusFailed {
		// A failed attempt does not block retrying checkout.
		if _, err := s.bookings.ReopenPayment(bookingID); err != nil {
			return nil, fmt.Errorf("failed to reopen payment: %w", err)
		}
	}

	breakdown, err := s.repriceBooking(booking)
	if err != nil {
		return nil, err
	}

	total := booking.TotalAmount
	if breakdown.Total != booking.TotalAmount && booking.GatewaySessionID == nil {
		patched, err := s.bookings.PatchTotalAmount(bookingID, breakdown.Total)
		if err != nil {
			return nil, fmt.Errorf("failed to patch booking total: %w", err)
		}
		if patched {
			s.logger.WithFields(logrus.Fields{
				"booking_id": bookingID,
				"old_total":  booking.TotalAmount,
				"new_total":  breakdown.Total,
			}).Warn("Stored booking total drifted from current price, patched before checkout")
			s.logAudit(&models.PaymentAudit{
				BookingID:      &booking.ID,
				EventType:      models.PaymentEventTotalPatched,
				EventSource:    models.PaymentSourceBackend,
				ExpectedAmount: &breakdown.Total,
				ReceivedAmount: &booking.TotalAmount,
			})
			total = breakdown.Total
		}
	}

	items := s.lineItems(breakdown)
	if breakdown.Total != total {
		// The stored total is frozen once a session exists. If the sheet
		// drifted since, itemizing the fresh breakdown would not sum to
		// the charged amount, so bill a single consolidated line instead.
		items = []payment.LineItem{{
			Name:        serviceLineName(booking.ServiceType),
			AmountMinor: toMinorUnits(total),
			Quantity:    1,
		}}
	}

	session, err := s.gateway.CreateSession(&payment.SessionRequest{
		AmountMinor: toMinorUnits(total),
		Currency:    s.cfg.Currency,
		LineItems:   items,
		SuccessURL:  s.cfg.SuccessURL,
		CancelURL:   s.cfg.CancelURL,
		Metadata:    map[string]string{"booking_id": booking.ID.String()},
	})
	if err != nil {
		msg := err.Error()
		s.logAudit(&models.PaymentAudit{
			BookingID:    &booking.ID,
			EventType:    models.PaymentEventSessionCreateFailed,
			EventSource:  models.PaymentSourceBackend,
			ErrorMessage: &msg,
		})
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.bookings.SetGatewaySession(bookingID, session.ID); err != nil {
		return nil, fmt.Errorf("failed to store session id: %w", err)
	}

	s.logAudit(&models.PaymentAudit{
		BookingID:      &booking.ID,
		SessionID:      &session.ID,
		EventType:      models.PaymentEventSessionCreated,
		EventSource:    models.PaymentSourceBackend,
		ExpectedAmount: &total,
		Currency:       &s.cfg.Currency,
	})

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"session_id": session.ID,
		"amount":     total,
	}).Info("Checkout session created")

	return &models.CheckoutSessionResponse{
		BookingID:   booking.ID,
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		Amount:      total,
		Currency:    s.cfg.Currency,
	}, nil
}

// HandleWebhook verifies a gateway webhook delivery and applies it.
// Unverifiable deliveries and amount mismatches are rejected and audited.
func (s *PaymentReconcilerService) HandleWebhook(body []byte, signature string) error {
	event, err := s.gateway.VerifyWebhook(body, signature)
	if err != nil {
		msg := err.Error()
		s.logAudit(&models.PaymentAudit{
			EventType:    models.PaymentEventWebhookRejected,
			EventSource:  models.PaymentSourceWebhook,
			ErrorMessage: &msg,
		})
		return err
	}

	booking, err := s.resolveBooking(event)
	if err != nil {
		msg := err.Error()
		s.logAudit(&models.PaymentAudit{
			SessionID:    &event.Data.SessionID,
			EventType:    models.PaymentEventWebhookRejected,
			EventSource:  models.PaymentSourceWebhook,
			ErrorMessage: &msg,
			Payload:      webhookPayload(event),
		})
		return err
	}

	s.logAudit(&models.PaymentAudit{
		BookingID:   &booking.ID,
		SessionID:   &event.Data.SessionID,
		EventType:   models.PaymentEventWebhookReceived,
		EventSource: models.PaymentSourceWebhook,
		Payload:     webhookPayload(event),
	})

	switch event.Type {
	case payment.EventCheckoutCompleted:
		// The amount check only applies when the delivery carries one;
		// events without an amount confirm on the session alone.
		expected := booking.TotalAmount
		var received *float64
		if event.Data.AmountMinor != nil {
			v := float64(*event.Data.AmountMinor) / 100
			received = &v
			if *event.Data.AmountMinor != toMinorUnits(booking.TotalAmount) {
				match := false
				s.logAudit(&models.PaymentAudit{
					BookingID:      &booking.ID,
					SessionID:      &event.Data.SessionID,
					EventType:      models.PaymentEventReconciliationMismatch,
					EventSource:    models.PaymentSourceWebhook,
					ExpectedAmount: &expected,
					ReceivedAmount: received,
					Currency:       &event.Data.Currency,
					AmountsMatch:   &match,
				})
				return fmt.Errorf("webhook amount %d does not match booking total %d for booking %s",
					*event.Data.AmountMinor, toMinorUnits(booking.TotalAmount), booking.ID)
			}
		}

		confirmed, err := s.confirmer.ConfirmPayment(booking.ID, event.Data.PaymentIntentID)
		if err != nil {
			return fmt.Errorf("failed to apply webhook confirmation: %w", err)
		}
		status := string(confirmed.PaymentStatus)
		s.logAudit(&models.PaymentAudit{
			BookingID:        &booking.ID,
			SessionID:        &event.Data.SessionID,
			EventType:        models.PaymentEventPaymentConfirmed,
			EventSource:      models.PaymentSourceWebhook,
			ExpectedAmount:   &expected,
			ReceivedAmount:   received,
			PaymentStatus:    &status,
			GatewayPaymentID: &event.Data.PaymentIntentID,
		})
		return nil

	case payment.EventAsyncPaymentFailed:
		if _, err := s.confirmer.FailPayment(booking.ID); err != nil {
			return fmt.Errorf("failed to apply webhook payment failure: %w", err)
		}
		s.logAudit(&models.PaymentAudit{
			BookingID:   &booking.ID,
			SessionID:   &event.Data.SessionID,
			EventType:   models.PaymentEventPaymentFailed,
			EventSource: models.PaymentSourceWebhook,
		})
		return nil

	default:
		s.logger.WithField("event_type", event.Type).Debug("Ignoring unhandled webhook event type")
		return nil
	}
}

// ConfirmFallback lets the success-page client nudge confirmation when the
// webhook has not landed yet. It trusts only the gateway's own view of the
// session, never the client.
func (s *PaymentReconcilerService) ConfirmFallback(bookingID uuid.UUID) (*models.ConfirmationResult, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.IsPaid() {
		return &models.ConfirmationResult{
			State:     models.ConfirmationConfirmed,
			BookingID: booking.ID,
			Booking:   booking,
		}, nil
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, ErrBookingCancelled
	}
	if booking.GatewaySessionID == nil {
		return nil, ErrInvalidSession
	}

	status, err := s.gateway.RetrieveSession(*booking.GatewaySessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}

	paymentStatus := status.PaymentStatus
	s.logAudit(&models.PaymentAudit{
		BookingID:     &booking.ID,
		SessionID:     booking.GatewaySessionID,
		EventType:     models.PaymentEventStatusCheck,
		EventSource:   models.PaymentSourceFallback,
		PaymentStatus: &paymentStatus,
	})

	if status.PaymentStatus != payment.SessionPaymentPaid {
		state := models.ConfirmationPending
		if status.SessionStatus == "expired" {
			state = models.ConfirmationFailed
		}
		return &models.ConfirmationResult{
			State:     state,
			BookingID: booking.ID,
			Booking:   booking,
		}, nil
	}

	confirmed, err := s.confirmer.ConfirmPayment(booking.ID, status.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply fallback confirmation: %w", err)
	}

	gatewayPaymentID := status.PaymentIntentID
	s.logAudit(&models.PaymentAudit{
		BookingID:        &booking.ID,
		SessionID:        booking.GatewaySessionID,
		EventType:        models.PaymentEventPaymentConfirmed,
		EventSource:      models.PaymentSourceFallback,
		PaymentStatus:    &paymentStatus,
		GatewayPaymentID: &gatewayPaymentID,
	})

	return &models.ConfirmationResult{
		State:     models.ConfirmationConfirmed,
		BookingID: confirmed.ID,
		Booking:   confirmed,
	}, nil
}

// repriceBooking recomputes the price breakdown from the vehicle's current
// price sheet and the booking's stored service parameters
func (s *PaymentReconcilerService) repriceBooking(booking *models.Booking) (*models.PriceBreakdown, error) {
	vehicle, err := s.vehicles.GetByID(booking.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	return s.pricing.Price(QuoteParams{
		Sheet:           vehicle.PriceSheet(),
		ServiceType:     booking.ServiceType,
		PickupLocation:  booking.PickupLocation,
		DropoffLocation: booking.DropoffLocation,
		StartTime:       booking.StartTime,
		DurationHours:   booking.DurationHours,
	})
}

// lineItems renders a breakdown as checkout line items. The base fare
// includes overage; surcharge and tax get their own lines when non-zero.
func (s *PaymentReconcilerService) lineItems(breakdown *models.PriceBreakdown) []payment.LineItem {
	items := []payment.LineItem{
		{
			Name:        serviceLineName(breakdown.ServiceType),
			AmountMinor: toMinorUnits(breakdown.Subtotal),
			Quantity:    1,
		},
	}
	if breakdown.MidnightSurcharge > 0 {
		items = append(items, payment.LineItem{
			Name:        "Midnight surcharge",
			AmountMinor: toMinorUnits(breakdown.MidnightSurcharge),
			Quantity:    1,
		})
	}
	if breakdown.Tax > 0 {
		items = append(items, payment.LineItem{
			Name:        "Tax",
			AmountMinor: toMinorUnits(breakdown.Tax),
			Quantity:    1,
		})
	}
	return items
}

// resolveBooking locates the booking a webhook event belongs to, by
// metadata first and session lookup second
func (s *PaymentReconcilerService) resolveBooking(event *payment.WebhookEvent) (*models.Booking, error) {
	if raw, ok := event.Data.Metadata["booking_id"]; ok && raw != "" {
		bookingID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("webhook metadata carries invalid booking_id %q", raw)
		}
		booking, err := s.bookings.GetByID(bookingID)
		if err != nil {
			return nil, fmt.Errorf("failed to load booking: %w", err)
		}
		if booking != nil {
			return booking, nil
		}
	}
	if event.Data.SessionID != "" {
		booking, err := s.bookings.GetBySessionID(event.Data.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load booking by session: %w", err)
		}
		if booking != nil {
			return booking, nil
		}
	}
	return nil, fmt.Errorf("no booking matches webhook session %q", event.Data.SessionID)
}

func serviceLineName(serviceType models.ServiceType) string {
	switch serviceType {
	case models.ServiceTypeAirportTransfer:
		return "Airport transfer"
	case models.ServiceTypeTrip:
		return "One-way trip"
	case models.ServiceTypeRental:
		return "Hourly rental"
	default:
		return "Chauffeur service"
	}
}

func webhookPayload(event *payment.WebhookEvent) models.JSONB {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	var payload models.JSONB
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}

// logAudit writes an audit row, logging instead of failing the caller
// when the write itself fails
func (s *PaymentReconcilerService) logAudit(audit *models.PaymentAudit) {
	if err := s.audits.Log(audit); err != nil {
		s.logger.WithError(err).WithField("event_type", audit.EventType).
			Error("Failed to write payment audit entry")
	}
}

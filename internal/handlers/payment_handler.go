package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luxeride/booking-backend/internal/services"
	"github.com/luxeride/booking-backend/pkg/payment"
	"github.com/sirupsen/logrus"
)

// webhookSignatureHeader carries the gateway's HMAC signature
const webhookSignatureHeader = "X-Gateway-Signature"

// PaymentHandler handles checkout and payment confirmation requests
type PaymentHandler struct {
	reconciler *services.PaymentReconcilerService
	logger     *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(reconciler *services.PaymentReconcilerService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// CreateCheckoutSession handles POST /api/v1/bookings/:id/checkout
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	bookingID, ok := parseIDParam(c)
	if !ok {
		return
	}

	session, err := h.reconciler.CreateCheckoutSession(bookingID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "booking_not_found",
				Message: "Booking not found",
			})
		case errors.Is(err, services.ErrAlreadyPaid):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "already_paid",
				Message: "Booking is already paid",
			})
		case errors.Is(err, services.ErrBookingCancelled):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "booking_cancelled",
				Message: "Booking is cancelled",
			})
		default:
			h.logger.WithError(err).Error("Failed to create checkout session")
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "checkout_failed",
				Message: "Failed to create checkout session",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, session)
}

// Webhook handles POST /api/v1/payments/webhook. The raw body is needed
// for signature verification, so it is read before any JSON binding.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_body",
			Message: "Failed to read request body",
		})
		return
	}

	signature := c.GetHeader(webhookSignatureHeader)
	if err := h.reconciler.HandleWebhook(body, signature); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_signature",
				Message: "Webhook signature verification failed",
			})
			return
		}
		h.logger.WithError(err).Warn("Webhook processing failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "webhook_failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// ConfirmFallback handles POST /api/v1/bookings/:id/confirm. The success
// page calls this when it lands before the webhook does.
func (h *PaymentHandler) ConfirmFallback(c *gin.Context) {
	bookingID, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.reconciler.ConfirmFallback(bookingID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "booking_not_found",
				Message: "Booking not found",
			})
		case errors.Is(err, services.ErrBookingCancelled):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "booking_cancelled",
				Message: "Booking is cancelled",
			})
		case errors.Is(err, services.ErrInvalidSession):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "no_session",
				Message: "Booking has no checkout session",
			})
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "session_not_found",
				Message: "Checkout session no longer exists at the gateway",
			})
		default:
			h.logger.WithError(err).Error("Fallback confirmation failed")
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "confirmation_failed",
				Message: "Failed to confirm payment",
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

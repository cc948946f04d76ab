package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/luxeride/booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// BookingHandler handles booking-related HTTP requests
type BookingHandler struct {
	lifecycle *services.BookingLifecycleService
	logger    *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(lifecycle *services.BookingLifecycleService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Create handles POST /api/v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	booking, breakdown, err := h.lifecycle.Create(&req)
	if err != nil {
		if services.IsVehicleUnavailable(err) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "vehicle_unavailable",
				Message: "The vehicle is no longer available",
			})
			return
		}
		if errors.Is(err, services.ErrVehicleNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "vehicle_not_found",
				Message: "Vehicle not found",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to create booking")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "booking_create_failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, models.BookingResponse{
		Booking:   booking,
		Breakdown: breakdown,
	})
}

// Quote handles POST /api/v1/bookings/quote
func (h *BookingHandler) Quote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	breakdown, err := h.lifecycle.Quote(&req)
	if err != nil {
		if errors.Is(err, services.ErrVehicleNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "vehicle_not_found",
				Message: "Vehicle not found",
			})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "quote_failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

// Get handles GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	bookingID, ok := parseIDParam(c)
	if !ok {
		return
	}

	booking, err := h.lifecycle.Get(bookingID)
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "booking_not_found",
				Message: "Booking not found",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to load booking")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "booking_load_failed",
			Message: "Failed to load booking",
		})
		return
	}

	c.JSON(http.StatusOK, models.BookingResponse{Booking: booking})
}

// Cancel handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	bookingID, ok := parseIDParam(c)
	if !ok {
		return
	}

	booking, err := h.lifecycle.Cancel(bookingID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "booking_not_found",
				Message: "Booking not found",
			})
		case errors.Is(err, services.ErrNotCancellable):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "not_cancellable",
				Message: "Booking can no longer be cancelled",
			})
		default:
			h.logger.WithError(err).Error("Failed to cancel booking")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "booking_cancel_failed",
				Message: "Failed to cancel booking",
			})
		}
		return
	}

	c.JSON(http.StatusOK, models.BookingResponse{Booking: booking})
}

// parseIDParam extracts and validates the :id path parameter
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "ID must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination reads limit/offset query params with sane defaults
func parsePagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

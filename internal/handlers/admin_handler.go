package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luxeride/booking-backend/internal/database"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/luxeride/booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// AdminHandler serves the operator dashboard endpoints
type AdminHandler struct {
	auth     *services.AdminAuthService
	bookings *database.BookingRepository
	audits   *database.PaymentAuditRepository
	cron     *services.CronService
	logger   *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	auth *services.AdminAuthService,
	bookings *database.BookingRepository,
	audits *database.PaymentAuditRepository,
	cron *services.CronService,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		auth:     auth,
		bookings: bookings,
		audits:   audits,
		cron:     cron,
		logger:   logger,
	}
}

// Login handles POST /api/v1/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	resp, err := h.auth.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_credentials",
				Message: "Invalid email or password",
			})
			return
		}
		h.logger.WithError(err).Error("Admin login failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "login_failed",
			Message: "Failed to log in",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListBookings handles GET /api/v1/admin/bookings
func (h *AdminHandler) ListBookings(c *gin.Context) {
	limit, offset := parsePagination(c)

	bookings, err := h.bookings.List(limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list bookings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "bookings_load_failed",
			Message: "Failed to load bookings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// BookingAudits handles GET /api/v1/admin/bookings/:id/audits
func (h *AdminHandler) BookingAudits(c *gin.Context) {
	bookingID, ok := parseIDParam(c)
	if !ok {
		return
	}

	audits, err := h.audits.GetByBookingID(bookingID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load payment audits")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "audits_load_failed",
			Message: "Failed to load payment audits",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audits": audits,
		"count":  len(audits),
	})
}

// ListAudits handles GET /api/v1/admin/audits
func (h *AdminHandler) ListAudits(c *gin.Context) {
	limit, offset := parsePagination(c)

	audits, err := h.audits.ListRecent(limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load payment audits")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "audits_load_failed",
			Message: "Failed to load payment audits",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audits": audits,
		"count":  len(audits),
	})
}

// RunSweep handles POST /api/v1/admin/sweep. It triggers the reservation
// expiry sweep outside its schedule.
func (h *AdminHandler) RunSweep(c *gin.Context) {
	result, err := h.cron.RunSweepNow()
	if err != nil {
		h.logger.WithError(err).Error("Manual sweep failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "sweep_failed",
			Message: "Reservation sweep failed",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// JobStatus handles GET /api/v1/admin/jobs
func (h *AdminHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.GetJobStatus())
}

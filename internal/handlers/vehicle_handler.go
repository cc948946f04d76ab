package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luxeride/booking-backend/internal/database"
	"github.com/sirupsen/logrus"
)

// VehicleHandler serves the vehicle catalog
type VehicleHandler struct {
	vehicles *database.VehicleRepository
	logger   *logrus.Logger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles *database.VehicleRepository, logger *logrus.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicles: vehicles,
		logger:   logger,
	}
}

// List handles GET /api/v1/vehicles
func (h *VehicleHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c)

	vehicles, err := h.vehicles.List(limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list vehicles")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "vehicles_load_failed",
			Message: "Failed to load vehicles",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vehicles": vehicles,
		"count":    len(vehicles),
	})
}

// Get handles GET /api/v1/vehicles/:id
func (h *VehicleHandler) Get(c *gin.Context) {
	vehicleID, ok := parseIDParam(c)
	if !ok {
		return
	}

	vehicle, err := h.vehicles.GetByID(vehicleID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load vehicle")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "vehicle_load_failed",
			Message: "Failed to load vehicle",
		})
		return
	}
	if vehicle == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "vehicle_not_found",
			Message: "Vehicle not found",
		})
		return
	}

	c.JSON(http.StatusOK, vehicle)
}

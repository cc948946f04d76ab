package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/models"
)

// VehicleRepository handles vehicle catalog database operations
type VehicleRepository struct {
	db DB
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `
	id, name, category, seats,
	price_airport_transfer, price_trip_base, price_6_hours, price_12_hours, price_per_hour,
	status, image_url, created_at, updated_at`

// GetByID retrieves a vehicle by ID. Returns nil, nil when not found.
func (r *VehicleRepository) GetByID(vehicleID uuid.UUID) (*models.Vehicle, error) {
	query := `SELECT` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	var vehicle models.Vehicle
	err := r.db.QueryRow(query, vehicleID).Scan(
		&vehicle.ID, &vehicle.Name, &vehicle.Category, &vehicle.Seats,
		&vehicle.PriceAirportTransfer, &vehicle.PriceTripBase, &vehicle.Price6Hours,
		&vehicle.Price12Hours, &vehicle.PricePerHour,
		&vehicle.Status, &vehicle.ImageURL, &vehicle.CreatedAt, &vehicle.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return &vehicle, nil
}

// List retrieves vehicles ordered by category and name
func (r *VehicleRepository) List(limit, offset int) ([]*models.Vehicle, error) {
	query := `SELECT` + vehicleColumns + ` FROM vehicles ORDER BY category, name LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]*models.Vehicle, 0)
	for rows.Next() {
		var vehicle models.Vehicle
		if err := rows.Scan(
			&vehicle.ID, &vehicle.Name, &vehicle.Category, &vehicle.Seats,
			&vehicle.PriceAirportTransfer, &vehicle.PriceTripBase, &vehicle.Price6Hours,
			&vehicle.Price12Hours, &vehicle.PricePerHour,
			&vehicle.Status, &vehicle.ImageURL, &vehicle.CreatedAt, &vehicle.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, &vehicle)
	}
	return vehicles, rows.Err()
}

// Reserve conditionally flips a vehicle to reserved.
// The WHERE clause on the current status is the concurrency guard: of two
// near-simultaneous reservations only one sees a row updated.
func (r *VehicleRepository) Reserve(vehicleID uuid.UUID) (bool, error) {
	query := `
		UPDATE vehicles
		SET status = 'reserved', updated_at = NOW()
		WHERE id = $1 AND status = 'available'`

	result, err := r.db.Exec(query, vehicleID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve vehicle: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read reserve result: %w", err)
	}
	return rows == 1, nil
}

// Release conditionally returns a reserved vehicle to the available pool
func (r *VehicleRepository) Release(vehicleID uuid.UUID) (bool, error) {
	query := `
		UPDATE vehicles
		SET status = 'available', updated_at = NOW()
		WHERE id = $1 AND status = 'reserved'`

	result, err := r.db.Exec(query, vehicleID)
	if err != nil {
		return false, fmt.Errorf("failed to release vehicle: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read release result: %w", err)
	}
	return rows == 1, nil
}

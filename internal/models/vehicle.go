package models

import (
	"time"

	"github.com/google/uuid"
)

// VehicleStatus represents the reservation state of a vehicle
type VehicleStatus string

const (
	VehicleStatusAvailable VehicleStatus = "available"
	VehicleStatusReserved  VehicleStatus = "reserved"
)

// Vehicle represents a vehicle in the fleet catalog.
// Price fields are major currency units; zero means "not set" and the
// pricing engine falls back to configured defaults.
type Vehicle struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	Name                 string        `json:"name" db:"name"`
	Category             string        `json:"category" db:"category"`
	Seats                int           `json:"seats" db:"seats"`
	PriceAirportTransfer float64       `json:"price_airport_transfer" db:"price_airport_transfer"`
	PriceTripBase        float64       `json:"price_trip_base" db:"price_trip_base"`
	Price6Hours          float64       `json:"price_6_hours" db:"price_6_hours"`
	Price12Hours         float64       `json:"price_12_hours" db:"price_12_hours"`
	PricePerHour         float64       `json:"price_per_hour" db:"price_per_hour"`
	Status               VehicleStatus `json:"status" db:"status"`
	ImageURL             *string       `json:"image_url,omitempty" db:"image_url"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

// IsAvailable returns true if the vehicle can accept a new reservation
func (v *Vehicle) IsAvailable() bool {
	return v.Status == VehicleStatusAvailable
}

// PriceSheet is the read-only pricing view of a vehicle used by the
// pricing engine. It carries no reservation state.
type PriceSheet struct {
	AirportTransfer float64 `json:"airport_transfer"`
	TripBase        float64 `json:"trip_base"`
	SixHours        float64 `json:"six_hours"`
	TwelveHours     float64 `json:"twelve_hours"`
	PerHour         float64 `json:"per_hour"`
}

// PriceSheet extracts the pricing view from a vehicle
func (v *Vehicle) PriceSheet() PriceSheet {
	return PriceSheet{
		AirportTransfer: v.PriceAirportTransfer,
		TripBase:        v.PriceTripBase,
		SixHours:        v.Price6Hours,
		TwelveHours:     v.Price12Hours,
		PerHour:         v.PricePerHour,
	}
}

package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/luxeride/booking-backend/internal/config"
	"github.com/luxeride/booking-backend/internal/models"
)

// PricingService computes price breakdowns for bookings. It is pure: no
// I/O, no clock reads, deterministic for a given input and configuration.
// Every caller that needs a price goes through here; the old site
// reimplemented these rules per endpoint and they drifted.
type PricingService struct {
	cfg        config.PricingConfig
	currency   string
	airports   AirportMatcher
	classifier ServiceTypeClassifier
}

// QuoteParams are the inputs to a price computation
type QuoteParams struct {
	Sheet           models.PriceSheet
	ServiceType     models.ServiceType // empty means classify from the text fields
	ServiceLabel    string
	PickupLocation  string
	DropoffLocation string
	StartTime       string // "HH:MM", local wall clock
	DurationHours   int    // rentals only
}

// NewPricingService creates a pricing service
func NewPricingService(
	cfg config.PricingConfig,
	currency string,
	airports AirportMatcher,
	classifier ServiceTypeClassifier,
) *PricingService {
	return &PricingService{
		cfg:        cfg,
		currency:   currency,
		airports:   airports,
		classifier: classifier,
	}
}

// Price computes the full breakdown for the given parameters
func (s *PricingService) Price(params QuoteParams) (*models.PriceBreakdown, error) {
	serviceType := params.ServiceType
	if serviceType == "" {
		serviceType = s.classifier.Classify(params.ServiceLabel, params.PickupLocation, params.DropoffLocation)
	}

	breakdown := &models.PriceBreakdown{
		ServiceType: serviceType,
		Currency:    s.currency,
	}

	switch serviceType {
	case models.ServiceTypeAirportTransfer:
		breakdown.BasePrice = s.airportTransferPrice(params.PickupLocation, params.DropoffLocation, params.Sheet)
	case models.ServiceTypeTrip:
		breakdown.BasePrice = orDefault(params.Sheet.TripBase, s.cfg.DefaultTripRate)
	case models.ServiceTypeRental:
		base, overageHours, overage, err := s.rentalPrice(params.Sheet, params.DurationHours)
		if err != nil {
			return nil, err
		}
		breakdown.BasePrice = base
		breakdown.OverageHours = overageHours
		breakdown.OveragePrice = overage
	default:
		return nil, fmt.Errorf("unknown service type: %s", serviceType)
	}

	hour, err := parseHour(params.StartTime)
	if err != nil {
		return nil, err
	}
	if s.inNightWindow(hour) {
		breakdown.MidnightSurcharge = s.cfg.MidnightSurcharge
	}

	breakdown.Subtotal = round2(breakdown.BasePrice + breakdown.OveragePrice)
	breakdown.Tax = round2(breakdown.Subtotal * s.cfg.TaxRate)
	breakdown.Total = round2(breakdown.Subtotal + breakdown.Tax + breakdown.MidnightSurcharge)
	return breakdown, nil
}

// airportTransferPrice applies the direction-aware airport rate: full rate
// from the airport, a fixed reduction (floored at zero) toward it, full
// rate in the ambiguous both/neither cases.
func (s *PricingService) airportTransferPrice(pickup, dropoff string, sheet models.PriceSheet) float64 {
	rate := orDefault(sheet.AirportTransfer, s.cfg.DefaultAirportRate)

	pickupIsAirport := s.airports.IsAirport(pickup)
	dropoffIsAirport := s.airports.IsAirport(dropoff)

	if !pickupIsAirport && dropoffIsAirport {
		return math.Max(0, rate-s.cfg.AirportBoundDiscount)
	}
	return rate
}

// rentalPrice applies the tiered package pricing. Exact tier boundaries
// (6h, 12h) bill the flat package, not the overage formula.
func (s *PricingService) rentalPrice(sheet models.PriceSheet, durationHours int) (base float64, overageHours int, overage float64, err error) {
	if durationHours <= 0 {
		return 0, 0, 0, fmt.Errorf("rental duration must be positive, got %d", durationHours)
	}

	sixHourRate := orDefault(sheet.SixHours, s.cfg.Default6HourRate)
	twelveHourRate := orDefault(sheet.TwelveHours, s.cfg.Default12HourRate)
	hourlyRate := orDefault(sheet.PerHour, s.cfg.DefaultHourlyRate)

	switch {
	case durationHours <= 6:
		return sixHourRate, 0, 0, nil
	case durationHours < 12:
		overageHours = durationHours - 6
		return sixHourRate, overageHours, float64(overageHours) * hourlyRate, nil
	case durationHours == 12:
		return twelveHourRate, 0, 0, nil
	default:
		overageHours = durationHours - 12
		return twelveHourRate, overageHours, float64(overageHours) * hourlyRate, nil
	}
}

// inNightWindow reports whether a pickup hour attracts the midnight
// surcharge. A start after the end wraps midnight (23..07); a start
// before the end is a plain same-day range.
func (s *PricingService) inNightWindow(hour int) bool {
	start, end := s.cfg.NightStartHour, s.cfg.NightEndHour
	if start > end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

// parseHour extracts the hour component from an "HH:MM" wall-clock string
func parseHour(startTime string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(startTime), ":", 2)
	if len(parts) < 1 || parts[0] == "" {
		return 0, fmt.Errorf("invalid start time: %q", startTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid start time hour: %q", startTime)
	}
	return hour, nil
}

func orDefault(value, fallback float64) float64 {
	if value > 0 {
		return value
	}
	return fallback
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

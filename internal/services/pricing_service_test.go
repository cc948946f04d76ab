package services

import (
	"testing"

	"github.com/luxeride/booking-backend/internal/config"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		TaxRate:              0,
		MidnightSurcharge:    10,
		NightStartHour:       23,
		NightEndHour:         7,
		AirportBoundDiscount: 10,
		DefaultAirportRate:   80,
		DefaultTripRate:      70,
		Default6HourRate:     360,
		Default12HourRate:    720,
		DefaultHourlyRate:    60,
	}
}

func newTestPricingService(cfg config.PricingConfig) *PricingService {
	airports := NewKeywordAirportMatcher()
	return NewPricingService(cfg, "USD", airports, NewLegacyTextClassifier(airports))
}

func testSheet() models.PriceSheet {
	return models.PriceSheet{
		AirportTransfer: 80,
		TripBase:        70,
		SixHours:        360,
		TwelveHours:     720,
		PerHour:         60,
	}
}

func TestAirportTransferPricing(t *testing.T) {
	svc := newTestPricingService(testPricingConfig())

	t.Run("From Airport Full Rate", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceType:     models.ServiceTypeAirportTransfer,
			PickupLocation:  "Changi Airport Terminal 1",
			DropoffLocation: "Marina Bay Sands",
			StartTime:       "14:00",
		})
		require.NoError(t, err)
		assert.Equal(t, 80.0, breakdown.BasePrice)
		assert.Equal(t, 0.0, breakdown.MidnightSurcharge)
		assert.Equal(t, 80.0, breakdown.Total)
	})

	t.Run("Toward Airport Discounted", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceType:     models.ServiceTypeAirportTransfer,
			PickupLocation:  "Orchard Road",
			DropoffLocation: "Changi Airport Terminal 3",
			StartTime:       "14:00",
		})
		require.NoError(t, err)
		assert.Equal(t, 70.0, breakdown.BasePrice)
		assert.Equal(t, 70.0, breakdown.Total)
	})

	t.Run("Toward Airport Floors At Zero", func(t *testing.T) {
		sheet := testSheet()
		sheet.AirportTransfer = 5

		breakdown, err := svc.Price(QuoteParams{
			Sheet:           sheet,
			ServiceType:     models.ServiceTypeAirportTransfer,
			PickupLocation:  "Orchard Road",
			DropoffLocation: "Changi Airport",
			StartTime:       "14:00",
		})
		require.NoError(t, err)
		assert.Equal(t, 0.0, breakdown.BasePrice)
		assert.Equal(t, 0.0, breakdown.Total)
	})

	t.Run("Both Endpoints Airport Full Rate", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceType:     models.ServiceTypeAirportTransfer,
			PickupLocation:  "Changi Airport Terminal 1",
			DropoffLocation: "Seletar Airport",
			StartTime:       "14:00",
		})
		require.NoError(t, err)
		assert.Equal(t, 80.0, breakdown.BasePrice)
	})

	t.Run("Neither Endpoint Airport Full Rate", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceType:     models.ServiceTypeAirportTransfer,
			PickupLocation:  "Orchard Road",
			DropoffLocation: "Marina Bay Sands",
			StartTime:       "14:00",
		})
		require.NoError(t, err)
		assert.Equal(t, 80.0, breakdown.BasePrice)
	})
}

func TestTripPricing(t *testing.T) {
	svc := newTestPricingService(testPricingConfig())

	breakdown, err := svc.Price(QuoteParams{
		Sheet:           testSheet(),
		ServiceType:     models.ServiceTypeTrip,
		PickupLocation:  "Orchard Road",
		DropoffLocation: "Sentosa",
		StartTime:       "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 70.0, breakdown.BasePrice)
	assert.Equal(t, 0.0, breakdown.OveragePrice)
	assert.Equal(t, 70.0, breakdown.Total)
}

func TestRentalPricing(t *testing.T) {
	svc := newTestPricingService(testPricingConfig())

	price := func(hours int) *models.PriceBreakdown {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:          testSheet(),
			ServiceType:    models.ServiceTypeRental,
			PickupLocation: "Orchard Road",
			StartTime:      "10:00",
			DurationHours:  hours,
		})
		require.NoError(t, err)
		return breakdown
	}

	t.Run("Within Six Hours Flat", func(t *testing.T) {
		for _, hours := range []int{1, 3, 6} {
			breakdown := price(hours)
			assert.Equal(t, 360.0, breakdown.BasePrice, "hours=%d", hours)
			assert.Equal(t, 0, breakdown.OverageHours, "hours=%d", hours)
			assert.Equal(t, 360.0, breakdown.Total, "hours=%d", hours)
		}
	})

	t.Run("Seven Hours Adds One Overage Hour", func(t *testing.T) {
		breakdown := price(7)
		assert.Equal(t, 360.0, breakdown.BasePrice)
		assert.Equal(t, 1, breakdown.OverageHours)
		assert.Equal(t, 60.0, breakdown.OveragePrice)
		assert.Equal(t, 420.0, breakdown.Total)
	})

	t.Run("Eleven Hours Bills Six Hour Base Plus Overage", func(t *testing.T) {
		breakdown := price(11)
		assert.Equal(t, 360.0, breakdown.BasePrice)
		assert.Equal(t, 5, breakdown.OverageHours)
		assert.Equal(t, 300.0, breakdown.OveragePrice)
		assert.Equal(t, 660.0, breakdown.Total)
	})

	t.Run("Exactly Twelve Hours Bills The Flat Package", func(t *testing.T) {
		breakdown := price(12)
		assert.Equal(t, 720.0, breakdown.BasePrice)
		assert.Equal(t, 0, breakdown.OverageHours)
		assert.Equal(t, 0.0, breakdown.OveragePrice)
		assert.Equal(t, 720.0, breakdown.Total)
	})

	t.Run("Discounted Twelve Hour Package Not Overridden By Overage Math", func(t *testing.T) {
		// Rate sheet where the 12h package undercuts 6h + 6 overage hours.
		breakdown, err := svc.Price(QuoteParams{
			Sheet: models.PriceSheet{
				SixHours:    360,
				TwelveHours: 650,
				PerHour:     60,
			},
			ServiceType:    models.ServiceTypeRental,
			PickupLocation: "Orchard Road",
			StartTime:      "10:00",
			DurationHours:  12,
		})
		require.NoError(t, err)
		assert.Equal(t, 650.0, breakdown.BasePrice)
		assert.Equal(t, 0, breakdown.OverageHours)
		assert.Equal(t, 650.0, breakdown.Total)
	})

	t.Run("Thirteen Hours Switches To Twelve Hour Package", func(t *testing.T) {
		breakdown := price(13)
		assert.Equal(t, 720.0, breakdown.BasePrice)
		assert.Equal(t, 1, breakdown.OverageHours)
		assert.Equal(t, 60.0, breakdown.OveragePrice)
		assert.Equal(t, 780.0, breakdown.Total)
	})

	t.Run("Zero Duration Rejected", func(t *testing.T) {
		_, err := svc.Price(QuoteParams{
			Sheet:          testSheet(),
			ServiceType:    models.ServiceTypeRental,
			PickupLocation: "Orchard Road",
			StartTime:      "10:00",
			DurationHours:  0,
		})
		assert.Error(t, err)
	})
}

func TestMidnightSurcharge(t *testing.T) {
	svc := newTestPricingService(testPricingConfig())

	price := func(startTime string) *models.PriceBreakdown {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceType:     models.ServiceTypeTrip,
			PickupLocation:  "Orchard Road",
			DropoffLocation: "Sentosa",
			StartTime:       startTime,
		})
		require.NoError(t, err)
		return breakdown
	}

	t.Run("Daytime No Surcharge", func(t *testing.T) {
		breakdown := price("14:00")
		assert.Equal(t, 0.0, breakdown.MidnightSurcharge)
		assert.Equal(t, 70.0, breakdown.Total)
	})

	t.Run("Late Night Surcharged", func(t *testing.T) {
		breakdown := price("23:30")
		assert.Equal(t, 10.0, breakdown.MidnightSurcharge)
		assert.Equal(t, 80.0, breakdown.Total)
	})

	t.Run("Early Morning Surcharged", func(t *testing.T) {
		breakdown := price("01:00")
		assert.Equal(t, 10.0, breakdown.MidnightSurcharge)
		assert.Equal(t, 80.0, breakdown.Total)
	})

	t.Run("Window Boundaries", func(t *testing.T) {
		assert.Equal(t, 10.0, price("23:00").MidnightSurcharge)
		assert.Equal(t, 10.0, price("06:59").MidnightSurcharge)
		assert.Equal(t, 0.0, price("07:00").MidnightSurcharge)
		assert.Equal(t, 0.0, price("22:59").MidnightSurcharge)
	})

	t.Run("Same Day Window Does Not Wrap", func(t *testing.T) {
		cfg := testPricingConfig()
		cfg.NightStartHour = 1
		cfg.NightEndHour = 5
		narrow := newTestPricingService(cfg)

		quote := func(startTime string) *models.PriceBreakdown {
			breakdown, err := narrow.Price(QuoteParams{
				Sheet:           testSheet(),
				ServiceType:     models.ServiceTypeTrip,
				PickupLocation:  "Orchard Road",
				DropoffLocation: "Sentosa",
				StartTime:       startTime,
			})
			require.NoError(t, err)
			return breakdown
		}

		assert.Equal(t, 10.0, quote("03:00").MidnightSurcharge)
		assert.Equal(t, 10.0, quote("01:00").MidnightSurcharge)
		assert.Equal(t, 0.0, quote("05:00").MidnightSurcharge)
		assert.Equal(t, 0.0, quote("14:00").MidnightSurcharge)
		assert.Equal(t, 0.0, quote("23:00").MidnightSurcharge)
	})

	t.Run("Invalid Start Time Rejected", func(t *testing.T) {
		_, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceType:     models.ServiceTypeTrip,
			PickupLocation:  "Orchard Road",
			DropoffLocation: "Sentosa",
			StartTime:       "25:00",
		})
		assert.Error(t, err)
	})
}

func TestTaxApplication(t *testing.T) {
	cfg := testPricingConfig()
	cfg.TaxRate = 0.08
	svc := newTestPricingService(cfg)

	t.Run("Tax On Subtotal Not Surcharge", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceType:     models.ServiceTypeTrip,
			PickupLocation:  "Orchard Road",
			DropoffLocation: "Sentosa",
			StartTime:       "23:30",
		})
		require.NoError(t, err)
		assert.Equal(t, 70.0, breakdown.Subtotal)
		assert.Equal(t, 5.6, breakdown.Tax)
		assert.Equal(t, 10.0, breakdown.MidnightSurcharge)
		assert.Equal(t, 85.6, breakdown.Total)
	})

	t.Run("Tax On Rental With Overage", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:          testSheet(),
			ServiceType:    models.ServiceTypeRental,
			PickupLocation: "Orchard Road",
			StartTime:      "10:00",
			DurationHours:  7,
		})
		require.NoError(t, err)
		assert.Equal(t, 420.0, breakdown.Subtotal)
		assert.Equal(t, 33.6, breakdown.Tax)
		assert.Equal(t, 453.6, breakdown.Total)
	})
}

func TestClassifiedEndToEnd(t *testing.T) {
	svc := newTestPricingService(testPricingConfig())

	t.Run("One Way From Airport At Daytime", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceLabel:    "One Way Transfer",
			PickupLocation:  "Changi Airport Terminal 2",
			DropoffLocation: "Raffles Hotel",
			StartTime:       "14:00",
		})
		require.NoError(t, err)
		assert.Equal(t, models.ServiceTypeAirportTransfer, breakdown.ServiceType)
		assert.Equal(t, 80.0, breakdown.BasePrice)
		assert.Equal(t, 0.0, breakdown.MidnightSurcharge)
		assert.Equal(t, 80.0, breakdown.Total)
	})

	t.Run("One Way Toward Airport Before Dawn", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           testSheet(),
			ServiceLabel:    "One Way Transfer",
			PickupLocation:  "Raffles Hotel",
			DropoffLocation: "Changi Airport Terminal 2",
			StartTime:       "05:00",
		})
		require.NoError(t, err)
		assert.Equal(t, models.ServiceTypeAirportTransfer, breakdown.ServiceType)
		assert.Equal(t, 70.0, breakdown.BasePrice)
		assert.Equal(t, 10.0, breakdown.MidnightSurcharge)
		assert.Equal(t, 80.0, breakdown.Total)
	})

	t.Run("Fallback Sheet Rates", func(t *testing.T) {
		breakdown, err := svc.Price(QuoteParams{
			Sheet:           models.PriceSheet{},
			ServiceType:     models.ServiceTypeAirportTransfer,
			PickupLocation:  "Changi Airport",
			DropoffLocation: "Raffles Hotel",
			StartTime:       "14:00",
		})
		require.NoError(t, err)
		assert.Equal(t, 80.0, breakdown.BasePrice)
	})
}

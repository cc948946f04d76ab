package services

import (
	"strings"

	"github.com/luxeride/booking-backend/internal/models"
)

// ServiceTypeClassifier resolves a service type when the caller did not
// supply an explicit one. New clients always send the enum; the text
// heuristic exists only for legacy booking forms and can be dropped once
// they are migrated.
type ServiceTypeClassifier interface {
	Classify(serviceLabel, pickupLocation, dropoffLocation string) models.ServiceType
}

// AirportMatcher decides whether a free-text location is an airport
type AirportMatcher interface {
	IsAirport(location string) bool
}

// airport keyword/code table for the keyword matcher. Lowercase; matched as
// substrings of the normalized location text.
var airportKeywords = []string{
	"airport",
	"terminal",
	"aeropuerto",
	"aeroport",
	"flughafen",
	"bandara",
	"changi",
	"seletar",
	"heathrow",
	"gatwick",
	"jfk",
	"lax",
	"sfo",
	"sin ",
	"lhr",
	"cdg",
	"dxb",
	"hnd",
	"nrt",
	"kul",
	"cgk",
	"bkk",
}

// KeywordAirportMatcher implements AirportMatcher with a keyword table
type KeywordAirportMatcher struct {
	keywords []string
}

// NewKeywordAirportMatcher creates the default airport matcher
func NewKeywordAirportMatcher() *KeywordAirportMatcher {
	return &KeywordAirportMatcher{keywords: airportKeywords}
}

// IsAirport reports whether the location text names an airport
func (m *KeywordAirportMatcher) IsAirport(location string) bool {
	normalized := " " + strings.ToLower(strings.TrimSpace(location)) + " "
	if normalized == "  " {
		return false
	}
	for _, kw := range m.keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// legacy one-way labels seen on the old booking forms
var oneWayLabels = []string{"one way", "one-way", "oneway", "trip", "airport", "transfer"}

// LegacyTextClassifier reproduces the old site's free-text service
// detection: a one-way label with an airport endpoint is an airport
// transfer, a one-way label without one is a trip, everything else is a
// rental.
type LegacyTextClassifier struct {
	airports AirportMatcher
}

// NewLegacyTextClassifier creates the legacy classifier
func NewLegacyTextClassifier(airports AirportMatcher) *LegacyTextClassifier {
	return &LegacyTextClassifier{airports: airports}
}

// Classify implements ServiceTypeClassifier
func (c *LegacyTextClassifier) Classify(serviceLabel, pickupLocation, dropoffLocation string) models.ServiceType {
	label := strings.ToLower(serviceLabel)

	oneWay := false
	for _, l := range oneWayLabels {
		if strings.Contains(label, l) {
			oneWay = true
			break
		}
	}
	if !oneWay {
		return models.ServiceTypeRental
	}

	if c.airports.IsAirport(pickupLocation) || c.airports.IsAirport(dropoffLocation) {
		return models.ServiceTypeAirportTransfer
	}
	return models.ServiceTypeTrip
}

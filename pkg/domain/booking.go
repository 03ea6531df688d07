package domain

import (
	"unicode"
	"unicode/utf8"
)

// BookingSession holds the trip data collected by the flow.
// An empty field means the value has not been collected yet.
type BookingSession struct {
	Origin      string `json:"origin_city,omitempty" mapstructure:"origin_city"`
	Destination string `json:"destination_city,omitempty" mapstructure:"destination_city"`
	StartDate   string `json:"start_date,omitempty" mapstructure:"start_date"`
	EndDate     string `json:"end_date,omitempty" mapstructure:"end_date"`
	Budget      string `json:"budget,omitempty" mapstructure:"budget"`
}

// Property keys used when a booking is reported as telemetry.
const (
	PropOrigin      = "origin_city"
	PropDestination = "destination_city"
	PropStartDate   = "start_date"
	PropEndDate     = "end_date"
	PropBudget      = "budget"
)

// Properties flattens the booking into telemetry properties.
// All five keys are always present, even when a value is empty.
func (b BookingSession) Properties() map[string]string {
	return map[string]string{
		PropOrigin:      b.Origin,
		PropDestination: b.Destination,
		PropStartDate:   b.StartDate,
		PropEndDate:     b.EndDate,
		PropBudget:      b.Budget,
	}
}

// Capitalize upper-cases the first character of a city name.
// Nothing else is normalized: "new york" becomes "New york".
// Applying it twice yields the same string.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return s
	}
	return string(upper) + s[size:]
}

package effort

import (
	"math"
	"strconv"
	"strings"
)

// Unit is the unit an effort value is expressed in. Values are stored in a
// canonical base unit (man-hours) and converted to a display unit only at
// the presentation boundary.
type Unit string

const (
	UnitManHour  Unit = "man-hour"
	UnitManDay   Unit = "man-day"
	UnitManMonth Unit = "man-month"
)

const (
	DefaultWorkingHoursPerDay  = 8.0
	DefaultWorkingDaysPerMonth = 20.0
)

// Label returns the short display label for the unit (MH/MD/MM).
func (u Unit) Label() string {
	switch u {
	case UnitManDay:
		return "MD"
	case UnitManMonth:
		return "MM"
	default:
		return "MH"
	}
}

// FullLabel returns the long display label for the unit.
func (u Unit) FullLabel() string {
	switch u {
	case UnitManDay:
		return "Man-Day"
	case UnitManMonth:
		return "Man-Month"
	default:
		return "Man-Hour"
	}
}

// WorkSettings defines the conversion rates between effort units. Zero or
// negative fields fall back to the defaults (8 hours/day, 20 days/month).
type WorkSettings struct {
	WorkingHoursPerDay  float64
	WorkingDaysPerMonth float64
}

// Rates is the derived conversion rate table for a given WorkSettings.
type Rates struct {
	HoursPerDay   float64
	DaysPerMonth  float64
	HoursPerMonth float64
}

// ConversionRates derives the rate table from settings, substituting
// defaults for any missing field.
func ConversionRates(settings WorkSettings) Rates {
	hoursPerDay := settings.WorkingHoursPerDay
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultWorkingHoursPerDay
	}
	daysPerMonth := settings.WorkingDaysPerMonth
	if daysPerMonth <= 0 {
		daysPerMonth = DefaultWorkingDaysPerMonth
	}
	return Rates{
		HoursPerDay:   hoursPerDay,
		DaysPerMonth:  daysPerMonth,
		HoursPerMonth: hoursPerDay * daysPerMonth,
	}
}

// Convert converts an effort value between units. The value is first
// normalized to man-hours, then converted to the target unit. Conversions
// are reversible up to floating-point rounding. Invalid values (zero, NaN,
// infinities) convert to 0; Convert never fails.
func Convert(value float64, from, to Unit, settings WorkSettings) float64 {
	if from == to {
		return value
	}
	if value == 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}

	rates := ConversionRates(settings)

	var valueInHours float64
	switch from {
	case UnitManDay:
		valueInHours = value * rates.HoursPerDay
	case UnitManMonth:
		valueInHours = value * rates.HoursPerMonth
	default:
		valueInHours = value
	}

	switch to {
	case UnitManDay:
		return valueInHours / rates.HoursPerDay
	case UnitManMonth:
		return valueInHours / rates.HoursPerMonth
	default:
		return valueInHours
	}
}

// ToManHours normalizes a value in any unit to man-hours.
func ToManHours(value float64, from Unit, settings WorkSettings) float64 {
	return Convert(value, from, UnitManHour, settings)
}

// Format renders a value with unit-appropriate precision: man-hours use one
// decimal from 10 upwards and two below, man-days two, man-months three.
// Zero and NaN render as "0".
func Format(value float64, unit Unit) string {
	if value == 0 || math.IsNaN(value) {
		return "0"
	}
	switch unit {
	case UnitManHour:
		if value >= 10 {
			return strconv.FormatFloat(value, 'f', 1, 64)
		}
		return strconv.FormatFloat(value, 'f', 2, 64)
	case UnitManMonth:
		return strconv.FormatFloat(value, 'f', 3, 64)
	default:
		return strconv.FormatFloat(value, 'f', 2, 64)
	}
}

// FormatWithUnit converts value from sourceUnit to displayUnit and renders
// it with the short unit label, e.g. "12.5 MD".
func FormatWithUnit(value float64, displayUnit, sourceUnit Unit, settings WorkSettings) string {
	converted := Convert(value, sourceUnit, displayUnit, settings)
	return Format(converted, displayUnit) + " " + displayUnit.Label()
}

// ParseInput parses user effort input that may carry a unit suffix:
// "mm" (man-month), "md" (man-day), "mh" or a bare trailing "h" (man-hour).
// Without a recognized suffix the defaultUnit applies. Unparsable numbers
// degrade to 0; ParseInput never fails.
func ParseInput(input string, defaultUnit Unit) (float64, Unit) {
	trimmed := strings.ToLower(strings.TrimSpace(input))

	switch {
	case strings.HasSuffix(trimmed, "mm"):
		return parseFloat(strings.TrimSuffix(trimmed, "mm")), UnitManMonth
	case strings.HasSuffix(trimmed, "md"):
		return parseFloat(strings.TrimSuffix(trimmed, "md")), UnitManDay
	case strings.HasSuffix(trimmed, "mh"):
		return parseFloat(strings.TrimSuffix(trimmed, "mh")), UnitManHour
	case strings.HasSuffix(trimmed, "h"):
		return parseFloat(strings.TrimSuffix(trimmed, "h")), UnitManHour
	}
	return parseFloat(trimmed), defaultUnit
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

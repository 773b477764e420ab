package effort

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestConvertProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	units := gen.OneConstOf(UnitManHour, UnitManDay, UnitManMonth)
	values := gen.Float64Range(0, 1e6)
	settings := gopter.CombineGens(
		gen.Float64Range(1, 24),
		gen.Float64Range(1, 31),
	).Map(func(vals []interface{}) WorkSettings {
		return WorkSettings{
			WorkingHoursPerDay:  vals[0].(float64),
			WorkingDaysPerMonth: vals[1].(float64),
		}
	})

	properties.Property("round-trip conversion restores the original value", prop.ForAll(
		func(x float64, from, to Unit, s WorkSettings) bool {
			back := Convert(Convert(x, from, to, s), to, from, s)
			return math.Abs(back-x) <= 1e-6*math.Max(1, math.Abs(x))
		},
		values, units, units, settings,
	))

	properties.Property("identity conversion returns the value unchanged", prop.ForAll(
		func(x float64, u Unit, s WorkSettings) bool {
			return Convert(x, u, u, s) == x
		},
		values, units, settings,
	))

	properties.Property("zero converts to zero for any unit pair", prop.ForAll(
		func(from, to Unit, s WorkSettings) bool {
			return Convert(0, from, to, s) == 0
		},
		units, units, settings,
	))

	properties.Property("conversion normalizes through man-hours consistently", prop.ForAll(
		func(x float64, from, to Unit, s WorkSettings) bool {
			direct := Convert(x, from, to, s)
			viaHours := Convert(Convert(x, from, UnitManHour, s), UnitManHour, to, s)
			return math.Abs(direct-viaHours) <= 1e-6*math.Max(1, math.Abs(direct))
		},
		values, units, units, settings,
	))

	properties.TestingRun(t)
}

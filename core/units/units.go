// Package units resolves the working unit of a tray library to a millimetre
// scale. The modelling tool is unitless; every dimension handed to it is in
// working units, and Scale_Units tells it how many millimetres one unit is.
package units

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"traylib/internal/errors"
)

// UnnamedUnit is the unit name used when the spec is a bare number.
const UnnamedUnit = "flibit"

// DefaultUnit is used when no unit is configured anywhere.
const DefaultUnit = "in"

var namedScale = regexp.MustCompile(`^(\w+)=(.*)$`)

// Unit is a resolved working unit.
type Unit struct {
	Name    string
	ScaleMM decimal.Decimal
}

// FromMM converts a millimetre value into working units.
func (u Unit) FromMM(mm decimal.Decimal) decimal.Decimal {
	return mm.Div(u.ScaleMM)
}

// InchLike reports whether one unit is larger than 25mm. Default division
// minimums are 1 unit for inch-like scales and 3 units otherwise.
func (u Unit) InchLike() bool {
	return u.ScaleMM.GreaterThan(decimal.NewFromInt(25))
}

// DefaultScales returns the built-in named units.
func DefaultScales() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"in": decimal.RequireFromString("25.4"),
		"cm": decimal.NewFromInt(10),
		"mm": decimal.NewFromInt(1),
	}
}

// System holds the named unit table.
type System struct {
	scales map[string]decimal.Decimal
}

// NewSystem creates a unit system from the built-in table overlaid with
// extra, which usually comes from the application data file.
func NewSystem(extra map[string]decimal.Decimal) *System {
	scales := DefaultScales()
	for name, scale := range extra {
		scales[name] = scale
	}
	return &System{scales: scales}
}

// Resolve turns a unit spec into a Unit. Accepted forms, in order: a named
// unit from the table ("in"), "name=scale" ("ru=44.5"), or a bare scale
// ("12.7", named flibit).
func (s *System) Resolve(spec string) (Unit, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultUnit
	}

	if scale, ok := s.scales[spec]; ok {
		return checked(Unit{Name: spec, ScaleMM: scale})
	}

	if m := namedScale.FindStringSubmatch(spec); m != nil {
		scale, err := decimal.NewFromString(strings.TrimSpace(m[2]))
		if err != nil {
			return Unit{}, errors.Configf("unrecognized unit %q: scale %q is not a number", spec, m[2])
		}
		return checked(Unit{Name: m[1], ScaleMM: scale})
	}

	if scale, err := decimal.NewFromString(spec); err == nil {
		return checked(Unit{Name: UnnamedUnit, ScaleMM: scale})
	}

	return Unit{}, errors.Configf("unrecognized unit %q: use a named unit (in, cm), name=scale, or a number", spec)
}

func checked(u Unit) (Unit, error) {
	if !u.ScaleMM.IsPositive() {
		return Unit{}, errors.Configf("unit %q has non-positive scale %s", u.Name, u.ScaleMM)
	}
	return u, nil
}

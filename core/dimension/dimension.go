// Package dimension enumerates the physical tray sizes a run considers.
package dimension

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"traylib/internal/errors"
)

// Dimension is one tray size in working units. Height is absent for
// lid-only targets.
type Dimension struct {
	Length    decimal.Decimal
	Width     decimal.Decimal
	Height    decimal.Decimal
	HasHeight bool
}

// New returns a full length x width x height dimension.
func New(length, width, height decimal.Decimal) Dimension {
	return Dimension{Length: length, Width: width, Height: height, HasHeight: true}
}

// Footprint returns a length x width dimension with no height.
func Footprint(length, width decimal.Decimal) Dimension {
	return Dimension{Length: length, Width: width}
}

// Square reports whether length equals width.
func (d Dimension) Square() bool {
	return d.Length.Equal(d.Width)
}

// FootprintKey identifies the length x width pair, ignoring height.
func (d Dimension) FootprintKey() string {
	return NumStr(d.Length) + "x" + NumStr(d.Width)
}

// String renders "LxWxH", or "LxW" when there is no height.
func (d Dimension) String() string {
	if !d.HasHeight {
		return d.FootprintKey()
	}
	return d.FootprintKey() + "x" + NumStr(d.Height)
}

// NumStr renders whole numbers without a decimal point, so that paths read
// 5x5 rather than 5.0x5.0.
func NumStr(v decimal.Decimal) string {
	if v.Equal(v.Floor()) {
		return v.Floor().StringFixed(0)
	}
	return v.String()
}

// Spec selects the sizes of a run. When Explicit is non-empty it has
// unconditional priority over the Lengths/Widths/Heights cross product.
type Spec struct {
	Explicit []string
	Lengths  []decimal.Decimal
	Widths   []decimal.Decimal
	Heights  []decimal.Decimal
}

// Set is the ordered, de-duplicated result of enumeration.
type Set struct {
	Dimensions []Dimension
	MaxLength  decimal.Decimal
	MaxWidth   decimal.Decimal
	seen       map[string]bool
}

// Len returns the number of dimensions.
func (s *Set) Len() int {
	return len(s.Dimensions)
}

// DefaultCupSizes is every integer cup size from 1 up to the largest
// length or width present.
func (s *Set) DefaultCupSizes() []decimal.Decimal {
	limit := decimal.Max(s.MaxLength, s.MaxWidth).Floor().IntPart()
	sizes := make([]decimal.Decimal, 0, limit)
	for i := int64(1); i <= limit; i++ {
		sizes = append(sizes, decimal.NewFromInt(i))
	}
	return sizes
}

func (s *Set) add(d Dimension) {
	key := d.String()
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.Dimensions = append(s.Dimensions, d)
}

func (s *Set) observe(length, width decimal.Decimal) {
	s.MaxLength = decimal.Max(s.MaxLength, length)
	s.MaxWidth = decimal.Max(s.MaxWidth, width)
}

// Enumerate resolves spec into a Set.
func Enumerate(spec Spec) (*Set, error) {
	set := &Set{seen: make(map[string]bool)}

	if len(spec.Explicit) > 0 {
		for _, raw := range spec.Explicit {
			if err := set.addExplicit(raw, spec.Heights); err != nil {
				return nil, err
			}
		}
		return set, nil
	}

	for _, length := range spec.Lengths {
		for _, width := range spec.Widths {
			set.observe(length, width)
			// The longer edge is always the length; the transposed tray
			// would be a duplicate.
			if width.GreaterThan(length) {
				continue
			}
			for _, height := range spec.Heights {
				set.add(New(length, width, height))
			}
		}
	}
	return set, nil
}

func (s *Set) addExplicit(raw string, heights []decimal.Decimal) error {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "x")
	if len(parts) < 2 || len(parts) > 3 {
		return errors.Configf("invalid dimension %q: need LxW or LxWxH", raw)
	}

	values := make([]decimal.Decimal, len(parts))
	for i, p := range parts {
		v, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return errors.Wrap(errors.TypeConfig, fmt.Sprintf("invalid dimension %q", raw), err)
		}
		if v.IsNegative() {
			return errors.Configf("invalid dimension %q: negative value %s", raw, p)
		}
		values[i] = v
	}

	length, width := values[0], values[1]
	s.observe(length, width)

	if len(values) == 3 {
		s.add(New(length, width, values[2]))
		return nil
	}

	if len(heights) == 0 {
		return errors.Configf("dimension %q has no height: provide heights, or use LxWxH", raw)
	}
	for _, h := range heights {
		s.add(New(length, width, h))
	}
	return nil
}

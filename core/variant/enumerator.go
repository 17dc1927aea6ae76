package variant

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"traylib/core/dimension"
	"traylib/internal/errors"
)

// Options controls which variants are generated.
type Options struct {
	SquareCups bool
	// CupSizes are the candidate square cup sizes. Nil means every integer
	// size up to the largest dimension of the set.
	CupSizes []decimal.Decimal

	Divisions        bool
	LengthDivMinimum decimal.Decimal
	WidthDivMinimum  decimal.Decimal
	LengthSkipDivs   []int
	WidthSkipDivs    []int

	// Layouts is the custom layout table; LayoutNames filters it.
	Layouts      []Layout
	LayoutNames  []string
	LayoutSource string

	Lids      bool
	LidStyles []LidStyle

	// Presets is the preset table; PresetNames filters it.
	Presets      []string
	PresetNames  []string
	PresetSource string
}

// Enumerator expands dimensions into descriptors. It keeps the per-run
// handled-lid set, so use a fresh Enumerator per enumeration.
type Enumerator struct {
	opts        Options
	layouts     []Layout
	lengthSkip  map[int]bool
	widthSkip   map[int]bool
	handledLids map[string]bool
	warnings    []error
}

// NewEnumerator prepares an enumerator and resolves the name filters.
// Filter names missing from their table become warnings.
func NewEnumerator(opts Options) *Enumerator {
	e := &Enumerator{
		opts:        opts,
		lengthSkip:  toSet(opts.LengthSkipDivs),
		widthSkip:   toSet(opts.WidthSkipDivs),
		handledLids: make(map[string]bool),
	}

	for _, l := range opts.Layouts {
		if len(opts.LayoutNames) == 0 || slices.Contains(opts.LayoutNames, l.Name) {
			e.layouts = append(e.layouts, l)
		}
	}
	for _, name := range opts.LayoutNames {
		if !slices.ContainsFunc(opts.Layouts, func(l Layout) bool { return l.Name == name }) {
			e.warnings = append(e.warnings, errors.Resolution("custom layout", name, opts.LayoutSource))
		}
	}
	for _, name := range opts.PresetNames {
		if !slices.Contains(opts.Presets, name) {
			e.warnings = append(e.warnings, errors.Resolution("preset", name, opts.PresetSource))
		}
	}
	return e
}

func toSet(vals []int) map[int]bool {
	set := make(map[int]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}

// Warnings returns the non-fatal resolution problems found so far.
func (e *Enumerator) Warnings() []error {
	return e.warnings
}

// All enumerates every descriptor for the set, presets last.
func (e *Enumerator) All(set *dimension.Set) []Descriptor {
	cupSizes := e.opts.CupSizes
	if cupSizes == nil {
		cupSizes = set.DefaultCupSizes()
	}

	var out []Descriptor
	for _, d := range set.Dimensions {
		out = append(out, e.ForDimension(d, cupSizes)...)
	}
	return append(out, e.Presets()...)
}

// ForDimension returns the tray and lid descriptors for one dimension. When
// no square cup, division, or custom layout generation applies, the plain
// tray is emitted instead.
func (e *Enumerator) ForDimension(d dimension.Dimension, cupSizes []decimal.Decimal) []Descriptor {
	var out []Descriptor

	if e.opts.SquareCups {
		out = append(out, e.SquareCups(d, cupSizes)...)
	}
	if e.opts.Divisions {
		out = append(out, e.Divisions(d)...)
	}
	if !e.opts.SquareCups && !e.opts.Divisions && len(e.layouts) == 0 {
		out = append(out, Simple(d))
	}
	out = append(out, e.CustomLayouts(d)...)

	if e.opts.Lids {
		out = append(out, e.Lids(d)...)
	}
	return out
}

// SquareCups emits one descriptor per cup size that tiles the tray exactly.
// Remainders are computed in decimal arithmetic, so fractional sizes such
// as 0.5 or 0.75 are exact.
func (e *Enumerator) SquareCups(d dimension.Dimension, cupSizes []decimal.Decimal) []Descriptor {
	var out []Descriptor
	for _, s := range cupSizes {
		if !s.IsPositive() {
			continue
		}
		if s.GreaterThan(d.Length) || s.GreaterThan(d.Width) {
			continue
		}
		if !d.Length.Mod(s).IsZero() || !d.Width.Mod(s).IsZero() {
			continue
		}
		out = append(out, SquareCups(d, s))
	}
	return out
}

// Divisions emits the incremental length x width division trays. Square
// cup layouts are left to SquareCups, and on square trays only one of each
// transposed pair is produced.
func (e *Enumerator) Divisions(d dimension.Dimension) []Descriptor {
	if !e.opts.LengthDivMinimum.IsPositive() || !e.opts.WidthDivMinimum.IsPositive() {
		return nil
	}
	ldivs := int(d.Length.Div(e.opts.LengthDivMinimum).Floor().IntPart())
	wdivs := int(d.Width.Div(e.opts.WidthDivMinimum).Floor().IntPart())

	seen := make(map[string]bool)
	var out []Descriptor
	for ldiv := 1; ldiv <= ldivs; ldiv++ {
		if e.lengthSkip[ldiv] {
			continue
		}
		for wdiv := 1; wdiv <= wdivs; wdiv++ {
			if e.widthSkip[wdiv] {
				continue
			}
			// length/ldiv == width/wdiv, cross-multiplied to stay exact.
			if d.Length.Mul(decimal.NewFromInt(int64(wdiv))).Equal(d.Width.Mul(decimal.NewFromInt(int64(ldiv)))) {
				continue
			}
			if d.Square() {
				spec, rotated := fmt.Sprintf("%dx%d", ldiv, wdiv), fmt.Sprintf("%dx%d", wdiv, ldiv)
				if seen[spec] || seen[rotated] {
					continue
				}
				seen[spec], seen[rotated] = true, true
			}
			out = append(out, Divisions(d, ldiv, wdiv))
		}
	}
	return out
}

// CustomLayouts emits one descriptor per (filtered) layout table entry.
func (e *Enumerator) CustomLayouts(d dimension.Dimension) []Descriptor {
	out := make([]Descriptor, 0, len(e.layouts))
	for _, l := range e.layouts {
		out = append(out, Custom(d, l))
	}
	return out
}

// Lids emits the requested lid styles the first time a footprint is seen
// in this enumeration; later heights of the same footprint get nothing.
func (e *Enumerator) Lids(d dimension.Dimension) []Descriptor {
	key := d.FootprintKey()
	if e.handledLids[key] {
		return nil
	}
	e.handledLids[key] = true

	styles := e.opts.LidStyles
	if len(styles) == 0 {
		styles = AllLidStyles
	}
	out := make([]Descriptor, 0, len(styles))
	for _, s := range AllLidStyles {
		if slices.Contains(styles, s) {
			out = append(out, Lid(d.Length, d.Width, s))
		}
	}
	return out
}

// Presets emits one descriptor per (filtered) preset table entry.
func (e *Enumerator) Presets() []Descriptor {
	var out []Descriptor
	for _, name := range e.opts.Presets {
		if len(e.opts.PresetNames) > 0 && !slices.Contains(e.opts.PresetNames, name) {
			continue
		}
		out = append(out, Preset(name))
	}
	return out
}

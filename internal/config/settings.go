package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"traylib/core/dimension"
	"traylib/core/target"
	"traylib/core/units"
	"traylib/core/variant"
	"traylib/internal/errors"
)

// Settings is the resolved, validated configuration of one run. It is not
// modified after Resolve returns.
type Settings struct {
	Executable string
	Template   string
	Unit       units.Unit

	Dimensions dimension.Spec

	SquareCups bool
	// CupSizes nil means the default range
	CupSizes []decimal.Decimal

	Divisions        bool
	LengthDivMinimum decimal.Decimal
	WidthDivMinimum  decimal.Decimal
	LengthSkipDivs   []int
	WidthSkipDivs    []int

	Lids      bool
	LidStyles []variant.LidStyle

	Thickness target.Thickness

	PresetsFile string
	PresetNames []string
	LayoutsFile string
	LayoutNames []string

	OutputFolder string
	Flat         bool
	ModelFormat  string

	Regen       bool
	Reslice     bool
	Slice       bool
	DryRun      bool
	CountOnly   bool
	PreviewOnly bool
	DoIt        bool
	ShowOutput  bool

	Jobs          int
	Timeout       time.Duration
	SlicerCommand []string

	// Warnings are non-fatal problems found while resolving
	Warnings []error
}

// TargetConfig returns the resolver configuration.
func (s *Settings) TargetConfig() target.Config {
	return target.Config{
		Executable:   s.Executable,
		Template:     s.Template,
		Unit:         s.Unit,
		Thickness:    s.Thickness,
		OutputFolder: s.OutputFolder,
		Flat:         s.Flat,
		ModelFormat:  s.ModelFormat,
		PreviewOnly:  s.PreviewOnly,
		PresetsFile:  s.PresetsFile,
	}
}

// Resolve merges layers over the built-in defaults and validates the result.
func Resolve(layers ...Partial) (*Settings, error) {
	p := Defaults()
	for _, l := range layers {
		p = Merge(p, l)
	}

	scales := make(map[string]decimal.Decimal, len(p.Scales))
	for name, v := range p.Scales {
		if v <= 0 {
			return nil, errors.Configf("scale for unit %q must be positive, got %v", name, v)
		}
		scales[name] = decimal.NewFromFloat(v)
	}
	unit, err := units.NewSystem(scales).Resolve(deref(p.Units))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Executable:     deref(p.Executable),
		Template:       deref(p.Template),
		Unit:           unit,
		SquareCups:     deref(p.SquareCups),
		Divisions:      deref(p.Divisions),
		LengthSkipDivs: p.LengthSkipDivs,
		WidthSkipDivs:  p.WidthSkipDivs,
		Lids:           deref(p.Lids),
		PresetsFile:    deref(p.PresetsFile),
		PresetNames:    p.PresetNames,
		LayoutsFile:    deref(p.LayoutsFile),
		LayoutNames:    p.LayoutNames,
		OutputFolder:   deref(p.OutputFolder),
		Flat:           deref(p.Flat),
		ModelFormat:    strings.ToLower(strings.TrimPrefix(deref(p.ModelFormat), ".")),
		Regen:          deref(p.Regen),
		Reslice:        deref(p.Reslice),
		Slice:          deref(p.Slice),
		DryRun:         deref(p.DryRun),
		CountOnly:      deref(p.CountOnly),
		PreviewOnly:    deref(p.PreviewOnly),
		DoIt:           deref(p.DoIt),
		ShowOutput:     deref(p.ShowOutput),
		Jobs:           deref(p.Jobs),
		SlicerCommand:  p.SlicerCommand,
	}

	if s.Executable == "" {
		return nil, errors.Config("no modelling tool executable configured")
	}
	if s.ModelFormat == "" {
		return nil, errors.Config("model format must not be empty")
	}
	if !s.CountOnly && s.OutputFolder == "" {
		return nil, errors.Config("You need to specify an output folder (-o <folder>) so I know where to put everything.")
	}
	if s.Jobs < 1 {
		return nil, errors.Configf("jobs must be at least 1, got %d", s.Jobs)
	}
	if p.Timeout != nil && *p.Timeout != "" {
		s.Timeout, err = time.ParseDuration(*p.Timeout)
		if err != nil || s.Timeout < 0 {
			return nil, errors.Configf("invalid timeout %q: want a duration such as 90s or 10m", *p.Timeout)
		}
	}

	if s.Dimensions, err = dimensionSpec(p); err != nil {
		return nil, err
	}
	if p.SquareCupSizes != nil {
		s.CupSizes = decimals(p.SquareCupSizes)
	}
	if s.LengthDivMinimum, err = divMinimum("length", p.LengthDivMinimum, unit); err != nil {
		return nil, err
	}
	if s.WidthDivMinimum, err = divMinimum("width", p.WidthDivMinimum, unit); err != nil {
		return nil, err
	}

	s.LidStyles, s.Warnings = lidStyles(p.LidStyles)

	if s.Thickness, err = thickness(p, unit); err != nil {
		return nil, err
	}
	return s, nil
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

func decimals(vals []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func dimensionSpec(p Partial) (dimension.Spec, error) {
	for name, vals := range map[string][]float64{"lengths": p.Lengths, "widths": p.Widths, "heights": p.Heights} {
		for _, v := range vals {
			if v < 0 {
				return dimension.Spec{}, errors.Configf("%s must not be negative, got %v", name, v)
			}
		}
	}
	return dimension.Spec{
		Explicit: p.Dimensions,
		Lengths:  decimals(p.Lengths),
		Widths:   decimals(p.Widths),
		Heights:  decimals(p.Heights),
	}, nil
}

// divMinimum defaults to 1 unit for inch-like units and 3 otherwise.
func divMinimum(axis string, v *float64, unit units.Unit) (decimal.Decimal, error) {
	if v == nil || *v == 0 {
		if unit.InchLike() {
			return decimal.NewFromInt(1), nil
		}
		return decimal.NewFromInt(3), nil
	}
	if *v < 0 {
		return decimal.Zero, errors.Configf("%s division minimum size must be positive, got %v", axis, *v)
	}
	return decimal.NewFromFloat(*v), nil
}

func lidStyles(names []string) ([]variant.LidStyle, []error) {
	var styles []variant.LidStyle
	var warnings []error
	for _, name := range names {
		style, ok := variant.ParseLidStyle(strings.ToLower(name))
		if !ok {
			warnings = append(warnings, errors.Resolution("lid style", name, "the known lid styles"))
			continue
		}
		styles = append(styles, style)
	}
	return styles, warnings
}

func thickness(p Partial, unit units.Unit) (target.Thickness, error) {
	mm := func(key string) decimal.Decimal {
		return unit.FromMM(decimal.NewFromFloat(p.DefaultDimMM[key]))
	}
	th := target.Thickness{
		Wall:            mm("wall"),
		Floor:           mm("floor"),
		Divider:         mm("division"),
		InterlockHeight: mm("interlock_height"),
		InterlockRecess: mm("interlock_recess"),
		InterlockGap:    mm("interlock_gap"),
		WallHeightScale: decimal.NewFromFloat(deref(p.WallHeightScale)),
	}

	w := decimals(p.WallDimensions)
	switch len(w) {
	case 0:
	case 1:
		th.Wall, th.Floor, th.Divider = w[0], w[0], w[0]
	case 2:
		th.Wall, th.Floor, th.Divider = w[0], w[0], w[1]
	case 3:
		th.Wall, th.Floor, th.Divider = w[0], w[1], w[2]
	default:
		return th, errors.Configf("wall_dimensions takes 1 to 3 numbers, got %d", len(w))
	}

	il := decimals(p.InterlockDimensions)
	if len(il) > 3 {
		return th, errors.Configf("interlock_dimensions takes 1 to 3 numbers, got %d", len(il))
	}
	if len(il) > 0 {
		th.InterlockHeight = il[0]
	}
	if len(il) > 1 {
		th.InterlockRecess = il[1]
	}
	if len(il) > 2 {
		th.InterlockGap = il[2]
	}

	for _, v := range append(w, il...) {
		if v.IsNegative() {
			return th, errors.Configf("thickness values must not be negative, got %s", v)
		}
	}
	return th, nil
}

// Package variant expands tray dimensions into the descriptors of every
// structural treatment the run should build.
package variant

import (
	"fmt"

	"github.com/shopspring/decimal"

	"traylib/core/dimension"
)

// Kind discriminates descriptors
type Kind string

const (
	KindSimple     Kind = "simple"
	KindSquareCups Kind = "square_cups"
	KindDivisions  Kind = "divisions"
	KindCustom     Kind = "custom"
	KindLid        Kind = "lid"
	KindPreset     Kind = "preset"
)

// LidStyle selects one of the lid variants
type LidStyle string

const (
	LidRecessed  LidStyle = "recessed"
	LidRegular   LidStyle = "regular"
	LidStackable LidStyle = "stackable"
)

// AllLidStyles in generation order.
var AllLidStyles = []LidStyle{LidRecessed, LidRegular, LidStackable}

// ParseLidStyle validates a lid style name.
func ParseLidStyle(name string) (LidStyle, bool) {
	for _, s := range AllLidStyles {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// LayoutKind distinguishes the two custom layout tables.
type LayoutKind string

const (
	// LayoutRatios holds per column/row ratio expressions.
	LayoutRatios LayoutKind = "ratios"
	// LayoutDivisions holds an explicit division list.
	LayoutDivisions LayoutKind = "divisions"
)

// Layout is one named entry of a custom layout table.
type Layout struct {
	Name       string
	Kind       LayoutKind
	Expression string
}

// Descriptor is a pure value describing one variant. Only the fields that
// belong to Kind are meaningful; construct it with the functions below.
type Descriptor struct {
	Kind       Kind
	Dim        dimension.Dimension
	CupSize    decimal.Decimal
	LengthDivs int
	WidthDivs  int
	Layout     Layout
	LidStyle   LidStyle
	Preset     string
}

// Simple is a tray with no dividers.
func Simple(d dimension.Dimension) Descriptor {
	return Descriptor{Kind: KindSimple, Dim: d}
}

// SquareCups is a tray divided into square cups of the given size.
func SquareCups(d dimension.Dimension, cupSize decimal.Decimal) Descriptor {
	return Descriptor{Kind: KindSquareCups, Dim: d, CupSize: cupSize}
}

// Divisions is a tray with lengthDivs x widthDivs rectangular cups.
func Divisions(d dimension.Dimension, lengthDivs, widthDivs int) Descriptor {
	return Descriptor{Kind: KindDivisions, Dim: d, LengthDivs: lengthDivs, WidthDivs: widthDivs}
}

// Custom is a tray built from a named custom layout.
func Custom(d dimension.Dimension, layout Layout) Descriptor {
	return Descriptor{Kind: KindCustom, Dim: d, Layout: layout}
}

// Lid is a lid for a length x width footprint.
func Lid(length, width decimal.Decimal, style LidStyle) Descriptor {
	return Descriptor{Kind: KindLid, Dim: dimension.Footprint(length, width), LidStyle: style}
}

// Preset is a dimension-independent parameter set from the preset table.
func Preset(name string) Descriptor {
	return Descriptor{Kind: KindPreset, Preset: name}
}

// CupCounts returns the number of cups along the length and across the
// width. Only meaningful for square cup and division trays.
func (d Descriptor) CupCounts() (int, int) {
	switch d.Kind {
	case KindSquareCups:
		return int(d.Dim.Length.Div(d.CupSize).Floor().IntPart()),
			int(d.Dim.Width.Div(d.CupSize).Floor().IntPart())
	case KindDivisions:
		return d.LengthDivs, d.WidthDivs
	}
	return 1, 1
}

func (d Descriptor) String() string {
	switch d.Kind {
	case KindSquareCups:
		return fmt.Sprintf("%s %s cups=%s", d.Kind, d.Dim, dimension.NumStr(d.CupSize))
	case KindDivisions:
		return fmt.Sprintf("%s %s %dx%d", d.Kind, d.Dim, d.LengthDivs, d.WidthDivs)
	case KindCustom:
		return fmt.Sprintf("%s %s %s", d.Kind, d.Dim, d.Layout.Name)
	case KindLid:
		return fmt.Sprintf("%s %s %s", d.Kind, d.Dim, d.LidStyle)
	case KindPreset:
		return fmt.Sprintf("%s %s", d.Kind, d.Preset)
	}
	return fmt.Sprintf("%s %s", d.Kind, d.Dim)
}

// Package config provides layered configuration management.
//
// Every source (built-in defaults, the application data file, a config
// file, one of its generator sections, command line flags) produces a
// Partial. Partials are merged key by key, later layers winning wherever
// they set a value, and the result is resolved into immutable Settings.
package config

import (
	"encoding/json"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Words is a list of names. Files may give it as an array or as a single
// whitespace separated string.
type Words []string

// UnmarshalJSON accepts either form.
func (w *Words) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*w = strings.Fields(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*w = list
	return nil
}

// UnmarshalYAML accepts either form.
func (w *Words) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*w = strings.Fields(node.Value)
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*w = list
	return nil
}

// Partial is one configuration layer. Nil means "not set by this layer".
type Partial struct {
	// Executable is the modelling tool binary
	Executable *string `json:"openscad_exec,omitempty" yaml:"openscad_exec,omitempty" hcl:"openscad_exec,optional"`

	// Template is the parametric model file
	Template *string `json:"scad_file,omitempty" yaml:"scad_file,omitempty" hcl:"scad_file,optional"`

	// Units is a unit name, "name=scale" or a bare scale in mm
	Units *string `json:"units,omitempty" yaml:"units,omitempty" hcl:"units,optional"`

	Dimensions Words     `json:"dimensions,omitempty" yaml:"dimensions,omitempty" hcl:"dimensions,optional"`
	Lengths    []float64 `json:"lengths,omitempty" yaml:"lengths,omitempty" hcl:"lengths,optional"`
	Widths     []float64 `json:"widths,omitempty" yaml:"widths,omitempty" hcl:"widths,optional"`
	Heights    []float64 `json:"heights,omitempty" yaml:"heights,omitempty" hcl:"heights,optional"`

	SquareCups     *bool     `json:"make_square_cups,omitempty" yaml:"make_square_cups,omitempty" hcl:"make_square_cups,optional"`
	SquareCupSizes []float64 `json:"square_cup_sizes,omitempty" yaml:"square_cup_sizes,omitempty" hcl:"square_cup_sizes,optional"`

	Divisions        *bool    `json:"make_divisions,omitempty" yaml:"make_divisions,omitempty" hcl:"make_divisions,optional"`
	LengthDivMinimum *float64 `json:"length_div_minimum_size,omitempty" yaml:"length_div_minimum_size,omitempty" hcl:"length_div_minimum_size,optional"`
	WidthDivMinimum  *float64 `json:"width_div_minimum_size,omitempty" yaml:"width_div_minimum_size,omitempty" hcl:"width_div_minimum_size,optional"`
	LengthSkipDivs   []int    `json:"length_skip_divs,omitempty" yaml:"length_skip_divs,omitempty" hcl:"length_skip_divs,optional"`
	WidthSkipDivs    []int    `json:"width_skip_divs,omitempty" yaml:"width_skip_divs,omitempty" hcl:"width_skip_divs,optional"`

	Lids      *bool `json:"make_lids,omitempty" yaml:"make_lids,omitempty" hcl:"make_lids,optional"`
	LidStyles Words `json:"lid_styles,omitempty" yaml:"lid_styles,omitempty" hcl:"lid_styles,optional"`

	// WallDimensions are wall, floor and divider thickness in working
	// units, given as 1, 2 or 3 numbers
	WallDimensions []float64 `json:"wall_dimensions,omitempty" yaml:"wall_dimensions,omitempty" hcl:"wall_dimensions,optional"`
	// InterlockDimensions are interlock height, recess and gap in working
	// units, given as 1 to 3 numbers
	InterlockDimensions []float64 `json:"interlock_dimensions,omitempty" yaml:"interlock_dimensions,omitempty" hcl:"interlock_dimensions,optional"`
	WallHeightScale     *float64  `json:"wall_height_scale,omitempty" yaml:"wall_height_scale,omitempty" hcl:"wall_height_scale,optional"`

	PresetsFile *string `json:"openscad_presets_file,omitempty" yaml:"openscad_presets_file,omitempty" hcl:"openscad_presets_file,optional"`
	PresetNames Words   `json:"openscad_preset_names,omitempty" yaml:"openscad_preset_names,omitempty" hcl:"openscad_preset_names,optional"`
	LayoutsFile *string `json:"custom_layouts_file,omitempty" yaml:"custom_layouts_file,omitempty" hcl:"custom_layouts_file,optional"`
	LayoutNames Words   `json:"custom_layout_names,omitempty" yaml:"custom_layout_names,omitempty" hcl:"custom_layout_names,optional"`

	OutputFolder *string `json:"output_folder,omitempty" yaml:"output_folder,omitempty" hcl:"output_folder,optional"`
	Flat         *bool   `json:"flat,omitempty" yaml:"flat,omitempty" hcl:"flat,optional"`
	ModelFormat  *string `json:"model_format,omitempty" yaml:"model_format,omitempty" hcl:"model_format,optional"`

	Regen       *bool `json:"regen,omitempty" yaml:"regen,omitempty" hcl:"regen,optional"`
	Reslice     *bool `json:"reslice,omitempty" yaml:"reslice,omitempty" hcl:"reslice,optional"`
	Slice       *bool `json:"slice,omitempty" yaml:"slice,omitempty" hcl:"slice,optional"`
	DryRun      *bool `json:"dryrun,omitempty" yaml:"dryrun,omitempty" hcl:"dryrun,optional"`
	CountOnly   *bool `json:"count_only,omitempty" yaml:"count_only,omitempty" hcl:"count_only,optional"`
	PreviewOnly *bool `json:"preview_only,omitempty" yaml:"preview_only,omitempty" hcl:"preview_only,optional"`
	DoIt        *bool `json:"doit,omitempty" yaml:"doit,omitempty" hcl:"doit,optional"`
	ShowOutput  *bool `json:"show_output,omitempty" yaml:"show_output,omitempty" hcl:"show_output,optional"`

	// Jobs is the number of concurrent subprocesses
	Jobs *int `json:"jobs,omitempty" yaml:"jobs,omitempty" hcl:"jobs,optional"`
	// Timeout bounds each subprocess, as a Go duration ("10m")
	Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty" hcl:"timeout,optional"`

	SlicerCommand []string `json:"slicer_command,omitempty" yaml:"slicer_command,omitempty" hcl:"slicer_command,optional"`

	// Scales adds named units (mm per unit); normally set in the
	// application data file
	Scales map[string]float64 `json:"scales,omitempty" yaml:"scales,omitempty" hcl:"scales,optional"`
	// DefaultDimMM holds default thicknesses in mm, keyed wall, floor,
	// division, interlock_height, interlock_recess, interlock_gap
	DefaultDimMM map[string]float64 `json:"default_dim_in_mm,omitempty" yaml:"default_dim_in_mm,omitempty" hcl:"default_dim_in_mm,optional"`

	// Generators are named sub-generator sections selected with
	// --generator. HCL files declare them as generator blocks.
	Generators map[string]Partial `json:"generators,omitempty" yaml:"generators,omitempty"`
}

// Defaults returns the built-in layer
func Defaults() Partial {
	return Partial{
		Executable:      ptr("openscad"),
		Template:        ptr("tray_generator.scad"),
		Units:           ptr("in"),
		ModelFormat:     ptr("3mf"),
		WallHeightScale: ptr(1.0),
		Jobs:            ptr(1),
		DefaultDimMM: map[string]float64{
			"wall":             1.75,
			"floor":            1.75,
			"division":         1.75,
			"interlock_height": 1.75,
			"interlock_recess": 1.75,
			"interlock_gap":    1.75,
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}

// Merge returns base overlaid with every value over sets. Maps merge key by
// key; everything else is replaced whole.
func Merge(base, over Partial) Partial {
	out := base
	ov := reflect.ValueOf(over)
	dst := reflect.ValueOf(&out).Elem()

	for i := 0; i < ov.NumField(); i++ {
		f := ov.Field(i)
		if f.IsNil() {
			continue
		}
		if f.Kind() == reflect.Map {
			dst.Field(i).Set(mergeMaps(dst.Field(i), f))
			continue
		}
		dst.Field(i).Set(f)
	}
	return out
}

func mergeMaps(base, over reflect.Value) reflect.Value {
	merged := reflect.MakeMapWithSize(over.Type(), base.Len()+over.Len())
	for _, src := range []reflect.Value{base, over} {
		iter := src.MapRange()
		for iter.Next() {
			merged.SetMapIndex(iter.Key(), iter.Value())
		}
	}
	return merged
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"traylib/internal/config"
)

// runFlags are the run settings accepted on the command line. Only flags the
// user actually set become part of the flag layer.
type runFlags struct {
	executable string
	template   string
	units      string

	dimensions []string
	lengths    []float64
	widths     []float64
	heights    []float64

	squareCups bool
	cupSizes   []float64

	divisions    bool
	lengthDivMin float64
	widthDivMin  float64
	lengthSkip   []int
	widthSkip    []int

	lids      bool
	lidStyles []string

	wallDims        []float64
	interlockDims   []float64
	wallHeightScale float64

	presetsFile string
	presetNames []string
	layoutsFile string
	layoutNames []string

	outputFolder string
	flat         bool
	modelFormat  string

	regen       bool
	reslice     bool
	slice       bool
	dryRun      bool
	previewOnly bool
	doIt        bool
	showOutput  bool

	jobs    int
	timeout string
	slicer  []string
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	fs := cmd.Flags()

	fs.StringVar(&f.executable, "openscad", "", "OpenSCAD executable (default openscad)")
	fs.StringVar(&f.template, "scad-file", "", "tray generator template (default tray_generator.scad)")
	fs.StringVarP(&f.units, "units", "u", "", "working unit: in, cm, mm, a name from the app config, name=scale or a scale in mm")

	fs.StringSliceVarP(&f.dimensions, "dimensions", "x", nil, "explicit LxW or LxWxH dimensions; overrides the length/width ranges")
	fs.Float64SliceVarP(&f.lengths, "lengths", "l", nil, "tray lengths")
	fs.Float64SliceVarP(&f.widths, "widths", "w", nil, "tray widths")
	fs.Float64SliceVarP(&f.heights, "heights", "t", nil, "tray heights")

	fs.BoolVar(&f.squareCups, "make-square-cups", false, "generate trays divided into square cups")
	fs.Float64SliceVar(&f.cupSizes, "square-cup-sizes", nil, "square cup sizes (default every whole size up to the largest tray)")

	fs.BoolVar(&f.divisions, "make-divisions", false, "generate trays with rectangular divisions")
	fs.Float64Var(&f.lengthDivMin, "length-div-minimum-size", 0, "smallest cup length for divisions")
	fs.Float64Var(&f.widthDivMin, "width-div-minimum-size", 0, "smallest cup width for divisions")
	fs.IntSliceVar(&f.lengthSkip, "length-skip-divs", nil, "division counts along the length to skip")
	fs.IntSliceVar(&f.widthSkip, "width-skip-divs", nil, "division counts across the width to skip")

	fs.BoolVar(&f.lids, "make-lids", false, "generate lids for every footprint")
	fs.StringSliceVar(&f.lidStyles, "lid-styles", nil, "lid styles: recessed, regular, stackable (default all)")

	fs.Float64SliceVar(&f.wallDims, "wall-dimensions", nil, "wall[,floor[,divider]] thickness in working units")
	fs.Float64SliceVar(&f.interlockDims, "interlock-dimensions", nil, "interlock height[,recess[,gap]] in working units")
	fs.Float64Var(&f.wallHeightScale, "wall-height-scale", 0, "divider wall height as a fraction of the tray height")

	fs.StringVar(&f.presetsFile, "openscad-presets-file", "", "OpenSCAD parameter set file")
	fs.StringSliceVar(&f.presetNames, "openscad-preset-names", nil, "presets to render (default all)")
	fs.StringVar(&f.layoutsFile, "custom-layouts-file", "", "custom layout table file")
	fs.StringSliceVar(&f.layoutNames, "custom-layout-names", nil, "custom layouts to render (default all)")

	fs.StringVarP(&f.outputFolder, "output-folder", "o", "", "folder the library is written to")
	fs.BoolVar(&f.flat, "flat", false, "write every file directly into the output folder")
	fs.StringVar(&f.modelFormat, "model-format", "", "model file format (default 3mf)")

	fs.BoolVar(&f.regen, "regen", false, "render models even if they exist")
	fs.BoolVar(&f.reslice, "reslice", false, "slice models even if the g-code exists")
	fs.BoolVarP(&f.slice, "slice", "s", false, "slice every model after rendering")
	fs.BoolVarP(&f.dryRun, "dryrun", "d", false, "show what would happen without running anything")
	fs.BoolVarP(&f.previewOnly, "preview-only", "p", false, "render preview images only")
	fs.BoolVar(&f.doIt, "doit", false, "skip the confirmation prompt")
	fs.BoolVar(&f.showOutput, "show-output", false, "show renderer and slicer output")

	fs.IntVarP(&f.jobs, "jobs", "j", 0, "renders to run in parallel (default 1)")
	fs.StringVar(&f.timeout, "timeout", "", "per subprocess time limit, e.g. 10m (default none)")
	fs.StringSliceVar(&f.slicer, "slicer-command", nil, "slicer command; the model path is appended")
}

// partial builds the flag layer from the flags set on cmd.
func (f *runFlags) partial(cmd *cobra.Command) config.Partial {
	var p config.Partial
	setters := map[string]func(){
		"openscad":                func() { p.Executable = &f.executable },
		"scad-file":               func() { p.Template = &f.template },
		"units":                   func() { p.Units = &f.units },
		"dimensions":              func() { p.Dimensions = words(f.dimensions) },
		"lengths":                 func() { p.Lengths = f.lengths },
		"widths":                  func() { p.Widths = f.widths },
		"heights":                 func() { p.Heights = f.heights },
		"make-square-cups":        func() { p.SquareCups = &f.squareCups },
		"square-cup-sizes":        func() { p.SquareCupSizes = f.cupSizes },
		"make-divisions":          func() { p.Divisions = &f.divisions },
		"length-div-minimum-size": func() { p.LengthDivMinimum = &f.lengthDivMin },
		"width-div-minimum-size":  func() { p.WidthDivMinimum = &f.widthDivMin },
		"length-skip-divs":        func() { p.LengthSkipDivs = f.lengthSkip },
		"width-skip-divs":         func() { p.WidthSkipDivs = f.widthSkip },
		"make-lids":               func() { p.Lids = &f.lids },
		"lid-styles":              func() { p.LidStyles = words(f.lidStyles) },
		"wall-dimensions":         func() { p.WallDimensions = f.wallDims },
		"interlock-dimensions":    func() { p.InterlockDimensions = f.interlockDims },
		"wall-height-scale":       func() { p.WallHeightScale = &f.wallHeightScale },
		"openscad-presets-file":   func() { p.PresetsFile = &f.presetsFile },
		"openscad-preset-names":   func() { p.PresetNames = words(f.presetNames) },
		"custom-layouts-file":     func() { p.LayoutsFile = &f.layoutsFile },
		"custom-layout-names":     func() { p.LayoutNames = words(f.layoutNames) },
		"output-folder":           func() { p.OutputFolder = &f.outputFolder },
		"flat":                    func() { p.Flat = &f.flat },
		"model-format":            func() { p.ModelFormat = &f.modelFormat },
		"regen":                   func() { p.Regen = &f.regen },
		"reslice":                 func() { p.Reslice = &f.reslice },
		"slice":                   func() { p.Slice = &f.slice },
		"dryrun":                  func() { p.DryRun = &f.dryRun },
		"preview-only":            func() { p.PreviewOnly = &f.previewOnly },
		"doit":                    func() { p.DoIt = &f.doIt },
		"show-output":             func() { p.ShowOutput = &f.showOutput },
		"jobs":                    func() { p.Jobs = &f.jobs },
		"timeout":                 func() { p.Timeout = &f.timeout },
		"slicer-command":          func() { p.SlicerCommand = f.slicer },
	}
	for name, set := range setters {
		if cmd.Flags().Changed(name) {
			set()
		}
	}
	return p
}

// words splits every flag value on whitespace so "4x2x1 6x4x1" and
// repeated flags behave the same.
func words(vals []string) config.Words {
	return config.Words(strings.Fields(strings.Join(vals, " ")))
}

// loadSettings resolves the layered configuration for cmd. adjust, if not
// nil, edits the flag layer before resolution.
func loadSettings(cmd *cobra.Command, f *runFlags, adjust func(*config.Partial)) (*config.Settings, error) {
	flags := f.partial(cmd)
	if adjust != nil {
		adjust(&flags)
	}
	return config.Load(config.Sources{
		AppConfig:  appConfigFile,
		ConfigFile: cfgFile,
		Generator:  generator,
		Flags:      flags,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

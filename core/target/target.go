// Package target maps variant descriptors to concrete build targets: the
// files a render produces and the exact command that produces them.
package target

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"traylib/core/determinism"
	"traylib/core/dimension"
	"traylib/core/units"
	"traylib/core/variant"
)

var commandIDs = determinism.NewIDGenerator("render-command")

// Command is the ordered argument list of a render. Two descriptors that
// would produce identical output resolve to equal commands.
type Command []string

// Key is the de-duplication identity of the command.
func (c Command) Key() determinism.StableID {
	return commandIDs.Generate(c...)
}

// String renders the command for display, quoting arguments with spaces.
func (c Command) String() string {
	parts := make([]string, len(c))
	for i, a := range c {
		if strings.ContainsAny(a, " \t\"") {
			a = fmt.Sprintf("'%s'", a)
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}

// BuildTarget is one unit of work.
type BuildTarget struct {
	Descriptor  variant.Descriptor
	FolderPath  string
	BaseName    string
	PreviewPath string
	ModelPath   string
	GcodePath   string
	Command     Command
}

// Thickness holds the structural dimensions, already in working units.
type Thickness struct {
	Wall            decimal.Decimal
	Floor           decimal.Decimal
	Divider         decimal.Decimal
	InterlockHeight decimal.Decimal
	InterlockGap    decimal.Decimal
	InterlockRecess decimal.Decimal
	WallHeightScale decimal.Decimal
}

// Config is everything the resolver needs besides the descriptor.
type Config struct {
	Executable   string
	Template     string
	Unit         units.Unit
	Thickness    Thickness
	OutputFolder string
	Flat         bool
	ModelFormat  string
	PreviewOnly  bool
	PresetsFile  string
}

// Resolver builds targets. It is stateless after construction and safe for
// concurrent use.
type Resolver struct {
	cfg      Config
	wallDefs []string
}

// NewResolver precomputes the flags shared by every command.
func NewResolver(cfg Config) *Resolver {
	if cfg.ModelFormat == "" {
		cfg.ModelFormat = "3mf"
	}
	th := cfg.Thickness
	return &Resolver{
		cfg: cfg,
		wallDefs: []string{
			"-D", "Tray_Wall_Thickness=" + th.Wall.StringFixed(3),
			"-D", "Floor_Thickness=" + th.Floor.StringFixed(3),
			"-D", "Divider_Wall_Thickness=" + th.Divider.StringFixed(3),
			"-D", "Corner_Roundness=1.0",
			"-D", "Interlock_Height=" + th.InterlockHeight.StringFixed(3),
			"-D", "Interlock_Gap=" + th.InterlockGap.StringFixed(3),
			"-D", "Interlock_Divider_Wall_Recess=" + th.InterlockRecess.StringFixed(3),
			"-D", "Divider_Wall_Height_Scale=" + dimension.NumStr(th.WallHeightScale),
		},
	}
}

// Resolve maps a descriptor to its build target.
func (r *Resolver) Resolve(d variant.Descriptor) BuildTarget {
	folder, stem, dims, params := r.layout(d)

	base := filepath.Join(folder, stem)
	t := BuildTarget{
		Descriptor:  d,
		FolderPath:  folder,
		BaseName:    base,
		PreviewPath: base + ".png",
		ModelPath:   base + "." + r.cfg.ModelFormat,
		GcodePath:   base + ".gcode",
	}
	t.Command = r.command(dims, params, t)
	return t
}

// dims are the optional Tray_Length/Width/Height values; nil entries are
// left off the command.
type dims struct {
	length, width, height *decimal.Decimal
}

func full(d dimension.Dimension) dims {
	l, w, h := d.Length, d.Width, d.Height
	return dims{length: &l, width: &w, height: &h}
}

func (r *Resolver) layout(d variant.Descriptor) (folder, stem string, ds dims, params []string) {
	lwh := d.Dim.String()

	switch d.Kind {
	case variant.KindSimple:
		return r.trayFolder(d.Dim), "tray_" + lwh, full(d.Dim),
			[]string{"-D", `Build_Mode="Just_the_Tray"`}

	case variant.KindSquareCups:
		lc, wc := d.CupCounts()
		return r.trayFolder(d.Dim), "tray_" + lwh + cupSuffix(lc, wc), full(d.Dim),
			[]string{
				"-D", `Build_Mode="Square_Cups"`,
				"-D", "Square_Cup_Size=" + dimension.NumStr(d.CupSize),
			}

	case variant.KindDivisions:
		return r.trayFolder(d.Dim), "tray_" + lwh + cupSuffix(d.LengthDivs, d.WidthDivs), full(d.Dim),
			[]string{
				"-D", `Build_Mode="Length_Width_Cups"`,
				"-D", fmt.Sprintf("Cup_Along_Length=%d", d.LengthDivs),
				"-D", fmt.Sprintf("Cups_Across_Width=%d", d.WidthDivs),
			}

	case variant.KindCustom:
		stem := "tray_" + d.Layout.Name + "_" + lwh
		if d.Layout.Kind == variant.LayoutDivisions {
			return r.trayFolder(d.Dim), stem, full(d.Dim), []string{
				"-D", `Build_Mode="Custom_Ratio_Divisions"`,
				"-D", "Custom_Division_List=" + d.Layout.Expression,
			}
		}
		return r.trayFolder(d.Dim), stem, full(d.Dim), []string{
			"-D", `Build_Mode="Custom_Divisions_per_Column_or_Row"`,
			"-D", "Custom_Col_Row_Ratios=" + d.Layout.Expression,
		}

	case variant.KindLid:
		return r.lid(d)

	case variant.KindPreset:
		return r.folder("presets"), d.Preset, dims{},
			[]string{"-p", r.cfg.PresetsFile, "-P", d.Preset}
	}
	panic(fmt.Sprintf("target: unknown descriptor kind %q", d.Kind))
}

func (r *Resolver) lid(d variant.Descriptor) (string, string, dims, []string) {
	l, w := d.Dim.Length, d.Dim.Width
	folder := r.folder(
		fmt.Sprintf("%s-%s-L", dimension.NumStr(l), r.cfg.Unit.Name),
		fmt.Sprintf("%s-%s-W", dimension.NumStr(w), r.cfg.Unit.Name),
	)
	lw := d.Dim.FootprintKey()
	zero := decimal.Zero
	params := []string{"-D", `Build_Mode="Tray_Lid"`, "-D", `Lid_Style="Finger_Holes"`}

	switch d.LidStyle {
	case variant.LidRecessed:
		return folder, "tray_lid_recessed_" + lw, dims{length: &l, width: &w},
			append(params, "-D", "Lid_Thickness=0")
	case variant.LidStackable:
		return folder, "tray_lid_interlocking_finger_" + lw, dims{length: &l, width: &w, height: &zero},
			append(params, "-D", "Interlocking_Lid=true")
	default:
		return folder, "tray_lid_finger_" + lw, dims{length: &l, width: &w, height: &zero}, params
	}
}

// cupSuffix names the cup grid; a single cup is just the tray.
func cupSuffix(lc, wc int) string {
	if lc == 1 && wc == 1 {
		return ""
	}
	return fmt.Sprintf("_%dx%d_cups", lc, wc)
}

func (r *Resolver) trayFolder(d dimension.Dimension) string {
	unit := r.cfg.Unit.Name
	return r.folder(
		fmt.Sprintf("%s-%s-L", dimension.NumStr(d.Length), unit),
		fmt.Sprintf("%s-%s-W", dimension.NumStr(d.Width), unit),
		fmt.Sprintf("%s-%s-H", dimension.NumStr(d.Height), unit),
	)
}

func (r *Resolver) folder(sub ...string) string {
	if r.cfg.Flat {
		return r.cfg.OutputFolder
	}
	return filepath.Join(append([]string{r.cfg.OutputFolder}, sub...)...)
}

func (r *Resolver) command(ds dims, params []string, t BuildTarget) Command {
	cmd := Command{r.cfg.Executable}
	cmd = append(cmd, r.wallDefs...)
	cmd = append(cmd, "-D", "Scale_Units="+dimension.NumStr(r.cfg.Unit.ScaleMM))

	if ds.length != nil {
		cmd = append(cmd, "-D", "Tray_Length="+dimension.NumStr(*ds.length))
	}
	if ds.width != nil {
		cmd = append(cmd, "-D", "Tray_Width="+dimension.NumStr(*ds.width))
	}
	if ds.height != nil {
		cmd = append(cmd, "-D", "Tray_Height="+dimension.NumStr(*ds.height))
	}

	cmd = append(cmd, params...)
	cmd = append(cmd, "-o", t.PreviewPath)
	if !r.cfg.PreviewOnly {
		cmd = append(cmd, "-o", t.ModelPath)
	}
	return append(cmd, r.cfg.Template)
}

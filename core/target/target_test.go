package target

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traylib/core/dimension"
	"traylib/core/units"
	"traylib/core/variant"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func inches(t *testing.T) units.Unit {
	t.Helper()
	u, err := units.NewSystem(nil).Resolve("in")
	require.NoError(t, err)
	return u
}

func testConfig(t *testing.T) Config {
	u := inches(t)
	mm := dec("1.75")
	return Config{
		Executable: "openscad",
		Template:   "tray_generator.scad",
		Unit:       u,
		Thickness: Thickness{
			Wall: u.FromMM(mm), Floor: u.FromMM(mm), Divider: u.FromMM(mm),
			InterlockHeight: u.FromMM(mm), InterlockGap: u.FromMM(mm), InterlockRecess: u.FromMM(mm),
			WallHeightScale: decimal.NewFromInt(1),
		},
		OutputFolder: "testfolder",
		ModelFormat:  "3mf",
		PresetsFile:  "presets.json",
	}
}

func TestResolveSimpleTray(t *testing.T) {
	r := NewResolver(testConfig(t))
	tgt := r.Resolve(variant.Simple(dimension.New(dec("4"), dec("2"), dec("1"))))

	assert.Equal(t, "testfolder/4-in-L/2-in-W/1-in-H", tgt.FolderPath)
	assert.Equal(t, "testfolder/4-in-L/2-in-W/1-in-H/tray_4x2x1.3mf", tgt.ModelPath)
	assert.Equal(t, "testfolder/4-in-L/2-in-W/1-in-H/tray_4x2x1.png", tgt.PreviewPath)
	assert.Equal(t, "testfolder/4-in-L/2-in-W/1-in-H/tray_4x2x1.gcode", tgt.GcodePath)

	want := []string{
		"openscad",
		"-D", "Tray_Wall_Thickness=0.069",
		"-D", "Floor_Thickness=0.069",
		"-D", "Divider_Wall_Thickness=0.069",
		"-D", "Corner_Roundness=1.0",
		"-D", "Interlock_Height=0.069",
		"-D", "Interlock_Gap=0.069",
		"-D", "Interlock_Divider_Wall_Recess=0.069",
		"-D", "Divider_Wall_Height_Scale=1",
		"-D", "Scale_Units=25.4",
		"-D", "Tray_Length=4",
		"-D", "Tray_Width=2",
		"-D", "Tray_Height=1",
		"-D", `Build_Mode="Just_the_Tray"`,
		"-o", tgt.PreviewPath,
		"-o", tgt.ModelPath,
		"tray_generator.scad",
	}
	assert.Equal(t, want, []string(tgt.Command))
}

func TestResolveFractionalNumerals(t *testing.T) {
	r := NewResolver(testConfig(t))
	tgt := r.Resolve(variant.Simple(dimension.New(dec("5.5"), dec("5.0"), dec("1.25"))))

	assert.Equal(t, "testfolder/5.5-in-L/5-in-W/1.25-in-H/tray_5.5x5x1.25.3mf", tgt.ModelPath)
	assert.Contains(t, tgt.Command, "Tray_Length=5.5")
	assert.Contains(t, tgt.Command, "Tray_Width=5")
}

func TestResolveSquareCupsAndDivisions(t *testing.T) {
	r := NewResolver(testConfig(t))
	d := dimension.New(dec("6"), dec("4"), dec("1"))

	sq := r.Resolve(variant.SquareCups(d, dec("2")))
	assert.True(t, strings.HasSuffix(sq.ModelPath, "tray_6x4x1_3x2_cups.3mf"), sq.ModelPath)
	assert.Contains(t, sq.Command, "Square_Cup_Size=2")

	single := r.Resolve(variant.SquareCups(dimension.New(dec("4"), dec("4"), dec("1")), dec("4")))
	assert.True(t, strings.HasSuffix(single.ModelPath, "/tray_4x4x1.3mf"), single.ModelPath)

	div := r.Resolve(variant.Divisions(d, 1, 3))
	assert.True(t, strings.HasSuffix(div.ModelPath, "tray_6x4x1_1x3_cups.3mf"), div.ModelPath)
	assert.Contains(t, div.Command, "Cup_Along_Length=1")
	assert.Contains(t, div.Command, "Cups_Across_Width=3")
}

func TestResolveCustomLayouts(t *testing.T) {
	r := NewResolver(testConfig(t))
	d := dimension.New(dec("6"), dec("4"), dec("1"))

	ratios := r.Resolve(variant.Custom(d, variant.Layout{Name: "thirds", Kind: variant.LayoutRatios, Expression: "[[1,1,1]]"}))
	assert.True(t, strings.HasSuffix(ratios.ModelPath, "/tray_thirds_6x4x1.3mf"))
	assert.Contains(t, ratios.Command, "Custom_Col_Row_Ratios=[[1,1,1]]")

	divs := r.Resolve(variant.Custom(d, variant.Layout{Name: "thirds", Kind: variant.LayoutDivisions, Expression: "[1,2]"}))
	assert.Equal(t, ratios.ModelPath, divs.ModelPath)
	assert.NotEqual(t, ratios.Command.Key(), divs.Command.Key())
}

func TestResolveLids(t *testing.T) {
	r := NewResolver(testConfig(t))

	tests := []struct {
		style      variant.LidStyle
		stem       string
		wantHeight bool
		extra      string
	}{
		{variant.LidRecessed, "tray_lid_recessed_4x2", false, "Lid_Thickness=0"},
		{variant.LidRegular, "tray_lid_finger_4x2", true, `Lid_Style="Finger_Holes"`},
		{variant.LidStackable, "tray_lid_interlocking_finger_4x2", true, "Interlocking_Lid=true"},
	}
	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			tgt := r.Resolve(variant.Lid(dec("4"), dec("2"), tt.style))
			assert.Equal(t, "testfolder/4-in-L/2-in-W/"+tt.stem+".3mf", tgt.ModelPath)
			assert.Equal(t, tt.wantHeight, containsPrefix(tgt.Command, "Tray_Height="))
			assert.Contains(t, tgt.Command, tt.extra)
		})
	}
}

func TestResolvePresetHasNoDimensions(t *testing.T) {
	r := NewResolver(testConfig(t))
	tgt := r.Resolve(variant.Preset("big_box"))

	assert.Equal(t, "testfolder/presets/big_box.3mf", tgt.ModelPath)
	assert.False(t, containsPrefix(tgt.Command, "Tray_Length="))
	assert.False(t, containsPrefix(tgt.Command, "Tray_Height="))
	assert.Contains(t, tgt.Command.String(), "-p presets.json -P big_box")
	assert.Contains(t, tgt.Command, "Scale_Units=25.4")
}

func TestResolvePreviewOnlyAndFlat(t *testing.T) {
	cfg := testConfig(t)
	cfg.PreviewOnly = true
	cfg.Flat = true
	cfg.ModelFormat = "stl"
	r := NewResolver(cfg)

	tgt := r.Resolve(variant.Simple(dimension.New(dec("4"), dec("2"), dec("1"))))
	assert.Equal(t, "testfolder", tgt.FolderPath)
	assert.Equal(t, "testfolder/tray_4x2x1.stl", tgt.ModelPath)
	assert.NotContains(t, tgt.Command, tgt.ModelPath)
	assert.Contains(t, tgt.Command, tgt.PreviewPath)
}

func TestCommandKeyIsOrderSensitiveAndStable(t *testing.T) {
	r := NewResolver(testConfig(t))
	d := dimension.New(dec("4"), dec("2"), dec("1"))

	a := r.Resolve(variant.Simple(d))
	b := r.Resolve(variant.Simple(dimension.New(dec("4.0"), dec("2.00"), dec("1"))))
	assert.Equal(t, a.Command.Key(), b.Command.Key())

	swapped := append(Command{}, a.Command...)
	swapped[2], swapped[4] = swapped[4], swapped[2]
	assert.NotEqual(t, a.Command.Key(), swapped.Key())
}

func containsPrefix(cmd Command, prefix string) bool {
	for _, a := range cmd {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

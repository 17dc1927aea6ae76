package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traylib/core/variant"
	"traylib/internal/errors"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func withOutput(p Partial) Partial {
	p.OutputFolder = ptr("testfolder")
	return p
}

func TestResolveDefaults(t *testing.T) {
	s, err := Resolve(withOutput(Partial{Dimensions: Words{"4x2x1"}}))
	require.NoError(t, err)

	assert.Equal(t, "openscad", s.Executable)
	assert.Equal(t, "tray_generator.scad", s.Template)
	assert.Equal(t, "in", s.Unit.Name)
	assert.Equal(t, "25.4", s.Unit.ScaleMM.String())
	assert.Equal(t, "3mf", s.ModelFormat)
	assert.Equal(t, 1, s.Jobs)
	assert.Equal(t, time.Duration(0), s.Timeout)
	assert.Nil(t, s.CupSizes)
	assert.Equal(t, "1", s.LengthDivMinimum.String())
	assert.Equal(t, "1", s.WidthDivMinimum.String())
	assert.Equal(t, "0.069", s.Thickness.Wall.StringFixed(3))
	assert.Equal(t, "1", s.Thickness.WallHeightScale.String())
	assert.Equal(t, []string{"4x2x1"}, s.Dimensions.Explicit)
}

func TestResolveRequiresOutputFolderUnlessCounting(t *testing.T) {
	_, err := Resolve(Partial{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))
	assert.Contains(t, err.Error(), "output folder")

	s, err := Resolve(Partial{CountOnly: ptr(true)})
	require.NoError(t, err)
	assert.True(t, s.CountOnly)
}

func TestResolveMetricDivisionMinimums(t *testing.T) {
	s, err := Resolve(withOutput(Partial{Units: ptr("mm")}))
	require.NoError(t, err)
	assert.Equal(t, "3", s.LengthDivMinimum.String())

	s, err = Resolve(withOutput(Partial{Units: ptr("cm"), WidthDivMinimum: ptr(2.5)}))
	require.NoError(t, err)
	assert.Equal(t, "3", s.LengthDivMinimum.String())
	assert.Equal(t, "2.5", s.WidthDivMinimum.String())
	assert.Equal(t, "10", s.Unit.ScaleMM.String())
}

func TestResolveLayerPrecedence(t *testing.T) {
	app := Partial{
		Scales:       map[string]float64{"ru": 44.5},
		DefaultDimMM: map[string]float64{"wall": 2.225},
		Units:        ptr("cm"),
	}
	file := Partial{Units: ptr("ru"), ModelFormat: ptr("STL"), Regen: ptr(true)}
	flags := Partial{Regen: ptr(false), OutputFolder: ptr("out")}

	s, err := Resolve(app, file, flags)
	require.NoError(t, err)

	assert.Equal(t, "ru", s.Unit.Name)
	assert.Equal(t, "stl", s.ModelFormat)
	assert.False(t, s.Regen)
	assert.Equal(t, "out", s.OutputFolder)
	// 2.225mm / 44.5 = 0.05 units; floor keeps the built-in 1.75mm.
	assert.Equal(t, "0.050", s.Thickness.Wall.StringFixed(3))
	assert.Equal(t, "0.039", s.Thickness.Floor.StringFixed(3))
}

func TestMergeLeavesUnsetKeys(t *testing.T) {
	base := Partial{Executable: ptr("a"), Lengths: []float64{1}, Scales: map[string]float64{"x": 1}}
	over := Partial{Executable: ptr("b"), Scales: map[string]float64{"y": 2}}

	got := Merge(base, over)
	assert.Equal(t, "b", *got.Executable)
	assert.Equal(t, []float64{1}, got.Lengths)
	assert.Equal(t, map[string]float64{"x": 1, "y": 2}, got.Scales)
	assert.Equal(t, map[string]float64{"x": 1}, base.Scales)
}

func TestResolveWallDimensions(t *testing.T) {
	tests := []struct {
		name                 string
		dims                 []float64
		wall, floor, divider string
	}{
		{"one", []float64{0.1}, "0.1", "0.1", "0.1"},
		{"two", []float64{0.1, 0.05}, "0.1", "0.1", "0.05"},
		{"three", []float64{0.1, 0.2, 0.05}, "0.1", "0.2", "0.05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Resolve(withOutput(Partial{WallDimensions: tt.dims}))
			require.NoError(t, err)
			assert.Equal(t, tt.wall, s.Thickness.Wall.String())
			assert.Equal(t, tt.floor, s.Thickness.Floor.String())
			assert.Equal(t, tt.divider, s.Thickness.Divider.String())
		})
	}

	_, err := Resolve(withOutput(Partial{WallDimensions: []float64{1, 2, 3, 4}}))
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestResolveInterlockDimensions(t *testing.T) {
	s, err := Resolve(withOutput(Partial{InterlockDimensions: []float64{0.2, 0.1}}))
	require.NoError(t, err)
	assert.Equal(t, "0.2", s.Thickness.InterlockHeight.String())
	assert.Equal(t, "0.1", s.Thickness.InterlockRecess.String())
	assert.Equal(t, "0.069", s.Thickness.InterlockGap.StringFixed(3))
}

func TestResolveLidStyleWarnings(t *testing.T) {
	s, err := Resolve(withOutput(Partial{LidStyles: Words{"Stackable", "fancy"}}))
	require.NoError(t, err)

	assert.Equal(t, []variant.LidStyle{variant.LidStackable}, s.LidStyles)
	require.Len(t, s.Warnings, 1)
	assert.True(t, errors.IsType(s.Warnings[0], errors.TypeResolution))
}

func TestResolveRejectsBadValues(t *testing.T) {
	tests := map[string]Partial{
		"jobs":         {Jobs: ptr(0)},
		"timeout":      {Timeout: ptr("soon")},
		"negative":     {Lengths: []float64{-1}},
		"unit":         {Units: ptr("furlong")},
		"scale":        {Scales: map[string]float64{"z": 0}},
		"div minimum":  {LengthDivMinimum: ptr(-2.0)},
		"model format": {ModelFormat: ptr("")},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(withOutput(p))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeConfig), err.Error())
		})
	}
}

func TestResolveTimeout(t *testing.T) {
	s, err := Resolve(withOutput(Partial{Timeout: ptr("90s"), Jobs: ptr(4)}))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, s.Timeout)
	assert.Equal(t, 4, s.Jobs)
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"run.json": `{
			"units": "cm",
			"dimensions": "4x2x1 6x4x1",
			"make_lids": true,
			"lengths": [4, 6],
			"scales": {"ru": 44.5}
		}`,
		"run.yaml": `
units: cm
dimensions: [4x2x1, 6x4x1]
make_lids: true
lengths: [4, 6]
scales:
  ru: 44.5
`,
		"run.hcl": `
units      = "cm"
dimensions = ["4x2x1", "6x4x1"]
make_lids  = true
lengths    = [4, 6]
scales = {
  ru = 44.5
}
`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := LoadFile(writeFile(t, dir, name, body))
			require.NoError(t, err)

			require.NotNil(t, p.Units)
			assert.Equal(t, "cm", *p.Units)
			assert.Equal(t, Words{"4x2x1", "6x4x1"}, p.Dimensions)
			require.NotNil(t, p.Lids)
			assert.True(t, *p.Lids)
			assert.Equal(t, []float64{4, 6}, p.Lengths)
			assert.Equal(t, map[string]float64{"ru": 44.5}, p.Scales)
			assert.Nil(t, p.Regen)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"unknown.json": `{"colour": "red"}`,
		"unknown.yaml": "colour: red\n",
		"unknown.hcl":  `colour = "red"`,
		"broken.hcl":   `units = `,
		"run.toml":     `units = "cm"`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, dir, name, body))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeConfig))
		})
	}

	_, err := LoadFile(filepath.Join(dir, "no-config.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Specified config file does not exist:")
}

func TestLoadGeneratorSections(t *testing.T) {
	dir := t.TempDir()
	app := writeFile(t, dir, "traylib.json", `{"scales": {"ru": 44.5}}`)

	hclFile := writeFile(t, dir, "run.hcl", `
output_folder = "out"
units         = "in"
dimensions    = ["4x2x1"]

generator "metric" {
  units       = "ru"
  make_divisions = true
}

generator "lids" {
  make_lids  = true
  lid_styles = ["recessed"]
}
`)
	yamlFile := writeFile(t, dir, "run.yaml", `
output_folder: out
units: in
dimensions: [4x2x1]
generators:
  metric:
    units: ru
    make_divisions: true
`)

	for _, file := range []string{hclFile, yamlFile} {
		t.Run(filepath.Ext(file), func(t *testing.T) {
			s, err := Load(Sources{
				AppConfig:  app,
				ConfigFile: file,
				Generator:  "metric",
				Flags:      Partial{Regen: ptr(true)},
			})
			require.NoError(t, err)

			assert.Equal(t, "ru", s.Unit.Name)
			assert.True(t, s.Divisions)
			assert.True(t, s.Regen)
			assert.Equal(t, "out", s.OutputFolder)
			assert.Equal(t, []string{"4x2x1"}, s.Dimensions.Explicit)
		})
	}

	_, err := Load(Sources{AppConfig: app, ConfigFile: hclFile, Generator: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lids, metric")

	_, err = Load(Sources{AppConfig: app, Generator: "metric"})
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestLoadFlagsWinOverFile(t *testing.T) {
	dir := t.TempDir()
	app := writeFile(t, dir, "traylib.yaml", "units: cm\n")
	file := writeFile(t, dir, "run.json", `{"output_folder": "from-file", "units": "mm"}`)

	s, err := Load(Sources{
		AppConfig:  app,
		ConfigFile: file,
		Flags:      Partial{OutputFolder: ptr("from-flag")},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", s.OutputFolder)
	assert.Equal(t, "mm", s.Unit.Name)
}

func TestFindAppConfig(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", FindAppConfig(dir))

	writeFile(t, dir, "traylib.hcl", "")
	assert.Equal(t, filepath.Join(dir, "traylib.hcl"), FindAppConfig(dir))

	writeFile(t, dir, "traylib.json", "{}")
	assert.Equal(t, filepath.Join(dir, "traylib.json"), FindAppConfig(dir))
}

// Package tables loads the two JSON tables a tray library can draw on: the
// modelling tool's parameter-set file (presets) and the custom layout file.
package tables

import (
	"bytes"
	"encoding/json"
	"os"

	"traylib/core/determinism"
	"traylib/core/variant"
	"traylib/internal/errors"
)

// PresetTable is a loaded parameter-set file.
type PresetTable struct {
	Source string
	// Names are the parameter set names, sorted.
	Names []string
}

type presetFile struct {
	ParameterSets map[string]json.RawMessage `json:"parameterSets"`
}

// LoadPresets reads a parameter-set file. A missing or malformed file is a
// configuration error.
func LoadPresets(path string) (*PresetTable, error) {
	var f presetFile
	if err := readJSON(path, "preset", &f); err != nil {
		return nil, err
	}
	return &PresetTable{
		Source: path,
		Names:  determinism.SortedKeys(f.ParameterSets),
	}, nil
}

type layoutFile struct {
	ColRows   map[string]map[string]json.RawMessage `json:"customColRows"`
	Divisions map[string]map[string]json.RawMessage `json:"customDivisions"`
}

const (
	colRowKey   = "Custom_Col_Row_Ratios"
	divisionKey = "Custom_Division_List"
)

// LoadLayouts reads a custom layout file. Ratio layouts come first, then
// division layouts, each sorted by name.
func LoadLayouts(path string) ([]variant.Layout, error) {
	var f layoutFile
	if err := readJSON(path, "custom layout", &f); err != nil {
		return nil, err
	}

	var out []variant.Layout
	add := func(entries map[string]map[string]json.RawMessage, kind variant.LayoutKind, key string) error {
		for _, name := range determinism.SortedKeys(entries) {
			raw, ok := entries[name][key]
			if !ok {
				return errors.Configf("custom layout '%s' in %s has no %s", name, path, key)
			}
			out = append(out, variant.Layout{Name: name, Kind: kind, Expression: expression(raw)})
		}
		return nil
	}
	if err := add(f.ColRows, variant.LayoutRatios, colRowKey); err != nil {
		return nil, err
	}
	if err := add(f.Divisions, variant.LayoutDivisions, divisionKey); err != nil {
		return nil, err
	}
	return out, nil
}

// expression returns a JSON string value unquoted and anything else as
// compact JSON text.
func expression(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func readJSON(path, what string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Configf("specified %s file does not exist: %s", what, path)
		}
		return errors.Wrap(errors.TypeConfig, "failed to read "+what+" file", err).WithContext("path", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.TypeConfig, "failed to parse "+what+" file", err).WithContext("path", path)
	}
	return nil
}

package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"traylib/core/determinism"
	"traylib/internal/errors"
	"traylib/internal/logging"
)

// AppConfigNames are searched, in order, when no application data file is
// given explicitly.
var AppConfigNames = []string{"traylib.json", "traylib.yaml", "traylib.yml", "traylib.hcl"}

// Sources names every configuration input of a run.
type Sources struct {
	// AppConfig is the application data file. Empty means search the
	// working directory for AppConfigNames; a missing file is then fine.
	AppConfig string
	// ConfigFile is the run configuration file, if any
	ConfigFile string
	// Generator selects a section of ConfigFile
	Generator string
	// Flags holds only the values set on the command line
	Flags Partial
}

// Load reads every source and resolves the layered settings.
func Load(src Sources) (*Settings, error) {
	layers := make([]Partial, 0, 4)

	appPath := src.AppConfig
	if appPath == "" {
		appPath = FindAppConfig(".")
	}
	if appPath != "" {
		app, err := LoadFile(appPath)
		if err != nil {
			return nil, err
		}
		app.Generators = nil
		layers = append(layers, app)
		logging.Debug("config layer applied", zap.String("layer", "app"), zap.String("path", appPath))
	}

	if src.ConfigFile != "" {
		file, err := LoadFile(src.ConfigFile)
		if err != nil {
			return nil, err
		}
		generators := file.Generators
		file.Generators = nil
		layers = append(layers, file)
		logging.Debug("config layer applied", zap.String("layer", "file"), zap.String("path", src.ConfigFile))

		if src.Generator != "" {
			gen, ok := generators[src.Generator]
			if !ok {
				return nil, errors.Configf("generator %q is not defined in %s (available: %s)",
					src.Generator, src.ConfigFile, strings.Join(determinism.SortedKeys(generators), ", "))
			}
			gen.Generators = nil
			layers = append(layers, gen)
			logging.Debug("config layer applied", zap.String("layer", "generator"), zap.String("name", src.Generator))
		}
	} else if src.Generator != "" {
		return nil, errors.Configf("generator %q selected but no config file given", src.Generator)
	}

	layers = append(layers, src.Flags)
	return Resolve(layers...)
}

// FindAppConfig returns the first application data file present in dir,
// or "".
func FindAppConfig(dir string) string {
	for _, name := range AppConfigNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadFile decodes one configuration file. The format follows the
// extension: .json, .yaml/.yml or .hcl.
func LoadFile(path string) (Partial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Partial{}, errors.Configf("Specified config file does not exist: %s", path)
		}
		return Partial{}, errors.Wrap(errors.TypeConfig, "failed to read config file", err).WithContext("path", path)
	}

	var p Partial
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&p)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&p)
		if stderrors.Is(err, io.EOF) {
			err = nil
		}
	case ".hcl":
		p, err = decodeHCL(path, data)
	default:
		return Partial{}, errors.Configf("unsupported config file format %q: use .json, .yaml or .hcl", ext).
			WithContext("path", path)
	}
	if err != nil {
		return Partial{}, errors.Wrap(errors.TypeConfig, "failed to parse config file "+path, err)
	}
	return p, nil
}

// hclRoot decodes generator blocks and leaves the top-level attributes
// for the base layer.
type hclRoot struct {
	Generators []*hclGenerator `hcl:"generator,block"`
	Remain     hcl.Body        `hcl:",remain"`
}

type hclGenerator struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

func decodeHCL(path string, data []byte) (Partial, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return Partial{}, diags
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return Partial{}, diags
	}

	var p Partial
	if diags := gohcl.DecodeBody(root.Remain, nil, &p); diags.HasErrors() {
		return Partial{}, diags
	}

	for _, g := range root.Generators {
		var gp Partial
		if diags := gohcl.DecodeBody(g.Body, nil, &gp); diags.HasErrors() {
			return Partial{}, diags
		}
		if p.Generators == nil {
			p.Generators = make(map[string]Partial)
		}
		if _, dup := p.Generators[g.Name]; dup {
			return Partial{}, errors.Configf("generator %q is defined twice", g.Name)
		}
		p.Generators[g.Name] = gp
	}
	return p, nil
}

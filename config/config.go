// Package config reads the HCL file describing the server and its map sources.
//
//	server {
//	  addr    = ":8080"
//	  workers = 4
//	}
//
//	source "osm" {
//	  engine  = "draw/v1"
//	  mapfile = "${config_dir}/maps/osm-%(webmercator_level)d.hcl"
//	  lock    = "process:draw"
//	  coverage {
//	    srs  = "EPSG:4326"
//	    bbox = [5, 45, 15, 55]
//	  }
//	}
//
// Strings can use the config_dir variable and the env(name) function.
package config

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

const (
	DefaultAddr   = "localhost:9000"
	DefaultEngine = "draw/v1"
	DefaultFormat = "png"
)

type Config struct {
	Server  *ServerConfig   `hcl:"server,block"`
	Sources []*SourceConfig `hcl:"source,block"`
}

type ServerConfig struct {
	Addr string `hcl:"addr,optional"`
	// Workers is the number of renders run at the same time. 0 means one per CPU.
	Workers int `hcl:"workers,optional"`
	// RateLimit is in requests per second. 0 means no limit.
	RateLimit  float64  `hcl:"rate_limit,optional"`
	RateBurst  int      `hcl:"rate_burst,optional"`
	FontDirs   []string `hcl:"font_dirs,optional"`
	RequestLog bool     `hcl:"request_log,optional"`
}

type SourceConfig struct {
	Name    string `hcl:"name,label"`
	Engine  string `hcl:"engine,optional"`
	Mapfile string `hcl:"mapfile"`
	// Layers to render. Unset renders all layers, an empty list renders only unnamed layers.
	Layers           []string                `hcl:"layers,optional"`
	Lock             string                  `hcl:"lock,optional"`
	FontDirs         []string                `hcl:"font_dirs,optional"`
	ScaleFactor      *float64                `hcl:"scale_factor,optional"`
	Opacity          *float64                `hcl:"opacity,optional"`
	Transparent      *bool                   `hcl:"transparent,optional"`
	Format           string                  `hcl:"format,optional"`
	UnnamedLayerName string                  `hcl:"unnamed_layer_name,optional"`
	Coverage         *CoverageConfig         `hcl:"coverage,block"`
	ResolutionRange  *ResolutionRangeConfig  `hcl:"resolution_range,block"`
}

type CoverageConfig struct {
	SRS     string      `hcl:"srs,optional"`
	BBox    []float64   `hcl:"bbox,optional"`
	Polygon [][]float64 `hcl:"polygon,optional"`
}

// ResolutionRangeConfig is given either in resolutions (units per pixel) or in scale denominators
type ResolutionRangeConfig struct {
	MinRes   float64 `hcl:"min_res,optional"`
	MaxRes   float64 `hcl:"max_res,optional"`
	MinScale float64 `hcl:"min_scale,optional"`
	MaxScale float64 `hcl:"max_scale,optional"`
}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func newHCLEvalContext(configDir string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"config_dir": cty.StringVal(configDir),
		},
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}
}

// LoadConfig reads and validates the config file at path
func LoadConfig(path string) (*Config, errorsx.Error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	var cfg Config
	err = hclsimple.DecodeFile(absPath, newHCLEvalContext(filepath.Dir(absPath)), &cfg)
	if err != nil {
		return nil, errorsx.Wrap(err, "path", path)
	}

	return finishConfig(&cfg)
}

// ParseConfig parses config file contents. The filename decides the syntax (".hcl" or ".json").
func ParseConfig(filename string, src []byte, configDir string) (*Config, errorsx.Error) {
	var cfg Config
	err := hclsimple.Decode(filename, src, newHCLEvalContext(configDir), &cfg)
	if err != nil {
		return nil, errorsx.Wrap(err, "filename", filename)
	}

	return finishConfig(&cfg)
}

func finishConfig(cfg *Config) (*Config, errorsx.Error) {
	cfg.setDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}

	for _, source := range c.Sources {
		if source.Engine == "" {
			source.Engine = DefaultEngine
		}
		if source.Format == "" {
			source.Format = DefaultFormat
		}
	}
}

// Source returns the source config with the given name, or nil
func (c *Config) Source(name string) *SourceConfig {
	for _, source := range c.Sources {
		if source.Name == name {
			return source
		}
	}
	return nil
}

package drawengine

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/jamesrr39/goutil/errorsx"
	"gopkg.in/yaml.v3"
)

// MapDefinition is a map file: a background and an ordered list of layers, drawn first to last.
// SRS is the spatial reference of the layer data and defaults to EPSG:4326.
type MapDefinition struct {
	Background string             `hcl:"background,optional" yaml:"background"`
	SRS        string             `hcl:"srs,optional" yaml:"srs"`
	Font       string             `hcl:"font,optional" yaml:"font"`
	Layers     []*LayerDefinition `hcl:"layer,block" yaml:"layers"`
}

type LayerDefinition struct {
	Name string `hcl:"name,optional" yaml:"name"`
	// DataFile is a GeoJSON file, relative to the map file
	DataFile string `hcl:"data_file,optional" yaml:"data_file"`
	// GeoJSON is an inline GeoJSON feature collection
	GeoJSON string `hcl:"geojson,optional" yaml:"geojson"`
	// OSMFile is an OpenStreetMap extract (".osm" or ".pbf"), relative to the map file
	OSMFile string `hcl:"osm_file,optional" yaml:"osm_file"`
	// OSMTag selects the objects of OSMFile to draw, as "key" or "key=value"
	OSMTag string `hcl:"osm_tag,optional" yaml:"osm_tag"`

	Fill        string    `hcl:"fill,optional" yaml:"fill"`
	Stroke      string    `hcl:"stroke,optional" yaml:"stroke"`
	LineWidth   float64   `hcl:"line_width,optional" yaml:"line_width"`
	Dash        []float64 `hcl:"dash,optional" yaml:"dash"`
	PointRadius float64   `hcl:"point_radius,optional" yaml:"point_radius"`

	LabelField string  `hcl:"label_field,optional" yaml:"label_field"`
	Font       string  `hcl:"font,optional" yaml:"font"`
	TextSize   float64 `hcl:"text_size,optional" yaml:"text_size"`
	TextColor  string  `hcl:"text_color,optional" yaml:"text_color"`
}

type definitionDecoder func(ref string, src []byte) (*MapDefinition, errorsx.Error)

func decodeHCLDefinition(ref string, src []byte) (*MapDefinition, errorsx.Error) {
	// hclsimple picks the syntax from the file extension
	filename := ref
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".hcl", ".json":
	default:
		filename = ref + ".hcl"
	}

	def := new(MapDefinition)
	err := hclsimple.Decode(filename, src, nil, def)
	if err != nil {
		return nil, errorsx.Wrap(err, "mapfile", ref)
	}

	return def, nil
}

func decodeYAMLDefinition(ref string, src []byte) (*MapDefinition, errorsx.Error) {
	def := new(MapDefinition)

	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	err := dec.Decode(def)
	if err != nil {
		return nil, errorsx.Wrap(err, "mapfile", ref)
	}

	return def, nil
}

// Package drawengine is a rendering engine drawing GeoJSON layers with draw2d and freetype.
// Map files come in two dialects: v1 map files are HCL, v2 map files are YAML.
package drawengine

import (
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/ownmap-mapsource/engine"
)

const (
	V1Name = "draw/v1"
	V2Name = "draw/v2"
)

var _ engine.Binding = &Binding{}

type Binding struct {
	name   string
	decode definitionDecoder
	fs     gofs.Fs
	fonts  *FontTable
}

// NewV1Binding reads HCL map files
func NewV1Binding(fs gofs.Fs, fonts *FontTable) *Binding {
	return newBinding(V1Name, decodeHCLDefinition, fs, fonts)
}

// NewV2Binding reads YAML map files
func NewV2Binding(fs gofs.Fs, fonts *FontTable) *Binding {
	return newBinding(V2Name, decodeYAMLDefinition, fs, fonts)
}

// NewBinding picks the binding by name. "v1" and "v2" are accepted as short forms.
func NewBinding(name string, fs gofs.Fs, fonts *FontTable) (*Binding, errorsx.Error) {
	switch normaliseBindingName(name) {
	case V1Name:
		return NewV1Binding(fs, fonts), nil
	case V2Name:
		return NewV2Binding(fs, fonts), nil
	default:
		return nil, errorsx.Errorf("unknown engine %q. Expected %q or %q", name, V1Name, V2Name)
	}
}

// IsKnownBinding reports whether NewBinding accepts name
func IsKnownBinding(name string) bool {
	return normaliseBindingName(name) != ""
}

func normaliseBindingName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "v1", V1Name:
		return V1Name
	case "v2", V2Name:
		return V2Name
	default:
		return ""
	}
}

func newBinding(name string, decode definitionDecoder, fs gofs.Fs, fonts *FontTable) *Binding {
	if fonts == nil {
		fonts = NewFontTable(fs)
	}

	return &Binding{name, decode, fs, fonts}
}

func (b *Binding) Name() string {
	return b.name
}

func (b *Binding) UnnamedLayerName() string {
	return engine.DefaultUnnamedLayerName
}

func (b *Binding) Fonts() *FontTable {
	return b.fonts
}

func (b *Binding) NewCanvas(width, height int) (engine.Canvas, errorsx.Error) {
	if width <= 0 || height <= 0 {
		return nil, errorsx.Errorf("invalid map size %dx%d", width, height)
	}

	return &Canvas{binding: b, width: width, height: height}, nil
}

func (b *Binding) NewRaster(width, height int) (engine.Raster, errorsx.Error) {
	raster, err := newRaster(width, height)
	if err != nil {
		return nil, err
	}

	return raster, nil
}

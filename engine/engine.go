// Package engine describes the capabilities a rendering engine must offer to be driven by a map source.
// Each engine dialect provides a Binding; the map source never depends on a concrete engine.
package engine

import (
	"image"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb"
)

// DefaultUnnamedLayerName is the layer name engines give to layers defined without a name
const DefaultUnnamedLayerName = "Unknown"

type Binding interface {
	// Name identifies the engine dialect, e.g. "draw/v1"
	Name() string
	NewCanvas(width, height int) (Canvas, errorsx.Error)
	NewRaster(width, height int) (Raster, errorsx.Error)
	// UnnamedLayerName is the name the engine reports for layers without a name of their own
	UnnamedLayerName() string
}

// Canvas is a map loaded into the engine. It is owned by one render and not safe for concurrent use.
type Canvas interface {
	LoadDefinition(ref string) errorsx.Error
	// SetProjection takes an init string in the form "+init=epsg:3857"
	SetProjection(initString string) errorsx.Error
	SetExtent(bbox orb.Bound) errorsx.Error
	// LayerNames returns the names of the loaded layers, in drawing order
	LayerNames() []string
	RemoveLayer(index int) errorsx.Error
	Render(raster Raster, scaleFactor float64) errorsx.Error
}

type Raster interface {
	Bounds() image.Rectangle
	// Encode encodes the raster with an engine format string, e.g. "png", "png8" or "jpeg90"
	Encode(format string) ([]byte, errorsx.Error)
}

// FontTable is the engine's process-wide font registry
type FontTable interface {
	// RegisterFont registers a font file. It reports whether the file was accepted.
	RegisterFont(path string) bool
}

package mapsource

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/ownmap-mapsource/coverage"
	"github.com/jamesrr39/ownmap-mapsource/engine"
	"github.com/jamesrr39/ownmap-mapsource/exclusion"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/jamesrr39/ownmap-mapsource/offload"
	"github.com/jamesrr39/ownmap-mapsource/telemetry"
)

// Config is fixed when the source is created and shared by all of its requests
type Config struct {
	Name string
	// Mapfile may contain LevelPlaceholder
	Mapfile string
	// Layers to keep. nil keeps all layers.
	Layers          LayerSet
	Coverage        coverage.Coverage
	ResolutionRange *coverage.ResolutionRange
	FontDirs        []string
	ScaleFactor     float64
	Opacity         float64
	ImageOptions    ImageOptions
	// UnnamedLayerName overrides the engine's name for layers without a name. Layers with this name are never filtered out.
	UnnamedLayerName string
}

// NewConfig returns a config with the defaults filled in
func NewConfig(name, mapfile string) *Config {
	return &Config{
		Name:        name,
		Mapfile:     mapfile,
		ScaleFactor: 1,
		Opacity:     1,
		ImageOptions: ImageOptions{
			Transparent: true,
			Format:      "png",
		},
	}
}

func (c *Config) Validate() errorsx.Error {
	switch {
	case c.Name == "":
		return errorsx.Errorf("no name given")
	case c.Mapfile == "":
		return errorsx.Errorf("no mapfile given")
	case c.ScaleFactor <= 0:
		return errorsx.Errorf("scale factor must be above 0, got %v", c.ScaleFactor)
	case c.Opacity < 0 || c.Opacity > 1:
		return errorsx.Errorf("opacity must be between 0 and 1, got %v", c.Opacity)
	}

	return nil
}

// Dependencies are the collaborators of a source. Binding and Pool are required.
// Without a FontTable the source does not register fonts.
type Dependencies struct {
	Binding   engine.Binding
	FontTable engine.FontTable
	Fs        gofs.Fs
	Pool      *offload.Pool
	// Lock is optional. Without one, renders of the same source may run at the same time.
	Lock          exclusion.Scope
	RequestLogger telemetry.RequestLogger
	// Grid is used to resolve the level placeholder. Defaults to grid.WebMercator.
	Grid *grid.TileGrid
}

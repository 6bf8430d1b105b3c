package config

import (
	"sort"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmap-mapsource/coverage"
	"github.com/jamesrr39/ownmap-mapsource/engine/drawengine"
	"github.com/jamesrr39/ownmap-mapsource/exclusion"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/jamesrr39/ownmap-mapsource/mapsource"
	"github.com/jamesrr39/ownmap-mapsource/offload"
	"github.com/jamesrr39/ownmap-mapsource/telemetry"
	"github.com/paulmach/orb"
)

// Runtime holds the sources built from a config, and the collaborators they share
type Runtime struct {
	Sources   map[string]*mapsource.Source
	FontTable *drawengine.FontTable
	Pool      *offload.Pool
	Locks     *exclusion.Registry
	// ServerFonts is the result of registering the server font_dirs
	ServerFonts mapsource.FontRegistrationResult
}

// SourceNames returns the source names, sorted
func (r *Runtime) SourceNames() []string {
	var names []string
	for name := range r.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates every source in the config.
// All sources share one font table, one worker pool, and one scope per lock name.
func Build(logger *logpkg.Logger, fs gofs.Fs, cfg *Config, requestLogger telemetry.RequestLogger) (*Runtime, errorsx.Error) {
	fontTable := drawengine.NewFontTable(fs)

	rt := &Runtime{
		Sources:   make(map[string]*mapsource.Source),
		FontTable: fontTable,
		Pool:      offload.NewPool(uint(cfg.Server.Workers)),
		Locks:     exclusion.NewRegistry(),
	}

	if len(cfg.Server.FontDirs) != 0 {
		rt.ServerFonts = mapsource.NewFontRegistrar(logger, fs, fontTable).RegisterFonts(cfg.Server.FontDirs)
	}

	for _, sourceConfig := range cfg.Sources {
		source, err := buildSource(logger, fs, rt, sourceConfig, requestLogger)
		if err != nil {
			return nil, errorsx.Wrap(err, "source", sourceConfig.Name)
		}

		rt.Sources[sourceConfig.Name] = source
	}

	return rt, nil
}

func buildSource(logger *logpkg.Logger, fs gofs.Fs, rt *Runtime, sc *SourceConfig, requestLogger telemetry.RequestLogger) (*mapsource.Source, errorsx.Error) {
	binding, err := drawengine.NewBinding(sc.Engine, fs, rt.FontTable)
	if err != nil {
		return nil, err
	}

	lock, err := rt.Locks.Get(sc.Lock)
	if err != nil {
		return nil, err
	}

	conf, err := sc.toSourceConfig()
	if err != nil {
		return nil, err
	}

	deps := mapsource.Dependencies{
		Binding:       binding,
		FontTable:     rt.FontTable,
		Fs:            fs,
		Pool:          rt.Pool,
		Lock:          lock,
		RequestLogger: requestLogger,
	}

	return mapsource.NewSource(logger, conf, deps)
}

func (sc *SourceConfig) toSourceConfig() (*mapsource.Config, errorsx.Error) {
	conf := mapsource.NewConfig(sc.Name, sc.Mapfile)
	conf.FontDirs = sc.FontDirs
	conf.UnnamedLayerName = sc.UnnamedLayerName
	conf.ImageOptions.Format = mapsource.ImageFormat(sc.Format)

	if sc.Layers != nil {
		conf.Layers = mapsource.NewLayerSet(sc.Layers...)
	}
	if sc.ScaleFactor != nil {
		conf.ScaleFactor = *sc.ScaleFactor
	}
	if sc.Opacity != nil {
		conf.Opacity = *sc.Opacity
	}
	if sc.Transparent != nil {
		conf.ImageOptions.Transparent = *sc.Transparent
	}

	if sc.Coverage != nil {
		cov, err := sc.Coverage.build()
		if err != nil {
			return nil, errorsx.Wrap(err, "block", "coverage")
		}
		conf.Coverage = cov
	}

	if sc.ResolutionRange != nil {
		rr, err := sc.ResolutionRange.build()
		if err != nil {
			return nil, errorsx.Wrap(err, "block", "resolution_range")
		}
		conf.ResolutionRange = rr
	}

	return conf, nil
}

func (c *CoverageConfig) build() (coverage.Coverage, errorsx.Error) {
	srs := grid.EPSG4326
	if c.SRS != "" {
		var err errorsx.Error
		srs, err = grid.ParseSRS(c.SRS)
		if err != nil {
			return nil, err
		}
	}

	if len(c.BBox) != 0 {
		bbox := orb.Bound{
			Min: orb.Point{c.BBox[0], c.BBox[1]},
			Max: orb.Point{c.BBox[2], c.BBox[3]},
		}
		return coverage.NewBBoxCoverage(bbox, srs), nil
	}

	var ring orb.Ring
	for _, point := range c.Polygon {
		ring = append(ring, orb.Point{point[0], point[1]})
	}
	if len(ring) != 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}

	return coverage.NewPolygonCoverage(orb.Polygon{ring}, srs)
}

func (rr *ResolutionRangeConfig) build() (*coverage.ResolutionRange, errorsx.Error) {
	if rr.MinScale != 0 || rr.MaxScale != 0 {
		return coverage.NewResolutionRangeFromScales(rr.MinScale, rr.MaxScale)
	}
	return coverage.NewResolutionRange(rr.MinRes, rr.MaxRes)
}

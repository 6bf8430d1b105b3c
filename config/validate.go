package config

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/engine/drawengine"
)

func (c *Config) Validate() errorsx.Error {
	err := c.Server.validate()
	if err != nil {
		return errorsx.Wrap(err, "block", "server")
	}

	if len(c.Sources) == 0 {
		return errorsx.Errorf("no source blocks given")
	}

	seen := make(map[string]bool)
	for _, source := range c.Sources {
		if seen[source.Name] {
			return errorsx.Errorf("duplicate source name %q", source.Name)
		}
		seen[source.Name] = true

		err := source.validate()
		if err != nil {
			return errorsx.Wrap(err, "source", source.Name)
		}
	}

	return nil
}

func (s *ServerConfig) validate() errorsx.Error {
	switch {
	case s.Workers < 0:
		return errorsx.Errorf("workers must not be negative, got %d", s.Workers)
	case s.RateLimit < 0:
		return errorsx.Errorf("rate_limit must not be negative, got %v", s.RateLimit)
	case s.RateBurst < 0:
		return errorsx.Errorf("rate_burst must not be negative, got %d", s.RateBurst)
	}
	return nil
}

func (s *SourceConfig) validate() errorsx.Error {
	if s.Name == "" {
		return errorsx.Errorf("source name must not be empty")
	}
	if s.Mapfile == "" {
		return errorsx.Errorf("mapfile must not be empty")
	}
	if !drawengine.IsKnownBinding(s.Engine) {
		return errorsx.Errorf("unknown engine %q", s.Engine)
	}
	if s.ScaleFactor != nil && *s.ScaleFactor <= 0 {
		return errorsx.Errorf("scale_factor must be above 0, got %v", *s.ScaleFactor)
	}
	if s.Opacity != nil && (*s.Opacity < 0 || *s.Opacity > 1) {
		return errorsx.Errorf("opacity must be between 0 and 1, got %v", *s.Opacity)
	}

	if s.Coverage != nil {
		err := s.Coverage.validate()
		if err != nil {
			return errorsx.Wrap(err, "block", "coverage")
		}
	}

	if s.ResolutionRange != nil {
		err := s.ResolutionRange.validate()
		if err != nil {
			return errorsx.Wrap(err, "block", "resolution_range")
		}
	}

	return nil
}

func (c *CoverageConfig) validate() errorsx.Error {
	hasBBox := len(c.BBox) != 0
	hasPolygon := len(c.Polygon) != 0

	switch {
	case hasBBox && hasPolygon:
		return errorsx.Errorf("give either bbox or polygon, not both")
	case !hasBBox && !hasPolygon:
		return errorsx.Errorf("give a bbox or a polygon")
	case hasBBox && len(c.BBox) != 4:
		return errorsx.Errorf("bbox must have 4 numbers (minx, miny, maxx, maxy), got %d", len(c.BBox))
	case hasBBox && (c.BBox[0] >= c.BBox[2] || c.BBox[1] >= c.BBox[3]):
		return errorsx.Errorf("bbox %v has no area", c.BBox)
	}

	for i, point := range c.Polygon {
		if len(point) != 2 {
			return errorsx.Errorf("polygon point %d must have 2 numbers, got %d", i, len(point))
		}
	}

	return nil
}

func (rr *ResolutionRangeConfig) validate() errorsx.Error {
	hasRes := rr.MinRes != 0 || rr.MaxRes != 0
	hasScale := rr.MinScale != 0 || rr.MaxScale != 0

	if hasRes && hasScale {
		return errorsx.Errorf("give either resolutions or scales, not both")
	}

	return nil
}

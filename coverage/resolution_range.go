package coverage

import (
	"math"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/paulmach/orb"
)

const (
	// metres per degree at the equator, used to compare lat/long requests against metric resolutions
	metresPerDegree = 111319.4907932736

	// OGC standardized rendering pixel size in metres
	ogcPixelSize = 0.00028
)

// ResolutionRange is the span of resolutions (map units per pixel, metres for lat/long requests) a source is valid for.
// A request matches if MinRes >= res > MaxRes. A zero bound is open.
type ResolutionRange struct {
	MinRes float64
	MaxRes float64
}

func NewResolutionRange(minRes, maxRes float64) (*ResolutionRange, errorsx.Error) {
	if minRes < 0 || maxRes < 0 {
		return nil, errorsx.Errorf("resolutions must not be negative (min_res: %v, max_res: %v)", minRes, maxRes)
	}

	if minRes != 0 && maxRes != 0 && minRes <= maxRes {
		return nil, errorsx.Errorf("min_res (%v) must be larger than max_res (%v)", minRes, maxRes)
	}

	return &ResolutionRange{minRes, maxRes}, nil
}

// NewResolutionRangeFromScales converts scale denominators (e.g. 1:50000 -> 50000) into a ResolutionRange
func NewResolutionRangeFromScales(minScale, maxScale float64) (*ResolutionRange, errorsx.Error) {
	return NewResolutionRange(minScale*ogcPixelSize, maxScale*ogcPixelSize)
}

func (rr *ResolutionRange) Contains(bbox orb.Bound, size grid.Size, srs grid.SRS) bool {
	if size.Width <= 0 || size.Height <= 0 {
		return false
	}

	width := bbox.Max[0] - bbox.Min[0]
	height := bbox.Max[1] - bbox.Min[1]
	if srs.IsLatLong() {
		width = width * metresPerDegree
		height = height * metresPerDegree
	}

	res := math.Min(width/float64(size.Width), height/float64(size.Height))

	if rr.MaxRes != 0 && res <= rr.MaxRes {
		return false
	}

	if rr.MinRes != 0 && res > rr.MinRes {
		return false
	}

	return true
}

// MapExtent is the declared extent of a source. An unbounded extent covers everything.
type MapExtent struct {
	BBox      orb.Bound
	SRS       grid.SRS
	Unbounded bool
}

func UnboundedExtent() MapExtent {
	return MapExtent{
		BBox:      orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}},
		SRS:       grid.EPSG4326,
		Unbounded: true,
	}
}

// ExtentOf returns the coverage's bbox, or an unbounded extent for a nil coverage
func ExtentOf(c Coverage) MapExtent {
	if c == nil {
		return UnboundedExtent()
	}

	return MapExtent{
		BBox: c.BBox(),
		SRS:  c.SRS(),
	}
}

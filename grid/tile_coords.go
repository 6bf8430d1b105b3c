package grid

import (
	"math"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

func XYZToBounds(x, y, zoomLevel int) osm.Bounds {
	n := math.Pow(2, float64(zoomLevel))
	longitudeMin := float64(x)/n*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y)/n)))
	latitudeMax := latRad * 180 / math.Pi

	longitudeMax := float64(x+1)/n*360 - 180
	latRad = math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y+1)/n)))
	latitudeMin := latRad * 180 / math.Pi

	return osm.Bounds{
		MinLat: latitudeMin,
		MaxLat: latitudeMax,
		MinLon: longitudeMin,
		MaxLon: longitudeMax,
	}
}

func BoundsToBound(bounds osm.Bounds) orb.Bound {
	return orb.Bound{
		Min: orb.Point{bounds.MinLon, bounds.MinLat},
		Max: orb.Point{bounds.MaxLon, bounds.MaxLat},
	}
}

// TileBBox returns the bbox of the slippy map tile x/y/z in the requested SRS
func TileBBox(x, y, zoomLevel int, srs SRS) (orb.Bound, errorsx.Error) {
	if zoomLevel < 0 || x < 0 || y < 0 {
		return orb.Bound{}, errorsx.Errorf("invalid tile %d/%d/%d", zoomLevel, x, y)
	}

	maxIndex := int(math.Exp2(float64(zoomLevel)))
	if x >= maxIndex || y >= maxIndex {
		return orb.Bound{}, errorsx.Errorf("tile %d/%d/%d outside of grid", zoomLevel, x, y)
	}

	bound := BoundsToBound(XYZToBounds(x, y, zoomLevel))

	return TransformBound(bound, EPSG4326, srs)
}

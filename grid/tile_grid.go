package grid

import (
	"math"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
)

const (
	DefaultTileSize  = 256
	DefaultNumLevels = 20

	// half the circumference of the earth in spherical mercator metres
	mercatorHalfExtent = 20037508.342789244
)

// Size is a pixel size
type Size struct {
	Width  int
	Height int
}

// TileGrid is a web mercator tile pyramid with square tiles and resolutions halving every level.
type TileGrid struct {
	SRS         SRS
	TileSize    int
	Resolutions []float64
}

// WebMercator is the 256px, EPSG:3857 grid used by slippy maps.
var WebMercator = NewWebMercatorGrid(DefaultTileSize, DefaultNumLevels)

func NewWebMercatorGrid(tileSize, numLevels int) *TileGrid {
	res0 := 2 * mercatorHalfExtent / float64(tileSize)

	resolutions := make([]float64, numLevels)
	for i := range resolutions {
		resolutions[i] = res0 / math.Exp2(float64(i))
	}

	return &TileGrid{
		SRS:         EPSG3857,
		TileSize:    tileSize,
		Resolutions: resolutions,
	}
}

func (g *TileGrid) Resolution(level int) float64 {
	return g.Resolutions[level]
}

// ClosestLevel returns the level whose resolution is nearest to res. The switch between
// two levels happens halfway between their resolutions.
func (g *TileGrid) ClosestLevel(res float64) int {
	prevRes := g.Resolutions[0]
	for level, levelRes := range g.Resolutions {
		threshold := (prevRes + levelRes) / 2
		if res < threshold {
			prevRes = levelRes
			continue
		}

		if level == 0 {
			return 0
		}
		return level - 1
	}

	return len(g.Resolutions) - 1
}

// AffectedBBoxAndLevel finds the level best matching the requested resolution and returns the bbox
// (in the grid SRS) of all tiles at that level touched by the request.
func (g *TileGrid) AffectedBBoxAndLevel(bbox orb.Bound, size Size, reqSRS SRS) (orb.Bound, int, errorsx.Error) {
	if size.Width <= 0 || size.Height <= 0 {
		return orb.Bound{}, 0, errorsx.Errorf("invalid request size %dx%d", size.Width, size.Height)
	}

	gridBBox, err := TransformBound(bbox, reqSRS, g.SRS)
	if err != nil {
		return orb.Bound{}, 0, errorsx.Wrap(err)
	}

	res := math.Max(
		(gridBBox.Max[0]-gridBBox.Min[0])/float64(size.Width),
		(gridBBox.Max[1]-gridBBox.Min[1])/float64(size.Height),
	)

	level := g.ClosestLevel(res)

	affected, err := g.tilesBound(gridBBox, level)
	if err != nil {
		return orb.Bound{}, 0, errorsx.Wrap(err)
	}

	return affected, level, nil
}

// tilesBound returns the mercator bound of the tiles covering bbox at the given level
func (g *TileGrid) tilesBound(bbox orb.Bound, level int) (orb.Bound, errorsx.Error) {
	// shrink slightly so that a bbox ending exactly on a tile edge doesn't pull in the next tile
	epsilon := g.Resolution(level) / 1000
	topLeft := orb.Point{
		clamp(bbox.Min[0]+epsilon, -mercatorHalfExtent, mercatorHalfExtent),
		clamp(bbox.Max[1]-epsilon, -mercatorHalfExtent, mercatorHalfExtent),
	}
	bottomRight := orb.Point{
		clamp(bbox.Max[0]-epsilon, -mercatorHalfExtent, mercatorHalfExtent),
		clamp(bbox.Min[1]+epsilon, -mercatorHalfExtent, mercatorHalfExtent),
	}

	zoom := maptile.Zoom(level)
	minTile := maptile.At(project.Mercator.ToWGS84(topLeft), zoom)
	maxTile := maptile.At(project.Mercator.ToWGS84(bottomRight), zoom)

	lonLatBound := minTile.Bound().Union(maxTile.Bound())

	return TransformBound(lonLatBound, EPSG4326, g.SRS)
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

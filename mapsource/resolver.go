package mapsource

import (
	"regexp"
	"strconv"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/grid"
)

// LevelPlaceholder is replaced by the web mercator level of the request, e.g. "osm-%(webmercator_level)d.hcl"
const LevelPlaceholder = "%(webmercator_level)"

var levelPlaceholderRegexp = regexp.MustCompile(`%\(webmercator_level\)[ds]?`)

// MapfileResolver picks the map file for a request. It is safe for concurrent use.
type MapfileResolver struct {
	grid *grid.TileGrid
}

func NewMapfileResolver(tileGrid *grid.TileGrid) *MapfileResolver {
	if tileGrid == nil {
		tileGrid = grid.WebMercator
	}
	return &MapfileResolver{tileGrid}
}

func HasLevelPlaceholder(mapfile string) bool {
	return levelPlaceholderRegexp.MatchString(mapfile)
}

// Resolve substitutes the level placeholder. A map file without a placeholder is returned as it is.
func (r *MapfileResolver) Resolve(mapfile string, query *TileQuery) (string, errorsx.Error) {
	if !HasLevelPlaceholder(mapfile) {
		return mapfile, nil
	}

	_, level, err := r.grid.AffectedBBoxAndLevel(query.BBox, query.Size, query.SRS)
	if err != nil {
		return "", errorsx.Wrap(err, "mapfile", mapfile)
	}

	return levelPlaceholderRegexp.ReplaceAllLiteralString(mapfile, strconv.Itoa(level)), nil
}

package mapsource

import (
	"testing"

	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tileQuery(t *testing.T, x, y, z int) *TileQuery {
	bbox, err := grid.TileBBox(x, y, z, grid.EPSG3857)
	require.NoError(t, err)

	return NewTileQuery(bbox, grid.EPSG3857, grid.Size{Width: 256, Height: 256}, "png")
}

func TestMapfileResolver_Resolve(t *testing.T) {
	resolver := NewMapfileResolver(nil)

	tests := []struct {
		name     string
		mapfile  string
		query    *TileQuery
		expected string
	}{
		{"no placeholder", "/maps/world.hcl", tileQuery(t, 3, 4, 5), "/maps/world.hcl"},
		{"placeholder with d", "/maps/osm-%(webmercator_level)d.hcl", tileQuery(t, 3, 4, 5), "/maps/osm-5.hcl"},
		{"placeholder with s", "/maps/osm-%(webmercator_level)s.hcl", tileQuery(t, 3, 4, 5), "/maps/osm-5.hcl"},
		{"bare placeholder", "/maps/%(webmercator_level)/osm.hcl", tileQuery(t, 100, 200, 9), "/maps/9/osm.hcl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(tt.mapfile, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMapfileResolver_SameLevelSameMapfile(t *testing.T) {
	resolver := NewMapfileResolver(grid.WebMercator)
	mapfile := "/maps/osm-%(webmercator_level)d.hcl"

	a, err := resolver.Resolve(mapfile, tileQuery(t, 0, 0, 7))
	require.NoError(t, err)
	b, err := resolver.Resolve(mapfile, tileQuery(t, 100, 27, 7))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "/maps/osm-7.hcl", a)
}

func TestMapfileResolver_InvalidSize(t *testing.T) {
	resolver := NewMapfileResolver(nil)
	query := NewTileQuery(orb.Bound{Max: orb.Point{100, 100}}, grid.EPSG3857, grid.Size{}, "png")

	_, err := resolver.Resolve("/maps/osm-%(webmercator_level)d.hcl", query)
	require.Error(t, err)

	// without a placeholder there is nothing to compute
	mapfile, err := resolver.Resolve("/maps/world.hcl", query)
	require.NoError(t, err)
	assert.Equal(t, "/maps/world.hcl", mapfile)
}

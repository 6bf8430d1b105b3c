package config

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/jamesrr39/goutil/gofs/mockfs"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmap-mapsource/coverage"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/jamesrr39/ownmap-mapsource/mapsource"
	"github.com/jamesrr39/ownmap-mapsource/telemetry"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleConfig = `
server {
  addr       = ":8080"
  workers    = 2
  rate_limit = 20
  rate_burst = 40
}

source "world" {
  mapfile = "${config_dir}/maps/world.hcl"
  layers  = ["land"]
  lock    = "process:draw"
  opacity = 0.5

  coverage {
    bbox = [-20, -20, 20, 20]
  }

  resolution_range {
    min_scale = 500000000
    max_scale = 1000
  }
}

source "places" {
  engine      = "draw/v2"
  mapfile     = "${env("MAPS_DIR")}/places-%(webmercator_level)d.yaml"
  layers      = []
  lock        = "process:draw"
  transparent = false
  format      = "jpeg"

  coverage {
    srs     = "EPSG:3857"
    polygon = [[0, 0], [1000, 0], [1000, 1000]]
  }
}
`

func parseExampleConfig(t *testing.T) *Config {
	t.Setenv("MAPS_DIR", "/srv/maps")

	cfg, err := ParseConfig("mapsource.hcl", []byte(exampleConfig), "/etc/mapsource")
	require.NoError(t, err)

	return cfg
}

func TestParseConfig(t *testing.T) {
	cfg := parseExampleConfig(t)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Server.Workers)
	assert.Equal(t, 20.0, cfg.Server.RateLimit)
	assert.Equal(t, 40, cfg.Server.RateBurst)

	require.Len(t, cfg.Sources, 2)

	world := cfg.Source("world")
	require.NotNil(t, world)
	assert.Equal(t, DefaultEngine, world.Engine)
	assert.Equal(t, "/etc/mapsource/maps/world.hcl", world.Mapfile)
	assert.Equal(t, []string{"land"}, world.Layers)
	assert.Equal(t, DefaultFormat, world.Format)
	require.NotNil(t, world.Opacity)
	assert.Equal(t, 0.5, *world.Opacity)
	assert.Nil(t, world.ScaleFactor)
	assert.Equal(t, []float64{-20, -20, 20, 20}, world.Coverage.BBox)

	places := cfg.Source("places")
	require.NotNil(t, places)
	assert.Equal(t, "/srv/maps/places-%(webmercator_level)d.yaml", places.Mapfile)
	assert.NotNil(t, places.Layers)
	assert.Empty(t, places.Layers)
	require.NotNil(t, places.Transparent)
	assert.False(t, *places.Transparent)
	assert.Nil(t, places.ResolutionRange)

	assert.Nil(t, cfg.Source("missing"))
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig("mapsource.hcl", []byte(`
source "a" {
  mapfile = "a.hcl"
}
`), "/")
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, 0, cfg.Server.Workers)
	assert.Nil(t, cfg.Sources[0].Layers)
	assert.Nil(t, cfg.Sources[0].Coverage)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no sources", `server {}`},
		{"missing mapfile", `source "a" {}`},
		{"empty mapfile", `source "a" { mapfile = "" }`},
		{"duplicate names", `
source "a" { mapfile = "a.hcl" }
source "a" { mapfile = "b.hcl" }
`},
		{"unknown engine", `source "a" {
  mapfile = "a.xml"
  engine  = "mapnik"
}`},
		{"zero scale factor", `source "a" {
  mapfile      = "a.hcl"
  scale_factor = 0
}`},
		{"opacity above 1", `source "a" {
  mapfile = "a.hcl"
  opacity = 1.5
}`},
		{"negative workers", `
server { workers = -1 }
source "a" { mapfile = "a.hcl" }
`},
		{"bbox and polygon", `source "a" {
  mapfile = "a.hcl"
  coverage {
    bbox    = [0, 0, 1, 1]
    polygon = [[0, 0], [1, 0], [1, 1]]
  }
}`},
		{"empty coverage", `source "a" {
  mapfile = "a.hcl"
  coverage {}
}`},
		{"short bbox", `source "a" {
  mapfile = "a.hcl"
  coverage {
    bbox = [0, 0, 1]
  }
}`},
		{"inverted bbox", `source "a" {
  mapfile = "a.hcl"
  coverage {
    bbox = [1, 1, 0, 0]
  }
}`},
		{"3d polygon point", `source "a" {
  mapfile = "a.hcl"
  coverage {
    polygon = [[0, 0, 0], [1, 0, 0], [1, 1, 0]]
  }
}`},
		{"resolutions and scales", `source "a" {
  mapfile = "a.hcl"
  resolution_range {
    min_res   = 100
    max_scale = 1000
  }
}`},
		{"unknown attribute", `source "a" {
  mapfile = "a.hcl"
  colour  = "red"
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig("mapsource.hcl", []byte(tt.src), "/")
			require.Error(t, err)
		})
	}
}

const worldMapfile = `
background = "#ffffff"

layer {
  name    = "land"
  fill    = "#ff0000"
  geojson = <<EOT
{"type":"FeatureCollection","features":[
	{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}}
]}
EOT
}
`

func TestBuild(t *testing.T) {
	cfg := parseExampleConfig(t)

	fs := mockfs.NewMockFs()
	require.NoError(t, fs.MkdirAll("/etc/mapsource/maps", 0755))
	require.NoError(t, fs.WriteFile("/etc/mapsource/maps/world.hcl", []byte(worldMapfile), 0644))

	logger := logpkg.NewLogger(bytes.NewBuffer(nil), logpkg.LogLevelInfo)

	rt, err := Build(logger, fs, cfg, telemetry.NopRequestLogger{})
	require.NoError(t, err)

	assert.Equal(t, []string{"places", "world"}, rt.SourceNames())
	assert.Equal(t, uint(2), rt.Pool.Size())

	world := rt.Sources["world"]
	assert.Equal(t, "draw/v1", world.EngineName())
	assert.Equal(t, coverage.MapExtent{
		BBox: orb.Bound{Min: orb.Point{-20, -20}, Max: orb.Point{20, 20}},
		SRS:  grid.EPSG4326,
	}, world.Extent())
	assert.Equal(t, mapsource.ImageOptions{Transparent: true, Format: "png"}, world.ImageOptions())

	places := rt.Sources["places"]
	assert.Equal(t, "draw/v2", places.EngineName())
	assert.Equal(t, mapsource.ImageOptions{Transparent: false, Format: "jpeg"}, places.ImageOptions())

	// both sources name the same lock
	lockA, err := rt.Locks.Get("process:draw")
	require.NoError(t, err)
	lockB, err := rt.Locks.Get("process:draw")
	require.NoError(t, err)
	assert.Same(t, lockA, lockB)

	query := mapsource.NewTileQuery(
		orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{20, 20}},
		grid.EPSG4326,
		grid.Size{Width: 30, Height: 30},
		"png",
	)
	img, err := world.GetMap(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 0.5, img.Opacity)

	decoded, decodeErr := png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, decodeErr)
	assert.Equal(t, 30, decoded.Bounds().Dx())

	// outside the coverage nothing is rendered
	outside := mapsource.NewTileQuery(
		orb.Bound{Min: orb.Point{100, 10}, Max: orb.Point{110, 20}},
		grid.EPSG4326,
		grid.Size{Width: 30, Height: 30},
		"png",
	)
	_, err = world.GetMap(context.Background(), outside)
	assert.True(t, mapsource.IsBlankImage(err))
}

func TestBuild_ServerFontDirs(t *testing.T) {
	cfg, err := ParseConfig("mapsource.hcl", []byte(`
server {
  font_dirs = ["/fonts"]
}

source "a" {
  mapfile = "/maps/a.hcl"
}
`), "/")
	require.NoError(t, err)

	fs := mockfs.NewMockFs()
	fs.LstatFunc = fs.StatFunc
	require.NoError(t, fs.MkdirAll("/fonts", 0755))
	require.NoError(t, fs.WriteFile("/fonts/broken.ttf", []byte("not a font"), 0644))

	logger := logpkg.NewLogger(bytes.NewBuffer(nil), logpkg.LogLevelInfo)

	rt, err := Build(logger, fs, cfg, nil)
	require.NoError(t, err)

	assert.Empty(t, rt.ServerFonts.Added)
	assert.Equal(t, []string{"/fonts/broken.ttf"}, rt.ServerFonts.Failed)
}

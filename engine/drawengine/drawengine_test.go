package drawengine

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/jamesrr39/goutil/gofs/mockfs"
	"github.com/jamesrr39/ownmap-mapsource/engine"
	"github.com/jamesrr39/ownmap-mapsource/fonts"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareGeoJSON = `{"type":"FeatureCollection","features":[
	{"type":"Feature","properties":{"name":"square"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}}
]}`

const worldHCL = `
background = "#ffffff"

layer {
  name  = "land"
  fill  = "#ff0000"
  geojson = <<EOT
` + squareGeoJSON + `
EOT
}

layer {
  stroke = "#0000ff"
}
`

const pointsYAML = `
background: "#000000"
layers:
  - name: places
    data_file: data/places.geojson
    fill: "#00ff00"
    point_radius: 20
    label_field: name
    text_color: "#ffffff"
  - name: empty
`

const placesGeoJSON = `{"type":"FeatureCollection","features":[
	{"type":"Feature","properties":{"name":"Nowhere"},"geometry":{"type":"Point","coordinates":[5,5]}}
]}`

func newTestFs(t *testing.T) mockfs.MockFs {
	fs := mockfs.NewMockFs()
	require.NoError(t, fs.MkdirAll("/maps/data", 0755))
	require.NoError(t, fs.WriteFile("/maps/world.hcl", []byte(worldHCL), 0644))
	require.NoError(t, fs.WriteFile("/maps/places.yaml", []byte(pointsYAML), 0644))
	require.NoError(t, fs.WriteFile("/maps/data/places.geojson", []byte(placesGeoJSON), 0644))
	return fs
}

func renderCanvas(t *testing.T, binding engine.Binding, ref string, srs grid.SRS, extent orb.Bound, size int) *Raster {
	canvas, err := binding.NewCanvas(size, size)
	require.NoError(t, err)

	require.NoError(t, canvas.LoadDefinition(ref))
	require.NoError(t, canvas.SetProjection(srs.InitString()))
	require.NoError(t, canvas.SetExtent(extent))

	raster, err := binding.NewRaster(size, size)
	require.NoError(t, err)

	require.NoError(t, canvas.Render(raster, 1))

	return raster.(*Raster)
}

func assertColorAt(t *testing.T, img *image.RGBA, x, y int, expected color.RGBA) {
	assert.Equal(t, expected, img.RGBAAt(x, y), "pixel at %d,%d", x, y)
}

func TestV1Binding_Render(t *testing.T) {
	binding := NewV1Binding(newTestFs(t), nil)
	assert.Equal(t, V1Name, binding.Name())

	extent := orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{20, 20}}
	raster := renderCanvas(t, binding, "/maps/world.hcl", grid.EPSG4326, extent, 30)

	// centre of the square
	assertColorAt(t, raster.Image(), 15, 15, color.RGBA{R: 255, A: 255})
	// top left corner, outside the square
	assertColorAt(t, raster.Image(), 2, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255})
}

func TestV1Binding_RenderInMercator(t *testing.T) {
	binding := NewV1Binding(newTestFs(t), nil)

	extent, err := grid.TransformBound(orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{20, 20}}, grid.EPSG4326, grid.EPSG3857)
	require.NoError(t, err)

	raster := renderCanvas(t, binding, "/maps/world.hcl", grid.EPSG3857, extent, 64)

	assertColorAt(t, raster.Image(), 32, 32, color.RGBA{R: 255, A: 255})
	assertColorAt(t, raster.Image(), 2, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255})
}

func TestCanvas_LayerNamesAndRemoveLayer(t *testing.T) {
	binding := NewV1Binding(newTestFs(t), nil)

	canvas, err := binding.NewCanvas(10, 10)
	require.NoError(t, err)
	require.NoError(t, canvas.LoadDefinition("/maps/world.hcl"))

	assert.Equal(t, []string{"land", engine.DefaultUnnamedLayerName}, canvas.LayerNames())

	require.Error(t, canvas.RemoveLayer(2))
	require.Error(t, canvas.RemoveLayer(-1))

	require.NoError(t, canvas.RemoveLayer(0))
	assert.Equal(t, []string{engine.DefaultUnnamedLayerName}, canvas.LayerNames())
}

func TestV2Binding_Render(t *testing.T) {
	binding := NewV2Binding(newTestFs(t), nil)
	assert.Equal(t, V2Name, binding.Name())

	extent := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}
	raster := renderCanvas(t, binding, "/maps/places.yaml", grid.EPSG4326, extent, 100)

	// the point is drawn at the centre, its label below this pixel
	assertColorAt(t, raster.Image(), 50, 35, color.RGBA{G: 255, A: 255})
	assertColorAt(t, raster.Image(), 1, 1, color.RGBA{A: 255})
}

func TestV2Binding_UnknownField(t *testing.T) {
	fs := newTestFs(t)
	require.NoError(t, fs.WriteFile("/maps/bad.yaml", []byte("layers:\n  - nme: typo\n"), 0644))

	canvas, err := NewV2Binding(fs, nil).NewCanvas(10, 10)
	require.NoError(t, err)

	require.Error(t, canvas.LoadDefinition("/maps/bad.yaml"))
}

func TestCanvas_Errors(t *testing.T) {
	fs := newTestFs(t)
	require.NoError(t, fs.WriteFile("/maps/bad-color.hcl", []byte(`layer {
  fill = "red"
}`), 0644))
	require.NoError(t, fs.WriteFile("/maps/both.hcl", []byte(`layer {
  data_file = "data/places.geojson"
  geojson   = "{}"
}`), 0644))

	binding := NewV1Binding(fs, nil)

	_, err := binding.NewCanvas(0, 256)
	require.Error(t, err)
	_, err = binding.NewRaster(256, -1)
	require.Error(t, err)

	canvas, err := binding.NewCanvas(10, 10)
	require.NoError(t, err)

	require.Error(t, canvas.LoadDefinition("/maps/missing.hcl"))
	require.Error(t, canvas.LoadDefinition("/maps/bad-color.hcl"))
	require.Error(t, canvas.LoadDefinition("/maps/both.hcl"))

	require.Error(t, canvas.SetProjection("+init=epsg:31467"))
	require.Error(t, canvas.SetExtent(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 2}}))

	raster, err := binding.NewRaster(10, 10)
	require.NoError(t, err)
	// nothing loaded yet
	require.Error(t, canvas.Render(raster, 1))

	require.NoError(t, canvas.LoadDefinition("/maps/world.hcl"))
	require.NoError(t, canvas.SetProjection(grid.EPSG4326.InitString()))
	// no extent set
	require.Error(t, canvas.Render(raster, 1))

	require.NoError(t, canvas.SetExtent(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}))
	require.Error(t, canvas.Render(raster, 0))

	otherSize, err := binding.NewRaster(20, 10)
	require.NoError(t, err)
	require.Error(t, canvas.Render(otherSize, 1))

	require.NoError(t, canvas.Render(raster, 1))
}

func TestNewBinding(t *testing.T) {
	fs := newTestFs(t)

	tests := []struct {
		name     string
		wantName string
		wantErr  bool
	}{
		{"v1", V1Name, false},
		{"draw/v2", V2Name, false},
		{" V2 ", V2Name, false},
		{"mapnik", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, !tt.wantErr, IsKnownBinding(tt.name))

			binding, err := NewBinding(tt.name, fs, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, binding.Name())
			assert.Equal(t, engine.DefaultUnnamedLayerName, binding.UnnamedLayerName())
		})
	}
}

func TestRaster_Encode(t *testing.T) {
	raster, err := newRaster(16, 8)
	require.NoError(t, err)

	for _, format := range []string{"png", "image/png", "PNG"} {
		data, encodeErr := raster.Encode(format)
		require.NoError(t, encodeErr, format)
		img, decodeErr := png.Decode(bytes.NewReader(data))
		require.NoError(t, decodeErr, format)
		assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
	}

	data, err := raster.Encode("png8")
	require.NoError(t, err)
	img, decodeErr := png.Decode(bytes.NewReader(data))
	require.NoError(t, decodeErr)
	assert.IsType(t, &image.Paletted{}, img)

	for _, format := range []string{"jpeg", "image/jpeg", "jpeg90", "jpg"} {
		data, encodeErr := raster.Encode(format)
		require.NoError(t, encodeErr, format)
		_, decodeErr := jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, decodeErr, format)
	}

	for _, format := range []string{"gif", "jpeg101", "jpegxx", ""} {
		_, encodeErr := raster.Encode(format)
		require.Error(t, encodeErr, format)
	}
}

func TestNewBlankRaster(t *testing.T) {
	transparent, err := NewBlankRaster(4, 4, true)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{}, transparent.Image().RGBAAt(1, 1))

	opaque, err := NewBlankRaster(4, 4, false)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, opaque.Image().RGBAAt(1, 1))

	_, err = NewBlankRaster(0, 4, true)
	require.Error(t, err)
}

func TestContentType(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"png", "image/png", false},
		{"png8", "image/png", false},
		{"image/png", "image/png", false},
		{"jpeg90", "image/jpeg", false},
		{"JPG", "image/jpeg", false},
		{"gif", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := ContentType(tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFontTable(t *testing.T) {
	fs := mockfs.NewMockFs()
	require.NoError(t, fs.MkdirAll("/fonts", 0755))
	require.NoError(t, fs.WriteFile("/fonts/GoRegular.ttf", fonts.DefaultFontData(), 0644))
	require.NoError(t, fs.WriteFile("/fonts/README.txt", []byte("not a font"), 0644))

	table := NewFontTable(fs)

	assert.True(t, table.RegisterFont("/fonts/GoRegular.ttf"))
	assert.False(t, table.RegisterFont("/fonts/README.txt"))
	assert.False(t, table.RegisterFont("/fonts/missing.ttf"))

	names := table.Names()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "goregular")
	assert.NotNil(t, table.Lookup("GoRegular"))
	assert.Same(t, fonts.DefaultFont(), table.Lookup("DejaVu Sans"))
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = parseColor("transparent")
	require.NoError(t, err)
	assert.Equal(t, color.Transparent, c)

	c, err = parseColor("#ff0000")
	require.NoError(t, err)
	r, g, b, a := c.RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})

	_, err = parseColor("ff0000")
	require.Error(t, err)
}

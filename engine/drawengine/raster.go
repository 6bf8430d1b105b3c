package drawengine

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/engine"
)

const defaultJPEGQuality = 85

var _ engine.Raster = &Raster{}

type Raster struct {
	img *image.RGBA
}

func newRaster(width, height int) (*Raster, errorsx.Error) {
	if width <= 0 || height <= 0 {
		return nil, errorsx.Errorf("invalid raster size %dx%d", width, height)
	}

	return &Raster{image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// NewBlankRaster is an empty image, used when there is nothing to draw. Without transparency it is white.
func NewBlankRaster(width, height int, transparent bool) (*Raster, errorsx.Error) {
	raster, err := newRaster(width, height)
	if err != nil {
		return nil, err
	}

	if !transparent {
		draw.Draw(raster.img, raster.img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}

	return raster, nil
}

func (r *Raster) Bounds() image.Rectangle {
	return r.img.Bounds()
}

// Image gives access to the drawn pixels
func (r *Raster) Image() *image.RGBA {
	return r.img
}

// Encode accepts "png", "png8" (or "png256"), "jpeg" (or "jpg") and "jpeg<quality>", optionally given as a mime type ("image/png").
func (r *Raster) Encode(format string) ([]byte, errorsx.Error) {
	buf := bytes.NewBuffer(nil)

	name := formatName(format)
	switch {
	case name == "png":
		err := png.Encode(buf, r.img)
		if err != nil {
			return nil, errorsx.Wrap(err)
		}
	case name == "png8" || name == "png256":
		err := png.Encode(buf, toPaletted(r.img))
		if err != nil {
			return nil, errorsx.Wrap(err)
		}
	case strings.HasPrefix(name, "jpeg") || strings.HasPrefix(name, "jpg"):
		quality, err := jpegQuality(name)
		if err != nil {
			return nil, errorsx.Wrap(err, "format", format)
		}

		// jpeg has no alpha channel
		flattened := NewImageWithBackground(r.img.Bounds(), color.White)
		draw.Draw(flattened, flattened.Bounds(), r.img, image.Point{}, draw.Over)

		encodeErr := jpeg.Encode(buf, flattened, &jpeg.Options{Quality: quality})
		if encodeErr != nil {
			return nil, errorsx.Wrap(encodeErr)
		}
	default:
		return nil, errorsx.Errorf("unsupported image format %q", format)
	}

	return buf.Bytes(), nil
}

// ContentType returns the mime type of images encoded in format
func ContentType(format string) (string, errorsx.Error) {
	name := formatName(format)
	switch {
	case strings.HasPrefix(name, "png"):
		return "image/png", nil
	case strings.HasPrefix(name, "jpeg") || strings.HasPrefix(name, "jpg"):
		return "image/jpeg", nil
	default:
		return "", errorsx.Errorf("unsupported image format %q", format)
	}
}

func formatName(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), "image/")
}

func jpegQuality(name string) (int, errorsx.Error) {
	qualityStr := strings.TrimPrefix(strings.TrimPrefix(name, "jpeg"), "jpg")
	if qualityStr == "" {
		return defaultJPEGQuality, nil
	}

	quality, err := strconv.Atoi(qualityStr)
	if err != nil {
		return 0, errorsx.Wrap(err)
	}

	if quality < 1 || quality > 100 {
		return 0, errorsx.Errorf("jpeg quality must be between 1 and 100, got %d", quality)
	}

	return quality, nil
}

// toPaletted reduces the image to 256 colours with dithering, keeping full transparency
func toPaletted(img *image.RGBA) *image.Paletted {
	colors := append(color.Palette{color.Transparent}, palette.WebSafe...)

	paletted := image.NewPaletted(img.Bounds(), colors)
	draw.FloydSteinberg.Draw(paletted, img.Bounds(), img, image.Point{})

	return paletted
}

func NewImageWithBackground(r image.Rectangle, c color.Color) *image.RGBA {
	img := image.NewRGBA(r)

	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)

	return img
}

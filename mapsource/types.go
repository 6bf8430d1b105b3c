package mapsource

import (
	"fmt"

	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/paulmach/orb"
)

// ImageFormat is an engine format string, e.g. "png", "image/png" or "jpeg90"
type ImageFormat string

// TileQuery is a request for one image. It is not modified once created.
type TileQuery struct {
	BBox   orb.Bound
	SRS    grid.SRS
	Size   grid.Size
	Format ImageFormat
}

func NewTileQuery(bbox orb.Bound, srs grid.SRS, size grid.Size, format ImageFormat) *TileQuery {
	return &TileQuery{bbox, srs, size, format}
}

func (q *TileQuery) String() string {
	return fmt.Sprintf("%v,%v,%v,%v:%s:%dx%d",
		q.BBox.Min[0], q.BBox.Min[1], q.BBox.Max[0], q.BBox.Max[1],
		q.SRS, q.Size.Width, q.Size.Height)
}

type ImageOptions struct {
	Transparent bool
	Format      ImageFormat
}

// ImageSource is an encoded image together with how it should be used
type ImageSource struct {
	Data    []byte
	Size    grid.Size
	Options ImageOptions
	// Opacity is applied when the image is combined with other layers. The pixels themselves are not changed.
	Opacity float64
}

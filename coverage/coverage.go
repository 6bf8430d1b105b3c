package coverage

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Coverage is a geographic region outside of which a source has no data
type Coverage interface {
	// Intersects reports whether a bbox given in srs touches the coverage
	Intersects(bbox orb.Bound, srs grid.SRS) (bool, errorsx.Error)
	BBox() orb.Bound
	SRS() grid.SRS
}

var (
	_ Coverage = &BBoxCoverage{}
	_ Coverage = &PolygonCoverage{}
)

type BBoxCoverage struct {
	bbox orb.Bound
	srs  grid.SRS
}

func NewBBoxCoverage(bbox orb.Bound, srs grid.SRS) *BBoxCoverage {
	return &BBoxCoverage{bbox, srs}
}

func (c *BBoxCoverage) BBox() orb.Bound {
	return c.bbox
}

func (c *BBoxCoverage) SRS() grid.SRS {
	return c.srs
}

func (c *BBoxCoverage) Intersects(bbox orb.Bound, srs grid.SRS) (bool, errorsx.Error) {
	transformed, err := grid.TransformBound(bbox, srs, c.srs)
	if err != nil {
		return false, errorsx.Wrap(err)
	}

	return Overlaps(c.bbox, transformed), nil
}

type PolygonCoverage struct {
	polygon orb.Polygon
	bbox    orb.Bound
	srs     grid.SRS
}

func NewPolygonCoverage(polygon orb.Polygon, srs grid.SRS) (*PolygonCoverage, errorsx.Error) {
	if len(polygon) == 0 || len(polygon[0]) < 3 {
		return nil, errorsx.Errorf("coverage polygon needs an outer ring with at least 3 points")
	}

	return &PolygonCoverage{polygon, polygon.Bound(), srs}, nil
}

func (c *PolygonCoverage) BBox() orb.Bound {
	return c.bbox
}

func (c *PolygonCoverage) SRS() grid.SRS {
	return c.srs
}

func (c *PolygonCoverage) Intersects(bbox orb.Bound, srs grid.SRS) (bool, errorsx.Error) {
	transformed, err := grid.TransformBound(bbox, srs, c.srs)
	if err != nil {
		return false, errorsx.Wrap(err)
	}

	if !Overlaps(c.bbox, transformed) {
		return false, nil
	}

	if IsTotallyInside(transformed, c.bbox) {
		return true, nil
	}

	// bbox corner inside the polygon (also covers the bbox being fully inside)
	for _, corner := range transformed.ToRing() {
		if planar.PolygonContains(c.polygon, corner) {
			return true, nil
		}
	}

	// polygon vertex inside the bbox (also covers the polygon being fully inside)
	for _, ring := range c.polygon {
		for _, point := range ring {
			if transformed.Contains(point) {
				return true, nil
			}
		}
	}

	// edges crossing without any vertex inside the other shape
	bboxRing := transformed.ToRing()
	for _, ring := range c.polygon {
		for i := 0; i+1 < len(ring); i++ {
			for j := 0; j+1 < len(bboxRing); j++ {
				if segmentsIntersect(ring[i], ring[i+1], bboxRing[j], bboxRing[j+1]) {
					return true, nil
				}
			}
		}
	}

	return false, nil
}

// Overlaps checks whether an item is at least partially inside a container
func Overlaps(container, item orb.Bound) bool {
	if container.Min[1] > item.Max[1] {
		// container is wholly above item
		return false
	}

	if container.Max[1] < item.Min[1] {
		// container is wholly below item
		return false
	}

	if container.Min[0] > item.Max[0] {
		// container is wholly to the right of item
		return false
	}

	if container.Max[0] < item.Min[0] {
		// container is wholly to the left of item
		return false
	}

	return true
}

// IsTotallyInside checks whether item lies within container, edges included
func IsTotallyInside(container, item orb.Bound) bool {
	return container.Contains(item.Min) && container.Contains(item.Max)
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

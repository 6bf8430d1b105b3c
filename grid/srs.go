package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// SRS is a spatial reference identifier in the form "EPSG:<code>".
type SRS string

const (
	EPSG4326 SRS = "EPSG:4326"
	EPSG3857 SRS = "EPSG:3857"
)

// codes that are the same spherical mercator projection as EPSG:3857
var mercatorAliases = map[int]bool{
	3857:   true,
	900913: true,
	102100: true,
	102113: true,
}

// ParseSRS accepts "EPSG:3857", "epsg:3857" or "+init=epsg:3857" forms.
func ParseSRS(s string) (SRS, errorsx.Error) {
	str := strings.TrimSpace(strings.ToUpper(s))
	str = strings.TrimPrefix(str, "+INIT=")

	if !strings.HasPrefix(str, "EPSG:") {
		return "", errorsx.Errorf("unsupported spatial reference %q", s)
	}

	code, err := strconv.Atoi(strings.TrimPrefix(str, "EPSG:"))
	if err != nil {
		return "", errorsx.Wrap(err, "srs", s)
	}

	srs := SRS(fmt.Sprintf("EPSG:%d", code))
	if !srs.IsSupported() {
		return "", errorsx.Errorf("unsupported spatial reference %q", s)
	}

	return srs, nil
}

func (srs SRS) Code() int {
	code, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(string(srs)), "EPSG:"))
	if err != nil {
		return 0
	}
	return code
}

func (srs SRS) IsLatLong() bool {
	return srs.Code() == 4326
}

func (srs SRS) IsMercator() bool {
	return mercatorAliases[srs.Code()]
}

func (srs SRS) IsSupported() bool {
	return srs.IsLatLong() || srs.IsMercator()
}

// InitString returns the proj4 style reference rendering engines expect, e.g. "+init=epsg:3857"
func (srs SRS) InitString() string {
	return "+init=" + strings.ToLower(string(srs))
}

func (srs SRS) String() string {
	return string(srs)
}

func projectionBetween(from, to SRS) (orb.Projection, errorsx.Error) {
	if !from.IsSupported() {
		return nil, errorsx.Errorf("unsupported spatial reference %q", from)
	}
	if !to.IsSupported() {
		return nil, errorsx.Errorf("unsupported spatial reference %q", to)
	}

	switch {
	case from.IsLatLong() == to.IsLatLong():
		return func(p orb.Point) orb.Point { return p }, nil
	case from.IsLatLong():
		return project.WGS84.ToMercator, nil
	default:
		return project.Mercator.ToWGS84, nil
	}
}

// Projection returns the point projection from one SRS to another.
func Projection(from, to SRS) (orb.Projection, errorsx.Error) {
	return projectionBetween(from, to)
}

// TransformBound projects all 4 corners of a bound and returns the bound around them.
func TransformBound(b orb.Bound, from, to SRS) (orb.Bound, errorsx.Error) {
	proj, err := projectionBetween(from, to)
	if err != nil {
		return orb.Bound{}, err
	}

	corners := []orb.Point{
		{b.Min[0], b.Min[1]},
		{b.Min[0], b.Max[1]},
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
	}

	projected := proj(corners[0]).Bound()
	for _, corner := range corners[1:] {
		projected = projected.Extend(proj(corner))
	}

	return projected, nil
}

package drawengine

import (
	"fmt"
	"image"
	"image/draw"
	"unicode/utf8"

	"github.com/golang/freetype"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Point struct {
	X float64 // between 0 and 1. 0 = left of image, 1 = right of image
	Y float64 // between 0 and 1. 0 = bottom of image, 1 = top of image
}

type viewport struct {
	extent        orb.Bound
	width, height float64
}

func (v *viewport) relative(p orb.Point) *Point {
	return &Point{
		X: (p[0] - v.extent.Min[0]) / (v.extent.Max[0] - v.extent.Min[0]),
		Y: (p[1] - v.extent.Min[1]) / (v.extent.Max[1] - v.extent.Min[1]),
	}
}

func (v *viewport) pixel(point *Point) (float64, float64) {
	return point.X * v.width, (1 - point.Y) * v.height
}

func drawGeometry(gc *draw2dimg.GraphicContext, vp *viewport, geometry orb.Geometry, style *LayerStyle, scaleFactor float64) errorsx.Error {
	switch g := geometry.(type) {
	case orb.Point:
		drawPoint(gc, vp, g, style, scaleFactor)
	case orb.MultiPoint:
		for _, p := range g {
			drawPoint(gc, vp, p, style, scaleFactor)
		}
	case orb.LineString:
		drawLine(gc, vp, [][]orb.Point{g}, style, scaleFactor)
	case orb.MultiLineString:
		for _, ls := range g {
			drawLine(gc, vp, [][]orb.Point{ls}, style, scaleFactor)
		}
	case orb.Ring:
		drawPolygon(gc, vp, orb.Polygon{g}, style, scaleFactor)
	case orb.Polygon:
		drawPolygon(gc, vp, g, style, scaleFactor)
	case orb.MultiPolygon:
		for _, polygon := range g {
			drawPolygon(gc, vp, polygon, style, scaleFactor)
		}
	case orb.Bound:
		drawPolygon(gc, vp, g.ToPolygon(), style, scaleFactor)
	case orb.Collection:
		for _, child := range g {
			err := drawGeometry(gc, vp, child, style, scaleFactor)
			if err != nil {
				return err
			}
		}
	default:
		return errorsx.Errorf("unsupported geometry type %T", geometry)
	}

	return nil
}

func applyStroke(gc *draw2dimg.GraphicContext, style *LayerStyle, scaleFactor float64) {
	gc.SetLineWidth(style.LineWidth * scaleFactor)
	if style.LineDashPolicy != nil {
		dashes := make([]float64, len(style.LineDashPolicy))
		for i, dash := range style.LineDashPolicy {
			dashes[i] = dash * scaleFactor
		}
		gc.SetLineDash(dashes, 0)
	} else {
		gc.SetLineDash(nil, 0)
	}
}

func tracePath(gc *draw2dimg.GraphicContext, vp *viewport, points []orb.Point, closePath bool) {
	for i, p := range points {
		x, y := vp.pixel(vp.relative(p))
		if i == 0 {
			gc.MoveTo(x, y)
		} else {
			gc.LineTo(x, y)
		}
	}
	if closePath && len(points) > 0 {
		gc.Close()
	}
}

// drawLine strokes lines. A line layer with only a fill colour is stroked in that colour.
func drawLine(gc *draw2dimg.GraphicContext, vp *viewport, lines [][]orb.Point, style *LayerStyle, scaleFactor float64) {
	lineColor := style.LineColor
	if lineColor == nil {
		lineColor = style.FillColor
	}
	if lineColor == nil {
		return
	}

	gc.SetStrokeColor(lineColor)
	applyStroke(gc, style, scaleFactor)

	gc.BeginPath()
	for _, line := range lines {
		tracePath(gc, vp, line, false)
	}
	gc.Stroke()
}

// drawPolygon fills all rings in one path, so inner rings become holes
func drawPolygon(gc *draw2dimg.GraphicContext, vp *viewport, polygon orb.Polygon, style *LayerStyle, scaleFactor float64) {
	gc.BeginPath()
	for _, ring := range polygon {
		tracePath(gc, vp, ring, true)
	}

	if style.FillColor != nil {
		gc.SetFillColor(style.FillColor)
	}
	if style.LineColor != nil {
		gc.SetStrokeColor(style.LineColor)
		applyStroke(gc, style, scaleFactor)
	}

	switch {
	case style.FillColor != nil && style.LineColor != nil:
		gc.FillStroke()
	case style.FillColor != nil:
		gc.Fill()
	case style.LineColor != nil:
		gc.Stroke()
	}
}

func drawPoint(gc *draw2dimg.GraphicContext, vp *viewport, p orb.Point, style *LayerStyle, scaleFactor float64) {
	fillColor := style.FillColor
	if fillColor == nil {
		fillColor = style.LineColor
	}

	x, y := vp.pixel(vp.relative(p))

	gc.BeginPath()
	draw2dkit.Circle(gc, x, y, style.PointRadius*scaleFactor)
	gc.SetFillColor(fillColor)
	gc.Fill()
}

type label struct {
	text   string
	anchor orb.Point
}

func labelText(feature *geojson.Feature, field string) (string, bool) {
	value, ok := feature.Properties[field]
	if !ok || value == nil {
		return "", false
	}

	text := fmt.Sprint(value)
	if text == "" {
		return "", false
	}

	return text, true
}

func labelAnchor(geometry orb.Geometry) orb.Point {
	point, ok := geometry.(orb.Point)
	if ok {
		return point
	}

	return geometry.Bound().Center()
}

// drawLabel draws the text centred on the anchor
func drawLabel(img draw.Image, vp *viewport, lbl *label, style *LayerStyle, scaleFactor float64) errorsx.Error {
	textSize := style.TextSize * scaleFactor
	x, y := vp.pixel(vp.relative(lbl.anchor))

	// approximation of the rendered width, good enough for centring
	width := float64(utf8.RuneCountInString(lbl.text)) * textSize / 2

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(style.Font)
	ctx.SetFontSize(textSize)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.NewUniform(style.TextColor))

	_, err := ctx.DrawString(lbl.text, freetype.Pt(int(x-width/2), int(y+textSize/2)))
	if err != nil {
		return errorsx.Wrap(err)
	}

	return nil
}

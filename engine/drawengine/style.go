package drawengine

import (
	"image/color"
	"regexp"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/muesli/gamut"
)

const (
	defaultLineWidth   = 1
	defaultPointRadius = 3
	defaultTextSize    = 12
)

var defaultBackground = color.Transparent

type LayerStyle struct {
	FillColor      color.Color
	LineColor      color.Color
	LineDashPolicy []float64
	LineWidth      float64
	PointRadius    float64
	LabelField     string
	Font           *truetype.Font
	TextSize       float64
	TextColor      color.Color
}

// HasLabels reports whether features of this layer get a text label
func (s *LayerStyle) HasLabels() bool {
	return s.LabelField != ""
}

var hexColorRegexp = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// parseColor accepts "#rgb", "#rrggbb" and "transparent". An empty string gives a nil color.
func parseColor(s string) (color.Color, errorsx.Error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, nil
	case strings.EqualFold(s, "transparent"):
		return color.Transparent, nil
	case hexColorRegexp.MatchString(s):
		return gamut.Hex(s), nil
	default:
		return nil, errorsx.Errorf("invalid color %q", s)
	}
}

// newLayerStyles builds the style of each layer. Layers with neither a fill nor a stroke are given a fill
// from a generated pastel palette, so that every layer is visible.
func newLayerStyles(defs []*LayerDefinition, mapFont string, fonts *FontTable) ([]*LayerStyle, errorsx.Error) {
	var unstyled int
	for _, def := range defs {
		if def.Fill == "" && def.Stroke == "" {
			unstyled++
		}
	}

	var palette []color.Color
	if unstyled > 0 {
		var err error
		palette, err = gamut.Generate(unstyled, gamut.PastelGenerator{})
		if err != nil {
			return nil, errorsx.Wrap(err)
		}
	}

	var styles []*LayerStyle
	for i, def := range defs {
		style, err := newLayerStyle(def, mapFont, fonts)
		if err != nil {
			return nil, errorsx.Wrap(err, "layerIndex", i)
		}

		if style.FillColor == nil && style.LineColor == nil {
			style.FillColor = palette[0]
			palette = palette[1:]
		}

		styles = append(styles, style)
	}

	return styles, nil
}

func newLayerStyle(def *LayerDefinition, mapFont string, fonts *FontTable) (*LayerStyle, errorsx.Error) {
	fillColor, err := parseColor(def.Fill)
	if err != nil {
		return nil, err
	}

	lineColor, err := parseColor(def.Stroke)
	if err != nil {
		return nil, err
	}

	textColor, err := parseColor(def.TextColor)
	if err != nil {
		return nil, err
	}
	if textColor == nil {
		textColor = color.Black
	}

	if def.LineWidth < 0 || def.PointRadius < 0 || def.TextSize < 0 {
		return nil, errorsx.Errorf("sizes must not be negative")
	}

	fontName := def.Font
	if fontName == "" {
		fontName = mapFont
	}

	return &LayerStyle{
		FillColor:      fillColor,
		LineColor:      lineColor,
		LineDashPolicy: def.Dash,
		LineWidth:      orDefault(def.LineWidth, defaultLineWidth),
		PointRadius:    orDefault(def.PointRadius, defaultPointRadius),
		LabelField:     def.LabelField,
		Font:           fonts.Lookup(fontName),
		TextSize:       orDefault(def.TextSize, defaultTextSize),
		TextColor:      textColor,
	}, nil
}

func orDefault(value, defaultValue float64) float64 {
	if value == 0 {
		return defaultValue
	}
	return value
}

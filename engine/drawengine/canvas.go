package drawengine

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/engine"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

var _ engine.Canvas = &Canvas{}

type layer struct {
	name     string
	features *geojson.FeatureCollection
	style    *LayerStyle
}

type Canvas struct {
	binding       *Binding
	width, height int

	loaded     bool
	background color.Color
	dataSRS    grid.SRS
	layers     []*layer

	srs       grid.SRS
	extent    orb.Bound
	extentSet bool
}

func (c *Canvas) LoadDefinition(ref string) errorsx.Error {
	src, err := c.binding.fs.ReadFile(ref)
	if err != nil {
		return errorsx.Wrap(err, "mapfile", ref)
	}

	def, errx := c.binding.decode(ref, src)
	if errx != nil {
		return errx
	}

	background, errx := parseColor(def.Background)
	if errx != nil {
		return errorsx.Wrap(errx, "mapfile", ref)
	}
	if background == nil {
		background = defaultBackground
	}

	dataSRS := grid.EPSG4326
	if def.SRS != "" {
		dataSRS, errx = grid.ParseSRS(def.SRS)
		if errx != nil {
			return errorsx.Wrap(errx, "mapfile", ref)
		}
	}

	styles, errx := newLayerStyles(def.Layers, def.Font, c.binding.fonts)
	if errx != nil {
		return errorsx.Wrap(errx, "mapfile", ref)
	}

	var layers []*layer
	for i, layerDef := range def.Layers {
		features, errx := c.binding.loadLayerData(filepath.Dir(ref), layerDef)
		if errx != nil {
			return errorsx.Wrap(errx, "mapfile", ref, "layerIndex", i)
		}

		name := layerDef.Name
		if name == "" {
			name = c.binding.UnnamedLayerName()
		}

		layers = append(layers, &layer{name, features, styles[i]})
	}

	c.loaded = true
	c.background = background
	c.dataSRS = dataSRS
	c.layers = layers

	return nil
}

func (b *Binding) loadLayerData(mapfileDir string, def *LayerDefinition) (*geojson.FeatureCollection, errorsx.Error) {
	var sources int
	for _, source := range []string{def.DataFile, def.GeoJSON, def.OSMFile} {
		if source != "" {
			sources++
		}
	}
	if sources > 1 {
		return nil, errorsx.Errorf("a layer can have only one of data_file, geojson or osm_file")
	}

	var data []byte
	switch {
	case def.OSMFile != "":
		return b.loadOSMFeatures(resolvePath(mapfileDir, def.OSMFile), def.OSMTag)
	case def.DataFile != "":
		path := resolvePath(mapfileDir, def.DataFile)

		var err error
		data, err = b.fs.ReadFile(path)
		if err != nil {
			return nil, errorsx.Wrap(err, "dataFile", path)
		}
	case def.GeoJSON != "":
		data = []byte(def.GeoJSON)
	default:
		return geojson.NewFeatureCollection(), nil
	}

	features, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return features, nil
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func (c *Canvas) SetProjection(initString string) errorsx.Error {
	srs, err := grid.ParseSRS(initString)
	if err != nil {
		return err
	}

	c.srs = srs
	return nil
}

func (c *Canvas) SetExtent(bbox orb.Bound) errorsx.Error {
	if !(bbox.Max[0] > bbox.Min[0]) || !(bbox.Max[1] > bbox.Min[1]) {
		return errorsx.Errorf("invalid extent %v", bbox)
	}

	c.extent = bbox
	c.extentSet = true
	return nil
}

func (c *Canvas) LayerNames() []string {
	names := make([]string, len(c.layers))
	for i, l := range c.layers {
		names[i] = l.name
	}
	return names
}

func (c *Canvas) RemoveLayer(index int) errorsx.Error {
	if index < 0 || index >= len(c.layers) {
		return errorsx.Errorf("no layer at index %d (%d layers)", index, len(c.layers))
	}

	c.layers = append(c.layers[:index], c.layers[index+1:]...)
	return nil
}

func (c *Canvas) Render(r engine.Raster, scaleFactor float64) errorsx.Error {
	raster, ok := r.(*Raster)
	if !ok {
		return errorsx.Errorf("raster of type %T was not created by this engine", r)
	}

	switch {
	case !c.loaded:
		return errorsx.Errorf("no map definition loaded")
	case c.srs == "":
		return errorsx.Errorf("no projection set")
	case !c.extentSet:
		return errorsx.Errorf("no extent set")
	case scaleFactor <= 0:
		return errorsx.Errorf("invalid scale factor %v", scaleFactor)
	}

	if raster.Bounds() != image.Rect(0, 0, c.width, c.height) {
		return errorsx.Errorf("raster size %v does not match map size %dx%d", raster.Bounds().Size(), c.width, c.height)
	}

	proj, err := grid.Projection(c.dataSRS, c.srs)
	if err != nil {
		return err
	}

	img := raster.img
	draw.Draw(img, img.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)

	vp := &viewport{c.extent, float64(c.width), float64(c.height)}

	gc := draw2dimg.NewGraphicContext(img)

	for _, l := range c.layers {
		var labels []*label
		for _, feature := range l.features.Features {
			if feature.Geometry == nil {
				continue
			}

			geometry := project.Geometry(orb.Clone(feature.Geometry), proj)
			if !geometry.Bound().Intersects(c.extent) {
				continue
			}

			err = drawGeometry(gc, vp, geometry, l.style, scaleFactor)
			if err != nil {
				return errorsx.Wrap(err, "layer", l.name)
			}

			if l.style.HasLabels() {
				text, ok := labelText(feature, l.style.LabelField)
				if ok {
					labels = append(labels, &label{text, labelAnchor(geometry)})
				}
			}
		}

		for _, lbl := range labels {
			err = drawLabel(img, vp, lbl, l.style, scaleFactor)
			if err != nil {
				return errorsx.Wrap(err, "layer", l.name)
			}
		}
	}

	return nil
}

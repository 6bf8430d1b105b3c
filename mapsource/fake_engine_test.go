package mapsource

import (
	"image"
	"strings"
	"sync"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/engine"
	"github.com/paulmach/orb"
)

// fakeEngine stands in for a real rendering engine and records how it was driven
type fakeEngine struct {
	mu         sync.Mutex
	layerNames []string
	failStage  string
	panicStage string
	renderFunc func()

	canvasCount    int
	loadedRefs     []string
	renderedLayers [][]string
}

func newFakeEngine(layerNames ...string) *fakeEngine {
	return &fakeEngine{layerNames: layerNames}
}

func (e *fakeEngine) stage(name string) errorsx.Error {
	if e.panicStage == name {
		panic("fake engine panic in " + name)
	}
	if e.failStage == name {
		return errorsx.Errorf("fake engine: %s failed", name)
	}
	return nil
}

func (e *fakeEngine) engineCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvasCount
}

func (e *fakeEngine) Name() string {
	return "fake"
}

func (e *fakeEngine) UnnamedLayerName() string {
	return engine.DefaultUnnamedLayerName
}

func (e *fakeEngine) NewCanvas(width, height int) (engine.Canvas, errorsx.Error) {
	e.mu.Lock()
	e.canvasCount++
	e.mu.Unlock()

	if width <= 0 || height <= 0 {
		return nil, errorsx.Errorf("fake engine: invalid size %dx%d", width, height)
	}

	err := e.stage("canvas")
	if err != nil {
		return nil, err
	}

	return newFakeCanvas(e, e.layerNames...), nil
}

func (e *fakeEngine) NewRaster(width, height int) (engine.Raster, errorsx.Error) {
	return &fakeRaster{e, image.Rect(0, 0, width, height)}, nil
}

type fakeCanvas struct {
	engine *fakeEngine
	layers []string
}

func newFakeCanvas(e *fakeEngine, layers ...string) *fakeCanvas {
	return &fakeCanvas{e, append([]string(nil), layers...)}
}

func (c *fakeCanvas) LoadDefinition(ref string) errorsx.Error {
	c.engine.mu.Lock()
	c.engine.loadedRefs = append(c.engine.loadedRefs, ref)
	c.engine.mu.Unlock()

	return c.engine.stage("load")
}

func (c *fakeCanvas) SetProjection(initString string) errorsx.Error {
	if !strings.HasPrefix(initString, "+init=epsg:") {
		return errorsx.Errorf("fake engine: bad projection %q", initString)
	}
	return c.engine.stage("projection")
}

func (c *fakeCanvas) SetExtent(bbox orb.Bound) errorsx.Error {
	return c.engine.stage("extent")
}

func (c *fakeCanvas) LayerNames() []string {
	return append([]string(nil), c.layers...)
}

func (c *fakeCanvas) RemoveLayer(index int) errorsx.Error {
	if index < 0 || index >= len(c.layers) {
		return errorsx.Errorf("fake engine: no layer %d", index)
	}
	c.layers = append(c.layers[:index], c.layers[index+1:]...)
	return nil
}

func (c *fakeCanvas) Render(raster engine.Raster, scaleFactor float64) errorsx.Error {
	if c.engine.renderFunc != nil {
		c.engine.renderFunc()
	}

	c.engine.mu.Lock()
	c.engine.renderedLayers = append(c.engine.renderedLayers, c.LayerNames())
	c.engine.mu.Unlock()

	return c.engine.stage("render")
}

type fakeRaster struct {
	engine *fakeEngine
	bounds image.Rectangle
}

func (r *fakeRaster) Bounds() image.Rectangle {
	return r.bounds
}

func (r *fakeRaster) Encode(format string) ([]byte, errorsx.Error) {
	err := r.engine.stage("encode")
	if err != nil {
		return nil, err
	}
	return []byte("image:" + format), nil
}

package mapsource

import (
	"context"
	"time"

	tracing "github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/engine"
	"github.com/jamesrr39/ownmap-mapsource/telemetry"
)

// renderInvoker drives the engine through one render
type renderInvoker struct {
	binding          engine.Binding
	layers           LayerSet
	unnamedLayerName string
	scaleFactor      float64
	requestLogger    telemetry.RequestLogger
	nowFunc          func() time.Time
}

// render produces the encoded image. Every failure, including a panic inside the engine, is returned as a RenderFailure.
// Exactly one telemetry record is written per call.
func (ri *renderInvoker) render(ctx context.Context, mapfile string, query *TileQuery) (data []byte, err errorsx.Error) {
	startTime := ri.nowFunc()
	defer func() {
		recordRender(ri.requestLogger, mapfile, query, data, ri.nowFunc().Sub(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = newRenderFailure(errorsx.Errorf("engine panicked: %v", r))
		}
	}()

	data, err = ri.renderStages(ctx, mapfile, query)
	if err != nil {
		return nil, newRenderFailure(err)
	}

	return data, nil
}

func (ri *renderInvoker) renderStages(ctx context.Context, mapfile string, query *TileQuery) ([]byte, errorsx.Error) {
	width, height := query.Size.Width, query.Size.Height

	span := startSpan(ctx, "load map")
	canvas, err := ri.binding.NewCanvas(width, height)
	if err != nil {
		return nil, err
	}

	err = canvas.LoadDefinition(mapfile)
	if err != nil {
		return nil, err
	}

	err = canvas.SetProjection(query.SRS.InitString())
	if err != nil {
		return nil, err
	}

	err = canvas.SetExtent(query.BBox)
	if err != nil {
		return nil, err
	}

	err = filterLayers(canvas, ri.layers, ri.unnamedLayerName)
	if err != nil {
		return nil, err
	}
	span.End(ctx)

	span = startSpan(ctx, "render map")
	raster, err := ri.binding.NewRaster(width, height)
	if err != nil {
		return nil, err
	}

	err = canvas.Render(raster, ri.scaleFactor)
	if err != nil {
		return nil, err
	}
	span.End(ctx)

	span = startSpan(ctx, "encode image")
	defer span.End(ctx)

	return raster.Encode(string(query.Format))
}

type spanEnder interface {
	End(ctx context.Context)
}

type noopSpan struct{}

func (noopSpan) End(ctx context.Context) {}

// startSpan starts a tracing span if the request is being traced
func startSpan(ctx context.Context, name string) spanEnder {
	if ctx.Value(tracing.TracerCtxKey) == nil || ctx.Value(tracing.TraceCtxKey) == nil {
		return noopSpan{}
	}

	return tracing.StartSpan(ctx, name)
}

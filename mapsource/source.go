// Package mapsource renders map images with an external rendering engine for a tile service.
//
// A Source checks each request against its coverage and resolution range, then renders it on a worker pool,
// optionally inside an exclusion scope for engines that can't render concurrently.
package mapsource

import (
	"context"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmap-mapsource/coverage"
	"github.com/jamesrr39/ownmap-mapsource/engine"
	"github.com/jamesrr39/ownmap-mapsource/exclusion"
	"github.com/jamesrr39/ownmap-mapsource/offload"
	"github.com/jamesrr39/ownmap-mapsource/telemetry"
)

type Source struct {
	logger          *logpkg.Logger
	name            string
	mapfile         string
	coverage        coverage.Coverage
	resolutionRange *coverage.ResolutionRange
	opacity         float64
	imageOptions    ImageOptions
	extent          coverage.MapExtent

	binding  engine.Binding
	resolver *MapfileResolver
	invoker  *renderInvoker
	pool     *offload.Pool
	lock     exclusion.Scope
	fonts    *FontRegistrar
}

func NewSource(logger *logpkg.Logger, conf *Config, deps Dependencies) (*Source, errorsx.Error) {
	err := conf.Validate()
	if err != nil {
		return nil, errorsx.Wrap(err, "source", conf.Name)
	}

	switch {
	case deps.Binding == nil:
		return nil, errorsx.Errorf("no engine binding given for source %q", conf.Name)
	case deps.Pool == nil:
		return nil, errorsx.Errorf("no worker pool given for source %q", conf.Name)
	}

	fs := deps.Fs
	if fs == nil {
		fs = gofs.NewOsFs()
	}

	requestLogger := deps.RequestLogger
	if requestLogger == nil {
		requestLogger = telemetry.NopRequestLogger{}
	}

	unnamedLayerName := conf.UnnamedLayerName
	if unnamedLayerName == "" {
		unnamedLayerName = deps.Binding.UnnamedLayerName()
	}

	s := &Source{
		logger:          logger,
		name:            conf.Name,
		mapfile:         conf.Mapfile,
		coverage:        conf.Coverage,
		resolutionRange: conf.ResolutionRange,
		opacity:         conf.Opacity,
		imageOptions:    conf.ImageOptions,
		extent:          coverage.ExtentOf(conf.Coverage),
		binding:         deps.Binding,
		resolver:        NewMapfileResolver(deps.Grid),
		invoker: &renderInvoker{
			binding:          deps.Binding,
			layers:           conf.Layers,
			unnamedLayerName: unnamedLayerName,
			scaleFactor:      conf.ScaleFactor,
			requestLogger:    requestLogger,
			nowFunc:          time.Now,
		},
		pool: deps.Pool,
		lock: deps.Lock,
	}

	if deps.FontTable != nil {
		s.fonts = NewFontRegistrar(logger, fs, deps.FontTable)
		if len(conf.FontDirs) != 0 {
			s.fonts.RegisterFonts(conf.FontDirs)
		}
	}

	return s, nil
}

func (s *Source) Name() string {
	return s.name
}

func (s *Source) EngineName() string {
	return s.binding.Name()
}

func (s *Source) Mapfile() string {
	return s.mapfile
}

// Extent is the coverage bbox, or unbounded without a coverage
func (s *Source) Extent() coverage.MapExtent {
	return s.extent
}

func (s *Source) SupportsMetaTiles() bool {
	return true
}

func (s *Source) ImageOptions() ImageOptions {
	return s.imageOptions
}

// RegisterFonts registers more fonts with the engine. The result covers all fonts registered by this source.
func (s *Source) RegisterFonts(paths []string) FontRegistrationResult {
	if s.fonts == nil {
		return FontRegistrationResult{Failed: append([]string(nil), paths...)}
	}
	return s.fonts.RegisterFonts(paths)
}

func (s *Source) FontRegistrationResult() FontRegistrationResult {
	if s.fonts == nil {
		return FontRegistrationResult{}
	}
	return s.fonts.Result()
}

// GetMap renders the query.
// Requests outside the resolution range or the coverage return ErrBlankImage without touching the engine.
// Engine failures are returned as a SourceError.
func (s *Source) GetMap(ctx context.Context, query *TileQuery) (*ImageSource, errorsx.Error) {
	if s.resolutionRange != nil && !s.resolutionRange.Contains(query.BBox, query.Size, query.SRS) {
		return nil, errBlankImage
	}

	if s.coverage != nil {
		intersects, err := s.coverage.Intersects(query.BBox, query.SRS)
		if err != nil {
			return nil, errorsx.Wrap(err, "source", s.name)
		}
		if !intersects {
			return nil, errBlankImage
		}
	}

	imgSource, err := s.render(ctx, query)
	if err != nil {
		failure, ok := errorsx.Cause(err).(*RenderFailure)
		if !ok {
			return nil, err
		}

		s.logger.Error("could not render map: %s", failure.Err.Error())
		return nil, errorsx.Wrap(&SourceError{Message: failure.Err.Error(), Err: failure.Err}, "source", s.name)
	}

	imgSource.Opacity = s.opacity
	return imgSource, nil
}

func (s *Source) render(ctx context.Context, query *TileQuery) (*ImageSource, errorsx.Error) {
	mapfile, err := s.resolver.Resolve(s.mapfile, query)
	if err != nil {
		// e.g. an empty query size, which the engine would have refused too
		return nil, newRenderFailure(err)
	}

	data, err := s.renderMapfile(ctx, mapfile, query)
	if err != nil {
		return nil, err
	}

	return &ImageSource{
		Data: data,
		Size: query.Size,
		Options: ImageOptions{
			Transparent: s.imageOptions.Transparent,
			Format:      query.Format,
		},
	}, nil
}

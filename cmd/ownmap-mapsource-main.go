package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aquasecurity/table"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	tracing "github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/httpextra"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmap-mapsource/config"
	"github.com/jamesrr39/ownmap-mapsource/engine/drawengine"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/jamesrr39/ownmap-mapsource/mapsource"
	"github.com/jamesrr39/ownmap-mapsource/telemetry"
	"github.com/jamesrr39/ownmap-mapsource/webservices"
	"github.com/paulmach/orb"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gopkg.in/alecthomas/kingpin.v2"
)

// replaced with the verbosity from the command line flags before any command runs
var logger = logpkg.NewLogger(os.Stderr, logpkg.LogLevelInfo)

func main() {
	verbose := kingpin.Flag("v", "verbose logging").Bool()

	kingpin.CommandLine.PreAction(func(ctx *kingpin.ParseContext) error {
		logLevel := logpkg.LogLevelInfo
		if *verbose {
			logLevel = logpkg.LogLevelDebug
		}
		logger = logpkg.NewLogger(os.Stderr, logLevel)
		return nil
	})

	setupServe()
	setupRender()
	setupFonts()

	kingpin.Parse()
}

// runAction turns a command into a kingpin action, printing the stack trace of a failed command
func runAction(run func() errorsx.Error) kingpin.Action {
	return func(ctx *kingpin.ParseContext) error {
		err := run()
		if err != nil {
			return fmt.Errorf("error: %q\nStack trace:\n%s", err.Error(), err.Stack())
		}
		return nil
	}
}

func setupServe() {
	cmd := kingpin.Command("serve", "serve the map sources over http")
	configPath := cmd.Arg("config", "HCL config file describing the server and its sources").Required().String()
	addr := cmd.Flag("addr", "address to serve on, overriding the config. Ex: ':9000' listen on port 9000 to traffic from anywhere. 'localhost:9000' listen on port 9000 to traffic from localhost").String()
	traceDir := cmd.Flag("trace-dir", "directory to write request traces to. No traces are written if not given").String()
	shouldProfile := cmd.Flag("profile", "profile the request performance").Bool()
	cmd.Action(runAction(func() errorsx.Error {
		var err error

		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			return errorsx.Wrap(err)
		}

		if *addr != "" {
			cfg.Server.Addr = *addr
		}

		registry := prometheus.NewRegistry()
		requestLogger, err := newRequestLogger(cfg.Server, registry)
		if err != nil {
			return errorsx.Wrap(err)
		}

		rt, err := config.Build(logger, gofs.NewOsFs(), cfg, requestLogger)
		if err != nil {
			return errorsx.Wrap(err)
		}

		for _, name := range rt.SourceNames() {
			source := rt.Sources[name]
			logger.Info("loaded source %q (engine: %s, mapfile: %q)", name, source.EngineName(), source.Mapfile())
		}

		var tracer *tracing.Tracer
		if *traceDir != "" {
			tracer, err = createTracer(*traceDir)
			if err != nil {
				return errorsx.Wrap(err)
			}
		}

		router := createServer(rt, cfg.Server, registry, tracer, *shouldProfile)

		server := httpextra.NewServerWithTimeouts()
		server.Addr = cfg.Server.Addr
		server.Handler = router

		logger.Info("about to start serving on %q", cfg.Server.Addr)

		err = server.ListenAndServe()
		if err != nil {
			return errorsx.Wrap(err)
		}
		return nil
	}))
}

func newRequestLogger(serverConfig *config.ServerConfig, registerer prometheus.Registerer) (telemetry.RequestLogger, errorsx.Error) {
	promLogger, err := telemetry.NewPrometheusRequestLogger(registerer)
	if err != nil {
		return nil, err
	}

	requestLogger := telemetry.MultiRequestLogger{promLogger}
	if serverConfig.RequestLog {
		requestLogger = append(requestLogger, telemetry.NewLogRequestLogger(logger))
	}

	return requestLogger, nil
}

func createTracer(traceDir string) (*tracing.Tracer, errorsx.Error) {
	err := os.MkdirAll(traceDir, 0755)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	traceFilePath := filepath.Join(traceDir, fmt.Sprintf("trace_%s.pbf", time.Now().Format("2006-01-02__03_04_05")))
	logger.Info("tracing at %q", traceFilePath)

	traceFile, err := os.Create(traceFilePath)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return tracing.NewTracer(traceFile), nil
}

func newLimiter(serverConfig *config.ServerConfig) *rate.Limiter {
	if serverConfig.RateLimit == 0 {
		return nil
	}

	burst := serverConfig.RateBurst
	if burst == 0 {
		burst = int(math.Max(1, math.Ceil(serverConfig.RateLimit)))
	}

	return rate.NewLimiter(rate.Limit(serverConfig.RateLimit), burst)
}

func createServer(rt *config.Runtime, serverConfig *config.ServerConfig, registry *prometheus.Registry, tracer *tracing.Tracer, shouldProfile bool) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.DefaultLogger)
	if tracer != nil {
		router.Use(tracing.Middleware(tracer))
	}

	router.Route("/api/", func(r chi.Router) {
		r.Mount("/info", webservices.NewInfoService(logger, rt.Sources, rt.FontTable))
		r.Mount("/tiles/", webservices.NewTileService(logger, rt.Sources, newLimiter(serverConfig), shouldProfile))
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return router
}

func setupRender() {
	cmd := kingpin.Command("render", "render one image from a source into a file")
	configPath := cmd.Arg("config", "HCL config file describing the sources").Required().String()
	sourceName := cmd.Arg("source", "name of the source to render").Required().String()
	outPath := cmd.Arg("out", "file to write the image to").Required().String()
	bboxStr := cmd.Flag("bbox", "bbox to render, as minx,miny,maxx,maxy in the request srs").Required().String()
	srsStr := cmd.Flag("srs", "spatial reference of the bbox and the image").Default(string(grid.EPSG3857)).String()
	sizeStr := cmd.Flag("size", "image size in pixels, as <width>x<height>").Default("256x256").String()
	format := cmd.Flag("format", "image format, e.g. png, png8 or jpeg90. Defaults to the source format").String()
	shouldProfile := cmd.Flag("profile", "write a CPU profile of the render to the working directory").Bool()
	cmd.Action(runAction(func() errorsx.Error {
		if *shouldProfile {
			defer profile.Start(profile.ProfilePath("."), profile.CPUProfile).Stop()
		}

		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			return err
		}

		fs := gofs.NewOsFs()
		rt, err := config.Build(logger, fs, cfg, telemetry.NewLogRequestLogger(logger))
		if err != nil {
			return err
		}

		source, ok := rt.Sources[*sourceName]
		if !ok {
			return errorsx.Errorf("no source called %q. Available sources: %s", *sourceName, strings.Join(rt.SourceNames(), ", "))
		}

		query, err := newRenderQuery(*bboxStr, *srsStr, *sizeStr, *format, source.ImageOptions().Format)
		if err != nil {
			return err
		}

		var data []byte
		img, err := source.GetMap(context.Background(), query)
		switch {
		case err == nil:
			data = img.Data
		case mapsource.IsBlankImage(err):
			logger.Warn("the bbox is outside of the coverage or resolution range of source %q. Writing a blank image", source.Name())
			raster, err := drawengine.NewBlankRaster(query.Size.Width, query.Size.Height, source.ImageOptions().Transparent)
			if err != nil {
				return err
			}
			data, err = raster.Encode(string(query.Format))
			if err != nil {
				return err
			}
		default:
			return err
		}

		writeErr := fs.WriteFile(*outPath, data, 0644)
		if writeErr != nil {
			return errorsx.Wrap(writeErr, "out", *outPath)
		}

		logger.Info("wrote %d bytes to %q", len(data), *outPath)
		return nil
	}))
}

func newRenderQuery(bboxStr, srsStr, sizeStr, format string, defaultFormat mapsource.ImageFormat) (*mapsource.TileQuery, errorsx.Error) {
	bboxParts := strings.Split(bboxStr, ",")
	if len(bboxParts) != 4 {
		return nil, errorsx.Errorf("expected 4 comma separated numbers in the bbox, but found %d", len(bboxParts))
	}

	var coords [4]float64
	for i, part := range bboxParts {
		coord, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errorsx.Wrap(err, "bbox", bboxStr)
		}
		coords[i] = coord
	}

	srs, errx := grid.ParseSRS(srsStr)
	if errx != nil {
		return nil, errx
	}

	width, height, found := strings.Cut(strings.ToLower(sizeStr), "x")
	if !found {
		return nil, errorsx.Errorf("expected the size as <width>x<height>, but got %q", sizeStr)
	}

	widthInt, err := strconv.Atoi(width)
	if err != nil {
		return nil, errorsx.Wrap(err, "size", sizeStr)
	}
	heightInt, err := strconv.Atoi(height)
	if err != nil {
		return nil, errorsx.Wrap(err, "size", sizeStr)
	}

	imageFormat := mapsource.ImageFormat(format)
	if imageFormat == "" {
		imageFormat = defaultFormat
	}

	bbox := orb.Bound{Min: orb.Point{coords[0], coords[1]}, Max: orb.Point{coords[2], coords[3]}}

	return mapsource.NewTileQuery(bbox, srs, grid.Size{Width: widthInt, Height: heightInt}, imageFormat), nil
}

func setupFonts() {
	cmd := kingpin.Command("fonts", "check which font files the rendering engine can load")
	paths := cmd.Arg("paths", "font files, or directories to search for font files").Required().Strings()
	cmd.Action(runAction(func() errorsx.Error {
		fs := gofs.NewOsFs()
		fontTable := drawengine.NewFontTable(fs)

		result := mapsource.NewFontRegistrar(logger, fs, fontTable).RegisterFonts(*paths)

		tbl := table.New(os.Stdout)
		tbl.SetHeaders("Font file", "Result")
		for _, path := range result.Added {
			tbl.AddRow(path, "added")
		}
		for _, path := range result.Failed {
			tbl.AddRow(path, "failed")
		}
		tbl.Render()

		fmt.Printf("\nfont names: %s\n", strings.Join(fontTable.Names(), ", "))

		if len(result.Added) == 0 {
			return errorsx.Errorf("no fonts could be loaded")
		}
		return nil
	}))
}

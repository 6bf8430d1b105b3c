package webservices

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmap-mapsource/engine/drawengine"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/jamesrr39/ownmap-mapsource/mapsource"
	"github.com/paulmach/orb"
	"github.com/pkg/profile"
	"golang.org/x/time/rate"
)

const (
	tileSize = 256
	// maxImageSide caps the size of images requested through the map endpoint
	maxImageSide = 4096
)

type TileService struct {
	logger        *logpkg.Logger
	sources       map[string]*mapsource.Source
	limiter       *rate.Limiter
	shouldProfile bool
	chi.Router
}

// NewTileService serves the sources as slippy map tiles and as free-form map images.
// A nil limiter serves requests without limit.
func NewTileService(logger *logpkg.Logger, sources map[string]*mapsource.Source, limiter *rate.Limiter, shouldProfile bool) *TileService {
	ts := &TileService{logger, sources, limiter, shouldProfile, chi.NewRouter()}

	ts.Get("/{source}/map", ts.handleGetMap)
	ts.Get("/{source}/{z}/{x}/{y}", ts.handleGetTile)

	return ts
}

func (ts *TileService) handleGetTile(w http.ResponseWriter, r *http.Request) {
	if ts.shouldProfile {
		defer profile.Start().Stop()
	}

	source, ok := ts.getSource(w, r)
	if !ok {
		return
	}

	// the last path element is "<y>" or "<y>.<format>"
	yStr, format := splitExtension(chi.URLParam(r, "y"))
	if format == "" {
		format = string(source.ImageOptions().Format)
	}

	ints, err := stringsToInts(chi.URLParam(r, "x"), yStr, chi.URLParam(r, "z"))
	if err != nil {
		errorsx.HTTPError(w, ts.logger, errorsx.Wrap(err), http.StatusBadRequest)
		return
	}

	srs := grid.EPSG3857
	srsStr := r.URL.Query().Get("srs")
	if srsStr != "" {
		srs, err = grid.ParseSRS(srsStr)
		if err != nil {
			errorsx.HTTPError(w, ts.logger, errorsx.Wrap(err), http.StatusBadRequest)
			return
		}
	}

	bbox, err := grid.TileBBox(ints[0], ints[1], ints[2], srs)
	if err != nil {
		errorsx.HTTPError(w, ts.logger, errorsx.Wrap(err), http.StatusBadRequest)
		return
	}

	ts.logger.Debug("serving tile z/x/y: %d/%d/%d from source %q. BBox: %v", ints[2], ints[0], ints[1], source.Name(), bbox)

	query := mapsource.NewTileQuery(bbox, srs, grid.Size{Width: tileSize, Height: tileSize}, mapsource.ImageFormat(format))
	ts.serveQuery(w, r, source, query)
}

// handleGetMap renders an arbitrary bbox, e.g. /osm/map?bbox=0,0,10,10&srs=EPSG:4326&width=512&height=512&format=png
func (ts *TileService) handleGetMap(w http.ResponseWriter, r *http.Request) {
	source, ok := ts.getSource(w, r)
	if !ok {
		return
	}

	query, err := parseMapQuery(r, source.ImageOptions().Format)
	if err != nil {
		errorsx.HTTPError(w, ts.logger, err, http.StatusBadRequest)
		return
	}

	ts.serveQuery(w, r, source, query)
}

func (ts *TileService) getSource(w http.ResponseWriter, r *http.Request) (*mapsource.Source, bool) {
	name := chi.URLParam(r, "source")

	source, ok := ts.sources[name]
	if !ok {
		errorsx.HTTPError(w, ts.logger, errorsx.Errorf("no source called %q", name), http.StatusNotFound)
		return nil, false
	}

	return source, true
}

func (ts *TileService) serveQuery(w http.ResponseWriter, r *http.Request, source *mapsource.Source, query *mapsource.TileQuery) {
	contentType, err := drawengine.ContentType(string(query.Format))
	if err != nil {
		errorsx.HTTPError(w, ts.logger, err, http.StatusBadRequest)
		return
	}

	if ts.limiter != nil && !ts.limiter.Allow() {
		errorsx.HTTPError(w, ts.logger, errorsx.Errorf("too many requests"), http.StatusTooManyRequests)
		return
	}

	var data []byte
	img, err := source.GetMap(r.Context(), query)
	switch {
	case err == nil:
		data = img.Data
		w.Header().Set("X-Opacity", strconv.FormatFloat(img.Opacity, 'f', -1, 64))
	case mapsource.IsBlankImage(err):
		data, err = blankImage(query, source.ImageOptions().Transparent)
		if err != nil {
			errorsx.HTTPError(w, ts.logger, err, http.StatusInternalServerError)
			return
		}
	default:
		errorsx.HTTPError(w, ts.logger, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, writeErr := w.Write(data)
	if writeErr != nil {
		var opErr *net.OpError
		if errors.As(writeErr, &opErr) {
			// broken pipe (request cancelled). Do nothing
			return
		}
		ts.logger.Warn("failed to write image for source %q: %s", source.Name(), writeErr)
	}
}

func blankImage(query *mapsource.TileQuery, transparent bool) ([]byte, errorsx.Error) {
	raster, err := drawengine.NewBlankRaster(query.Size.Width, query.Size.Height, transparent)
	if err != nil {
		return nil, err
	}

	return raster.Encode(string(query.Format))
}

func parseMapQuery(r *http.Request, defaultFormat mapsource.ImageFormat) (*mapsource.TileQuery, errorsx.Error) {
	values := r.URL.Query()

	bboxParts := strings.Split(values.Get("bbox"), ",")
	if len(bboxParts) != 4 {
		return nil, errorsx.Errorf("bbox must be 4 comma separated numbers (minx,miny,maxx,maxy), got %q", values.Get("bbox"))
	}

	var coords [4]float64
	for i, part := range bboxParts {
		coord, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errorsx.Wrap(err, "bbox", values.Get("bbox"))
		}
		coords[i] = coord
	}

	bbox := orb.Bound{Min: orb.Point{coords[0], coords[1]}, Max: orb.Point{coords[2], coords[3]}}
	if bbox.Min[0] >= bbox.Max[0] || bbox.Min[1] >= bbox.Max[1] {
		return nil, errorsx.Errorf("bbox %q has no area", values.Get("bbox"))
	}

	srs := grid.EPSG3857
	if values.Get("srs") != "" {
		var err errorsx.Error
		srs, err = grid.ParseSRS(values.Get("srs"))
		if err != nil {
			return nil, err
		}
	}

	sizeInts, err := stringsToInts(values.Get("width"), values.Get("height"))
	if err != nil {
		return nil, errorsx.Wrap(err, "width", values.Get("width"), "height", values.Get("height"))
	}
	size := grid.Size{Width: sizeInts[0], Height: sizeInts[1]}
	if size.Width <= 0 || size.Height <= 0 || size.Width > maxImageSide || size.Height > maxImageSide {
		return nil, errorsx.Errorf("image size must be between 1x1 and %dx%d, got %dx%d", maxImageSide, maxImageSide, size.Width, size.Height)
	}

	format := mapsource.ImageFormat(values.Get("format"))
	if format == "" {
		format = defaultFormat
	}

	return mapsource.NewTileQuery(bbox, srs, size, format), nil
}

func splitExtension(s string) (string, string) {
	idx := strings.Index(s, ".")
	if idx == -1 {
		return s, ""
	}

	return s[:idx], s[idx+1:]
}

func stringsToInts(s ...string) ([]int, error) {
	var ints []int
	for _, str := range s {
		i, err := strconv.Atoi(str)
		if err != nil {
			return nil, err
		}
		ints = append(ints, i)
	}

	return ints, nil
}

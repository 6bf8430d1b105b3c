package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jamesrr39/ownmap-mapsource/config"
	"github.com/jamesrr39/ownmap-mapsource/engine/drawengine"
	"github.com/jamesrr39/ownmap-mapsource/grid"
	"github.com/jamesrr39/ownmap-mapsource/mapsource"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func Test_newRenderQuery(t *testing.T) {
	query, err := newRenderQuery("0, 1,2,3", "epsg:4326", "512x256", "", "png8")
	require.NoError(t, err)

	assert.Equal(t, orb.Bound{Min: orb.Point{0, 1}, Max: orb.Point{2, 3}}, query.BBox)
	assert.Equal(t, grid.EPSG4326, query.SRS)
	assert.Equal(t, grid.Size{Width: 512, Height: 256}, query.Size)
	assert.Equal(t, mapsource.ImageFormat("png8"), query.Format)

	query, err = newRenderQuery("0,1,2,3", "EPSG:3857", "256X256", "jpeg", "png")
	require.NoError(t, err)
	assert.Equal(t, mapsource.ImageFormat("jpeg"), query.Format)

	for _, args := range [][3]string{
		{"0,1,2", "EPSG:3857", "256x256"},
		{"0,1,2,a", "EPSG:3857", "256x256"},
		{"0,1,2,3", "EPSG:1234", "256x256"},
		{"0,1,2,3", "EPSG:3857", "256"},
		{"0,1,2,3", "EPSG:3857", "ax256"},
	} {
		_, err := newRenderQuery(args[0], args[1], args[2], "", "png")
		assert.Error(t, err, "%v", args)
	}
}

func Test_newLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(&config.ServerConfig{}))

	limiter := newLimiter(&config.ServerConfig{RateLimit: 2.5})
	require.NotNil(t, limiter)
	assert.Equal(t, rate.Limit(2.5), limiter.Limit())
	assert.Equal(t, 3, limiter.Burst())

	limiter = newLimiter(&config.ServerConfig{RateLimit: 10, RateBurst: 50})
	assert.Equal(t, 50, limiter.Burst())
}

func Test_createServer(t *testing.T) {
	registry := prometheus.NewRegistry()
	requestLogger, err := newRequestLogger(&config.ServerConfig{RequestLog: true}, registry)
	require.NoError(t, err)
	require.NotNil(t, requestLogger)

	rt := &config.Runtime{
		Sources:   map[string]*mapsource.Source{},
		FontTable: drawengine.NewFontTable(nil),
	}

	router := createServer(rt, &config.ServerConfig{}, registry, nil, false)

	for _, path := range []string{"/api/info", "/metrics"} {
		r, err := http.NewRequest(http.MethodGet, path, nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

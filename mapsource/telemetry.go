package mapsource

import (
	"time"

	"github.com/jamesrr39/ownmap-mapsource/telemetry"
)

// recordRender logs one render attempt. A nil data slice means the attempt failed.
func recordRender(logger telemetry.RequestLogger, mapfile string, query *TileQuery, data []byte, duration time.Duration) {
	status := telemetry.StatusOK
	size := len(data)
	if data == nil {
		status = telemetry.StatusError
		size = telemetry.UnknownSize
	}

	if duration < 0 {
		duration = 0
	}

	logger.LogRequest(telemetry.RequestRecord{
		Key:      mapfile + ":" + query.String(),
		Status:   status,
		Size:     size,
		Method:   telemetry.MethodAPI,
		Duration: duration,
	})
}

// Package telemetry records one entry per engine render attempt.
package telemetry

import (
	"strconv"
	"time"

	"github.com/jamesrr39/goutil/logpkg"
)

const (
	// UnknownSize is used when no image was produced
	UnknownSize = -1

	StatusOK    = "200"
	StatusError = "500"

	// MethodAPI tags a call into the rendering engine, as opposed to an HTTP request
	MethodAPI = "API"
)

type RequestRecord struct {
	Key      string
	Status   string
	Size     int
	Method   string
	Duration time.Duration
}

// RequestLogger is a fire-and-forget sink. Implementations must not panic.
type RequestLogger interface {
	LogRequest(record RequestRecord)
}

type LogRequestLogger struct {
	logger *logpkg.Logger
}

func NewLogRequestLogger(logger *logpkg.Logger) *LogRequestLogger {
	return &LogRequestLogger{logger}
}

func (l *LogRequestLogger) LogRequest(record RequestRecord) {
	size := "-"
	if record.Size != UnknownSize {
		size = strconv.Itoa(record.Size)
	}

	l.logger.Info("%s %s %s %s %.3fs", record.Method, record.Key, record.Status, size, record.Duration.Seconds())
}

// MultiRequestLogger passes each record on to every logger in turn
type MultiRequestLogger []RequestLogger

func (m MultiRequestLogger) LogRequest(record RequestRecord) {
	for _, logger := range m {
		if logger == nil {
			continue
		}
		logger.LogRequest(record)
	}
}

// NopRequestLogger drops every record
type NopRequestLogger struct{}

func (NopRequestLogger) LogRequest(record RequestRecord) {}

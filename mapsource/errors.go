package mapsource

import (
	"errors"

	"github.com/jamesrr39/goutil/errorsx"
)

// ErrBlankImage is not a failure: the request lies outside what this source covers and an empty image should be used
var ErrBlankImage = errors.New("blank image")

// errBlankImage is returned for every blank request, so no stack trace is taken per request
var errBlankImage = errorsx.Wrap(ErrBlankImage)

// RenderFailure is any failure inside the engine while rendering
type RenderFailure struct {
	Err errorsx.Error
}

func (f *RenderFailure) Error() string {
	return f.Err.Error()
}

// SourceError is returned to callers when the engine failed. Message is the engine's own message.
type SourceError struct {
	Message string
	Err     errorsx.Error
}

func (e *SourceError) Error() string {
	return e.Message
}

func IsBlankImage(err error) bool {
	return err != nil && errorsx.Cause(err) == ErrBlankImage
}

// AsSourceError returns the SourceError err was caused by, if any
func AsSourceError(err error) (*SourceError, bool) {
	if err == nil {
		return nil, false
	}

	sourceErr, ok := errorsx.Cause(err).(*SourceError)
	return sourceErr, ok
}

func newRenderFailure(err errorsx.Error) errorsx.Error {
	return errorsx.Wrap(&RenderFailure{err})
}

package mapsource

import (
	"context"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/offload"
)

// renderMapfile runs the render on the worker pool, inside the exclusion scope if there is one.
// The scope is held until the render has finished, even if ctx is cancelled while waiting for the result;
// ctx only bounds the wait for the scope.
func (s *Source) renderMapfile(ctx context.Context, mapfile string, query *TileQuery) ([]byte, errorsx.Error) {
	if s.lock != nil {
		err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, errorsx.Wrap(err, "source", s.name)
		}
		defer s.lock.Release()
	}

	return offload.Run(s.pool, func() ([]byte, errorsx.Error) {
		return s.invoker.render(ctx, mapfile, query)
	})
}

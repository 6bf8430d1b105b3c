package mapsource

import (
	"sort"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmap-mapsource/engine"
)

// LayerSet is the set of layer names to keep. A nil set keeps every layer.
type LayerSet map[string]struct{}

// NewLayerSet never returns nil, so that an empty list of names still filters out every named layer
func NewLayerSet(names ...string) LayerSet {
	set := make(LayerSet)
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (s LayerSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

func (s LayerSet) Names() []string {
	var names []string
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// filterLayers removes every layer that is neither unnamed nor in keep. The order of the remaining layers is unchanged.
func filterLayers(canvas engine.Canvas, keep LayerSet, unnamedLayerName string) errorsx.Error {
	if keep == nil {
		return nil
	}

	names := canvas.LayerNames()
	// back to front, so the indexes of layers still to be checked don't shift
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if name == unnamedLayerName || keep.Contains(name) {
			continue
		}

		err := canvas.RemoveLayer(i)
		if err != nil {
			return errorsx.Wrap(err, "layer", name)
		}
	}

	return nil
}

package drawengine

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
)

// osmScanner is implemented by both the PBF and the XML scanners
type osmScanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

func newOSMScanner(path string, r io.Reader) osmScanner {
	if strings.EqualFold(filepath.Ext(path), ".pbf") {
		return osmpbf.New(context.Background(), r, runtime.NumCPU())
	}

	return osmxml.New(context.Background(), r)
}

// tagFilter matches "key" (any value) or "key=value". An empty filter matches any tagged object.
type tagFilter struct {
	key, value string
}

func parseTagFilter(s string) tagFilter {
	key, value, _ := strings.Cut(strings.TrimSpace(s), "=")
	return tagFilter{strings.TrimSpace(key), strings.TrimSpace(value)}
}

func (f tagFilter) matches(tags osm.Tags) bool {
	if len(tags) == 0 {
		return false
	}
	if f.key == "" {
		return true
	}
	for _, tag := range tags {
		if tag.Key == f.key {
			return f.value == "" || tag.Value == f.value
		}
	}
	return false
}

// loadOSMFeatures reads the nodes and ways matching the filter from an OSM file (".osm" XML or ".pbf").
// Closed ways become polygons, other ways line strings. Relations are not read.
func (b *Binding) loadOSMFeatures(path, filterStr string) (*geojson.FeatureCollection, errorsx.Error) {
	file, err := b.fs.Open(path)
	if err != nil {
		return nil, errorsx.Wrap(err, "osmFile", path)
	}
	defer file.Close()

	filter := parseTagFilter(filterStr)

	scanner := newOSMScanner(path, file)
	defer scanner.Close()

	// files are ordered nodes, then ways, then relations
	nodeLocations := make(map[osm.NodeID]orb.Point)
	features := geojson.NewFeatureCollection()

	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Node:
			nodeLocations[obj.ID] = obj.Point()

			if filter.matches(obj.Tags) {
				features.Append(newOSMFeature(obj.Point(), obj.ObjectID(), obj.Tags))
			}
		case *osm.Way:
			if !filter.matches(obj.Tags) {
				continue
			}

			geometry, ok := wayGeometry(obj, nodeLocations)
			if !ok {
				continue
			}

			features.Append(newOSMFeature(geometry, obj.ObjectID(), obj.Tags))
		}
	}

	err = scanner.Err()
	if err != nil {
		return nil, errorsx.Wrap(err, "osmFile", path)
	}

	return features, nil
}

func wayGeometry(way *osm.Way, nodeLocations map[osm.NodeID]orb.Point) (orb.Geometry, bool) {
	var line orb.LineString
	for _, wayNode := range way.Nodes {
		point, ok := nodeLocations[wayNode.ID]
		if !ok {
			// node outside of the extract
			continue
		}
		line = append(line, point)
	}

	if len(line) < 2 {
		return nil, false
	}

	if len(way.Nodes) >= 4 && way.Nodes[0].ID == way.Nodes[len(way.Nodes)-1].ID && len(line) >= 4 {
		return orb.Polygon{orb.Ring(line)}, true
	}

	return line, true
}

func newOSMFeature(geometry orb.Geometry, id osm.ObjectID, tags osm.Tags) *geojson.Feature {
	feature := geojson.NewFeature(geometry)
	// "node/5", without the version suffix ObjectID.String adds
	feature.ID = fmt.Sprintf("%s/%d", id.Type(), id.Ref())
	for _, tag := range tags {
		feature.Properties[tag.Key] = tag.Value
	}
	return feature
}

// Package surface keeps the map layers the browser widget draws: one marker
// per stop and one polyline per routed path.
package surface

import (
	"sort"
	"strconv"
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"transit_editor/internal/editor"
	"transit_editor/internal/models"
)

type polyline struct {
	path  []editor.Point
	color string
}

// Layers implements editor.Surface. Version grows with every change so
// clients can poll cheaply.
type Layers struct {
	mu      sync.RWMutex
	markers map[editor.StopPosition]editor.Point
	lines   map[editor.RoutePosition]polyline
	version uint64
}

func NewLayers() *Layers {
	return &Layers{
		markers: make(map[editor.StopPosition]editor.Point),
		lines:   make(map[editor.RoutePosition]polyline),
	}
}

func (l *Layers) AddMarker(pos editor.StopPosition, at editor.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers[pos] = at
	l.version++
}

func (l *Layers) RemoveMarker(pos editor.StopPosition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.markers[pos]; ok {
		delete(l.markers, pos)
		l.version++
	}
}

func (l *Layers) SetPolyline(pos editor.RoutePosition, path []editor.Point, color string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[pos] = polyline{path: append([]editor.Point(nil), path...), color: color}
	l.version++
}

func (l *Layers) ClearPolyline(pos editor.RoutePosition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.lines[pos]; ok {
		delete(l.lines, pos)
		l.version++
	}
}

func (l *Layers) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Markers returns the stop layer ordered by position.
func (l *Layers) Markers() *geojson.FeatureCollection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]int, 0, len(l.markers))
	for k := range l.markers {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(keys))}
	for _, k := range keys {
		at := l.markers[editor.StopPosition(k)]
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(k),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{at.Lng, at.Lat}),
			Properties: map[string]interface{}{"position": k},
		})
	}
	return fc
}

// Paths returns the route layer ordered by position.
func (l *Layers) Paths() *geojson.FeatureCollection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]int, 0, len(l.lines))
	for k := range l.lines {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(keys))}
	for _, k := range keys {
		line := l.lines[editor.RoutePosition(k)]
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(k),
			Geometry: models.PathLineString(line.path),
			Properties: map[string]interface{}{
				"position": k,
				"color":    line.color,
			},
		})
	}
	return fc
}

package models

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// StopFeature renders a stop as a GeoJSON point feature. The feature id is
// the stop id and the properties carry the remaining fields.
func StopFeature(p StopPayload) (*geojson.Feature, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	props := map[string]interface{}{}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, err
	}
	delete(props, "stop_lat")
	delete(props, "stop_lon")

	pt := geom.NewPointFlat(geom.XY, []float64{p.StopLon, p.StopLat}).SetSRID(4326)
	return &geojson.Feature{ID: p.StopID, Geometry: pt, Properties: props}, nil
}

// StopFromFeature is the inverse of StopFeature.
func StopFromFeature(f *geojson.Feature) (StopPayload, error) {
	var p StopPayload
	pt, ok := f.Geometry.(*geom.Point)
	if !ok {
		return p, fmt.Errorf("stop feature %q: geometry is %T, want point", f.ID, f.Geometry)
	}
	raw, err := json.Marshal(f.Properties)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("stop feature %q: %w", f.ID, err)
	}
	if p.StopID == "" {
		p.StopID = f.ID
	}
	p.StopLon, p.StopLat = pt.X(), pt.Y()
	return p, nil
}

// StopCollection renders stops as a FeatureCollection.
func StopCollection(stops []StopPayload) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(stops))}
	for _, s := range stops {
		f, err := StopFeature(s)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

// PathLineString converts an ordered coordinate list to a LineString.
func PathLineString(path []LatLng) *geom.LineString {
	flat := make([]float64, 0, 2*len(path))
	for _, p := range path {
		flat = append(flat, p.Lng, p.Lat)
	}
	return geom.NewLineStringFlat(geom.XY, flat).SetSRID(4326)
}

// LineStringPath is the inverse of PathLineString.
func LineStringPath(ls *geom.LineString) []LatLng {
	out := make([]LatLng, 0, ls.NumCoords())
	for i := 0; i < ls.NumCoords(); i++ {
		c := ls.Coord(i)
		out = append(out, LatLng{Lat: c.Y(), Lng: c.X()})
	}
	return out
}

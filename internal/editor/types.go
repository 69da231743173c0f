package editor

import "transit_editor/internal/models"

// Point is a WGS84 coordinate in degrees.
type Point = models.LatLng

// StopPosition is the index of a stop in the in-memory stop collection. It is
// only meaningful for the current session and shifts when stops are removed.
type StopPosition int

// StopID is the persisted identifier of a stop.
type StopID string

// RoutePosition is the index of a route in the in-memory route collection.
type RoutePosition int

// RouteID is the persisted identifier of a route.
type RouteID string

// NoStop marks a session or event that does not point at a stop.
const NoStop StopPosition = -1

// DefaultRouteColor is used for routes loaded without a color.
const DefaultRouteColor = "#3b82f6"

// StopAttributes are the optional descriptive fields of a stop.
type StopAttributes struct {
	Code               *string `json:"code,omitempty"`
	Description        *string `json:"description,omitempty"`
	ZoneID             *string `json:"zone_id,omitempty"`
	URL                *string `json:"url,omitempty"`
	LocationType       *int    `json:"location_type,omitempty"`
	ParentStation      *string `json:"parent_station,omitempty"`
	Timezone           *string `json:"timezone,omitempty"`
	WheelchairBoarding *int    `json:"wheelchair_boarding,omitempty"`
	LevelID            *string `json:"level_id,omitempty"`
	PlatformCode       *string `json:"platform_code,omitempty"`
}

type Stop struct {
	ID       StopID         `json:"id"`
	Name     string         `json:"name"`
	Location Point          `json:"location"`
	Attrs    StopAttributes `json:"attrs"`
}

// RouteAttributes are the optional descriptive fields of a route.
type RouteAttributes struct {
	LongName          *string `json:"long_name,omitempty"`
	Description       *string `json:"description,omitempty"`
	URL               *string `json:"url,omitempty"`
	TextColor         *string `json:"text_color,omitempty"`
	SortOrder         *int    `json:"sort_order,omitempty"`
	ContinuousPickup  *string `json:"continuous_pickup,omitempty"`
	ContinuousDropOff *string `json:"continuous_drop_off,omitempty"`
	NetworkID         *string `json:"network_id,omitempty"`
}

// Route is a named path through an ordered sequence of stops. Path is derived
// from StopIndexes by the directions service and is only a cache.
type Route struct {
	ID          RouteID         `json:"id"`
	Name        string          `json:"name"`
	Type        int             `json:"type"`
	Color       string          `json:"color"`
	StopIndexes []StopPosition  `json:"stop_indexes"`
	Path        []Point         `json:"path"`
	Edit        bool            `json:"edit"`
	IsNew       bool            `json:"is_new"`
	Attrs       RouteAttributes `json:"attrs"`

	handle uint64
}

// clone returns a copy that shares no slices with r.
func (r Route) clone() Route {
	c := r
	c.StopIndexes = append([]StopPosition(nil), r.StopIndexes...)
	c.Path = append([]Point(nil), r.Path...)
	return c
}

// UniqueStops returns the stops of a sequence in first-visit order without
// repeats. It is meant for list displays; stored sequences keep repeats.
func UniqueStops(seq []StopPosition) []StopPosition {
	seen := make(map[StopPosition]bool, len(seq))
	out := make([]StopPosition, 0, len(seq))
	for _, p := range seq {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

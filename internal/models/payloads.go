package models

import "fmt"

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StopPayload is the body of POST /stops and PUT /stops/:id.
type StopPayload struct {
	StopID   string  `json:"stop_id" binding:"required"`
	StopName string  `json:"stop_name" binding:"required"`
	StopLat  float64 `json:"stop_lat" binding:"latitude"`
	StopLon  float64 `json:"stop_lon" binding:"longitude"`

	StopCode           *string `json:"stop_code,omitempty"`
	StopDesc           *string `json:"stop_desc,omitempty"`
	ZoneID             *string `json:"zone_id,omitempty"`
	StopURL            *string `json:"stop_url,omitempty" binding:"omitempty,url"`
	LocationType       *int    `json:"location_type,omitempty" binding:"omitempty,min=0,max=4"`
	ParentStation      *string `json:"parent_station,omitempty"`
	StopTimezone       *string `json:"stop_timezone,omitempty"`
	WheelchairBoarding *int    `json:"wheelchair_boarding,omitempty" binding:"omitempty,min=0,max=2"`
	LevelID            *string `json:"level_id,omitempty"`
	PlatformCode       *string `json:"platform_code,omitempty"`
}

// RoutePayload is the body of POST /routes and PUT /routes/:id and the element
// type of GET /routes. Stops are referenced by stop_id, in visit order.
type RoutePayload struct {
	RouteID        string  `json:"route_id" binding:"required"`
	RouteShortName string  `json:"route_short_name" binding:"required"`
	RouteType      int     `json:"route_type" binding:"min=0"`
	RouteLongName  *string `json:"route_long_name,omitempty"`
	RouteDesc      *string `json:"route_desc,omitempty"`
	RouteURL       *string `json:"route_url,omitempty" binding:"omitempty,url"`
	RouteColor     *string `json:"route_color,omitempty" binding:"omitempty,len=6,hexadecimal"`
	RouteTextColor *string `json:"route_text_color,omitempty" binding:"omitempty,len=6,hexadecimal"`
	RouteSortOrder *int    `json:"route_sort_order,omitempty" binding:"omitempty,min=0"`

	ContinuousPickup  *string `json:"continuous_pickup,omitempty"`
	ContinuousDropOff *string `json:"continuous_drop_off,omitempty"`
	NetworkID         *string `json:"network_id,omitempty"`

	StopIDs   []string `json:"stop_ids"`
	RoutePath []LatLng `json:"route_path,omitempty"`
}

// APIError is a rejected request to the persistence API. Message is the
// server's own wording and is shown to the user as is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

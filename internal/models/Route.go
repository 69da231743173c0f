package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Route represents a named transit line drawn through an ordered list of stops.
// StopIDs keeps visit order and repeats; Geometry is the routed path as WKB.
type Route struct {
	gorm.Model

	RouteID   string  `json:"route_id" gorm:"uniqueIndex;not null"`
	ShortName string  `json:"route_short_name"`
	LongName  *string `json:"route_long_name,omitempty"`
	Desc      *string `json:"route_desc,omitempty"`
	Type      int     `json:"route_type"`
	URL       *string `json:"route_url,omitempty"`
	Color     *string `json:"route_color,omitempty"`
	TextColor *string `json:"route_text_color,omitempty"`
	SortOrder *int    `json:"route_sort_order,omitempty"`

	ContinuousPickup  *string `json:"continuous_pickup,omitempty"`
	ContinuousDropOff *string `json:"continuous_drop_off,omitempty"`
	NetworkID         *string `json:"network_id,omitempty"`

	StopIDs pq.StringArray `json:"stop_ids" gorm:"type:text[]"`

	// Geometry stored as a LINESTRING (SRID 4326) in WKB
	Geometry []byte `gorm:"type:bytea"`
}

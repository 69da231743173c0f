package models

import (
	"gorm.io/gorm"
)

// Stop represents a stop or station that routes visit.
// StopID is the public identifier chosen in the editor, not the row id.
type Stop struct {
	gorm.Model

	StopID string  `json:"stop_id" gorm:"uniqueIndex;not null"`
	Name   string  `json:"stop_name"`
	Lat    float64 `json:"stop_lat"`
	Lng    float64 `json:"stop_lon"`

	Code               *string `json:"stop_code,omitempty"`
	Desc               *string `json:"stop_desc,omitempty"`
	ZoneID             *string `json:"zone_id,omitempty"`
	URL                *string `json:"stop_url,omitempty"`
	LocationType       *int    `json:"location_type,omitempty"`
	ParentStation      *string `json:"parent_station,omitempty"`
	Timezone           *string `json:"stop_timezone,omitempty"`
	WheelchairBoarding *int    `json:"wheelchair_boarding,omitempty"`
	LevelID            *string `json:"level_id,omitempty"`
	PlatformCode       *string `json:"platform_code,omitempty"`
}

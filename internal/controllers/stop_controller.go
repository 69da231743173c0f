package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"transit_editor/internal/config"
	"transit_editor/internal/models"
)

const (
	defaultNearbyRadius = 500.0  // meters
	maxNearbyRadius     = 5000.0 // meters
)

func stopToPayload(s models.Stop) models.StopPayload {
	return models.StopPayload{
		StopID:             s.StopID,
		StopName:           s.Name,
		StopLat:            s.Lat,
		StopLon:            s.Lng,
		StopCode:           s.Code,
		StopDesc:           s.Desc,
		ZoneID:             s.ZoneID,
		StopURL:            s.URL,
		LocationType:       s.LocationType,
		ParentStation:      s.ParentStation,
		StopTimezone:       s.Timezone,
		WheelchairBoarding: s.WheelchairBoarding,
		LevelID:            s.LevelID,
		PlatformCode:       s.PlatformCode,
	}
}

func applyStopPayload(s *models.Stop, p models.StopPayload) {
	s.StopID = strings.TrimSpace(p.StopID)
	s.Name = p.StopName
	s.Lat = p.StopLat
	s.Lng = p.StopLon
	s.Code = p.StopCode
	s.Desc = p.StopDesc
	s.ZoneID = p.ZoneID
	s.URL = p.StopURL
	s.LocationType = p.LocationType
	s.ParentStation = p.ParentStation
	s.Timezone = p.StopTimezone
	s.WheelchairBoarding = p.WheelchairBoarding
	s.LevelID = p.LevelID
	s.PlatformCode = p.PlatformCode
}

// writeStops answers with a GeoJSON FeatureCollection of stops.
func writeStops(c *gin.Context, stops []models.Stop) {
	payloads := make([]models.StopPayload, len(stops))
	for i, s := range stops {
		payloads[i] = stopToPayload(s)
	}
	fc, err := models.StopCollection(payloads)
	if err != nil {
		logrus.WithError(err).Error("writeStops: encoding features failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not encode stops"})
		return
	}
	c.JSON(http.StatusOK, fc)
}

// ListStops returns every stop as GeoJSON.
func ListStops(c *gin.Context) {
	var stops []models.Stop
	if err := config.DB.Order("id").Find(&stops).Error; err != nil {
		logrus.WithError(err).Error("ListStops: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list stops"})
		return
	}
	writeStops(c, stops)
}

func GetStop(c *gin.Context) {
	var stop models.Stop
	if err := config.DB.Where("stop_id = ?", c.Param("id")).First(&stop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stop not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"stop": stopToPayload(stop)})
}

func CreateStop(c *gin.Context) {
	var input models.StopPayload
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateStop: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var stop models.Stop
	applyStopPayload(&stop, input)
	if err := config.DB.Create(&stop).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("stop_id %s already exists", stop.StopID)})
			return
		}
		logrus.WithError(err).Error("CreateStop: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create stop failed: " + err.Error()})
		return
	}
	logrus.WithField("stop_id", stop.StopID).Info("stop created")
	c.JSON(http.StatusCreated, gin.H{"stop": stopToPayload(stop)})
}

// UpdateStop replaces the stop addressed by :id. When the stop id changes,
// every route referencing the old id is rewritten in the same transaction.
func UpdateStop(c *gin.Context) {
	var input models.StopPayload
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateStop: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	oldID := c.Param("id")

	var stop models.Stop
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stop_id = ?", oldID).First(&stop).Error; err != nil {
			return err
		}
		applyStopPayload(&stop, input)
		if err := tx.Save(&stop).Error; err != nil {
			return err
		}
		if stop.StopID != oldID {
			return tx.Exec("UPDATE routes SET stop_ids = array_replace(stop_ids, ?, ?)", oldID, stop.StopID).Error
		}
		return nil
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Stop not found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("stop_id %s already exists", stop.StopID)})
	case err != nil:
		logrus.WithError(err).WithField("stop_id", oldID).Error("UpdateStop: update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"stop": stopToPayload(stop)})
	}
}

// DeleteStop removes a stop and drops it from every route's stop list.
func DeleteStop(c *gin.Context) {
	id := c.Param("id")
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("stop_id = ?", id).Delete(&models.Stop{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Exec("UPDATE routes SET stop_ids = array_remove(stop_ids, ?)", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stop not found"})
			return
		}
		logrus.WithError(err).WithField("stop_id", id).Error("DeleteStop: delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete stop: " + err.Error()})
		return
	}
	logrus.WithField("stop_id", id).Info("stop deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Stop deleted successfully"})
}

// SearchStops matches stop names case-insensitively.
func SearchStops(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	var stops []models.Stop
	if err := config.DB.Where("name ILIKE ?", "%"+q+"%").Order("name").Limit(50).Find(&stops).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	writeStops(c, stops)
}

type nearbyQuery struct {
	Lat    float64
	Lon    float64
	Radius float64
}

func parseNearby(c *gin.Context) (nearbyQuery, error) {
	q := nearbyQuery{Radius: defaultNearbyRadius}
	var err error
	if q.Lat, err = strconv.ParseFloat(c.Query("lat"), 64); err != nil || q.Lat < -90 || q.Lat > 90 {
		return q, errors.New("lat must be a latitude")
	}
	if q.Lon, err = strconv.ParseFloat(c.Query("lon"), 64); err != nil || q.Lon < -180 || q.Lon > 180 {
		return q, errors.New("lon must be a longitude")
	}
	if v := c.Query("radius"); v != "" {
		if q.Radius, err = strconv.ParseFloat(v, 64); err != nil || q.Radius <= 0 || q.Radius > maxNearbyRadius {
			return q, fmt.Errorf("radius must be between 0 and %.0f meters", maxNearbyRadius)
		}
	}
	return q, nil
}

// NearbyStops returns stops within radius meters of lat/lon, nearest first.
func NearbyStops(c *gin.Context) {
	q, err := parseNearby(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// bounding box prefilter, exact distance below
	dLat := q.Radius / 111320.0
	dLon := dLat / math.Max(math.Cos(q.Lat*math.Pi/180), 0.01)
	var candidates []models.Stop
	err = config.DB.
		Where("lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?", q.Lat-dLat, q.Lat+dLat, q.Lon-dLon, q.Lon+dLon).
		Find(&candidates).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	writeStops(c, withinRadius(candidates, q))
}

func withinRadius(stops []models.Stop, q nearbyQuery) []models.Stop {
	type hit struct {
		stop models.Stop
		dist float64
	}
	var hits []hit
	for _, s := range stops {
		if d := haversine(q.Lat, q.Lon, s.Lat, s.Lng); d <= q.Radius {
			hits = append(hits, hit{s, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	out := make([]models.Stop, len(hits))
	for i, h := range hits {
		out[i] = h.stop
	}
	return out
}

// haversine distance in meters
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return R * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

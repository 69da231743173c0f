package controllers

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"transit_editor/internal/config"
	"transit_editor/internal/models"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// RouteResponse is models.RoutePayload plus the stored geometry as GeoJSON.
type RouteResponse struct {
	models.RoutePayload
	Geometry string `json:"geometry,omitempty"`
}

func toRouteResponse(route models.Route) RouteResponse {
	resp := RouteResponse{RoutePayload: models.RoutePayload{
		RouteID:           route.RouteID,
		RouteShortName:    route.ShortName,
		RouteType:         route.Type,
		RouteLongName:     route.LongName,
		RouteDesc:         route.Desc,
		RouteURL:          route.URL,
		RouteColor:        route.Color,
		RouteTextColor:    route.TextColor,
		RouteSortOrder:    route.SortOrder,
		ContinuousPickup:  route.ContinuousPickup,
		ContinuousDropOff: route.ContinuousDropOff,
		NetworkID:         route.NetworkID,
		StopIDs:           append([]string{}, route.StopIDs...),
	}}
	path, err := wkbToPath(route.Geometry)
	if err != nil {
		logrus.WithError(err).WithField("route_id", route.RouteID).Warn("toRouteResponse: unreadable geometry")
		return resp
	}
	resp.RoutePath = path
	if resp.Geometry, err = convertWKBToGeoJSON(route.Geometry); err != nil {
		logrus.WithError(err).WithField("route_id", route.RouteID).Warn("toRouteResponse: geometry not convertible to GeoJSON")
	}
	return resp
}

func applyRoutePayload(route *models.Route, p models.RoutePayload) error {
	geometry, err := pathToWKB(p.RoutePath)
	if err != nil {
		return fmt.Errorf("Invalid route_path: %w", err)
	}
	route.RouteID = strings.TrimSpace(p.RouteID)
	route.ShortName = p.RouteShortName
	route.Type = p.RouteType
	route.LongName = p.RouteLongName
	route.Desc = p.RouteDesc
	route.URL = p.RouteURL
	route.Color = p.RouteColor
	route.TextColor = p.RouteTextColor
	route.SortOrder = p.RouteSortOrder
	route.ContinuousPickup = p.ContinuousPickup
	route.ContinuousDropOff = p.ContinuousDropOff
	route.NetworkID = p.NetworkID
	route.StopIDs = pq.StringArray(append([]string{}, p.StopIDs...))
	route.Geometry = geometry
	return nil
}

// pathToWKB encodes a routed path as a WKB LINESTRING. Paths with fewer than
// two points are stored as no geometry.
func pathToWKB(path []models.LatLng) ([]byte, error) {
	if len(path) < 2 {
		return nil, nil
	}
	return wkb.Marshal(models.PathLineString(path), binary.LittleEndian)
}

func wkbToPath(wkbBytes []byte) ([]models.LatLng, error) {
	if len(wkbBytes) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("geometry is %T, want LineString", g)
	}
	return models.LineStringPath(ls), nil
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// checkStopIDs verifies that every referenced stop exists. Repeats are allowed.
func checkStopIDs(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var found []string
	if err := tx.Model(&models.Stop{}).Where("stop_id IN ?", ids).Pluck("stop_id", &found).Error; err != nil {
		return err
	}
	known := make(map[string]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return &models.APIError{Status: http.StatusBadRequest, Message: fmt.Sprintf("unknown stop_id %s", id)}
		}
	}
	return nil
}

// writeRouteError maps persistence errors of route writes to responses.
func writeRouteError(c *gin.Context, op, routeID string, err error) {
	var apiErr *models.APIError
	switch {
	case errors.As(err, &apiErr):
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("route_id %s already exists", routeID)})
	default:
		logrus.WithError(err).WithField("route_id", routeID).Error(op + ": write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed: " + err.Error()})
	}
}

// ListRoutes returns every route with its stop ids in visit order.
func ListRoutes(c *gin.Context) {
	var routes []models.Route
	if err := config.DB.Order("id").Find(&routes).Error; err != nil {
		logrus.WithError(err).Error("ListRoutes: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list routes"})
		return
	}
	out := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		out = append(out, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}

func GetRoute(c *gin.Context) {
	var route models.Route
	if err := config.DB.Where("route_id = ?", c.Param("id")).First(&route).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

func CreateRoute(c *gin.Context) {
	var input models.RoutePayload
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	var route models.Route
	if err := applyRoutePayload(&route, input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := checkStopIDs(tx, input.StopIDs); err != nil {
			return err
		}
		return tx.Create(&route).Error
	})
	if err != nil {
		writeRouteError(c, "Create route", input.RouteID, err)
		return
	}
	logrus.WithFields(logrus.Fields{"route_id": route.RouteID, "stops": len(route.StopIDs)}).Info("route created")
	c.JSON(http.StatusCreated, gin.H{"route": toRouteResponse(route)})
}

// UpdateRoute replaces the route addressed by :id, which may carry a new route_id.
func UpdateRoute(c *gin.Context) {
	var input models.RoutePayload
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var route models.Route
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", c.Param("id")).First(&route).Error; err != nil {
			return err
		}
		if err := checkStopIDs(tx, input.StopIDs); err != nil {
			return err
		}
		if err := applyRoutePayload(&route, input); err != nil {
			return &models.APIError{Status: http.StatusBadRequest, Message: err.Error()}
		}
		return tx.Save(&route).Error
	})
	if err != nil {
		writeRouteError(c, "Update route", input.RouteID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

func DeleteRoute(c *gin.Context) {
	res := config.DB.Unscoped().Where("route_id = ?", c.Param("id")).Delete(&models.Route{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete route: " + res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}

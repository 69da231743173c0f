// Package directions computes driving paths through the Mapbox Directions API.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"transit_editor/internal/models"
)

// MaxWaypoints is the most coordinates one Mapbox request accepts. Longer
// sequences are split into legs that share their end points.
const MaxWaypoints = 25

var ErrNoRoute = errors.New("directions service found no route")

type Mapbox struct {
	baseURL string
	token   string
	profile string
	http    *http.Client
}

func NewMapbox(baseURL, token string, timeout time.Duration) *Mapbox {
	return &Mapbox{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		profile: "mapbox/driving",
		http:    &http.Client{Timeout: timeout},
	}
}

type response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

// Route returns the driving path through waypoints in order.
func (m *Mapbox) Route(ctx context.Context, waypoints []models.LatLng) ([]models.LatLng, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("need at least 2 waypoints, got %d", len(waypoints))
	}
	var path []models.LatLng
	for start := 0; start < len(waypoints)-1; start += MaxWaypoints - 1 {
		end := start + MaxWaypoints
		if end > len(waypoints) {
			end = len(waypoints)
		}
		leg, err := m.leg(ctx, waypoints[start:end])
		if err != nil {
			return nil, err
		}
		if len(path) > 0 && len(leg) > 0 {
			leg = leg[1:]
		}
		path = append(path, leg...)
	}
	return path, nil
}

func (m *Mapbox) leg(ctx context.Context, waypoints []models.LatLng) ([]models.LatLng, error) {
	coords := make([]string, len(waypoints))
	for i, p := range waypoints {
		coords[i] = strconv.FormatFloat(p.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
	}
	q := url.Values{}
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	q.Set("access_token", m.token)
	u := fmt.Sprintf("%s/directions/v5/%s/%s?%s", m.baseURL, m.profile, strings.Join(coords, ";"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode directions response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions HTTP %d: %s", resp.StatusCode, body.Message)
	}
	if len(body.Routes) == 0 {
		logrus.WithFields(logrus.Fields{"code": body.Code, "waypoints": len(waypoints)}).Warn("no routes found")
		return nil, ErrNoRoute
	}

	var g geom.T
	if err := geojson.Unmarshal(body.Routes[0].Geometry, &g); err != nil {
		return nil, fmt.Errorf("decode route geometry: %w", err)
	}
	ls, ok := g.(*geom.LineString)
	if !ok || ls.NumCoords() == 0 {
		return nil, ErrNoRoute
	}
	return models.LineStringPath(ls), nil
}

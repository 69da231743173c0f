// Package gtfsapi is the HTTP client of the network persistence API served by
// cmd/server. It implements editor.Backend.
package gtfsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom/encoding/geojson"

	"transit_editor/internal/models"
)

type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate

	mu    sync.RWMutex
	token string
}

// New returns a client for the API at baseURL. Payloads are checked against
// the same binding rules the server applies before they are sent.
func New(baseURL string, timeout time.Duration) *Client {
	v := validator.New()
	v.SetTagName("binding")
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		validate: v,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Login exchanges editor credentials for a token used on later write calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.SetToken(out.Token)
	return nil
}

func (c *Client) ListStops(ctx context.Context) ([]models.StopPayload, error) {
	return c.stopCollection(ctx, "/stops")
}

// SearchStops finds stops whose name contains q.
func (c *Client) SearchStops(ctx context.Context, q string) ([]models.StopPayload, error) {
	return c.stopCollection(ctx, "/stops/search/name?q="+url.QueryEscape(q))
}

// NearbyStops finds stops within radius meters of a point.
func (c *Client) NearbyStops(ctx context.Context, at models.LatLng, radius float64) ([]models.StopPayload, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(radius, 'f', -1, 64))
	return c.stopCollection(ctx, "/stops/nearby?"+q.Encode())
}

func (c *Client) stopCollection(ctx context.Context, path string) ([]models.StopPayload, error) {
	var fc geojson.FeatureCollection
	if err := c.do(ctx, http.MethodGet, path, nil, &fc); err != nil {
		return nil, err
	}
	stops := make([]models.StopPayload, 0, len(fc.Features))
	for _, f := range fc.Features {
		s, err := models.StopFromFeature(f)
		if err != nil {
			logrus.WithError(err).Warn("skipping malformed stop feature")
			continue
		}
		stops = append(stops, s)
	}
	return stops, nil
}

func (c *Client) GetStop(ctx context.Context, id string) (models.StopPayload, error) {
	var out struct {
		Stop models.StopPayload `json:"stop"`
	}
	err := c.do(ctx, http.MethodGet, "/stops/"+url.PathEscape(id), nil, &out)
	return out.Stop, err
}

func (c *Client) CreateStop(ctx context.Context, stop models.StopPayload) error {
	if err := c.validate.Struct(stop); err != nil {
		return fmt.Errorf("invalid stop: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/stops", stop, nil)
}

func (c *Client) UpdateStop(ctx context.Context, id string, stop models.StopPayload) error {
	if err := c.validate.Struct(stop); err != nil {
		return fmt.Errorf("invalid stop: %w", err)
	}
	return c.do(ctx, http.MethodPut, "/stops/"+url.PathEscape(id), stop, nil)
}

func (c *Client) DeleteStop(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/stops/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListRoutes(ctx context.Context) ([]models.RoutePayload, error) {
	var out struct {
		Routes []models.RoutePayload `json:"routes"`
	}
	if err := c.do(ctx, http.MethodGet, "/routes", nil, &out); err != nil {
		return nil, err
	}
	return out.Routes, nil
}

func (c *Client) GetRoute(ctx context.Context, id string) (models.RoutePayload, error) {
	var out struct {
		Route models.RoutePayload `json:"route"`
	}
	err := c.do(ctx, http.MethodGet, "/routes/"+url.PathEscape(id), nil, &out)
	return out.Route, err
}

func (c *Client) CreateRoute(ctx context.Context, route models.RoutePayload) error {
	if err := c.validate.Struct(route); err != nil {
		return fmt.Errorf("invalid route: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/routes", route, nil)
}

func (c *Client) UpdateRoute(ctx context.Context, id string, route models.RoutePayload) error {
	if err := c.validate.Struct(route); err != nil {
		return fmt.Errorf("invalid route: %w", err)
	}
	return c.do(ctx, http.MethodPut, "/routes/"+url.PathEscape(id), route, nil)
}

func (c *Client) DeleteRoute(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/routes/"+url.PathEscape(id), nil, nil)
}

// do sends one request. A non-2xx answer becomes a *models.APIError carrying
// the server's "error" or "message" text.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &models.APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

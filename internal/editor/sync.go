package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"transit_editor/internal/models"
)

// Backend is the persistence API. Stops and routes are addressed by their
// persisted ids; failures are reported as *models.APIError where the server
// answered.
type Backend interface {
	ListStops(ctx context.Context) ([]models.StopPayload, error)
	ListRoutes(ctx context.Context) ([]models.RoutePayload, error)
	CreateStop(ctx context.Context, stop models.StopPayload) error
	UpdateStop(ctx context.Context, id string, stop models.StopPayload) error
	DeleteStop(ctx context.Context, id string) error
	CreateRoute(ctx context.Context, route models.RoutePayload) error
	UpdateRoute(ctx context.Context, id string, route models.RoutePayload) error
	DeleteRoute(ctx context.Context, id string) error
}

// Load replaces the store with the network held by the backend. An open
// session is cancelled first. Route references to unknown stop ids are
// dropped; routes that lost references are re-routed.
func (e *Editor) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.backend == nil {
		e.mu.Unlock()
		return ErrNoBackend
	}
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	if e.session != nil {
		e.cancelLocked()
	}
	e.busy = true
	e.mu.Unlock()

	stopPayloads, err := e.backend.ListStops(ctx)
	var routePayloads []models.RoutePayload
	if err == nil {
		routePayloads, err = e.backend.ListRoutes(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil {
		e.metrics.PersistenceFailed("load")
		logrus.WithError(err).Error("failed to load network")
		return fmt.Errorf("load network: %w", err)
	}

	stops := make([]Stop, 0, len(stopPayloads))
	byID := make(map[string]StopPosition, len(stopPayloads))
	for _, p := range stopPayloads {
		if _, dup := byID[p.StopID]; dup {
			logrus.WithField("stop_id", p.StopID).Warn("skipping duplicate stop id")
			continue
		}
		byID[p.StopID] = StopPosition(len(stops))
		stops = append(stops, stopFromPayload(p))
	}

	routes := make([]Route, 0, len(routePayloads))
	var reroute []RoutePosition
	for _, p := range routePayloads {
		r := routeFromPayload(p)
		dropped := 0
		for _, id := range p.StopIDs {
			pos, ok := byID[id]
			if !ok {
				dropped++
				logrus.WithFields(logrus.Fields{"route_id": p.RouteID, "stop_id": id}).Warn("dropping reference to unknown stop")
				continue
			}
			r.StopIndexes = append(r.StopIndexes, pos)
		}
		if dropped > 0 {
			e.metrics.ReferencesDropped(dropped)
		}
		switch {
		case distinctPoints(routeWaypoints(stops, r.StopIndexes)) < 2:
			r.Path = nil
		case dropped > 0 || len(r.Path) < 2:
			reroute = append(reroute, RoutePosition(len(routes)))
		}
		routes = append(routes, r)
	}

	oldStops, oldRoutes := e.store.StopCount(), e.store.RouteCount()
	e.synth.cancelAll()
	e.store.replaceAll(stops, routes)
	e.selected = NoStop
	e.redrawStopsFrom(0, oldStops)
	e.redrawRoutesFrom(0, oldRoutes)
	e.refreshRoutesLocked(reroute)

	logrus.WithFields(logrus.Fields{
		"stops":    len(stops),
		"routes":   len(routes),
		"rerouted": len(reroute),
	}).Info("network loaded")
	return nil
}

// Save persists the entity of the open session. A new entity is created and
// an existing one is updated under the id it had when the session opened.
// On success the session closes; on failure it stays open and its notice
// carries the backend's message.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.backend == nil {
		e.mu.Unlock()
		return ErrNoBackend
	}
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return ErrNoSession
	}
	if s.Saving {
		e.mu.Unlock()
		return ErrSaveInFlight
	}
	op, send, err := e.prepareSaveLocked(s)
	if err != nil {
		s.Notice = err.Error()
		e.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.Saving = true
	s.Notice = ""
	s.cancelSave = cancel
	e.mu.Unlock()

	err = send(ctx)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != s {
		logrus.WithField("session", s.ID).Info("ignoring save result of a closed session")
		return ErrSessionClosed
	}
	s.Saving = false
	s.cancelSave = nil
	if err != nil {
		e.metrics.PersistenceFailed(op)
		s.Notice = failureMessage(err)
		logrus.WithError(err).WithFields(logrus.Fields{"session": s.ID, "op": op}).Warn("save failed")
		return err
	}

	if s.Kind == TargetRoute {
		if err := e.store.FinishEditingRoute(); err != nil {
			s.Notice = err.Error()
			return err
		}
		e.store.markRoutePersisted(s.Route)
		e.drawRoute(s.Route)
	}
	logrus.WithFields(logrus.Fields{"session": s.ID, "op": op}).Info("saved")
	e.closeSessionLocked()
	return nil
}

// prepareSaveLocked validates the session target and builds the backend call.
func (e *Editor) prepareSaveLocked(s *Session) (string, func(context.Context) error, error) {
	switch s.Kind {
	case TargetStop:
		if !s.Placed() {
			return "", nil, ErrStopNotPlaced
		}
		stop, ok := e.store.Stop(s.Stop)
		if !ok {
			return "", nil, ErrOutOfRange
		}
		if blank(string(stop.ID)) || blank(stop.Name) {
			return "", nil, ErrInvalidStop
		}
		p := stopToPayload(stop)
		if s.IsNew {
			return "create_stop", func(ctx context.Context) error {
				return e.backend.CreateStop(ctx, p)
			}, nil
		}
		id := string(s.originStop.ID)
		return "update_stop", func(ctx context.Context) error {
			return e.backend.UpdateStop(ctx, id, p)
		}, nil

	case TargetRoute:
		r, ok := e.store.Route(s.Route)
		if !ok {
			return "", nil, ErrOutOfRange
		}
		if blank(string(r.ID)) || blank(r.Name) {
			return "", nil, ErrInvalidRoute
		}
		if e.synth.inFlight(e.store.routeHandle(s.Route)) {
			return "", nil, ErrPathPending
		}
		ids := make([]string, 0, len(r.StopIndexes))
		for _, pos := range r.StopIndexes {
			st, ok := e.store.Stop(pos)
			if !ok || blank(string(st.ID)) {
				return "", nil, fmt.Errorf("%w: position %d", ErrUnresolvedStop, pos)
			}
			ids = append(ids, string(st.ID))
		}
		p := routeToPayload(r, ids)
		if s.IsNew {
			return "create_route", func(ctx context.Context) error {
				return e.backend.CreateRoute(ctx, p)
			}, nil
		}
		id := string(s.originRoute.ID)
		return "update_route", func(ctx context.Context) error {
			return e.backend.UpdateRoute(ctx, id, p)
		}, nil
	}
	return "", nil, ErrWrongSession
}

// DeleteStop deletes the stop at pos from the backend and then from the
// store. Routes through it lose those visits and are re-routed.
func (e *Editor) DeleteStop(ctx context.Context, pos StopPosition) error {
	e.mu.Lock()
	st, ok := e.store.Stop(pos)
	if err := e.beginDeleteLocked(ok); err != nil {
		e.mu.Unlock()
		return err
	}
	id := st.ID
	e.mu.Unlock()

	err := e.backend.DeleteStop(ctx, string(id))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil {
		e.metrics.PersistenceFailed("delete_stop")
		logrus.WithError(err).WithField("stop_id", id).Warn("delete stop failed")
		return err
	}
	if cur, ok := e.store.Stop(pos); !ok || cur.ID != id {
		if pos, ok = e.store.StopPositionByID(id); !ok {
			return nil
		}
	}
	oldCount := e.store.StopCount()
	changed, err := e.store.RemoveStopAt(pos)
	if err != nil {
		return err
	}
	if e.selected == pos {
		e.selected = NoStop
	} else if e.selected > pos {
		e.selected--
	}
	e.redrawStopsFrom(pos, oldCount)
	e.refreshRoutesLocked(changed)
	logrus.WithField("stop_id", id).Info("stop deleted")
	return nil
}

// DeleteRoute deletes the route at pos from the backend and then from the store.
func (e *Editor) DeleteRoute(ctx context.Context, pos RoutePosition) error {
	e.mu.Lock()
	r, ok := e.store.Route(pos)
	if err := e.beginDeleteLocked(ok); err != nil {
		e.mu.Unlock()
		return err
	}
	handle := e.store.routeHandle(pos)
	e.mu.Unlock()

	err := e.backend.DeleteRoute(ctx, string(r.ID))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil {
		e.metrics.PersistenceFailed("delete_route")
		logrus.WithError(err).WithField("route_id", r.ID).Warn("delete route failed")
		return err
	}
	pos, ok = e.store.routeByHandle(handle)
	if !ok {
		return nil
	}
	e.synth.cancel(handle)
	oldCount := e.store.RouteCount()
	if err := e.store.RemoveRouteAt(pos); err != nil {
		return err
	}
	e.redrawRoutesFrom(pos, oldCount)
	logrus.WithField("route_id", r.ID).Info("route deleted")
	return nil
}

// beginDeleteLocked checks that a delete may start and marks the editor busy.
// Deletes are refused while a session is open.
func (e *Editor) beginDeleteLocked(exists bool) error {
	switch {
	case e.backend == nil:
		return ErrNoBackend
	case e.session != nil:
		return ErrSessionOpen
	case e.busy:
		return ErrBusy
	case !exists:
		return ErrOutOfRange
	}
	e.busy = true
	return nil
}

func failureMessage(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// routeWaypoints resolves seq against stops, which must already hold every
// referenced position.
func routeWaypoints(stops []Stop, seq []StopPosition) []Point {
	pts := make([]Point, 0, len(seq))
	for _, pos := range seq {
		pts = append(pts, stops[pos].Location)
	}
	return pts
}

// normalizeColor turns a stored color into the "#rrggbb" form used on the map.
func normalizeColor(c *string) string {
	if c == nil || blank(*c) {
		return DefaultRouteColor
	}
	v := strings.TrimSpace(*c)
	if !strings.HasPrefix(v, "#") {
		v = "#" + v
	}
	return v
}

func stopFromPayload(p models.StopPayload) Stop {
	return Stop{
		ID:       StopID(p.StopID),
		Name:     p.StopName,
		Location: Point{Lat: p.StopLat, Lng: p.StopLon},
		Attrs: StopAttributes{
			Code:               p.StopCode,
			Description:        p.StopDesc,
			ZoneID:             p.ZoneID,
			URL:                p.StopURL,
			LocationType:       p.LocationType,
			ParentStation:      p.ParentStation,
			Timezone:           p.StopTimezone,
			WheelchairBoarding: p.WheelchairBoarding,
			LevelID:            p.LevelID,
			PlatformCode:       p.PlatformCode,
		},
	}
}

func stopToPayload(s Stop) models.StopPayload {
	return models.StopPayload{
		StopID:             string(s.ID),
		StopName:           s.Name,
		StopLat:            s.Location.Lat,
		StopLon:            s.Location.Lng,
		StopCode:           s.Attrs.Code,
		StopDesc:           s.Attrs.Description,
		ZoneID:             s.Attrs.ZoneID,
		StopURL:            s.Attrs.URL,
		LocationType:       s.Attrs.LocationType,
		ParentStation:      s.Attrs.ParentStation,
		StopTimezone:       s.Attrs.Timezone,
		WheelchairBoarding: s.Attrs.WheelchairBoarding,
		LevelID:            s.Attrs.LevelID,
		PlatformCode:       s.Attrs.PlatformCode,
	}
}

func routeFromPayload(p models.RoutePayload) Route {
	return Route{
		ID:          RouteID(p.RouteID),
		Name:        p.RouteShortName,
		Type:        p.RouteType,
		Color:       normalizeColor(p.RouteColor),
		StopIndexes: []StopPosition{},
		Path:        append([]Point{}, p.RoutePath...),
		Attrs: RouteAttributes{
			LongName:          p.RouteLongName,
			Description:       p.RouteDesc,
			URL:               p.RouteURL,
			TextColor:         p.RouteTextColor,
			SortOrder:         p.RouteSortOrder,
			ContinuousPickup:  p.ContinuousPickup,
			ContinuousDropOff: p.ContinuousDropOff,
			NetworkID:         p.NetworkID,
		},
	}
}

// routeToPayload builds the wire form of r. Colors travel without the '#'.
func routeToPayload(r Route, stopIDs []string) models.RoutePayload {
	color := strings.TrimPrefix(r.Color, "#")
	p := models.RoutePayload{
		RouteID:           string(r.ID),
		RouteShortName:    r.Name,
		RouteType:         r.Type,
		RouteLongName:     r.Attrs.LongName,
		RouteDesc:         r.Attrs.Description,
		RouteURL:          r.Attrs.URL,
		RouteTextColor:    r.Attrs.TextColor,
		RouteSortOrder:    r.Attrs.SortOrder,
		ContinuousPickup:  r.Attrs.ContinuousPickup,
		ContinuousDropOff: r.Attrs.ContinuousDropOff,
		NetworkID:         r.Attrs.NetworkID,
		StopIDs:           stopIDs,
		RoutePath:         append([]Point{}, r.Path...),
	}
	if color != "" {
		p.RouteColor = &color
	}
	return p
}

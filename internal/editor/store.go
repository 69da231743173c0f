package editor

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Store holds the stop and route collections. It does no locking: the Editor
// owns the only Store and serialises every call.
type Store struct {
	stops      []Stop
	routes     []Route
	nextHandle uint64
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) StopCount() int  { return len(s.stops) }
func (s *Store) RouteCount() int { return len(s.routes) }

func (s *Store) validStop(pos StopPosition) bool {
	return pos >= 0 && int(pos) < len(s.stops)
}

func (s *Store) validRoute(pos RoutePosition) bool {
	return pos >= 0 && int(pos) < len(s.routes)
}

// Stops returns a copy of the stop collection.
func (s *Store) Stops() []Stop {
	return append([]Stop(nil), s.stops...)
}

func (s *Store) Stop(pos StopPosition) (Stop, bool) {
	if !s.validStop(pos) {
		return Stop{}, false
	}
	return s.stops[pos], true
}

// StopPositionByID looks up the first stop carrying id.
func (s *Store) StopPositionByID(id StopID) (StopPosition, bool) {
	for i, st := range s.stops {
		if st.ID == id {
			return StopPosition(i), true
		}
	}
	return NoStop, false
}

func (s *Store) AddStop(stop Stop) StopPosition {
	s.stops = append(s.stops, stop)
	return StopPosition(len(s.stops) - 1)
}

func (s *Store) UpdateStopAt(pos StopPosition, stop Stop) error {
	if !s.validStop(pos) {
		return ErrOutOfRange
	}
	s.stops[pos] = stop
	return nil
}

// RemoveStopAt deletes the stop at pos and repairs every route sequence:
// references to pos are dropped and references after pos move down by one.
// It returns the routes that lost at least one reference.
func (s *Store) RemoveStopAt(pos StopPosition) ([]RoutePosition, error) {
	if !s.validStop(pos) {
		return nil, ErrOutOfRange
	}
	s.stops = append(s.stops[:pos], s.stops[pos+1:]...)

	var changed []RoutePosition
	for i := range s.routes {
		r := &s.routes[i]
		kept := make([]StopPosition, 0, len(r.StopIndexes))
		dropped := 0
		for _, p := range r.StopIndexes {
			switch {
			case p == pos:
				dropped++
				continue
			case p > pos:
				p--
			}
			kept = append(kept, p)
		}
		r.StopIndexes = kept
		if dropped > 0 {
			logrus.WithFields(logrus.Fields{
				"route_id":      r.ID,
				"stop_position": pos,
				"dropped":       dropped,
			}).Warn("dropped route references to removed stop")
			changed = append(changed, RoutePosition(i))
		}
	}
	return changed, nil
}

// RemoveLastStop discards the most recently added stop, which is where a
// provisional stop always lives.
func (s *Store) RemoveLastStop() ([]RoutePosition, bool) {
	if len(s.stops) == 0 {
		return nil, false
	}
	changed, _ := s.RemoveStopAt(StopPosition(len(s.stops) - 1))
	return changed, true
}

// Routes returns a deep copy of the route collection.
func (s *Store) Routes() []Route {
	out := make([]Route, len(s.routes))
	for i, r := range s.routes {
		out[i] = r.clone()
	}
	return out
}

func (s *Store) Route(pos RoutePosition) (Route, bool) {
	if !s.validRoute(pos) {
		return Route{}, false
	}
	return s.routes[pos].clone(), true
}

func (s *Store) routeByHandle(h uint64) (RoutePosition, bool) {
	for i := range s.routes {
		if s.routes[i].handle == h {
			return RoutePosition(i), true
		}
	}
	return -1, false
}

func (s *Store) clearEdit() {
	for i := range s.routes {
		s.routes[i].Edit = false
	}
}

// AddRoute appends r. If r is flagged for editing every other route loses the flag.
func (s *Store) AddRoute(r Route) RoutePosition {
	r = r.clone()
	if r.StopIndexes == nil {
		r.StopIndexes = []StopPosition{}
	}
	if r.Path == nil {
		r.Path = []Point{}
	}
	if r.Edit {
		s.clearEdit()
	}
	s.nextHandle++
	r.handle = s.nextHandle
	s.routes = append(s.routes, r)
	return RoutePosition(len(s.routes) - 1)
}

// RouteFields are the user-editable descriptive fields of a route.
type RouteFields struct {
	ID    RouteID
	Name  string
	Type  int
	Color string
	Attrs RouteAttributes
}

func (s *Store) UpdateRouteAt(pos RoutePosition, f RouteFields) error {
	if !s.validRoute(pos) {
		return ErrOutOfRange
	}
	r := &s.routes[pos]
	r.ID = f.ID
	r.Name = f.Name
	r.Type = f.Type
	r.Color = f.Color
	r.Attrs = f.Attrs
	return nil
}

func (s *Store) RemoveRouteAt(pos RoutePosition) error {
	if !s.validRoute(pos) {
		return ErrOutOfRange
	}
	s.routes = append(s.routes[:pos], s.routes[pos+1:]...)
	return nil
}

// CreateRoute opens a new provisional route for editing.
func (s *Store) CreateRoute(color string) RoutePosition {
	return s.AddRoute(Route{Color: color, Edit: true, IsNew: true})
}

func (s *Store) StartEditingRoute(pos RoutePosition) error {
	if !s.validRoute(pos) {
		return ErrOutOfRange
	}
	s.clearEdit()
	s.routes[pos].Edit = true
	return nil
}

// EditingRoute returns the position of the route flagged for editing.
func (s *Store) EditingRoute() (RoutePosition, bool) {
	for i := range s.routes {
		if s.routes[i].Edit {
			return RoutePosition(i), true
		}
	}
	return -1, false
}

// CancelEditingRoute drops the route under edit if it was never saved and
// otherwise only clears its edit flag. It reports whether the route was removed.
func (s *Store) CancelEditingRoute() (bool, error) {
	pos, ok := s.EditingRoute()
	if !ok {
		return false, ErrNoEditingRoute
	}
	if s.routes[pos].IsNew {
		return true, s.RemoveRouteAt(pos)
	}
	s.routes[pos].Edit = false
	return false, nil
}

// FinishEditingRoute closes the route under edit. A blank name or id keeps
// the route open and changes nothing.
func (s *Store) FinishEditingRoute() error {
	pos, ok := s.EditingRoute()
	if !ok {
		return ErrNoEditingRoute
	}
	r := &s.routes[pos]
	if blank(r.Name) || blank(string(r.ID)) {
		return ErrInvalidRoute
	}
	r.Edit = false
	return nil
}

// AppendStopToEditingRoute adds a visit to stop at the end of the sequence.
// Visiting the same stop again is allowed.
func (s *Store) AppendStopToEditingRoute(stop StopPosition) (RoutePosition, error) {
	if !s.validStop(stop) {
		return -1, ErrOutOfRange
	}
	pos, ok := s.EditingRoute()
	if !ok {
		return -1, ErrNoEditingRoute
	}
	r := &s.routes[pos]
	r.StopIndexes = append(r.StopIndexes, stop)
	return pos, nil
}

// RemoveStopFromEditingRoute removes every visit to stop from the route
// under edit and reports whether anything was removed.
func (s *Store) RemoveStopFromEditingRoute(stop StopPosition) (RoutePosition, bool, error) {
	pos, ok := s.EditingRoute()
	if !ok {
		return -1, false, ErrNoEditingRoute
	}
	r := &s.routes[pos]
	kept := make([]StopPosition, 0, len(r.StopIndexes))
	for _, p := range r.StopIndexes {
		if p != stop {
			kept = append(kept, p)
		}
	}
	removed := len(kept) != len(r.StopIndexes)
	r.StopIndexes = kept
	return pos, removed, nil
}

// Waypoints resolves the stop sequence of the route at pos into coordinates,
// in order and with repeats.
func (s *Store) Waypoints(pos RoutePosition) ([]Point, error) {
	if !s.validRoute(pos) {
		return nil, ErrOutOfRange
	}
	r := s.routes[pos]
	out := make([]Point, 0, len(r.StopIndexes))
	for _, p := range r.StopIndexes {
		if !s.validStop(p) {
			logrus.WithFields(logrus.Fields{
				"route_id":      r.ID,
				"stop_position": p,
			}).Warn("skipping unresolvable stop reference")
			continue
		}
		out = append(out, s.stops[p].Location)
	}
	return out, nil
}

// RoutesVisiting lists the routes whose sequence contains stop.
func (s *Store) RoutesVisiting(stop StopPosition) []RoutePosition {
	var out []RoutePosition
	for i, r := range s.routes {
		for _, p := range r.StopIndexes {
			if p == stop {
				out = append(out, RoutePosition(i))
				break
			}
		}
	}
	return out
}

func (s *Store) setRoutePath(pos RoutePosition, path []Point) {
	if !s.validRoute(pos) {
		return
	}
	s.routes[pos].Path = append([]Point{}, path...)
}

func (s *Store) markRoutePersisted(pos RoutePosition) {
	if s.validRoute(pos) {
		s.routes[pos].IsNew = false
	}
}

// restoreRouteAt puts back a snapshot taken before editing. The edit flag and
// the internal handle of the live route are kept.
func (s *Store) restoreRouteAt(pos RoutePosition, origin Route) {
	if !s.validRoute(pos) {
		return
	}
	live := &s.routes[pos]
	restored := origin.clone()
	restored.Edit = live.Edit
	restored.handle = live.handle
	*live = restored
}

func (s *Store) routeHandle(pos RoutePosition) uint64 {
	if !s.validRoute(pos) {
		return 0
	}
	return s.routes[pos].handle
}

// replaceAll swaps both collections, as done after loading from the backend.
func (s *Store) replaceAll(stops []Stop, routes []Route) {
	s.stops = append([]Stop(nil), stops...)
	s.routes = nil
	for _, r := range routes {
		s.AddRoute(r)
	}
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}

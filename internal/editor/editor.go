package editor

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Surface is the map widget. The editor tells it which markers and
// polylines to show; it never reads state back.
type Surface interface {
	AddMarker(pos StopPosition, at Point)
	RemoveMarker(pos StopPosition)
	SetPolyline(pos RoutePosition, path []Point, color string)
	ClearPolyline(pos RoutePosition)
}

// Metrics receives counters from the editor. A nil Metrics is allowed.
type Metrics interface {
	DirectionsRequested()
	DirectionsFailed()
	StaleResponseDiscarded()
	PersistenceFailed(op string)
	ReferencesDropped(n int)
}

// Editor owns the entity store, the interaction mode and the open edit
// session. Every mutation goes through its methods and holds its lock, so
// each one is atomic for readers.
type Editor struct {
	mu       sync.Mutex
	store    *Store
	modes    ModeMachine
	session  *Session
	selected StopPosition
	busy     bool

	synth   *Synthesizer
	backend Backend
	surface Surface
	metrics Metrics
}

func New(backend Backend, directions Directions, surface Surface, metrics Metrics) *Editor {
	if surface == nil {
		surface = nopSurface{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Editor{
		store:    NewStore(),
		selected: NoStop,
		synth:    NewSynthesizer(directions),
		backend:  backend,
		surface:  surface,
		metrics:  metrics,
	}
}

// State is a consistent read-only view of the editor.
type State struct {
	Mode     Mode         `json:"mode"`
	Stops    []Stop       `json:"stops"`
	Routes   []Route      `json:"routes"`
	Session  *Session     `json:"session,omitempty"`
	Selected StopPosition `json:"selected"`
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Mode:     e.modes.Current(),
		Stops:    e.store.Stops(),
		Routes:   e.store.Routes(),
		Selected: e.selected,
	}
	if e.session != nil {
		s := *e.session
		st.Session = &s
	}
	return st
}

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modes.Current()
}

func (e *Editor) Stops() []Stop {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Stops()
}

func (e *Editor) Routes() []Route {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Routes()
}

// Session returns a copy of the open session.
func (e *Editor) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// OpenNewStop opens the new-stop panel and switches to ModeMark. The stop
// itself is created by the first map click or a coordinate entry.
func (e *Editor) OpenNewStop() (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return Session{}, ErrBusy
	}
	e.supersedeLocked()
	e.session = newStopSession(NoStop, nil)
	e.transitionLocked(OpenNewStop)
	return *e.session, nil
}

// OpenEditStop opens the panel of an existing stop and switches to ModeDrag.
func (e *Editor) OpenEditStop(pos StopPosition) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return Session{}, ErrBusy
	}
	e.supersedeLocked()
	stop, ok := e.store.Stop(pos)
	if !ok {
		return Session{}, ErrOutOfRange
	}
	e.session = newStopSession(pos, &stop)
	e.transitionLocked(OpenEditStop)
	return *e.session, nil
}

// OpenNewRoute creates a provisional route and switches to ModeDraw.
func (e *Editor) OpenNewRoute(color string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return Session{}, ErrBusy
	}
	e.supersedeLocked()
	if color == "" {
		color = DefaultRouteColor
	}
	pos := e.store.CreateRoute(color)
	e.session = newRouteSession(pos, nil)
	e.transitionLocked(OpenNewRoute)
	return *e.session, nil
}

// OpenEditRoute opens an existing route for editing and switches to ModeDraw.
func (e *Editor) OpenEditRoute(pos RoutePosition) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return Session{}, ErrBusy
	}
	e.supersedeLocked()
	origin, ok := e.store.Route(pos)
	if !ok {
		return Session{}, ErrOutOfRange
	}
	if err := e.store.StartEditingRoute(pos); err != nil {
		return Session{}, err
	}
	e.session = newRouteSession(pos, &origin)
	e.transitionLocked(OpenEditRoute)
	return *e.session, nil
}

func (e *Editor) transitionLocked(t Trigger) {
	mode, err := e.modes.Transition(t)
	if err != nil {
		logrus.WithField("trigger", t.String()).Debug("ignored mode transition")
		return
	}
	entry := logrus.WithFields(logrus.Fields{"trigger": t.String(), "mode": mode})
	if e.session != nil {
		entry = entry.WithField("session", e.session.ID)
	}
	entry.Debug("mode changed")
}

// supersedeLocked cancels the open session, if any, before a new one opens.
func (e *Editor) supersedeLocked() {
	if e.session == nil {
		return
	}
	logrus.WithField("session", e.session.ID).Info("edit session superseded by a newer request")
	e.cancelLocked()
}

// Cancel closes the open session without saving. A new stop or route is
// discarded; an existing one gets its pre-edit values back.
func (e *Editor) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ErrNoSession
	}
	e.cancelLocked()
	return nil
}

func (e *Editor) cancelLocked() {
	s := e.session
	if s.cancelSave != nil {
		s.cancelSave()
	}
	switch s.Kind {
	case TargetStop:
		if s.IsNew {
			if s.Placed() {
				oldCount := e.store.StopCount()
				changed, _ := e.store.RemoveLastStop()
				e.redrawStopsFrom(StopPosition(oldCount-1), oldCount)
				e.refreshRoutesLocked(changed)
			}
		} else if s.originStop != nil {
			cur, _ := e.store.Stop(s.Stop)
			_ = e.store.UpdateStopAt(s.Stop, *s.originStop)
			if cur.Location != s.originStop.Location {
				e.stopMovedLocked(s.Stop)
			}
		}
	case TargetRoute:
		e.synth.cancel(e.store.routeHandle(s.Route))
		if !s.IsNew && s.originRoute != nil {
			e.store.restoreRouteAt(s.Route, *s.originRoute)
		}
		oldCount := e.store.RouteCount()
		removed, err := e.store.CancelEditingRoute()
		if err != nil {
			logrus.WithError(err).Warn("cancel: route under edit not found")
		}
		if removed {
			e.redrawRoutesFrom(s.Route, oldCount)
		} else {
			e.drawRoute(s.Route)
		}
	}
	logrus.WithFields(logrus.Fields{"session": s.ID, "kind": s.Kind, "new": s.IsNew}).Info("edit session cancelled")
	e.closeSessionLocked()
}

func (e *Editor) closeSessionLocked() {
	e.session = nil
	e.transitionLocked(CloseSession)
}

// StopDraft carries the form fields of the stop panel. Nil fields are left as they are.
type StopDraft struct {
	ID       *StopID         `json:"id,omitempty"`
	Name     *string         `json:"name,omitempty"`
	Location *Point          `json:"location,omitempty"`
	Attrs    *StopAttributes `json:"attrs,omitempty"`
}

// UpdateStopDraft applies form input to the stop of the open stop session.
// For a new stop that has not been placed yet, a draft with a location
// places it.
func (e *Editor) UpdateStopDraft(d StopDraft) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.sessionFor(TargetStop)
	if err != nil {
		return err
	}
	if !s.Placed() {
		s.pending = applyStopDraft(s.pending, d)
		if d.Location != nil {
			e.placeStopLocked(s, *d.Location)
		}
		return nil
	}
	stop, ok := e.store.Stop(s.Stop)
	if !ok {
		return ErrOutOfRange
	}
	moved := d.Location != nil && *d.Location != stop.Location
	if err := e.store.UpdateStopAt(s.Stop, applyStopDraft(stop, d)); err != nil {
		return err
	}
	if moved {
		e.stopMovedLocked(s.Stop)
	}
	return nil
}

// placeStopLocked puts the provisional stop of a new-stop session on the
// map, or moves it if it is already there.
func (e *Editor) placeStopLocked(s *Session, at Point) {
	if s.Placed() {
		stop, _ := e.store.Stop(s.Stop)
		stop.Location = at
		_ = e.store.UpdateStopAt(s.Stop, stop)
		e.stopMovedLocked(s.Stop)
		return
	}
	stop := s.pending
	stop.Location = at
	s.Stop = e.store.AddStop(stop)
	e.surface.AddMarker(s.Stop, at)
}

func applyStopDraft(stop Stop, d StopDraft) Stop {
	if d.ID != nil {
		stop.ID = *d.ID
	}
	if d.Name != nil {
		stop.Name = *d.Name
	}
	if d.Location != nil {
		stop.Location = *d.Location
	}
	if d.Attrs != nil {
		stop.Attrs = *d.Attrs
	}
	return stop
}

// RouteDraft carries the form fields of the route panel. Nil fields are left as they are.
type RouteDraft struct {
	ID    *RouteID         `json:"id,omitempty"`
	Name  *string          `json:"name,omitempty"`
	Type  *int             `json:"type,omitempty"`
	Color *string          `json:"color,omitempty"`
	Attrs *RouteAttributes `json:"attrs,omitempty"`
}

func (e *Editor) UpdateRouteDraft(d RouteDraft) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.sessionFor(TargetRoute)
	if err != nil {
		return err
	}
	r, ok := e.store.Route(s.Route)
	if !ok {
		return ErrOutOfRange
	}
	f := RouteFields{ID: r.ID, Name: r.Name, Type: r.Type, Color: r.Color, Attrs: r.Attrs}
	if d.ID != nil {
		f.ID = *d.ID
	}
	if d.Name != nil {
		f.Name = *d.Name
	}
	if d.Type != nil {
		f.Type = *d.Type
	}
	if d.Color != nil {
		f.Color = *d.Color
	}
	if d.Attrs != nil {
		f.Attrs = *d.Attrs
	}
	if err := e.store.UpdateRouteAt(s.Route, f); err != nil {
		return err
	}
	if f.Color != r.Color {
		e.drawRoute(s.Route)
	}
	return nil
}

// RemoveStopFromRoute removes every visit to stop from the route being edited.
func (e *Editor) RemoveStopFromRoute(stop StopPosition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.sessionFor(TargetRoute); err != nil {
		return err
	}
	pos, removed, err := e.store.RemoveStopFromEditingRoute(stop)
	if err != nil {
		return err
	}
	if removed {
		e.requestPathLocked(pos)
	}
	return nil
}

// sessionFor returns the open session if it edits kind and is not saving.
func (e *Editor) sessionFor(kind TargetKind) (*Session, error) {
	s := e.session
	switch {
	case s == nil:
		return nil, ErrNoSession
	case s.Kind != kind:
		return nil, ErrWrongSession
	case s.Saving:
		return nil, ErrSaveInFlight
	}
	return s, nil
}

// stopMovedLocked redraws a relocated stop and recomputes the routes through it.
func (e *Editor) stopMovedLocked(pos StopPosition) {
	e.redrawStop(pos)
	e.refreshRoutesLocked(e.store.RoutesVisiting(pos))
}

func (e *Editor) refreshRoutesLocked(routes []RoutePosition) {
	for _, r := range routes {
		e.requestPathLocked(r)
	}
}

// requestPathLocked recomputes the path of the route at pos. Below two
// distinct waypoints the path is cleared at once; otherwise a directions
// request is started and the result is applied later by applyPath.
func (e *Editor) requestPathLocked(pos RoutePosition) {
	waypoints, err := e.store.Waypoints(pos)
	if err != nil {
		return
	}
	handle := e.store.routeHandle(pos)
	if distinctPoints(waypoints) < 2 {
		e.synth.cancel(handle)
		e.store.setRoutePath(pos, nil)
		e.drawRoute(pos)
		return
	}
	if e.synth.directions == nil {
		e.notifyLocked("no directions service configured")
		return
	}
	ctx, token := e.synth.begin(handle)
	e.metrics.DirectionsRequested()
	e.synth.wg.Add(1)
	go func() {
		defer e.synth.wg.Done()
		path, err := e.synth.directions.Route(ctx, waypoints)
		e.applyPath(handle, token, path, err)
	}()
}

func (e *Editor) applyPath(handle, token uint64, path []Point, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.synth.current(handle, token) {
		e.metrics.StaleResponseDiscarded()
		logrus.WithField("token", token).Debug("discarding stale directions response")
		return
	}
	e.synth.finish(handle, token)
	pos, ok := e.store.routeByHandle(handle)
	if !ok {
		return
	}
	if err != nil {
		e.metrics.DirectionsFailed()
		logrus.WithError(err).WithField("route_position", pos).Warn("directions request failed, keeping previous path")
		e.notifyLocked(fmt.Sprintf("could not compute the route path: %v", err))
		return
	}
	e.store.setRoutePath(pos, path)
	e.drawRoute(pos)
}

// notifyLocked shows msg on the open panel.
func (e *Editor) notifyLocked(msg string) {
	if e.session != nil {
		e.session.Notice = msg
	}
}

func (e *Editor) drawRoute(pos RoutePosition) {
	r, ok := e.store.Route(pos)
	if !ok {
		return
	}
	if len(r.Path) < 2 {
		e.surface.ClearPolyline(pos)
		return
	}
	e.surface.SetPolyline(pos, r.Path, r.Color)
}

func (e *Editor) redrawStop(pos StopPosition) {
	st, ok := e.store.Stop(pos)
	if !ok {
		return
	}
	e.surface.RemoveMarker(pos)
	e.surface.AddMarker(pos, st.Location)
}

// redrawStopsFrom refreshes the markers from position from onwards after the
// collection shrank or grew from oldCount entries.
func (e *Editor) redrawStopsFrom(from StopPosition, oldCount int) {
	for p := from; int(p) < oldCount; p++ {
		e.surface.RemoveMarker(p)
	}
	for p := from; int(p) < e.store.StopCount(); p++ {
		st, _ := e.store.Stop(p)
		e.surface.AddMarker(p, st.Location)
	}
}

func (e *Editor) redrawRoutesFrom(from RoutePosition, oldCount int) {
	for p := from; int(p) < oldCount; p++ {
		e.surface.ClearPolyline(p)
	}
	for p := from; int(p) < e.store.RouteCount(); p++ {
		e.drawRoute(p)
	}
}

// Wait blocks until every directions request started so far has returned.
func (e *Editor) Wait() {
	e.synth.wg.Wait()
}

// PendingPaths returns the number of directions requests still running.
func (e *Editor) PendingPaths() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synth.pending()
}

// Close cancels outstanding directions requests and waits for them.
func (e *Editor) Close() {
	e.mu.Lock()
	e.synth.cancelAll()
	e.mu.Unlock()
	e.synth.wg.Wait()
}

type nopSurface struct{}

func (nopSurface) AddMarker(StopPosition, Point)              {}
func (nopSurface) RemoveMarker(StopPosition)                  {}
func (nopSurface) SetPolyline(RoutePosition, []Point, string) {}
func (nopSurface) ClearPolyline(RoutePosition)                {}

type nopMetrics struct{}

func (nopMetrics) DirectionsRequested()     {}
func (nopMetrics) DirectionsFailed()        {}
func (nopMetrics) StaleResponseDiscarded()  {}
func (nopMetrics) PersistenceFailed(string) {}
func (nopMetrics) ReferencesDropped(int)    {}

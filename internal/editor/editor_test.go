package editor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"transit_editor/internal/models"
)

func strPtr(s string) *string { return &s }

func TestNewStopIsPlacedAndSaved(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, straightLine)

	if _, err := h.OpenNewStop(); err != nil {
		t.Fatalf("OpenNewStop: %v", err)
	}
	if h.Mode() != ModeMark {
		t.Fatalf("mode = %s, want mark", h.Mode())
	}
	if got := h.HandleClick(ClickEvent{At: ptA, Target: ClickSurface}); got != ClickPlaced {
		t.Fatalf("first click = %s, want placed", got)
	}
	id := StopID("S1")
	if err := h.UpdateStopDraft(StopDraft{ID: &id, Name: strPtr("Central")}); err != nil {
		t.Fatalf("UpdateStopDraft: %v", err)
	}
	if err := h.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if h.Mode() != ModeView {
		t.Errorf("mode after save = %s, want view", h.Mode())
	}
	if _, open := h.Session(); open {
		t.Error("session still open after save")
	}
	stops := h.Stops()
	if len(stops) != 1 || stops[0].ID != "S1" || stops[0].Location != ptA {
		t.Fatalf("stops = %+v", stops)
	}
	if got := h.backend.callLog(); !reflect.DeepEqual(got, []string{"create_stop"}) {
		t.Errorf("backend calls = %v", got)
	}
	if p := h.backend.lastStop; p.StopLat != ptA.Lat || p.StopLon != ptA.Lng || p.StopName != "Central" {
		t.Errorf("payload = %+v", p)
	}
	if markers, _ := h.surface.counts(); markers != 1 {
		t.Errorf("markers = %d, want 1", markers)
	}
}

func TestMarkClickMovesProvisionalStop(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, straightLine)
	h.OpenNewStop()
	h.HandleClick(ClickEvent{At: ptA, Target: ClickSurface})
	if got := h.HandleClick(ClickEvent{At: ptB, Target: ClickSurface}); got != ClickMoved {
		t.Fatalf("second click = %s, want moved", got)
	}
	stops := h.Stops()
	if len(stops) != 1 || stops[0].Location != ptB {
		t.Errorf("stops = %+v, want one stop at B", stops)
	}
	if h.Mode() != ModeMark {
		t.Errorf("mode = %s, want mark", h.Mode())
	}
}

func TestDraftBeforePlacementIsKept(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, straightLine)
	h.OpenNewStop()
	if err := h.UpdateStopDraft(StopDraft{Name: strPtr("Kencom")}); err != nil {
		t.Fatalf("UpdateStopDraft: %v", err)
	}
	if err := h.Save(context.Background()); !errors.Is(err, ErrStopNotPlaced) {
		t.Fatalf("Save before placement error = %v", err)
	}
	if err := h.UpdateStopDraft(StopDraft{Location: &ptB}); err != nil {
		t.Fatalf("place by coordinates: %v", err)
	}
	stops := h.Stops()
	if len(stops) != 1 || stops[0].Name != "Kencom" || stops[0].Location != ptB {
		t.Errorf("stops = %+v", stops)
	}
}

func TestCancelDiscardsNewStop(t *testing.T) {
	h := newHarness(t, threeStops(), straightLine)
	h.OpenNewStop()
	h.HandleClick(ClickEvent{At: ptA, Target: ClickSurface})
	if len(h.Stops()) != 4 {
		t.Fatalf("stops = %d, want 4", len(h.Stops()))
	}
	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(h.Stops()) != 3 {
		t.Errorf("stops after cancel = %d, want 3", len(h.Stops()))
	}
	if markers, _ := h.surface.counts(); markers != 3 {
		t.Errorf("markers = %d, want 3", markers)
	}
	if h.Mode() != ModeView {
		t.Errorf("mode = %s, want view", h.Mode())
	}
	if err := h.Cancel(); !errors.Is(err, ErrNoSession) {
		t.Errorf("second Cancel error = %v, want ErrNoSession", err)
	}
}

func TestSaveFailureKeepsSessionOpen(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, straightLine)
	h.backend.err = &models.APIError{Status: 409, Message: "stop_id S1 already exists"}

	h.OpenNewStop()
	h.HandleClick(ClickEvent{At: ptA, Target: ClickSurface})
	id := StopID("S1")
	h.UpdateStopDraft(StopDraft{ID: &id, Name: strPtr("Central")})

	err := h.Save(context.Background())
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Save error = %v, want *models.APIError", err)
	}
	s, open := h.Session()
	if !open {
		t.Fatal("session closed after failed save")
	}
	if s.Notice != "stop_id S1 already exists" {
		t.Errorf("notice = %q", s.Notice)
	}
	if s.Saving {
		t.Error("session still marked saving")
	}
	if h.Mode() != ModeMark {
		t.Errorf("mode = %s, want mark", h.Mode())
	}
	if len(h.Stops()) != 1 {
		t.Errorf("provisional stop lost")
	}
	if h.metrics.persistence.Load() != 1 {
		t.Errorf("persistence failures = %d", h.metrics.persistence.Load())
	}
}

func TestSaveRejectsBlankStop(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, straightLine)
	h.OpenNewStop()
	h.HandleClick(ClickEvent{At: ptA, Target: ClickSurface})
	id := StopID("S1")
	h.UpdateStopDraft(StopDraft{ID: &id})

	if err := h.Save(context.Background()); !errors.Is(err, ErrInvalidStop) {
		t.Fatalf("Save error = %v, want ErrInvalidStop", err)
	}
	if calls := h.backend.callLog(); len(calls) != 0 {
		t.Errorf("backend was called: %v", calls)
	}
}

func TestUpdateIsAddressedByOriginalID(t *testing.T) {
	h := newHarness(t, threeStops(), straightLine)
	if _, err := h.OpenEditStop(1); err != nil {
		t.Fatalf("OpenEditStop: %v", err)
	}
	if h.Mode() != ModeDrag {
		t.Fatalf("mode = %s, want drag", h.Mode())
	}
	id := StopID("B2")
	h.UpdateStopDraft(StopDraft{ID: &id})
	if err := h.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if h.backend.lastID != "B" || h.backend.lastStop.StopID != "B2" {
		t.Errorf("update addressed %q with id %q", h.backend.lastID, h.backend.lastStop.StopID)
	}
}

func TestRouteDrawnThenStopRemoved(t *testing.T) {
	h := newHarness(t, threeStops(), straightLine)
	if _, err := h.OpenNewRoute(""); err != nil {
		t.Fatalf("OpenNewRoute: %v", err)
	}
	if h.Mode() != ModeDraw {
		t.Fatalf("mode = %s, want draw", h.Mode())
	}

	if got := h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 0}); got != ClickAppended {
		t.Fatalf("click A = %s", got)
	}
	h.Wait()
	if h.metrics.requested.Load() != 0 {
		t.Error("directions requested for a single stop")
	}
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 1})
	h.Wait()

	r := h.Routes()[0]
	if !reflect.DeepEqual(r.StopIndexes, []StopPosition{0, 1}) {
		t.Fatalf("sequence = %v", r.StopIndexes)
	}
	if !reflect.DeepEqual(r.Path, []Point{ptA, ptB}) {
		t.Fatalf("path = %v", r.Path)
	}
	if _, ok := h.surface.polyline(0); !ok {
		t.Error("no polyline drawn")
	}

	if err := h.RemoveStopFromRoute(1); err != nil {
		t.Fatalf("RemoveStopFromRoute: %v", err)
	}
	r = h.Routes()[0]
	if len(r.Path) != 0 {
		t.Errorf("path not cleared below two stops: %v", r.Path)
	}
	if _, ok := h.surface.polyline(0); ok {
		t.Error("polyline still drawn")
	}

	h.UpdateRouteDraft(RouteDraft{ID: func() *RouteID { id := RouteID("R1"); return &id }(), Name: strPtr("1")})
	if err := h.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := h.backend.lastRoute.StopIDs; !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("saved stop ids = %v, want [A]", got)
	}
	if c := h.backend.lastRoute.RouteColor; c == nil || *c != "3b82f6" {
		t.Errorf("saved color = %v", c)
	}
	r = h.Routes()[0]
	if r.Edit || r.IsNew {
		t.Errorf("route after save edit=%v new=%v", r.Edit, r.IsNew)
	}
	if h.Mode() != ModeView {
		t.Errorf("mode = %s, want view", h.Mode())
	}
}

func TestRouteKeepsRepeatedVisits(t *testing.T) {
	var got [][]Point
	d := directionsFunc(func(_ context.Context, w []Point) ([]Point, error) {
		got = append(got, w)
		return w, nil
	})
	h := newHarness(t, threeStops(), d)
	h.OpenNewRoute("")
	for _, p := range []StopPosition{0, 1, 0} {
		h.HandleClick(ClickEvent{Target: ClickMarker, Stop: p})
		h.Wait()
	}
	r := h.Routes()[0]
	if !reflect.DeepEqual(r.StopIndexes, []StopPosition{0, 1, 0}) {
		t.Errorf("sequence = %v", r.StopIndexes)
	}
	if last := got[len(got)-1]; !reflect.DeepEqual(last, []Point{ptA, ptB, ptA}) {
		t.Errorf("waypoints = %v", last)
	}
}

func TestSameStopTwiceHasNoPath(t *testing.T) {
	h := newHarness(t, threeStops(), straightLine)
	h.OpenNewRoute("")
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 2})
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 2})
	h.Wait()
	if r := h.Routes()[0]; len(r.Path) != 0 {
		t.Errorf("path = %v, want empty", r.Path)
	}
	if h.metrics.requested.Load() != 0 {
		t.Errorf("directions requested %d times", h.metrics.requested.Load())
	}
}

func TestStaleDirectionsResponseIsDiscarded(t *testing.T) {
	d := newScriptedDirections()
	h := newHarness(t, threeStops(), d)
	h.OpenNewRoute("")
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 0})
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 1})
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 2})

	older, newer := d.next(t), d.next(t)
	if len(older.waypoints) == 3 {
		older, newer = newer, older
	}
	latest := []Point{ptA, ptB, ptC, ptC}
	newer.reply <- directionsReply{path: latest}
	older.reply <- directionsReply{path: []Point{ptA, ptB}}
	h.Wait()

	if r := h.Routes()[0]; !reflect.DeepEqual(r.Path, latest) {
		t.Errorf("path = %v, want the newest response", r.Path)
	}
	if h.metrics.stale.Load() != 1 {
		t.Errorf("stale responses = %d, want 1", h.metrics.stale.Load())
	}
	if h.PendingPaths() != 0 {
		t.Errorf("pending requests = %d", h.PendingPaths())
	}
}

func TestDirectionsFailureKeepsPreviousPath(t *testing.T) {
	d := newScriptedDirections()
	h := newHarness(t, threeStops(), d)
	h.OpenNewRoute("")
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 0})
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 1})
	d.next(t).reply <- directionsReply{path: []Point{ptA, ptB}}
	h.Wait()

	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 2})
	d.next(t).reply <- directionsReply{err: errors.New("no route found")}
	h.Wait()

	if r := h.Routes()[0]; !reflect.DeepEqual(r.Path, []Point{ptA, ptB}) {
		t.Errorf("path = %v, want previous path", r.Path)
	}
	s, _ := h.Session()
	if s.Notice == "" {
		t.Error("no notice after directions failure")
	}
	if h.metrics.failed.Load() != 1 {
		t.Errorf("directions failures = %d", h.metrics.failed.Load())
	}
}

func TestSaveRefusedWhilePathPending(t *testing.T) {
	d := newScriptedDirections()
	h := newHarness(t, threeStops(), d)
	h.OpenNewRoute("")
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 0})
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 1})
	d.next(t).reply <- directionsReply{path: []Point{ptA, ptB}}
	h.Wait()

	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 2})
	pending := d.next(t)
	id := RouteID("R1")
	h.UpdateRouteDraft(RouteDraft{ID: &id, Name: strPtr("1")})
	if err := h.Save(context.Background()); !errors.Is(err, ErrPathPending) {
		t.Fatalf("Save error = %v, want ErrPathPending", err)
	}
	if calls := h.backend.callLog(); len(calls) != 0 {
		t.Errorf("backend called: %v", calls)
	}
	if _, ok := h.Session(); !ok || h.Mode() != ModeDraw {
		t.Fatalf("session closed by refused save, mode %s", h.Mode())
	}

	full := []Point{ptA, ptB, ptC}
	pending.reply <- directionsReply{path: full}
	h.Wait()
	if err := h.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := h.backend.lastRoute.RoutePath; !reflect.DeepEqual(got, full) {
		t.Errorf("saved path = %v, want %v", got, full)
	}
}

func TestLoadClearsPathOfCoincidentStops(t *testing.T) {
	b := threeStops()
	b.stops = append(b.stops, models.StopPayload{StopID: "D", StopName: "Delta", StopLat: ptA.Lat, StopLon: ptA.Lng})
	b.routes = []models.RoutePayload{{
		RouteID:        "R1",
		RouteShortName: "1",
		StopIDs:        []string{"A", "D"},
		RoutePath:      []models.LatLng{ptA, ptB},
	}}
	h := newHarness(t, b, straightLine)

	r := h.Routes()[0]
	if !reflect.DeepEqual(r.StopIndexes, []StopPosition{0, 3}) {
		t.Fatalf("sequence = %v", r.StopIndexes)
	}
	if len(r.Path) != 0 {
		t.Errorf("path = %v, want empty for a single distinct location", r.Path)
	}
	if h.metrics.requested.Load() != 0 {
		t.Errorf("directions requested %d times", h.metrics.requested.Load())
	}
}

func loadedRoute() *fakeBackend {
	b := threeStops()
	b.routes = []models.RoutePayload{{
		RouteID:        "R1",
		RouteShortName: "1",
		RouteColor:     strPtr("ff0000"),
		StopIDs:        []string{"A", "B"},
		RoutePath:      []models.LatLng{ptA, ptB},
	}}
	return b
}

func TestCancelRestoresEditedRoute(t *testing.T) {
	h := newHarness(t, loadedRoute(), straightLine)
	before := h.Routes()[0]

	if _, err := h.OpenEditRoute(0); err != nil {
		t.Fatalf("OpenEditRoute: %v", err)
	}
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 2})
	h.UpdateRouteDraft(RouteDraft{Name: strPtr("renamed")})
	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	h.Wait()

	after := h.Routes()[0]
	if after.Name != before.Name || after.Color != "#ff0000" {
		t.Errorf("route fields not restored: %+v", after)
	}
	if !reflect.DeepEqual(after.StopIndexes, before.StopIndexes) || !reflect.DeepEqual(after.Path, before.Path) {
		t.Errorf("route = %+v, want %+v", after, before)
	}
	if after.Edit {
		t.Error("route still flagged for editing")
	}
	if calls := h.backend.callLog(); len(calls) != 0 {
		t.Errorf("backend called on cancel: %v", calls)
	}
}

func TestCancelDiscardsProvisionalRoute(t *testing.T) {
	d := newScriptedDirections()
	h := newHarness(t, loadedRoute(), d)
	before := h.Routes()

	if _, err := h.OpenNewRoute(""); err != nil {
		t.Fatalf("OpenNewRoute: %v", err)
	}
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 0})
	h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 2})
	pending := d.next(t)
	if len(h.Routes()) != 2 {
		t.Fatalf("routes while drawing = %d, want 2", len(h.Routes()))
	}

	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	pending.reply <- directionsReply{path: []Point{ptA, ptC}}
	h.Wait()

	if after := h.Routes(); !reflect.DeepEqual(before, after) {
		t.Errorf("routes after cancel = %+v, want %+v", after, before)
	}
	if h.Mode() != ModeView {
		t.Errorf("mode = %s, want view", h.Mode())
	}
	if _, ok := h.surface.polyline(1); ok {
		t.Error("polyline of the discarded route still drawn")
	}
}

func TestNewerSessionSupersedesOlder(t *testing.T) {
	h := newHarness(t, threeStops(), straightLine)
	h.OpenNewRoute("#00ff00")
	if len(h.Routes()) != 1 {
		t.Fatal("new route not created")
	}
	s, err := h.OpenNewStop()
	if err != nil {
		t.Fatalf("OpenNewStop: %v", err)
	}
	if s.Kind != TargetStop || h.Mode() != ModeMark {
		t.Errorf("session kind %s mode %s", s.Kind, h.Mode())
	}
	if len(h.Routes()) != 0 {
		t.Error("superseded provisional route survived")
	}
}

func TestClicksOutsideEditing(t *testing.T) {
	h := newHarness(t, threeStops(), straightLine)

	if got := h.HandleClick(ClickEvent{At: ptC, Target: ClickSurface}); got != ClickIgnored {
		t.Errorf("surface click in view = %s", got)
	}
	if got := h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 1}); got != ClickSelected {
		t.Fatalf("marker click in view = %s", got)
	}
	if st, ok := h.Selected(); !ok || st.ID != "B" {
		t.Errorf("selected = %+v", st)
	}
	if len(h.Stops()) != 3 {
		t.Error("view click mutated stops")
	}

	h.OpenNewStop()
	if got := h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 0}); got != ClickIgnored {
		t.Errorf("marker click in mark = %s", got)
	}
	if got := h.HandleClick(ClickEvent{At: ptA, Target: ClickControl}); got != ClickIgnored {
		t.Errorf("control click = %s", got)
	}
}

func TestDragMovesStopAndReroutes(t *testing.T) {
	h := newHarness(t, loadedRoute(), straightLine)
	h.OpenEditStop(1)

	if h.HandleDrag(DragEvent{Stop: 0, To: ptC}) {
		t.Error("drag of another marker was accepted")
	}
	if !h.HandleDrag(DragEvent{Stop: 1, To: ptC}) {
		t.Fatal("drag rejected")
	}
	h.Wait()
	if r := h.Routes()[0]; !reflect.DeepEqual(r.Path, []Point{ptA, ptC}) {
		t.Errorf("path = %v, want rerouted through the new location", r.Path)
	}

	h.Cancel()
	h.Wait()
	if st := h.Stops()[1]; st.Location != ptB {
		t.Errorf("stop location after cancel = %v, want B", st.Location)
	}
	if r := h.Routes()[0]; !reflect.DeepEqual(r.Path, []Point{ptA, ptB}) {
		t.Errorf("path after cancel = %v", r.Path)
	}
}

func TestLoadResolvesStopIDs(t *testing.T) {
	b := threeStops()
	b.routes = []models.RoutePayload{
		{RouteID: "R1", RouteShortName: "1", RouteColor: strPtr("ff0000"), StopIDs: []string{"A", "X", "C"}},
		{RouteID: "R2", RouteShortName: "2", StopIDs: []string{"A", "Y"}, RoutePath: []models.LatLng{ptA, ptB}},
	}
	h := newHarness(t, b, straightLine)

	routes := h.Routes()
	if !reflect.DeepEqual(routes[0].StopIndexes, []StopPosition{0, 2}) {
		t.Errorf("R1 sequence = %v", routes[0].StopIndexes)
	}
	if !reflect.DeepEqual(routes[0].Path, []Point{ptA, ptC}) {
		t.Errorf("R1 path = %v, want recomputed", routes[0].Path)
	}
	if len(routes[1].Path) != 0 {
		t.Errorf("R2 path = %v, want empty", routes[1].Path)
	}
	if routes[0].Color != "#ff0000" || routes[1].Color != DefaultRouteColor {
		t.Errorf("colors = %q, %q", routes[0].Color, routes[1].Color)
	}
	if h.metrics.dropped.Load() != 2 {
		t.Errorf("dropped references = %d, want 2", h.metrics.dropped.Load())
	}
}

func TestDeleteStopRepairsRoutes(t *testing.T) {
	b := threeStops()
	b.routes = []models.RoutePayload{{RouteID: "R1", RouteShortName: "1", StopIDs: []string{"A", "B", "C"}, RoutePath: []models.LatLng{ptA, ptB, ptC}}}
	h := newHarness(t, b, straightLine)

	if err := h.DeleteStop(context.Background(), 1); err != nil {
		t.Fatalf("DeleteStop: %v", err)
	}
	h.Wait()
	if h.backend.lastID != "B" {
		t.Errorf("deleted id = %q, want B", h.backend.lastID)
	}
	r := h.Routes()[0]
	if !reflect.DeepEqual(r.StopIndexes, []StopPosition{0, 1}) {
		t.Errorf("sequence = %v, want [0 1]", r.StopIndexes)
	}
	if !reflect.DeepEqual(r.Path, []Point{ptA, ptC}) {
		t.Errorf("path = %v", r.Path)
	}
	if markers, _ := h.surface.counts(); markers != 2 {
		t.Errorf("markers = %d, want 2", markers)
	}
}

func TestDeleteFailureLeavesStore(t *testing.T) {
	h := newHarness(t, loadedRoute(), straightLine)
	h.backend.err = &models.APIError{Status: 500, Message: "boom"}

	if err := h.DeleteStop(context.Background(), 0); err == nil {
		t.Fatal("DeleteStop succeeded")
	}
	if err := h.DeleteRoute(context.Background(), 0); err == nil {
		t.Fatal("DeleteRoute succeeded")
	}
	if len(h.Stops()) != 3 || len(h.Routes()) != 1 {
		t.Errorf("store changed: %d stops, %d routes", len(h.Stops()), len(h.Routes()))
	}
}

func TestDeleteRoute(t *testing.T) {
	h := newHarness(t, loadedRoute(), straightLine)
	if err := h.DeleteRoute(context.Background(), 0); err != nil {
		t.Fatalf("DeleteRoute: %v", err)
	}
	if len(h.Routes()) != 0 {
		t.Error("route still present")
	}
	if _, lines := h.surface.counts(); lines != 0 {
		t.Errorf("polylines = %d", lines)
	}
}

func TestDeleteRefusedWhileEditing(t *testing.T) {
	h := newHarness(t, threeStops(), straightLine)
	h.OpenNewRoute("")
	if err := h.DeleteStop(context.Background(), 0); !errors.Is(err, ErrSessionOpen) {
		t.Errorf("DeleteStop error = %v, want ErrSessionOpen", err)
	}
	if err := h.DeleteStop(context.Background(), 7); !errors.Is(err, ErrSessionOpen) {
		t.Errorf("DeleteStop error = %v", err)
	}
}

func TestCancelAbortsSave(t *testing.T) {
	h := newHarness(t, threeStops(), straightLine)
	h.backend.started = make(chan struct{}, 1)
	h.backend.release = make(chan struct{})

	h.OpenEditStop(0)
	errc := make(chan error, 1)
	go func() { errc <- h.Save(context.Background()) }()
	<-h.backend.started

	if s, _ := h.Session(); !s.Saving {
		t.Error("session not marked saving")
	}
	if err := h.Save(context.Background()); !errors.Is(err, ErrSaveInFlight) {
		t.Errorf("second Save error = %v, want ErrSaveInFlight", err)
	}
	if got := h.HandleClick(ClickEvent{Target: ClickMarker, Stop: 1}); got != ClickIgnored {
		t.Errorf("click during save = %s", got)
	}
	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := <-errc; !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Save error = %v, want ErrSessionClosed", err)
	}
	if h.Mode() != ModeView {
		t.Errorf("mode = %s, want view", h.Mode())
	}
}

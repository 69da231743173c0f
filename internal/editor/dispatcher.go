package editor

import "github.com/sirupsen/logrus"

// ClickTarget says what was under the pointer.
type ClickTarget string

const (
	ClickSurface ClickTarget = "surface"
	ClickMarker  ClickTarget = "marker"
	ClickControl ClickTarget = "control"
)

// ClickEvent is a pointer click on the map. Stop is set for marker clicks.
type ClickEvent struct {
	At     Point        `json:"at"`
	Target ClickTarget  `json:"target"`
	Stop   StopPosition `json:"stop"`
}

// ClickOutcome tells the caller what a click did.
type ClickOutcome string

const (
	ClickIgnored  ClickOutcome = "ignored"
	ClickPlaced   ClickOutcome = "placed"
	ClickMoved    ClickOutcome = "moved"
	ClickAppended ClickOutcome = "appended"
	ClickSelected ClickOutcome = "selected"
)

// HandleClick interprets a click according to the current mode:
//
//	mark  surface click places the new stop, or moves it if already placed
//	draw  marker click appends that stop to the route being edited
//	view  marker click selects the stop for display
//
// Anything else, and every click while a save is running, is ignored.
func (e *Editor) HandleClick(ev ClickEvent) ClickOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Target == ClickControl {
		return ClickIgnored
	}
	if e.session != nil && e.session.Saving {
		return ClickIgnored
	}

	switch e.modes.Current() {
	case ModeView:
		if ev.Target != ClickMarker {
			e.selected = NoStop
			return ClickIgnored
		}
		if _, ok := e.store.Stop(ev.Stop); !ok {
			return ClickIgnored
		}
		e.selected = ev.Stop
		return ClickSelected

	case ModeMark:
		if ev.Target != ClickSurface || e.session == nil || e.session.Kind != TargetStop {
			return ClickIgnored
		}
		placed := e.session.Placed()
		e.placeStopLocked(e.session, ev.At)
		if placed {
			return ClickMoved
		}
		return ClickPlaced

	case ModeDraw:
		if ev.Target != ClickMarker || e.session == nil || e.session.Kind != TargetRoute {
			return ClickIgnored
		}
		pos, err := e.store.AppendStopToEditingRoute(ev.Stop)
		if err != nil {
			logrus.WithError(err).WithField("stop_position", ev.Stop).Debug("marker click not appended")
			return ClickIgnored
		}
		e.requestPathLocked(pos)
		return ClickAppended
	}
	return ClickIgnored
}

// DragEvent is the end of a marker drag.
type DragEvent struct {
	Stop StopPosition `json:"stop"`
	To   Point        `json:"to"`
}

// HandleDrag moves the stop of the open edit-stop session. Drags of other
// markers, or outside ModeDrag, are ignored.
func (e *Editor) HandleDrag(ev DragEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.modes.Current() != ModeDrag {
		return false
	}
	s, err := e.sessionFor(TargetStop)
	if err != nil || s.Stop != ev.Stop {
		return false
	}
	stop, ok := e.store.Stop(s.Stop)
	if !ok {
		return false
	}
	stop.Location = ev.To
	_ = e.store.UpdateStopAt(s.Stop, stop)
	e.stopMovedLocked(s.Stop)
	return true
}

// Selected returns the stop last selected in ModeView.
func (e *Editor) Selected() (Stop, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Stop(e.selected)
}

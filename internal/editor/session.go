package editor

import (
	"context"

	"github.com/google/uuid"
)

// TargetKind names the kind of entity an edit session works on.
type TargetKind string

const (
	TargetStop  TargetKind = "stop"
	TargetRoute TargetKind = "route"
)

// Session is one open editing panel. It records what the panel edits and
// what must be put back if the user cancels: a new entity is discarded, an
// existing one is restored from its origin snapshot.
type Session struct {
	ID     uuid.UUID     `json:"id"`
	Kind   TargetKind    `json:"kind"`
	IsNew  bool          `json:"is_new"`
	Stop   StopPosition  `json:"stop"`
	Route  RoutePosition `json:"route"`
	Notice string        `json:"notice,omitempty"`
	Saving bool          `json:"saving"`

	// pending collects form input of a new stop until it is placed.
	pending     Stop
	originStop  *Stop
	originRoute *Route
	cancelSave  context.CancelFunc
}

func newStopSession(pos StopPosition, origin *Stop) *Session {
	return &Session{
		ID:         uuid.New(),
		Kind:       TargetStop,
		IsNew:      origin == nil,
		Stop:       pos,
		Route:      -1,
		originStop: origin,
	}
}

func newRouteSession(pos RoutePosition, origin *Route) *Session {
	return &Session{
		ID:          uuid.New(),
		Kind:        TargetRoute,
		IsNew:       origin == nil,
		Stop:        NoStop,
		Route:       pos,
		originRoute: origin,
	}
}

// Placed reports whether a stop session has a stop in the store yet.
func (s *Session) Placed() bool {
	return s.Kind == TargetStop && s.Stop != NoStop
}

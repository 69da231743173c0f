package editor

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid mode transition")
	ErrNoSession         = errors.New("no edit session is open")
	ErrSessionOpen       = errors.New("an edit session is already open")
	ErrSessionClosed     = errors.New("edit session was closed before the request finished")
	ErrSaveInFlight      = errors.New("a save is already in progress")
	ErrOutOfRange        = errors.New("position out of range")
	ErrNoEditingRoute    = errors.New("no route is being edited")
	ErrInvalidRoute      = errors.New("route name and id must not be blank")
	ErrInvalidStop       = errors.New("stop name and id must not be blank")
	ErrStopNotPlaced     = errors.New("new stop has not been placed on the map")
	ErrUnresolvedStop    = errors.New("route references a stop without an id")
	ErrWrongSession      = errors.New("operation does not match the open session")
	ErrBusy              = errors.New("a persistence request is in progress")
	ErrNoBackend         = errors.New("no persistence backend configured")
	ErrPathPending       = errors.New("route path is still being computed")
)

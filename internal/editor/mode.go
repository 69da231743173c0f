package editor

// Mode is the global interaction mode. It decides how map clicks are read.
type Mode string

const (
	ModeView Mode = "view"
	ModeMark Mode = "mark"
	ModeDraw Mode = "draw"
	ModeDrag Mode = "drag"
)

// Trigger is an edit-session event that moves the mode machine.
type Trigger int

const (
	OpenNewStop Trigger = iota
	OpenEditStop
	OpenNewRoute
	OpenEditRoute
	CloseSession
)

func (t Trigger) String() string {
	switch t {
	case OpenNewStop:
		return "open-new-stop"
	case OpenEditStop:
		return "open-edit-stop"
	case OpenNewRoute:
		return "open-new-route"
	case OpenEditRoute:
		return "open-edit-route"
	case CloseSession:
		return "close-session"
	}
	return "unknown"
}

// ModeMachine tracks the current mode. The zero value is in ModeView.
//
// Opening a session while another one is open is allowed: the newer request
// wins. The caller is responsible for closing the superseded session.
type ModeMachine struct {
	current Mode
}

func (m *ModeMachine) Current() Mode {
	if m.current == "" {
		return ModeView
	}
	return m.current
}

// Transition applies t and returns the resulting mode. Closing while already
// in ModeView returns ErrInvalidTransition and leaves the mode unchanged.
func (m *ModeMachine) Transition(t Trigger) (Mode, error) {
	switch t {
	case OpenNewStop:
		m.current = ModeMark
	case OpenEditStop:
		m.current = ModeDrag
	case OpenNewRoute, OpenEditRoute:
		m.current = ModeDraw
	case CloseSession:
		if m.Current() == ModeView {
			return ModeView, ErrInvalidTransition
		}
		m.current = ModeView
	default:
		return m.Current(), ErrInvalidTransition
	}
	return m.current, nil
}

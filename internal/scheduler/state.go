package scheduler

import "fmt"

// State is a phase of the progressive report state machine
type State int

const (
	StateIdle State = iota
	StateRendering
	StateTypesetting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRendering:
		return "Rendering"
	case StateTypesetting:
		return "Typesetting"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transition is one step of the state machine. Cursor is the index of the
// chapter about to render while Rendering, and the chapter count afterwards.
type Transition struct {
	State  State
	Cursor int
}

func (t Transition) String() string {
	if t.State == StateRendering {
		return fmt.Sprintf("Rendering(%d)", t.Cursor)
	}
	return t.State.String()
}

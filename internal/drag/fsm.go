package drag

import (
	"errors"
	"slices"

	"github.com/rendis/flowedit/pkg/schema"
)

// State is the interaction mode of the drag engine.
type State string

const (
	Idle       State = "idle"
	Selecting  State = "selecting"
	Moving     State = "moving"
	Resizing   State = "resizing"
	Connecting State = "connecting"
)

// ValidTransitions lists the allowed state changes. A gesture always starts
// from Idle and always ends in Idle.
var ValidTransitions = map[State][]State{
	Idle:       {Selecting, Moving, Resizing, Connecting},
	Selecting:  {Idle},
	Moving:     {Idle},
	Resizing:   {Idle},
	Connecting: {Idle},
}

// TransitionHook is called before or after a state transition.
type TransitionHook func(from, to State) error

type hookKey struct {
	from, to State
}

// machine tracks the current State and runs registered hooks around each
// transition. Before hooks may veto starting a gesture; they cannot keep a
// gesture alive, so a transition to Idle always completes and any hook
// errors are returned afterwards.
type machine struct {
	state  State
	before map[hookKey][]TransitionHook
	after  map[hookKey][]TransitionHook
}

func newMachine() *machine {
	return &machine{
		state:  Idle,
		before: make(map[hookKey][]TransitionHook),
		after:  make(map[hookKey][]TransitionHook),
	}
}

func (m *machine) onBefore(from, to State, hook TransitionHook) {
	key := hookKey{from, to}
	m.before[key] = append(m.before[key], hook)
}

func (m *machine) onAfter(from, to State, hook TransitionHook) {
	key := hookKey{from, to}
	m.after[key] = append(m.after[key], hook)
}

func (m *machine) transition(to State) error {
	from := m.state
	if !isValidTransition(from, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid drag transition: %s -> %s", from, to).
			WithDetails(map[string]any{"from": string(from), "to": string(to)})
	}

	key := hookKey{from, to}
	var errs []error
	for _, hook := range m.before[key] {
		if err := hook(from, to); err != nil {
			if to != Idle {
				return err
			}
			errs = append(errs, err)
		}
	}

	m.state = to

	for _, hook := range m.after[key] {
		if err := hook(from, to); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isValidTransition(from, to State) bool {
	return slices.Contains(ValidTransitions[from], to)
}

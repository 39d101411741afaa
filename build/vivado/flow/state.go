package flow

import "fmt"

// State is the position of a run in the pipeline.
type State string

const (
	StateStart              State = "Start"
	StateValidated          State = "Validated"
	StateIngested           State = "Ingested"
	StateTargetConfigured   State = "TargetConfigured"
	StateConstraintsApplied State = "ConstraintsApplied"
	StateSynthesized        State = "Synthesized"
	StateImplemented        State = "Implemented"
	StateReported           State = "Reported"
	StateDone               State = "Done"
	StateFailed             State = "Failed"
)

var forward = map[State][]State{
	StateStart:              {StateValidated},
	StateValidated:          {StateIngested},
	StateIngested:           {StateTargetConfigured},
	StateTargetConfigured:   {StateConstraintsApplied, StateSynthesized},
	StateConstraintsApplied: {StateSynthesized},
	StateSynthesized:        {StateImplemented},
	StateImplemented:        {StateReported},
	StateReported:           {StateDone},
}

// IsTerminal reports whether no further transition is possible from s.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether from -> to is an edge of the pipeline.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		return from != StateStart && !from.IsTerminal()
	}
	for _, n := range forward[from] {
		if n == to {
			return true
		}
	}
	return false
}

// machine tracks the state of one run and refuses illegal moves.
type machine struct {
	state State
}

func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("disallowed transition: %v -> %v", m.state, next)
	}
	m.state = next
	return nil
}

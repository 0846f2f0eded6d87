package upstream

import "fmt"

// State is a step of the exchange retry state machine:
//
//	Idle -> Sending -> Waiting -> Success
//	                          \-> TimedOut -> Sending (while attempts remain)
//	                                      \-> Exhausted
//
// Success and Exhausted are terminal.
type State uint8

const (
	StateIdle State = iota
	StateSending
	StateWaiting
	StateSuccess
	StateTimedOut
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSending:
		return "Sending"
	case StateWaiting:
		return "Waiting"
	case StateSuccess:
		return "Success"
	case StateTimedOut:
		return "TimedOut"
	case StateExhausted:
		return "Exhausted"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateExhausted
}

// canTransition lists the legal edges of the state machine.
func canTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateSending
	case StateSending:
		return to == StateWaiting
	case StateWaiting:
		return to == StateSuccess || to == StateTimedOut
	case StateTimedOut:
		return to == StateSending || to == StateExhausted
	default:
		return false
	}
}

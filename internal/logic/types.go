// Package logic contains the pure decision logic of the lamp: the gesture
// classifier and the state-to-animation/colour tables.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Everything advances in discrete ticks supplied by the caller.
package logic

import "fmt"

// State is the lamp state shared with the peer device.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
	StateHolding  State = "holding"
	StateSleep    State = "sleep"
)

// ParseState validates a state received from the wire or the config.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateInactive, StateActive, StateHolding, StateSleep:
		return st, nil
	}
	return "", fmt.Errorf("unknown state %q", s)
}

// Valid reports whether s is one of the four defined states.
func (s State) Valid() bool {
	_, err := ParseState(string(s))
	return err == nil
}

// Gesture is the classifier output for one sensor tick.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureActive
	GestureSleep
	GestureHolding
)

func (g Gesture) String() string {
	switch g {
	case GestureActive:
		return "active"
	case GestureSleep:
		return "sleep"
	case GestureHolding:
		return "holding"
	default:
		return "none"
	}
}

// State maps a gesture to the local state it puts the lamp in.
// GestureNone maps to the empty state.
func (g Gesture) State() State {
	switch g {
	case GestureActive:
		return StateActive
	case GestureSleep:
		return StateSleep
	case GestureHolding:
		return StateHolding
	default:
		return ""
	}
}

// Animation selects the time function the animation engine runs.
type Animation string

const (
	AnimIdle    Animation = "idle"
	AnimActive  Animation = "active"
	AnimHolding Animation = "holding"
	AnimSleep   Animation = "sleep"
)

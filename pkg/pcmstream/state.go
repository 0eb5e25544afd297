// ABOUTME: Session lifecycle states and sentinel errors
// ABOUTME: idle -> connecting -> negotiating -> buffering <-> playing -> closed
package pcmstream

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps connection failures
	ErrTransport = errors.New("transport failure")
	// ErrStarved is returned by the scheduler when the device has played
	// everything and the buffer is empty
	ErrStarved = errors.New("buffer starved")
)

// State is a session lifecycle state
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateNegotiating
	StateBuffering
	StatePlaying
	StateDraining
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateNegotiating:
		return "negotiating"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether the session holds or is acquiring a connection
func (s State) Active() bool {
	return s >= StateConnecting && s <= StateDraining
}

// Terminal reports whether the session has ended
func (s State) Terminal() bool {
	return s == StateClosed || s == StateError
}

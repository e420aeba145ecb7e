// Package provisioning runs the one-time install of the shipping carrier on a store.
package provisioning

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// State is a step of the install state machine.
type State int

// Install states. Any state may abort to StateFailed.
const (
	StateStart State = iota
	StateAuthorizing
	StateCallbackReceived
	StateTokenExchanged
	StateCarrierCreated
	StateOptionsCreated
	StateFailed
)

var stateNames = [...]string{
	StateStart:            "START",
	StateAuthorizing:      "AUTHORIZING",
	StateCallbackReceived: "CALLBACK_RECEIVED",
	StateTokenExchanged:   "TOKEN_EXCHANGED",
	StateCarrierCreated:   "CARRIER_CREATED",
	StateOptionsCreated:   "OPTIONS_CREATED",
	StateFailed:           "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// terminal reports whether no further transition is possible.
func (s State) terminal() bool {
	return s == StateOptionsCreated || s == StateFailed
}

// Run tracks the transitions of a single install attempt.
type Run struct {
	ID      string
	State   State
	History []State
}

func newRun(from State) *Run {
	return &Run{
		ID:      uuid.NewString(),
		State:   from,
		History: []State{from},
	}
}

// advance records a transition. A run that reached a terminal state stays there.
func (r *Run) advance(to State) {
	if r.State.terminal() {
		return
	}
	r.State = to
	r.History = append(r.History, to)
}

// newState returns a single-use 128-bit hex OAuth state value.
func newState() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// stateMatches compares in constant time. An empty stored value never matches.
func stateMatches(stored, received string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(received)) == 1
}

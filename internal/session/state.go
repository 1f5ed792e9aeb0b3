// Package session models admin session establishment as an explicit state machine.
//
// A session starts signed out, moves to profile lookup once a credential is present, and ends
// either authenticated, awaiting a one-time code, or rejected as not an admin. Once verified a
// session stays verified until it is closed or expires.
package session

import (
	"errors"
	"fmt"
)

// State is a session establishment state.
type State string

const (
	StateSignedOut     State = "signed_out"
	StateProfileLookup State = "profile_lookup"
	StateNotAdmin      State = "not_admin"
	StateAwaitingCode  State = "awaiting_code"
	StateAuthenticated State = "authenticated"
)

// Event drives a transition.
type Event string

const (
	EventUserPresent    Event = "user_present"     // Credential accepted.
	EventProfileMissing Event = "profile_missing"  // No admin profile for the uid.
	EventAdminNo2FA     Event = "admin_no_2fa"     // Profile found, two-factor disabled.
	EventAdmin2FA       Event = "admin_2fa"        // Profile found, two-factor enabled.
	EventCodeVerified   Event = "code_verified"    // One-time code accepted.
	EventSignOut        Event = "sign_out"         // Logout, rejection or credential revoked.
)

// ErrIllegalTransition is returned when an event is not valid in the current state.
var ErrIllegalTransition = errors.New("session: illegal transition")

var transitions = map[State]map[Event]State{
	StateSignedOut: {
		EventUserPresent: StateProfileLookup,
	},
	StateProfileLookup: {
		EventProfileMissing: StateNotAdmin,
		EventAdminNo2FA:     StateAuthenticated,
		EventAdmin2FA:       StateAwaitingCode,
		EventSignOut:        StateSignedOut,
	},
	StateNotAdmin: {
		EventSignOut: StateSignedOut,
	},
	StateAwaitingCode: {
		EventCodeVerified: StateAuthenticated,
		EventSignOut:      StateSignedOut,
	},
	StateAuthenticated: {
		EventSignOut: StateSignedOut,
	},
}

// Next returns the state reached from s on ev.
func Next(s State, ev Event) (State, error) {
	if next, ok := transitions[s][ev]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, s)
}

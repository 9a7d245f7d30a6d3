package game

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTurnInFlight is returned when an action arrives while another turn is
// still resolving. One turn per session at a time.
var ErrTurnInFlight = errors.New("a turn is already resolving")

// GeneratorUnavailableError wraps a transport/auth failure calling the
// external model. Fatal to the turn, not to the session.
type GeneratorUnavailableError struct {
	Err error
}

func (e *GeneratorUnavailableError) Error() string {
	return fmt.Sprintf("generator unavailable: %v", e.Err)
}

func (e *GeneratorUnavailableError) Unwrap() error { return e.Err }

// MalformedResponseError reports a generator reply whose structure could not
// be repaired. Missing lists the required fields that were unresolvable.
type MalformedResponseError struct {
	Missing []string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("generator response missing required fields: %s", strings.Join(e.Missing, ", "))
}

// ValidationError reports a required field resolvable neither from the
// response nor from prior state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid turn: field %q unresolvable", e.Field)
	}
	return fmt.Sprintf("invalid turn: field %q: %s", e.Field, e.Reason)
}

// PersistenceError wraps a storage failure. Non-fatal: callers log it and the
// in-memory state stays authoritative for the rest of the session.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

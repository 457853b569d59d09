package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNode is returned when an account's node is not in the
	// registry; a deployment problem, not a caller fault.
	ErrUnknownNode = errors.New("application: unknown node")
	// ErrAppointmentNotFound is returned when the referenced appointment no
	// longer exists on the remote calendar.
	ErrAppointmentNotFound = errors.New("application: appointment not found")
	// ErrAttendeeUnbookable is returned when the remote store refuses to
	// book an attendee. The remote signal does not distinguish the causes
	// (already reserved, delegation revoked, identity retired), so neither
	// can we.
	ErrAttendeeUnbookable = errors.New("application: attendee cannot be booked")
	// ErrConflictExists is returned when a requested window collides with
	// an existing commitment on the target calendar.
	ErrConflictExists = errors.New("application: conflicting event exists")
	// ErrVisitorLimit is returned when joining would exceed an
	// appointment's visitor limit, or the appointment does not admit
	// joining at all.
	ErrVisitorLimit = errors.New("application: visitor limit reached")
	// ErrNotJoined is returned when leaving an appointment the visitor is
	// not an attendee of.
	ErrNotJoined = errors.New("application: visitor not joined")
	// ErrInvalidCredentials is returned when an admin credential check
	// fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// SessionFaultError wraps failures attributable to the session or its node:
// the session was invalidated and retrying on a fresh one may succeed.
type SessionFaultError struct {
	Node string
	Err  error
}

func (e *SessionFaultError) Error() string {
	return fmt.Sprintf("session fault on node %s: %v", e.Node, e.Err)
}

func (e *SessionFaultError) Unwrap() error { return e.Err }

// RequestFaultError wraps failures attributable to the request itself: the
// session stayed healthy and retrying the same request will fail again.
type RequestFaultError struct {
	Op  string
	Err error
}

func (e *RequestFaultError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestFaultError) Unwrap() error { return e.Err }

// IsSessionFault reports whether the error chain contains a session fault.
func IsSessionFault(err error) bool {
	var sf *SessionFaultError
	return errors.As(err, &sf)
}
